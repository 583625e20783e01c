package catalog

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"govbook/database"
	"govbook/models"
)

// MongoCatalog reads the services collection maintained by the catalog owner.
type MongoCatalog struct {
	coll *mongo.Collection
}

// NewMongoCatalog returns a Catalog over db's services collection.
func NewMongoCatalog(db *mongo.Database) *MongoCatalog {
	return &MongoCatalog{coll: db.Collection("services")}
}

func (c *MongoCatalog) Lookup(ctx context.Context, department, service string) (models.ServiceInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var info models.ServiceInfo
	err := c.coll.FindOne(ctx, bson.M{"department": department, "code": service}).Decode(&info)
	if err != nil {
		return models.ServiceInfo{}, database.Wrap("catalog.lookup", err)
	}
	return info, nil
}
