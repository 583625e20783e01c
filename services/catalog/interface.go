// Package catalog answers what the engine needs to know about a bookable service.
// The catalog itself is owned by another system; this package only reads it.
package catalog

import (
	"context"

	"govbook/models"
)

// Catalog resolves a (department, service) pair.
// An unknown pair returns models.ErrNotFound.
type Catalog interface {
	Lookup(ctx context.Context, department, service string) (models.ServiceInfo, error)
}
