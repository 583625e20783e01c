package catalog

import (
	"context"

	"govbook/models"
)

// StaticCatalog serves a fixed list, typically the CATALOG config key.
type StaticCatalog struct {
	entries map[string]models.ServiceInfo
}

// NewStaticCatalog indexes entries by department and service.
func NewStaticCatalog(entries []models.ServiceInfo) *StaticCatalog {
	c := &StaticCatalog{entries: make(map[string]models.ServiceInfo, len(entries))}
	for _, e := range entries {
		c.entries[key(e.Department, e.Service)] = e
	}
	return c
}

func (c *StaticCatalog) Lookup(_ context.Context, department, service string) (models.ServiceInfo, error) {
	info, ok := c.entries[key(department, service)]
	if !ok {
		return models.ServiceInfo{}, models.ErrNotFound
	}
	return info, nil
}

func key(department, service string) string {
	return department + ":" + service
}
