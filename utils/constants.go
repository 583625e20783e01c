// File: utils/constants.go
package utils

import "time"

// CatalogCachePrefix is the prefix used for Redis catalog cache keys.
const CatalogCachePrefix = "catalog:"

// DefaultCatalogCacheTTL applies when CATALOG_CACHE_TTL_SECONDS is unset.
const DefaultCatalogCacheTTL = 5 * time.Minute

// PrincipalContextKey is the gin context key holding the authenticated models.Principal.
const PrincipalContextKey = "principal"
