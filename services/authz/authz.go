// Package authz is the single capability check used by every engine operation.
package authz

import (
	"fmt"

	"govbook/models"
)

// Require returns ErrForbidden unless p holds one of roles.
func Require(p models.Principal, roles ...models.Role) error {
	if p.UserID == "" || !p.Role.Valid() {
		return fmt.Errorf("%w: unauthenticated caller", models.ErrForbidden)
	}
	for _, r := range roles {
		if p.Role == r {
			return nil
		}
	}
	return fmt.Errorf("%w: role %s may not perform this action", models.ErrForbidden, p.Role)
}

// RequireOwnerOr allows the citizen who owns the resource, or any principal holding one of roles.
func RequireOwnerOr(p models.Principal, ownerID string, roles ...models.Role) error {
	if p.Role == models.RoleCitizen && p.UserID != "" && p.UserID == ownerID {
		return nil
	}
	if err := Require(p, roles...); err != nil {
		if p.Role == models.RoleCitizen {
			return fmt.Errorf("%w: appointment belongs to another citizen", models.ErrForbidden)
		}
		return err
	}
	return nil
}

// Staff is the role set allowed to run counter operations.
var Staff = []models.Role{models.RoleOfficer, models.RoleAdmin}
