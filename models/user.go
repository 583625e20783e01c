package models

// Role is the capability class the authorization collaborator assigns to a caller.
type Role string

const (
	RoleCitizen Role = "citizen"
	RoleOfficer Role = "officer"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleOfficer, RoleAdmin:
		return true
	}
	return false
}

// Principal is the authenticated caller as resolved by the authorization collaborator.
type Principal struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

// IsStaff reports whether the principal acts on behalf of the service counter.
func (p Principal) IsStaff() bool {
	return p.Role == RoleOfficer || p.Role == RoleAdmin
}
