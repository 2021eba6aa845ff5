package domain

// Role is the canonical privilege level attached to an identity.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Identity is a verified caller, produced fresh per request from a
// credential. It is never cached across requests.
type Identity struct {
	SubjectID   string
	Email       string
	DisplayName string
	Role        Role
}

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}
