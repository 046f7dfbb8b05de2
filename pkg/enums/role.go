package enums

import "fmt"

// Role is the actor kind carried in access tokens.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleSeller Role = "seller"
)

var validRoles = []Role{
	RoleAdmin,
	RoleSeller,
}

func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
