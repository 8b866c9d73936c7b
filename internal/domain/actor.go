package domain

type Role string

const (
	RoleAdmin       Role = "admin"
	RoleManager     Role = "manager"
	RoleSalesperson Role = "salesperson"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSalesperson:
		return true
	default:
		return false
	}
}

// Actor is the current user as reported by the authentication layer.
type Actor struct {
	ID   UserID
	Role Role
}
