package domain

// BootstrapAdmin describes the administrator created on first start.
type BootstrapAdmin struct {
	Username string
	Email    string
	Name     string
	Password string
}

// RoleAdmin is granted to the bootstrap administrator.
const RoleAdmin = "admin"
