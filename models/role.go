package models

// Roles carried in the users.role column and in the access token.
const (
	RoleAdmin = "ADMIN"
	RoleWarga = "WARGA"
)

// IsValidRole reports whether r is one of the known roles.
func IsValidRole(r string) bool {
	return r == RoleAdmin || r == RoleWarga
}
