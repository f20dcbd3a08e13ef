package workflow

// Role is the closed set of actor roles participating in the request lifecycle
type Role string

const (
	RoleEmployee   Role = "employee"
	RoleSupplier   Role = "supplier"
	RoleDirector   Role = "director"
	RoleAccountant Role = "accountant"
	RoleAdmin      Role = "admin"
)

var validRoles = map[Role]bool{
	RoleEmployee:   true,
	RoleSupplier:   true,
	RoleDirector:   true,
	RoleAccountant: true,
	RoleAdmin:      true,
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsValid returns true if the role is one of the defined roles
func (r Role) IsValid() bool {
	return validRoles[r]
}

// AllRoleNames returns every defined role name, for route guards
func AllRoleNames() []string {
	return []string{
		RoleEmployee.String(),
		RoleSupplier.String(),
		RoleDirector.String(),
		RoleAccountant.String(),
		RoleAdmin.String(),
	}
}
