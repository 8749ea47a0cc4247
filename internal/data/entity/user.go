package entity

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleProvider UserRole = "provider"
	RoleAdmin    UserRole = "admin"
)

type User struct {
	Base
	Name  string   `db:"name"`
	Email *string  `db:"email"`
	Role  UserRole `db:"role"`
}
