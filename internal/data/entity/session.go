package entity

import "github.com/google/uuid"

// AuthPrincipal is a valid session joined with its user's role.
type AuthPrincipal struct {
	UserID uuid.UUID
	Role   UserRole
}
