package models

import "github.com/golang-jwt/jwt/v5"

// UserRole is the role claim issued by the identity provider.
type UserRole string

const (
	RoleMentor  UserRole = "mentor"
	RoleStudent UserRole = "student"
)

// Valid reports whether r is a role this service understands.
func (r UserRole) Valid() bool {
	return r == RoleMentor || r == RoleStudent
}

// JWTClaims is the access token payload. Tokens are issued elsewhere; this
// service only validates them.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
