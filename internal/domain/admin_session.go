package domain

import "github.com/golang-jwt/jwt/v5"

// RoleAdmin is the only role the back office knows about.
const RoleAdmin = "admin"

// AdminClaims is the payload of a back-office token. Expiry is the only
// termination mechanism; there is no server-side revocation.
type AdminClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the claims assert the admin role.
func (c *AdminClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// AdminUser is the user object returned by the login endpoint.
type AdminUser struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}
