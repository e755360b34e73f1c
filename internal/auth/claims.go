// ABOUTME: Role claims read from access tokens and user payloads.
// ABOUTME: Admin access is decided only by server-issued claims.
package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/2389-research/connect/internal/models"
)

// Claims are the role-related fields of an access token.
type Claims struct {
	UserID      int64
	Role        string
	IsStaff     bool
	IsSuperuser bool
}

// ParseClaims reads claims from a JWT without verifying its signature. The
// server verifies tokens on every request; the client only uses these to decide
// what to show.
func ParseClaims(token string) (*Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return nil, err
	}

	c := &Claims{}
	if v, ok := mc["user_id"].(float64); ok {
		c.UserID = int64(v)
	}
	c.Role, _ = mc["role"].(string)
	c.IsStaff, _ = mc["is_staff"].(bool)
	c.IsSuperuser, _ = mc["is_superuser"].(bool)
	return c, nil
}

// IsAdmin reports whether the session carries a server-issued admin claim, either
// on the user profile or inside the access token.
func IsAdmin(user *models.User, accessToken string) bool {
	if user != nil && (user.Role == "admin" || user.IsStaff) {
		return true
	}
	if accessToken == "" {
		return false
	}
	c, err := ParseClaims(accessToken)
	if err != nil {
		return false
	}
	return c.Role == "admin" || c.IsStaff || c.IsSuperuser
}
