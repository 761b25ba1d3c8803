package jwt

import "github.com/golang-jwt/jwt/v5"

// OperatorClaims authorize read access to the operator API. An empty Guild
// grants access to every guild.
type OperatorClaims struct {
	jwt.RegisteredClaims
	Guild string `json:"guild,omitempty"`
	Role  string `json:"role"`
}

type Role string

const (
	RoleViewer Role = "viewer"
	RoleAdmin  Role = "admin"
)

// CanRead reports whether the claims may read data belonging to guildID.
func (c *OperatorClaims) CanRead(guildID string) bool {
	if Role(c.Role) == RoleAdmin || c.Guild == "" {
		return true
	}
	return c.Guild == guildID
}
