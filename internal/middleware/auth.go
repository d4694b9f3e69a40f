package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/playmatatu/collisionlab/internal/config"
	"github.com/playmatatu/collisionlab/internal/models"
)

// Context keys set by AdminAuth.
const (
	ContextAdminUsername = "admin_username"
	ContextAdminRoles    = "admin_roles"
)

// IssueAdminToken signs an HS256 token for acc that expires after
// AdminSessionHours.
func IssueAdminToken(cfg *config.Config, acc *models.AdminAccount, now time.Time) (string, time.Time, error) {
	exp := now.Add(time.Duration(cfg.AdminSessionHours) * time.Hour)
	roles := make([]interface{}, len(acc.Roles))
	for i, r := range acc.Roles {
		roles[i] = r
	}
	claims := jwt.MapClaims{
		"sub":   acc.Username,
		"roles": roles,
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// AdminAuth validates the bearer JWT and sets the admin username and roles in
// the context. Requests whose token lacks every role in anyOf are rejected.
func AdminAuth(cfg *config.Config, anyOf ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		token := strings.TrimPrefix(auth, "Bearer ")

		parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !parsed.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		username, _ := claims["sub"].(string)
		if username == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var roles []string
		if raw, ok := claims["roles"].([]interface{}); ok {
			for _, r := range raw {
				if s, ok := r.(string); ok {
					roles = append(roles, s)
				}
			}
		}
		if len(anyOf) > 0 && !hasAnyRole(roles, anyOf) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}

		c.Set(ContextAdminUsername, username)
		c.Set(ContextAdminRoles, roles)
		c.Next()
	}
}

func hasAnyRole(have, want []string) bool {
	for _, w := range want {
		if contains(have, w) {
			return true
		}
	}
	return false
}
