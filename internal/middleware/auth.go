package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ajaykumarbhatane/dental-management/internal/auth"
	"github.com/ajaykumarbhatane/dental-management/internal/authz"
)

// ContextKeyPrincipal is where the middleware stores the authenticated
// principal in gin's per-request context. Handlers read it back through
// GetPrincipal instead of touching the key directly.
const (
	ContextKeyPrincipal = "principal"
	ContextKeyClaims    = "claims"
)

// TokenDenylist is the slice of the cache this middleware needs: has
// this token been logged out? Narrow interface so tests can fake it
// without redis.
type TokenDenylist interface {
	IsTokenDenied(ctx context.Context, jti string) (bool, error)
}

// AuthMiddleware validates the bearer JWT, rejects denylisted tokens,
// and stores the principal {id, clinic, role} for handlers. An invalid
// or revoked token never reaches a handler.
func AuthMiddleware(secret string, denylist TokenDenylist) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing authorization header",
			})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid authorization format, expected: Bearer <token>",
			})
			return
		}

		claims, err := auth.ParseToken(parts[1], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			return
		}

		if denylist != nil {
			denied, err := denylist.IsTokenDenied(c.Request.Context(), claims.ID)
			if err != nil {
				// Can't tell whether the token was revoked. Reject
				// rather than let a possibly-revoked token through.
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
					"error": "authorization unavailable",
				})
				return
			}
			if denied {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "token has been revoked",
				})
				return
			}
		}

		c.Set(ContextKeyPrincipal, authz.Principal{
			ID:       claims.UserID,
			ClinicID: claims.ClinicID,
			Role:     claims.Role,
		})
		c.Set(ContextKeyClaims, claims)

		c.Next()
	}
}

// GetPrincipal returns the authenticated principal for this request.
// The zero Principal (all-nil IDs, empty role) comes back if the
// middleware never ran; every downstream check fails closed on it.
func GetPrincipal(c *gin.Context) authz.Principal {
	val, exists := c.Get(ContextKeyPrincipal)
	if !exists {
		return authz.Principal{}
	}
	p, ok := val.(authz.Principal)
	if !ok {
		return authz.Principal{}
	}
	return p
}

// GetClaims returns the raw JWT claims, used by logout to read the jti
// and expiry.
func GetClaims(c *gin.Context) *auth.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}
