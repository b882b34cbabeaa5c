package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ajaykumarbhatane/dental-management/internal/models"
)

// Claims is the payload inside every JWT. The middleware reads these
// back on each request to build the principal {id, clinic, role} the
// rest of the backend consumes — no database hit per request.
//
// ID (the registered jti claim) exists so logout can denylist a single
// token without invalidating the user's other sessions.
type Claims struct {
	UserID   uuid.UUID   `json:"user_id"`
	ClinicID uuid.UUID   `json:"clinic_id"`
	Role     models.Role `json:"role"`
	Email    string      `json:"email"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed HS256 JWT for a user.
//
// HS256 because this is a single service issuing and verifying its own
// tokens; one shared secret is enough. The jti is a fresh UUID per
// token.
func GenerateToken(user *models.User, secret string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		UserID:   user.ID,
		ClinicID: user.ClinicID,
		Role:     user.Role,
		Email:    user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "dental-management",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// ParseToken validates a JWT string and extracts the claims. It checks
// the signature, the expiry, and that the signing method is HMAC — a
// token signed with "none" or RSA is rejected before signature
// verification (algorithm-confusion guard).
func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("invalid role in token: %q", claims.Role)
	}

	return claims, nil
}
