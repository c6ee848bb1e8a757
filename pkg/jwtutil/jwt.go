package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityClaims represents the claims carried by a verified bearer token.
// The registered Subject claim is the opaque owner UID used for all
// ownership checks; the identity provider guarantees it is stable.
type IdentityClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

var cfg *Config

// Config holds bearer-token verification configuration
type Config struct {
	SigningKey      string
	ExpirationHours int
}

// Initialize sets the package-level configuration
func Initialize(c *Config) {
	cfg = c
}

// GenerateToken creates a signed token for the given subject UID.
// Used by tests and local development; production tokens come from the
// external identity provider.
func GenerateToken(uid string, email string) (string, error) {
	if cfg == nil {
		return "", errors.New("jwt configuration not provided")
	}

	claims := IdentityClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(cfg.ExpirationHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.SigningKey))
}

// ValidateToken validates and parses the bearer token, returning its claims
func ValidateToken(tokenString string) (*IdentityClaims, error) {
	if cfg == nil {
		return nil, errors.New("jwt configuration not provided")
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&IdentityClaims{},
		func(token *jwt.Token) (interface{}, error) {
			// Validate the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(cfg.SigningKey), nil
		},
	)

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*IdentityClaims); ok && token.Valid {
		if claims.Subject == "" {
			return nil, errors.New("token has no subject")
		}
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
