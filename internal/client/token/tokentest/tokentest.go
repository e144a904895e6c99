// Package tokentest mints backend-shaped tokens for tests.
package tokentest

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/moneyxfer/internal/client/token"
	"github.com/golang-jwt/jwt/v5"
)

const secret = "backend-secret"

// Claims returns a user claim set expiring at exp.
func Claims(email string, role token.Role, exp time.Time) *token.Claims {
	return &token.Claims{
		SubjectID: "42",
		Email:     email,
		Role:      role,
		Name:      "Test User",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
}

// Sign encodes c as an HS256 token.
func Sign(t testing.TB, c jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

// Mint is Sign(Claims(...)) for the common case.
func Mint(t testing.TB, email string, exp time.Time) string {
	t.Helper()
	return Sign(t, Claims(email, token.RoleUser, exp))
}
