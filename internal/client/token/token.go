// Package token decodes session tokens issued by the backend and decides
// whether they are still usable.
//
// Tokens are JWTs. The client never verifies the signature: verification is
// the backend's job, and the client only reads identity, role and expiry
// from the payload. Anything that cannot be decoded is reported as
// ErrMalformedToken; a token without an "exp" claim is always expired.
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformedToken is returned when a token string is not a decodable JWT.
	ErrMalformedToken = errors.New("malformed token")

	// ErrExpiredToken is returned for a decodable token whose expiry has passed
	// or which carries no expiry at all.
	ErrExpiredToken = errors.New("token expired")
)

// Role is the authorization role carried in the "role" claim.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// IsAdmin reports whether r grants access to every account's transactions.
func (r Role) IsAdmin() bool { return r == RoleAdmin }

// SubjectID is the "id" claim. Backends emit it either as a string or as a
// number; both decode to the same textual form.
type SubjectID string

func (s *SubjectID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = ""
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = SubjectID(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("id claim: %w", err)
	}
	if _, err := strconv.ParseFloat(num.String(), 64); err != nil {
		return fmt.Errorf("id claim: %w", err)
	}
	*s = SubjectID(num.String())
	return nil
}

// Claims is the subset of the token payload the client relies on.
// Unknown claims are ignored.
type Claims struct {
	SubjectID SubjectID `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Name      string    `json:"name"`
	jwt.RegisteredClaims
}

// Expiry returns the "exp" claim and whether it was present.
func (c *Claims) Expiry() (time.Time, bool) {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}, false
	}
	return c.ExpiresAt.Time, true
}

var parser = jwt.NewParser()

// Decode reads the claims of raw without checking its signature. Only the
// three-segment layout and the base64 JSON of header and payload are
// checked; the signing algorithm is irrelevant here.
func Decode(raw string) (*Claims, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", ErrMalformedToken)
	}
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformedToken, len(parts))
	}

	header, err := parser.DecodeSegment(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformedToken, err)
	}
	var h map[string]any
	if err := json.Unmarshal(header, &h); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformedToken, err)
	}

	payload, err := parser.DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrMalformedToken, err)
	}
	claims := &Claims{}
	if err := json.Unmarshal(payload, claims); err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrMalformedToken, err)
	}
	return claims, nil
}

// IsExpired reports whether claims must no longer be used at now.
// Missing claims or a missing "exp" count as expired; otherwise the token
// is expired from the exp second onwards.
func IsExpired(claims *Claims, now time.Time) bool {
	exp, ok := claims.Expiry()
	if !ok {
		return true
	}
	return !now.Before(exp)
}

// Validate decodes raw and checks it against now. It returns the claims of
// a usable token, or an error wrapping ErrMalformedToken or ErrExpiredToken.
func Validate(raw string, now time.Time) (*Claims, error) {
	claims, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	if IsExpired(claims, now) {
		return claims, ErrExpiredToken
	}
	return claims, nil
}
