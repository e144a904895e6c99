// Package common contains shared constants and sentinel errors used across
// moneyxfer client components.
package common

const (
	// TokenStorageKey is the single metadata key under which the current
	// session token is persisted. Nothing else about the session is stored.
	TokenStorageKey = "jwtToken"

	// AuthorizationHeaderName carries the bearer token on outbound requests.
	AuthorizationHeaderName = "authorization"

	// BearerScheme prefixes the token in AuthorizationHeaderName.
	BearerScheme = "Bearer"

	// RequestIDHeaderName carries a per-request correlation id.
	RequestIDHeaderName = "X-Request-ID"
)
