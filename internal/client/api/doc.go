// Package api is the client side of the money-transfer backend.
//
// # Overview
//
// Client is the transport-agnostic contract used by services and views:
// Login, Ping, SendMoney and Transactions. HTTPClient implements it over
// JSON/HTTP. Authenticated calls rely on the *http.Client's transport to
// attach the bearer credential (see package bearer); Login never needs one.
//
// # Error Handling
//
// A failed login is reported as *LoginRejectedError. Transport failures map
// to ErrUnavailable and 401/403 responses to ErrUnauthorized, so callers can
// match them with errors.Is / errors.As.
package api
