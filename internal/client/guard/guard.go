// Package guard decides whether a navigation target may be shown.
package guard

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/moneyxfer/internal/client/tokenstore"
)

type Route string

const (
	RouteLogin        Route = "/login"
	RouteHome         Route = "/"
	RouteSendMoney    Route = "/send-money"
	RouteBalance      Route = "/balance"
	RouteTransactions Route = "/transactions"
)

var ErrAlreadyAuthenticated = errors.New("already logged in")

var known = map[Route]bool{
	RouteLogin:        true,
	RouteHome:         true,
	RouteSendMoney:    true,
	RouteBalance:      true,
	RouteTransactions: true,
}

// Resolve maps unknown routes to RouteHome.
func Resolve(r Route) Route {
	if known[r] {
		return r
	}
	return RouteHome
}

// Protected reports whether r requires a valid token.
func (r Route) Protected() bool {
	return Resolve(r) != RouteLogin
}

func Routes() []Route {
	return []Route{RouteHome, RouteSendMoney, RouteBalance, RouteTransactions, RouteLogin}
}

// Decision is the outcome of a Check. Route is the resolved target when
// Allowed, Redirect is where to go instead when not.
type Decision struct {
	Allowed  bool
	Route    Route
	Redirect Route
	Reason   error
}

func allow(r Route) Decision { return Decision{Allowed: true, Route: r} }

func deny(to Route, reason error) Decision {
	return Decision{Redirect: to, Reason: reason}
}

// Guard reads the token store on every check. It never touches the network.
type Guard struct {
	tokens tokenstore.ValidTokenSource
}

func New(store tokenstore.Store) *Guard {
	return &Guard{tokens: *tokenstore.NewValidTokenSource(store)}
}

// WithClock returns a copy of g using now.
func (g *Guard) WithClock(now func() time.Time) *Guard {
	c := *g
	c.tokens.Now = now
	return &c
}

// Check evaluates a navigation to route.
func (g *Guard) Check(ctx context.Context, route Route) Decision {
	r := Resolve(route)
	_, err := g.tokens.Token(ctx)

	if !r.Protected() {
		if err == nil {
			return deny(RouteHome, ErrAlreadyAuthenticated)
		}
		return allow(r)
	}

	if err != nil {
		return deny(RouteLogin, err)
	}
	return allow(r)
}
