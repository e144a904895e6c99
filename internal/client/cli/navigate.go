package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/moneyxfer/internal/client/guard"
)

// Navigate moves to r if the guard allows it, otherwise to the redirect
// target. It never renders, so it is safe to call from timer goroutines.
func (a *App) Navigate(ctx context.Context, r guard.Route) {
	a.navigate(ctx, r)
}

func (a *App) navigate(ctx context.Context, r guard.Route) guard.Route {
	d := a.guard.Check(ctx, r)
	to := d.Route
	if !d.Allowed {
		to = d.Redirect
		if errors.Is(d.Reason, guard.ErrAlreadyAuthenticated) {
			a.printer.Info("You are already logged in")
		}
		a.log.Debug(ctx, "navigation redirected", "from", r, "to", to, "reason", d.Reason)
	}

	a.mu.Lock()
	a.route = to
	a.mu.Unlock()
	return to
}

func (a *App) currentRoute() guard.Route {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.route
}

// Open navigates to r and renders whatever view the guard lets through.
func (a *App) Open(ctx context.Context, r guard.Route) error {
	switch a.navigate(ctx, r) {
	case guard.RouteLogin:
		a.printer.Println("Please log in (type 'login').")
		return nil
	case guard.RouteSendMoney:
		return a.SendMoney(ctx)
	case guard.RouteBalance:
		return a.Balance(ctx)
	case guard.RouteTransactions:
		return a.Transactions(ctx)
	default:
		return a.Home(ctx)
	}
}
