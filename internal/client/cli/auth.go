package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/moneyxfer/internal/client/guard"
	"github.com/dmitrijs2005/moneyxfer/internal/common"
)

// Interactive input indirections, swapped in tests.
var (
	getSimpleText   = GetSimpleText
	getPassword     = GetPassword
	getConfirmation = GetConfirmation
)

// Login prompts for credentials and hands them to the auth service. The
// service reports the outcome to the user itself.
func (a *App) Login(ctx context.Context) error {
	d := a.guard.Check(ctx, guard.RouteLogin)
	if errors.Is(d.Reason, guard.ErrAlreadyAuthenticated) {
		a.printer.Info("You are already logged in")
		a.Navigate(ctx, guard.RouteHome)
		return nil
	}

	email, err := getSimpleText(a.reader, "Enter email", a.printer.Writer())
	if err != nil {
		return err
	}

	password, err := getPassword(a.printer.Writer())
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if _, err := a.auth.Login(ctx, email, string(password)); err != nil {
		a.log.Debug(ctx, "login attempt failed", "error", err)
		return err
	}
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	return a.auth.Logout(ctx)
}

// WhoAmI prints the identity carried by the current session.
func (a *App) WhoAmI(ctx context.Context) error {
	u, ok := a.session.Current().User()
	if !ok {
		a.printer.Println("Not logged in")
		return nil
	}
	a.printer.Println(fmt.Sprintf("%s <%s> id=%s role=%s", u.Name, u.Email, u.ID, u.Role))
	return nil
}

// Status prints the session phase, connectivity and current route.
func (a *App) Status(ctx context.Context) error {
	a.mu.Lock()
	mode := a.mode
	a.mu.Unlock()
	if mode == "" {
		mode = "unknown"
	}

	a.printer.Println("session:", a.auth.State())
	a.printer.Println("server: ", mode)
	a.printer.Println("route:  ", a.currentRoute())
	return nil
}
