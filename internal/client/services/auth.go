// Package services contains application services for the moneyxfer client.
// This file defines the authentication service: the session coordinator
// that owns the token store, the session state and the expiry timers.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/moneyxfer/internal/client/api"
	"github.com/dmitrijs2005/moneyxfer/internal/client/guard"
	"github.com/dmitrijs2005/moneyxfer/internal/client/scheduler"
	"github.com/dmitrijs2005/moneyxfer/internal/client/session"
	"github.com/dmitrijs2005/moneyxfer/internal/client/token"
	"github.com/dmitrijs2005/moneyxfer/internal/client/tokenstore"
	"github.com/dmitrijs2005/moneyxfer/internal/logging"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrLoginSuperseded  = errors.New("login superseded by a newer request")
)

// User-visible notification texts.
const (
	MsgLoginSuccess     = "Login successful!"
	MsgSessionExpired   = "Session expired. Logging out..."
	MsgExternalLogout   = "Signed out in another session"
	MsgLoggedOut        = "Logged out"
	MsgNetworkFailure   = "Something went wrong. Try again."
	msgExpiringSoonFmt  = "Session expires in %s"
	msgExternalLoginFmt = "Signed in as %s in another session"
)

// Phase is the coordinator's position in the login state machine.
type Phase int32

const (
	StateUnauthenticated Phase = iota
	StateAuthenticating
	StateAuthenticated
	StateExpiringSoon
)

func (p Phase) String() string {
	switch p {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateExpiringSoon:
		return "expiring soon"
	default:
		return fmt.Sprintf("Phase(%d)", int32(p))
	}
}

// Notifier surfaces short messages to the user.
type Notifier interface {
	Success(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

// Navigator moves the UI to another route.
type Navigator interface {
	Navigate(ctx context.Context, r guard.Route)
}

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Restore: derive the session from the stored token at startup.
//   - Login: exchange credentials for a token and start a session.
//   - Logout: end the session and clear the stored token.
//   - Resync: re-derive the session after the store changed underneath.
//   - Token: the current token, only while authenticated.
//   - Ping: check server liveness.
//
// It is the only writer of the token store and the session state.
type AuthService interface {
	Restore(ctx context.Context) error
	Login(ctx context.Context, email, password string) (*session.Session, error)
	Logout(ctx context.Context) error
	Resync(ctx context.Context) error
	Token(ctx context.Context) (string, error)
	Ping(ctx context.Context) error
	State() Phase
	Session() *session.Session
}

type Option func(*authService)

func WithNotifier(n Notifier) Option { return func(a *authService) { a.notify = n } }

func WithNavigator(n Navigator) Option { return func(a *authService) { a.nav = n } }

func WithLogger(l logging.Logger) Option { return func(a *authService) { a.log = l } }

func WithClock(now func() time.Time) Option { return func(a *authService) { a.now = now } }

// WithExpiryWarning enters StateExpiringSoon d before the token expires.
// Zero disables the warning.
func WithExpiryWarning(d time.Duration) Option {
	return func(a *authService) { a.warnBefore = d }
}

type authService struct {
	client api.Client
	store  tokenstore.Store
	state  *session.State

	log        logging.Logger
	notify     Notifier
	nav        Navigator
	now        func() time.Time
	warnBefore time.Duration

	// mu serializes transitions. Notifications and navigation run after
	// it is released.
	mu       sync.Mutex
	token    string
	epoch    uint64
	loginSeq uint64
	expiry   *scheduler.Scheduler
	warning  *scheduler.Scheduler

	phase   atomic.Int32
	pending atomic.Bool
}

// NewAuthService constructs the coordinator. It starts Unauthenticated;
// call Restore to pick up a stored session.
func NewAuthService(client api.Client, store tokenstore.Store, state *session.State, opts ...Option) AuthService {
	a := &authService{
		client: client,
		store:  store,
		state:  state,
		log:    logging.Discard(),
		notify: nopNotifier{},
		nav:    nopNavigator{},
		now:    time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	a.expiry = scheduler.New(scheduler.WithClock(a.now))
	a.warning = scheduler.New(scheduler.WithClock(a.now))
	return a
}

func (a *authService) State() Phase {
	if a.pending.Load() {
		return StateAuthenticating
	}
	return Phase(a.phase.Load())
}

func (a *authService) Session() *session.Session { return a.state.Current() }

// effects are run in order once the transition lock is released.
type effects []func()

func (e *effects) add(f func()) { *e = append(*e, f) }

func (e effects) run() {
	for _, f := range e {
		f()
	}
}

// Restore is the startup transition. A valid stored token becomes the
// session without a network call; anything else is cleared silently.
func (a *authService) Restore(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	raw, err := a.store.Get(ctx)
	if errors.Is(err, tokenstore.ErrNoToken) {
		a.log.Debug(ctx, "no stored session")
		return a.teardownLocked(ctx)
	}
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	claims, err := token.Validate(raw, a.now())
	if err != nil {
		a.log.Info(ctx, "discarding stored token", "reason", err)
		return a.teardownLocked(ctx)
	}

	a.installLocked(ctx, raw, claims)
	a.log.Info(ctx, "session restored", "email", claims.Email)
	return nil
}

// Login submits credentials. On failure nothing is persisted and the
// previous session, if any, is left as it was.
func (a *authService) Login(ctx context.Context, email, password string) (*session.Session, error) {
	a.mu.Lock()
	a.loginSeq++
	seq := a.loginSeq
	a.pending.Store(true)
	a.mu.Unlock()

	raw, err := a.client.Login(ctx, email, password)

	var fx effects
	defer func() { fx.run() }()

	a.mu.Lock()
	defer a.mu.Unlock()

	if seq != a.loginSeq {
		a.log.Debug(ctx, "dropping superseded login", "email", email)
		return nil, ErrLoginSuperseded
	}
	a.pending.Store(false)

	if err != nil {
		a.log.Warn(ctx, "login failed", "email", email, "error", err)
		fx.add(func() { a.notify.Error(failureMessage(err)) })
		return nil, fmt.Errorf("login: %w", err)
	}

	claims, err := token.Decode(raw)
	if err != nil {
		a.log.Warn(ctx, "backend issued an unreadable token", "error", err)
		fx.add(func() { a.notify.Error(MsgNetworkFailure) })
		return nil, fmt.Errorf("login: %w", err)
	}

	if err := a.store.Save(ctx, raw); err != nil {
		fx.add(func() { a.notify.Error(MsgNetworkFailure) })
		return nil, fmt.Errorf("login: %w", err)
	}

	a.installLocked(ctx, raw, claims)
	a.log.Info(ctx, "logged in", "email", claims.Email, "role", claims.Role)

	fx.add(func() { a.notify.Success(MsgLoginSuccess) })
	fx.add(func() { a.nav.Navigate(context.WithoutCancel(ctx), guard.RouteHome) })
	return a.state.Current(), nil
}

func failureMessage(err error) string {
	var rej *api.LoginRejectedError
	if errors.As(err, &rej) {
		return rej.Message
	}
	return MsgNetworkFailure
}

// Logout ends the current session and abandons any login in flight.
func (a *authService) Logout(ctx context.Context) error {
	var fx effects
	defer func() { fx.run() }()

	a.mu.Lock()
	defer a.mu.Unlock()

	a.loginSeq++
	a.pending.Store(false)

	if Phase(a.phase.Load()) != StateUnauthenticated {
		a.log.Info(ctx, "logged out")
		fx.add(func() { a.notify.Info(MsgLoggedOut) })
	}
	err := a.teardownLocked(ctx)
	fx.add(func() { a.nav.Navigate(context.WithoutCancel(ctx), guard.RouteLogin) })
	return err
}

// Resync re-reads the store after another process may have changed it.
// The same token is a no-op, a different valid token is adopted and an
// absent or unusable one ends the session.
func (a *authService) Resync(ctx context.Context) error {
	var fx effects
	defer func() { fx.run() }()

	a.mu.Lock()
	defer a.mu.Unlock()

	raw, err := a.store.Get(ctx)
	if err != nil && !errors.Is(err, tokenstore.ErrNoToken) {
		return fmt.Errorf("resync session: %w", err)
	}

	var claims *token.Claims
	if err == nil {
		claims, err = token.Validate(raw, a.now())
	}

	authenticated := Phase(a.phase.Load()) != StateUnauthenticated

	if err != nil {
		if !authenticated {
			if raw != "" {
				return a.teardownLocked(ctx)
			}
			return nil
		}
		a.log.Info(ctx, "session ended externally", "reason", err)
		fx.add(func() { a.notify.Warn(MsgExternalLogout) })
		fx.add(func() { a.nav.Navigate(context.WithoutCancel(ctx), guard.RouteLogin) })
		return a.teardownLocked(ctx)
	}

	if raw == a.token {
		return nil
	}

	a.installLocked(ctx, raw, claims)
	a.log.Info(ctx, "adopted external session", "email", claims.Email)
	fx.add(func() { a.notify.Info(fmt.Sprintf(msgExternalLoginFmt, claims.Email)) })
	return nil
}

// Token returns the session token while authenticated. It is re-checked
// against the clock so a token past its expiry is never handed out, even
// if the expiry timer has not run yet.
func (a *authService) Token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token == "" {
		return "", ErrNotAuthenticated
	}
	if _, err := token.Validate(a.token, a.now()); err != nil {
		return "", err
	}
	return a.token, nil
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// installLocked makes raw the current session and re-arms the timers.
func (a *authService) installLocked(ctx context.Context, raw string, claims *token.Claims) {
	a.epoch++
	epoch := a.epoch

	a.token = raw
	a.phase.Store(int32(StateAuthenticated))
	a.state.Replace(session.Authenticated(session.UserFromClaims(claims)))

	exp, ok := claims.Expiry()
	if !ok {
		exp = a.now()
	}
	a.expiry.Arm(exp, func() { a.expire(epoch) })

	a.warning.Stop()
	if a.warnBefore > 0 && exp.After(a.now()) {
		a.warning.Arm(exp.Add(-a.warnBefore), func() { a.warn(epoch, exp) })
	}

	a.log.Debug(ctx, "expiry armed", "at", exp, "in", exp.Sub(a.now()).Round(time.Second))
}

// teardownLocked returns to Unauthenticated: timers cancelled, store
// cleared, session anonymous. The session is reset even if the store
// cannot be cleared.
func (a *authService) teardownLocked(ctx context.Context) error {
	a.epoch++
	a.expiry.Stop()
	a.warning.Stop()

	a.token = ""
	a.phase.Store(int32(StateUnauthenticated))

	err := a.store.Clear(ctx)
	if err != nil {
		a.log.Error(ctx, "failed to clear stored token", "error", err)
	}
	a.state.Replace(nil)
	return err
}

func (a *authService) expire(epoch uint64) {
	ctx := context.Background()

	a.mu.Lock()
	if epoch != a.epoch {
		a.mu.Unlock()
		return
	}
	a.log.Info(ctx, "session expired")
	_ = a.teardownLocked(ctx)
	a.mu.Unlock()

	a.notify.Warn(MsgSessionExpired)
	a.nav.Navigate(ctx, guard.RouteLogin)
}

func (a *authService) warn(epoch uint64, exp time.Time) {
	a.mu.Lock()
	if epoch != a.epoch || Phase(a.phase.Load()) != StateAuthenticated {
		a.mu.Unlock()
		return
	}
	a.phase.Store(int32(StateExpiringSoon))
	left := exp.Sub(a.now()).Round(time.Second)
	a.mu.Unlock()

	a.notify.Warn(fmt.Sprintf(msgExpiringSoonFmt, left))
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Info(string) {}
func (nopNotifier) Warn(string) {}
func (nopNotifier) Error(string) {}

type nopNavigator struct{}

func (nopNavigator) Navigate(context.Context, guard.Route) {}
