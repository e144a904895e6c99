package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/moneyxfer/internal/client/api"
	"github.com/dmitrijs2005/moneyxfer/internal/client/guard"
	"github.com/dmitrijs2005/moneyxfer/internal/client/session"
	"github.com/dmitrijs2005/moneyxfer/internal/client/token"
	"github.com/dmitrijs2005/moneyxfer/internal/client/token/tokentest"
	"github.com/dmitrijs2005/moneyxfer/internal/client/tokenstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type fakeClient struct {
	mu    sync.Mutex
	login func(ctx context.Context, email, password string) (string, error)
	calls int
}

func (f *fakeClient) Login(ctx context.Context, email, password string) (string, error) {
	f.mu.Lock()
	f.calls++
	fn := f.login
	f.mu.Unlock()
	return fn(ctx, email, password)
}

func (f *fakeClient) loginCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeClient) Ping(context.Context) error { return nil }

func (f *fakeClient) SendMoney(context.Context, api.Transfer) (*api.TransferResult, error) {
	return nil, errors.New("not used")
}

func (f *fakeClient) Transactions(context.Context) ([]api.Transaction, error) {
	return nil, errors.New("not used")
}

func returning(tok string, err error) func(context.Context, string, string) (string, error) {
	return func(context.Context, string, string) (string, error) { return tok, err }
}

type recorder struct {
	mu     sync.Mutex
	msgs   []string
	routes []guard.Route
}

func (r *recorder) add(kind, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, kind+": "+msg)
}

func (r *recorder) Success(msg string) { r.add("success", msg) }
func (r *recorder) Info(msg string) { r.add("info", msg) }
func (r *recorder) Warn(msg string) { r.add("warn", msg) }
func (r *recorder) Error(msg string) { r.add("error", msg) }

func (r *recorder) Navigate(_ context.Context, to guard.Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, to)
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func (r *recorder) count(msg string) int {
	n := 0
	for _, m := range r.messages() {
		if strings.HasSuffix(m, ": "+msg) {
			n++
		}
	}
	return n
}

func (r *recorder) lastRoute() guard.Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.routes) == 0 {
		return ""
	}
	return r.routes[len(r.routes)-1]
}

type fixture struct {
	svc    *authService
	client *fakeClient
	store  *tokenstore.MemoryStore
	state  *session.State
	rec    *recorder
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		client: &fakeClient{login: returning("", errors.New("unexpected login"))},
		store:  tokenstore.NewMemoryStore(),
		state:  session.NewState(),
		rec:    &recorder{},
	}
	opts = append([]Option{WithNotifier(f.rec), WithNavigator(f.rec)}, opts...)
	f.svc = NewAuthService(f.client, f.store, f.state, opts...).(*authService)
	t.Cleanup(func() {
		f.svc.expiry.Stop()
		f.svc.warning.Stop()
	})
	return f
}

func (f *fixture) stored(t *testing.T) string {
	t.Helper()
	raw, err := f.store.Get(context.Background())
	if errors.Is(err, tokenstore.ErrNoToken) {
		return ""
	}
	require.NoError(t, err)
	return raw
}

// ---- login / expiry ----

func TestLogin_ExpiresWithoutFurtherInput(t *testing.T) {
	f := newFixture(t)
	raw := tokentest.Mint(t, "alice@example.org", time.Now().Add(2*time.Second))
	f.client.login = returning(raw, nil)

	s, err := f.svc.Login(context.Background(), "alice@example.org", "pw")
	require.NoError(t, err)

	require.True(t, s.IsAuthenticated())
	require.Same(t, s, f.state.Current())
	assert.Equal(t, StateAuthenticated, f.svc.State())
	assert.Equal(t, raw, f.stored(t))
	assert.True(t, f.svc.expiry.Active())
	assert.Equal(t, guard.RouteHome, f.rec.lastRoute())
	assert.Equal(t, 1, f.rec.count(MsgLoginSuccess))

	require.Eventually(t, func() bool {
		return !f.state.Current().IsAuthenticated()
	}, 4*time.Second, 20*time.Millisecond)

	assert.Equal(t, StateUnauthenticated, f.svc.State())
	assert.Empty(t, f.stored(t))
	assert.False(t, f.svc.expiry.Active())
	require.Eventually(t, func() bool {
		return f.rec.count(MsgSessionExpired) == 1 && f.rec.lastRoute() == guard.RouteLogin
	}, time.Second, 10*time.Millisecond)
}

func TestLogin_AlreadyExpiredTokenFiresImmediately(t *testing.T) {
	f := newFixture(t)
	f.client.login = returning(tokentest.Mint(t, "a@b.c", time.Now().Add(-time.Minute)), nil)

	_, err := f.svc.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return f.svc.State() == StateUnauthenticated && f.stored(t) == ""
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return f.rec.count(MsgSessionExpired) == 1 }, time.Second, 5*time.Millisecond)
}

func TestLogin_RelogKeepsSingleTimer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.client.login = returning(tokentest.Mint(t, "a@b.c", time.Now().Add(time.Second)), nil)
	_, err := f.svc.Login(ctx, "a@b.c", "pw")
	require.NoError(t, err)

	long := tokentest.Mint(t, "a@b.c", time.Now().Add(time.Hour))
	f.client.login = returning(long, nil)
	_, err = f.svc.Login(ctx, "a@b.c", "pw")
	require.NoError(t, err)

	time.Sleep(2 * time.Second)

	assert.True(t, f.state.Current().IsAuthenticated())
	assert.Equal(t, StateAuthenticated, f.svc.State())
	assert.Equal(t, long, f.stored(t))
	assert.True(t, f.svc.expiry.Active())
	assert.Zero(t, f.rec.count(MsgSessionExpired))
}

func TestLogin_FailurePersistsNothing(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
		is      error
	}{
		{"rejected", &api.LoginRejectedError{Status: 401, Message: "Wrong password"}, "Wrong password", nil},
		{"network", fmt.Errorf("%w: connection refused", api.ErrUnavailable), MsgNetworkFailure, api.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.client.login = returning("", tt.err)

			s, err := f.svc.Login(context.Background(), "a@b.c", "bad")
			require.Error(t, err)
			require.Nil(t, s)
			if tt.is != nil {
				require.ErrorIs(t, err, tt.is)
			} else {
				var rej *api.LoginRejectedError
				require.ErrorAs(t, err, &rej)
			}

			assert.Empty(t, f.stored(t))
			assert.False(t, f.state.Current().IsAuthenticated())
			assert.Equal(t, StateUnauthenticated, f.svc.State())
			assert.False(t, f.svc.expiry.Active())
			assert.Equal(t, []string{"error: " + tt.message}, f.rec.messages())
		})
	}
}

func TestLogin_UnreadableTokenRejected(t *testing.T) {
	f := newFixture(t)
	f.client.login = returning("not-a-jwt", nil)

	_, err := f.svc.Login(context.Background(), "a@b.c", "pw")
	require.ErrorIs(t, err, token.ErrMalformedToken)
	assert.Empty(t, f.stored(t))
	assert.False(t, f.state.Current().IsAuthenticated())
}

func TestLogin_FailedRelogKeepsSession(t *testing.T) {
	f := newFixture(t)
	raw := tokentest.Mint(t, "a@b.c", time.Now().Add(time.Hour))
	f.client.login = returning(raw, nil)
	_, err := f.svc.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)

	f.client.login = returning("", &api.LoginRejectedError{Status: 401, Message: "nope"})
	_, err = f.svc.Login(context.Background(), "a@b.c", "bad")
	require.Error(t, err)

	assert.Equal(t, raw, f.stored(t))
	assert.Equal(t, StateAuthenticated, f.svc.State())
}

func TestLogin_AuthenticatingWhileInFlight(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	entered := make(chan struct{})
	raw := tokentest.Mint(t, "a@b.c", time.Now().Add(time.Hour))
	f.client.login = func(context.Context, string, string) (string, error) {
		close(entered)
		<-release
		return raw, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Login(context.Background(), "a@b.c", "pw")
		done <- err
	}()

	<-entered
	assert.Equal(t, StateAuthenticating, f.svc.State())
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateAuthenticated, f.svc.State())
}

func TestLogin_SupersededByLogout(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	entered := make(chan struct{})
	f.client.login = func(context.Context, string, string) (string, error) {
		close(entered)
		<-release
		return tokentest.Mint(t, "a@b.c", time.Now().Add(time.Hour)), nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Login(context.Background(), "a@b.c", "pw")
		done <- err
	}()

	<-entered
	require.NoError(t, f.svc.Logout(context.Background()))
	close(release)

	require.ErrorIs(t, <-done, ErrLoginSuperseded)
	assert.Empty(t, f.stored(t))
	assert.Equal(t, StateUnauthenticated, f.svc.State())
	assert.False(t, f.state.Current().IsAuthenticated())
}

// ---- logout ----

func TestLogout_ClearsEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client.login = returning(tokentest.Mint(t, "a@b.c", time.Now().Add(time.Hour)), nil)
	_, err := f.svc.Login(ctx, "a@b.c", "pw")
	require.NoError(t, err)

	g := guard.New(f.store)
	require.True(t, g.Check(ctx, guard.RouteSendMoney).Allowed)

	require.NoError(t, f.svc.Logout(ctx))

	assert.Empty(t, f.stored(t))
	assert.False(t, f.state.Current().IsAuthenticated())
	assert.False(t, f.svc.expiry.Active())
	assert.Equal(t, guard.RouteLogin, f.rec.lastRoute())
	assert.Equal(t, 1, f.rec.count(MsgLoggedOut))

	d := g.Check(ctx, guard.RouteSendMoney)
	assert.False(t, d.Allowed)
	assert.Equal(t, guard.RouteLogin, d.Redirect)

	_, err = f.svc.Token(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

// ---- restore ----

func TestRestore(t *testing.T) {
	tests := []struct {
		name          string
		stored        func(t *testing.T) string
		authenticated bool
	}{
		{"empty", func(*testing.T) string { return "" }, false},
		{"valid", func(t *testing.T) string { return tokentest.Mint(t, "a@b.c", time.Now().Add(time.Hour)) }, true},
		{"expired", func(t *testing.T) string { return tokentest.Mint(t, "a@b.c", time.Now().Add(-time.Hour)) }, false},
		{"malformed", func(*testing.T) string { return "%%%.###.$$$" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			raw := tt.stored(t)
			if raw != "" {
				require.NoError(t, f.store.Save(ctx, raw))
			}

			require.NoError(t, f.svc.Restore(ctx))

			assert.Zero(t, f.client.loginCalls())
			assert.Equal(t, tt.authenticated, f.state.Current().IsAuthenticated())
			assert.Equal(t, tt.authenticated, f.svc.expiry.Active())
			assert.Empty(t, f.rec.messages())
			if tt.authenticated {
				assert.Equal(t, StateAuthenticated, f.svc.State())
				assert.Equal(t, raw, f.stored(t))
				got, err := f.svc.Token(ctx)
				require.NoError(t, err)
				assert.Equal(t, raw, got)
				return
			}
			assert.Equal(t, StateUnauthenticated, f.svc.State())
			assert.Empty(t, f.stored(t))
		})
	}
}

// ---- resync ----

func TestResync(t *testing.T) {
	ctx := context.Background()

	t.Run("same token is a no-op", func(t *testing.T) {
		f := newFixture(t)
		raw := tokentest.Mint(t, "a@b.c", time.Now().Add(time.Hour))
		require.NoError(t, f.store.Save(ctx, raw))
		require.NoError(t, f.svc.Restore(ctx))
		v := f.state.Version()

		require.NoError(t, f.svc.Resync(ctx))
		assert.Equal(t, v, f.state.Version())
		assert.Empty(t, f.rec.messages())
	})

	t.Run("adopts a token written elsewhere", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.svc.Restore(ctx))

		other := tokentest.Sign(t, tokentest.Claims("bob@example.org", token.RoleAdmin, time.Now().Add(time.Hour)))
		require.NoError(t, f.store.Save(ctx, other))
		require.NoError(t, f.svc.Resync(ctx))

		u, ok := f.state.Current().User()
		require.True(t, ok)
		assert.Equal(t, "bob@example.org", u.Email)
		assert.True(t, u.Role.IsAdmin())
		assert.True(t, f.svc.expiry.Active())
		assert.Equal(t, 1, f.rec.count("Signed in as bob@example.org in another session"))
	})

	t.Run("external logout", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.store.Save(ctx, tokentest.Mint(t, "a@b.c", time.Now().Add(time.Hour))))
		require.NoError(t, f.svc.Restore(ctx))

		require.NoError(t, f.store.Clear(ctx))
		require.NoError(t, f.svc.Resync(ctx))

		assert.False(t, f.state.Current().IsAuthenticated())
		assert.False(t, f.svc.expiry.Active())
		assert.Equal(t, 1, f.rec.count(MsgExternalLogout))
		assert.Equal(t, guard.RouteLogin, f.rec.lastRoute())
	})

	t.Run("garbage written elsewhere is cleared", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.svc.Restore(ctx))
		require.NoError(t, f.store.Save(ctx, "garbage"))

		require.NoError(t, f.svc.Resync(ctx))
		assert.Empty(t, f.stored(t))
		assert.Empty(t, f.rec.messages())
	})
}

// ---- warning ----

func TestExpiryWarning(t *testing.T) {
	f := newFixture(t, WithExpiryWarning(time.Hour))
	f.client.login = returning(tokentest.Mint(t, "a@b.c", time.Now().Add(30*time.Minute)), nil)

	_, err := f.svc.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return f.svc.State() == StateExpiringSoon }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		for _, m := range f.rec.messages() {
			if strings.HasPrefix(m, "warn: Session expires in") {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	assert.True(t, f.state.Current().IsAuthenticated())
	_, err = f.svc.Token(context.Background())
	assert.NoError(t, err)
}

func TestExpiryWarning_NotYetDue(t *testing.T) {
	f := newFixture(t, WithExpiryWarning(time.Minute))
	f.client.login = returning(tokentest.Mint(t, "a@b.c", time.Now().Add(time.Hour)), nil)

	_, err := f.svc.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)

	assert.True(t, f.svc.warning.Active())
	assert.Equal(t, StateAuthenticated, f.svc.State())
}

// ---- token ----

func TestToken_ExpiredBeforeTimerRuns(t *testing.T) {
	now := time.Now()
	clock := now
	var mu sync.Mutex
	f := newFixture(t, WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}))
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, tokentest.Mint(t, "a@b.c", now.Add(time.Hour))))
	require.NoError(t, f.svc.Restore(ctx))

	mu.Lock()
	clock = now.Add(2 * time.Hour)
	mu.Unlock()

	_, err := f.svc.Token(ctx)
	assert.ErrorIs(t, err, token.ErrExpiredToken)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "expiring soon", StateExpiringSoon.String())
	assert.Equal(t, "Phase(9)", Phase(9).String())
}
