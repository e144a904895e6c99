package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/moneyxfer/internal/client/api"
	"github.com/dmitrijs2005/moneyxfer/internal/client/bearer"
	"github.com/dmitrijs2005/moneyxfer/internal/client/config"
	"github.com/dmitrijs2005/moneyxfer/internal/client/guard"
	"github.com/dmitrijs2005/moneyxfer/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/moneyxfer/internal/client/services"
	"github.com/dmitrijs2005/moneyxfer/internal/client/session"
	"github.com/dmitrijs2005/moneyxfer/internal/client/storage"
	"github.com/dmitrijs2005/moneyxfer/internal/client/tokenstore"
	"github.com/dmitrijs2005/moneyxfer/internal/client/watch"
	"github.com/dmitrijs2005/moneyxfer/internal/logging"
	"golang.org/x/sync/errgroup"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config  *config.Config
	log     logging.Logger
	db      *sql.DB
	api     api.Client
	auth    services.AuthService
	guard   *guard.Guard
	session session.Reader
	printer *Printer
	reader  *bufio.Reader

	mu    sync.Mutex
	mode  Mode
	route guard.Route
	user  string

	unsubscribe func()
}

// deps are the collaborators an App is assembled from.
type deps struct {
	config  *config.Config
	log     logging.Logger
	client  api.Client
	store   tokenstore.Store
	state   *session.State
	printer *Printer
	in      io.Reader
}

// NewApp opens the session database and wires the client stack.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	db, err := storage.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "path", c.DatabasePath, "error", err)
		return nil, err
	}

	store := tokenstore.NewSQLiteStore(metadata.NewSQLiteRepository(db))

	// Requests carry the coordinator's token, not the store's.
	tr := &bearer.Transport{Log: log}
	hc := &http.Client{Timeout: c.RequestTimeout, Transport: tr}

	a := newApp(deps{
		config:  c,
		log:     log,
		client:  api.NewHTTPClient(c.ServerURL, hc),
		store:   store,
		state:   session.NewState(),
		printer: NewPrinter(os.Stdout, true),
		in:      os.Stdin,
	})
	tr.Source = a.auth
	a.db = db
	return a, nil
}

func newApp(d deps) *App {
	a := &App{
		config:  d.config,
		log:     d.log,
		api:     d.client,
		guard:   guard.New(d.store),
		session: d.state,
		printer: d.printer,
		reader:  bufio.NewReader(d.in),
		route:   guard.RouteLogin,
	}
	a.auth = services.NewAuthService(d.client, d.store, d.state,
		services.WithNotifier(d.printer),
		services.WithNavigator(a),
		services.WithLogger(d.log.With("component", "auth")),
		services.WithExpiryWarning(d.config.ExpiryWarning),
	)
	a.unsubscribe = d.state.Subscribe(a.onSessionChange)
	return a
}

// onSessionChange runs on whichever goroutine replaced the session. It
// must not call back into the auth service.
func (a *App) onSessionChange(s *session.Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if u, ok := s.User(); ok {
		a.user = u.Email
		return
	}
	a.user = ""
	if a.route.Protected() {
		a.route = guard.RouteLogin
	}
}

// Run restores the stored session, starts the background watchers and
// blocks in the REPL until the user exits.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	if err := a.auth.Restore(ctx); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	start := guard.RouteHome
	if !a.isLoggedIn() {
		start = guard.RouteLogin
	}
	a.printer.Println("Welcome to moneyxfer CLI (type 'help' for commands)")
	a.Navigate(ctx, start)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.StartOnlineStatusWatcher(gctx, a.config.OnlineCheckInterval)
	})

	if a.config.WatchStore && a.db != nil && a.config.DatabasePath != ":memory:" {
		w := watch.NewStoreWatcher(a.config.DatabasePath, 0, a.auth.Resync, a.log.With("component", "watch"))
		g.Go(func() error {
			if err := w.Run(gctx); err != nil {
				a.log.Warn(gctx, "store watcher stopped", "error", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer cancel()
		runREPL(gctx, a, a.getStatus, a.reader)
		return nil
	})

	return g.Wait()
}

// Close releases the database. The stored session is kept.
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.log.Info(context.Background(), "connectivity changed", "mode", mode)
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.Current().IsAuthenticated()
}

// StartOnlineStatusWatcher probes the backend every interval until ctx is
// done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.probe(ctx)
	for {
		select {
		case <-ticker.C:
			a.probe(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

func (a *App) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := a.auth.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

// getStatus renders the prompt prefix, e.g. "(alice@example.org online /send-money)".
func (a *App) getStatus() string {
	a.mu.Lock()
	user, mode, route := a.user, a.mode, a.route
	a.mu.Unlock()

	s := ""
	if user != "" {
		s = user + " "
	}
	if a.auth.State() == services.StateExpiringSoon {
		s += "expiring "
	}
	if mode != "" {
		s += string(mode) + " "
	}
	s += string(route)
	return fmt.Sprintf("(%s)", s)
}
