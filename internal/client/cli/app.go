package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/xplit/internal/client/client"
	"github.com/dmitrijs2005/xplit/internal/client/config"
	"github.com/dmitrijs2005/xplit/internal/client/coordinator"
	"github.com/dmitrijs2005/xplit/internal/client/keystore"
	"github.com/dmitrijs2005/xplit/internal/client/models"
	"github.com/dmitrijs2005/xplit/internal/client/repositories/kv"
	"github.com/dmitrijs2005/xplit/internal/client/routing"
	"github.com/dmitrijs2005/xplit/internal/client/services"
	"github.com/dmitrijs2005/xplit/internal/client/sessionstore"
	"github.com/dmitrijs2005/xplit/internal/client/storage"
	"github.com/dmitrijs2005/xplit/internal/client/uistate"
	"github.com/dmitrijs2005/xplit/internal/common"
	"github.com/dmitrijs2005/xplit/internal/logging"
)

type Mode string

const (
	ModeSignedOut Mode = "signed out"
	ModeResolving Mode = "resolving"
	ModeSignedIn  Mode = "signed in"
)

// statusInterval is how often the session watcher samples UI state.
const statusInterval = time.Second

// flows is the part of the coordinator the commands drive.
type flows interface {
	SignIn(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, email, password string) (*models.SignUpResult, error)
	SignOut(ctx context.Context) error
	RequestPasswordReset(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, newPassword string) error
	ResendVerification(ctx context.Context) error
	CheckVerification(ctx context.Context) (bool, error)
	CreateProfile(ctx context.Context, handle, displayName string) (*models.Profile, error)
	Navigate(ctx context.Context, target routing.Route) routing.Route
	CurrentRoute() routing.Route
	Foreground(ctx context.Context)
	Background()
}

type App struct {
	config   *config.Config
	log      logging.Logger
	flows    flows
	profiles services.ProfileGate
	ui       *uistate.Store
	links    *replLinks
	reader   *bufio.Reader
	out      io.Writer

	start   func(ctx context.Context) error
	wipe    func(ctx context.Context) error
	closers []func(ctx context.Context) error

	modeMu sync.Mutex
	Mode   Mode
}

// NewApp opens local storage and wires the services and the coordinator.
// initialURL is the deep link the client was launched with, if any.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger, initialURL string) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := storage.OpenInDir(ctx, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	app := &App{
		config: cfg,
		log:    log,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
	app.closers = append(app.closers, func(context.Context) error { return db.Close() })
	app.wipe = func(ctx context.Context) error { return storage.Wipe(ctx, db) }

	if err := app.wire(ctx, db, initialURL); err != nil {
		_ = app.Close(ctx)
		return nil, err
	}
	return app, nil
}

func (a *App) wire(ctx context.Context, db *sql.DB, initialURL string) error {
	cfg := a.config

	ks := keystore.New(common.AppName, a.log)
	sessions, err := sessionstore.New(ctx, ks, kv.NewSQLiteRepository(db, kv.TableSession), a.log)
	if err != nil {
		return err
	}

	api, err := client.NewHTTPClient(cfg.ProviderURL, cfg.ProviderAPIKey, cfg.RequestTimeout)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func(context.Context) error { return api.Close() })

	auth := services.NewAuthGateway(api, sessions, a.log, services.AuthOptions{
		StorageKey:          cfg.StorageKey,
		RedirectURL:         cfg.RedirectURL(),
		ResetRedirectURL:    cfg.ResetRedirectURL(),
		RefreshMargin:       cfg.RefreshMargin,
		AutoRefreshInterval: cfg.AutoRefreshInterval,
		EmailCooldown:       cfg.EmailCooldown,
	})
	a.closers = append(a.closers, auth.Close)

	ui, err := uistate.Open(ctx, kv.NewSQLiteRepository(db, kv.TableUI), a.log)
	if err != nil {
		return err
	}
	a.ui = ui

	var avatars services.AvatarStore
	if cfg.Avatars.Bucket != "" {
		store, err := services.NewS3AvatarStore(ctx, services.AvatarConfig{
			Bucket:        cfg.Avatars.Bucket,
			Region:        cfg.Avatars.Region,
			Endpoint:      cfg.Avatars.Endpoint,
			AccessKey:     cfg.Avatars.AccessKey,
			SecretKey:     cfg.Avatars.SecretKey,
			PublicBaseURL: cfg.Avatars.PublicBaseURL,
		})
		if err != nil {
			return err
		}
		avatars = store
	}
	a.profiles = services.NewProfileGate(auth, api, avatars, a.log, services.ProfileOptions{CacheTTL: cfg.ProfileCacheTTL})

	a.links = newReplLinks(initialURL)
	coord := coordinator.New(auth, a.profiles, ui, newConsoleNavigator(a.out), a.links, a.log,
		coordinator.Options{FallbackWait: cfg.FallbackWait})
	a.flows = coord
	a.start = coord.Start
	a.closers = append(a.closers, func(context.Context) error { coord.Close(); return nil })
	return nil
}

// Close releases everything NewApp acquired, newest first.
func (a *App) Close(ctx context.Context) error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// Run starts the coordinator, the session watcher and the REPL. It returns
// when the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	defer a.Close(context.WithoutCancel(ctx))

	if a.start != nil {
		if err := a.start(ctx); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.StartSessionWatcher(gctx, statusInterval)
		return nil
	})
	g.Go(func() error {
		defer cancel()
		fmt.Fprintln(a.out, "Welcome to xplit CLI (type 'help' for commands)")
		runREPL(gctx, a, a.getStatus, bufio.NewScanner(a.reader))
		return nil
	})
	return g.Wait()
}

func (a *App) isLoggedIn() bool {
	return a.ui != nil && a.ui.Snapshot().IsAuthenticated
}

func (a *App) mode() Mode {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	return a.Mode
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	a.modeMu.Lock()
	changed := a.Mode != mode
	a.Mode = mode
	a.modeMu.Unlock()
	if changed {
		a.log.Info(ctx, "session mode changed", "mode", string(mode))
	}
}

func modeOf(st uistate.State) Mode {
	switch {
	case st.AuthResolving:
		return ModeResolving
	case st.IsAuthenticated:
		return ModeSignedIn
	default:
		return ModeSignedOut
	}
}

// StartSessionWatcher samples UI state every interval and records mode
// transitions until ctx is done.
func (a *App) StartSessionWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.setMode(ctx, modeOf(a.ui.Snapshot()))
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) getStatus() string {
	s := string(a.mode())
	if a.flows != nil {
		s = fmt.Sprintf("%s @ %s", s, a.flows.CurrentRoute())
	}
	return fmt.Sprintf("(%s)", s)
}
