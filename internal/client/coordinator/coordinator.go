// Package coordinator reconciles deep links, session events, the UI state
// store and navigation into a single "where should the user be" decision.
//
// Every entry point that can navigate after I/O (link processing, the
// startup fallback, session-event routing) first claims one processing flag
// with a compare-and-swap. A flow that cannot claim it drops its event
// instead of queueing it, since a one-time auth code cannot be replayed.
package coordinator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/xplit/internal/client/routing"
	"github.com/dmitrijs2005/xplit/internal/client/services"
	"github.com/dmitrijs2005/xplit/internal/client/uistate"
	"github.com/dmitrijs2005/xplit/internal/logging"
)

// Navigator is the presentation layer: it renders routes and on-screen
// errors.
type Navigator interface {
	Replace(ctx context.Context, route routing.Route)
	ShowError(ctx context.Context, message string)
}

// LinkSource delivers deep links. InitialURL is the URL the app was
// cold-started with ("" when none or not yet known); Subscribe reports links
// received while running.
type LinkSource interface {
	InitialURL(ctx context.Context) (string, error)
	Subscribe(fn func(url string)) (unsubscribe func())
}

// DefaultFallbackWait is how long Start waits for a link before resolving
// the destination from the stored session.
const DefaultFallbackWait = 2500 * time.Millisecond

// Options tunes the coordinator.
type Options struct {
	FallbackWait time.Duration
}

// Coordinator is safe for concurrent use.
type Coordinator struct {
	auth     services.AuthGateway
	profiles services.ProfileGate
	ui       *uistate.Store
	nav      Navigator
	links    LinkSource
	log      logging.Logger
	opts     Options

	// processing is the single mutual-exclusion flag for navigating flows.
	processing atomic.Bool
	// fallbackArmed is cleared by whichever flow settles startup first.
	fallbackArmed atomic.Bool
	// recovery is set by PASSWORD_RECOVERY until the link flow consumes it.
	recovery atomic.Bool
	// signingOut marks a user-requested sign-out.
	signingOut atomic.Bool

	mu       sync.Mutex
	route    routing.Route
	consumed map[string]struct{}
	fallback *time.Timer
	unsubs   []func()
	started  bool
	closed   bool
	ctx      context.Context
	cancel   context.CancelFunc

	wg sync.WaitGroup
}

// New wires a coordinator. links may be nil when the host has no deep-link
// source.
func New(auth services.AuthGateway, profiles services.ProfileGate, ui *uistate.Store, nav Navigator, links LinkSource, log logging.Logger, opts Options) *Coordinator {
	if opts.FallbackWait <= 0 {
		opts.FallbackWait = DefaultFallbackWait
	}
	return &Coordinator{
		auth:     auth,
		profiles: profiles,
		ui:       ui,
		nav:      nav,
		links:    links,
		log:      log,
		opts:     opts,
		route:    routing.Splash,
		consumed: make(map[string]struct{}),
	}
}

// Start subscribes to session events and links, loads the stored session,
// starts token auto refresh, processes the cold-start URL and arms the
// fallback timer. It returns without waiting for link processing.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.ctx, c.cancel = context.WithCancel(context.WithoutCancel(ctx))
	base := c.ctx
	c.mu.Unlock()

	c.addUnsub(c.auth.OnSessionChange(c.onSessionEvent))
	if c.links != nil {
		c.addUnsub(c.links.Subscribe(func(url string) { c.HandleURL(base, url) }))
	}

	// Armed before the session restore so a sign-out raised by it can cancel
	// the fallback.
	c.armFallback(base)

	if _, err := c.auth.Initialize(ctx); err != nil {
		c.log.Warn(ctx, "could not restore session", "error", err)
	}
	c.auth.StartAutoRefresh(base)

	if c.links != nil {
		url, err := c.links.InitialURL(ctx)
		if err != nil {
			c.log.Warn(ctx, "initial url unavailable", "error", err)
		}
		if url != "" {
			c.goTracked(func() { c.HandleURL(base, url) })
		}
	}
	return nil
}

// Close releases every subscription, cancels the fallback timer and stops
// auto refresh. It waits for in-flight background processing.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	unsubs := c.unsubs
	c.unsubs = nil
	cancel := c.cancel
	c.mu.Unlock()

	c.stopFallback()
	for _, u := range unsubs {
		u()
	}
	c.auth.StopAutoRefresh()
	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	c.ui.SetAuthResolving(context.Background(), false)
}

// CurrentRoute is the last route handed to the navigator.
func (c *Coordinator) CurrentRoute() routing.Route {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.route
}

func (c *Coordinator) addUnsub(u func()) {
	c.mu.Lock()
	c.unsubs = append(c.unsubs, u)
	c.mu.Unlock()
}

// track registers background work with the teardown wait group. It fails
// once Close has started.
func (c *Coordinator) track() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.wg.Add(1)
	return true
}

func (c *Coordinator) goTracked(fn func()) {
	if !c.track() {
		return
	}
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

// claim takes the processing flag and settles startup so the fallback can
// no longer navigate.
func (c *Coordinator) claim() bool {
	if !c.processing.CompareAndSwap(false, true) {
		return false
	}
	c.stopFallback()
	return true
}

func (c *Coordinator) release() {
	c.processing.Store(false)
}

func (c *Coordinator) replace(ctx context.Context, r routing.Route) {
	c.mu.Lock()
	c.route = r
	c.mu.Unlock()
	c.nav.Replace(ctx, r)
}

func (c *Coordinator) showError(ctx context.Context, msg string) {
	c.nav.ShowError(ctx, msg)
}
