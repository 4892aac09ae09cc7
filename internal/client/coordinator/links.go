package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dmitrijs2005/xplit/internal/client/deeplink"
	"github.com/dmitrijs2005/xplit/internal/client/models"
	"github.com/dmitrijs2005/xplit/internal/client/routing"
	"github.com/dmitrijs2005/xplit/internal/client/uistate"
	"github.com/dmitrijs2005/xplit/internal/common"
)

// HandleURL processes an incoming deep link. Links without a credential are
// ignored and leave the current screen alone. A link arriving while another
// flow holds the processing flag, or carrying a code already used, is
// dropped. Failures are shown on the current screen without navigating.
func (c *Coordinator) HandleURL(ctx context.Context, rawURL string) {
	payload := deeplink.Parse(rawURL)
	if payload.Kind == deeplink.KindNone {
		c.log.Debug(ctx, "deep link without credential ignored")
		return
	}

	credential := payload.Code
	if payload.Kind == deeplink.KindFragment {
		credential = payload.AccessToken
	}

	if !c.claim() {
		c.log.Info(ctx, "deep link dropped, processing in progress", "kind", payload.Kind)
		return
	}
	defer c.release()

	if !c.consume(credential) {
		c.log.Info(ctx, "deep link dropped, credential already used", "kind", payload.Kind)
		return
	}

	log := c.log.With("attempt", ulid.Make().String(), "kind", payload.Kind.String())
	log.Info(ctx, "processing deep link")

	c.ui.SetAuthResolving(ctx, true)
	defer c.ui.SetAuthResolving(ctx, false)

	var (
		sess *models.Session
		err  error
	)
	switch payload.Kind {
	case deeplink.KindPKCE:
		sess, err = c.auth.ExchangeCodeForSession(ctx, payload.Code)
	case deeplink.KindFragment:
		sess, err = c.auth.SetSessionFromFragment(ctx, payload.AccessToken, payload.RefreshToken)
	}
	if err != nil {
		log.Warn(ctx, "deep link sign-in failed", "error", err)
		c.showError(ctx, common.UserMessage(err))
		return
	}

	if c.recovery.Swap(false) {
		log.Info(ctx, "password recovery session established")
		c.ui.SetAuthenticated(ctx, true)
		c.replace(ctx, routing.ResetPassword)
		return
	}

	dest := c.resolveDestination(ctx, sess.User)
	log.Info(ctx, "deep link resolved", "destination", dest)
	c.replace(ctx, dest)
}

// consume records credential as used and reports whether it was fresh.
func (c *Coordinator) consume(credential string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, seen := c.consumed[credential]; seen {
		return false
	}
	c.consumed[credential] = struct{}{}
	return true
}

// resolveDestination updates the auth-derived UI state for a signed-in user
// and returns where they belong: verification while the e-mail is
// unconfirmed, otherwise profile setup or home. Profile check failures fall
// to profile setup, and a session that ends during the check goes to login.
func (c *Coordinator) resolveDestination(ctx context.Context, user *models.User) routing.Route {
	c.ui.SetAuthenticated(ctx, true)

	if !user.EmailConfirmed() {
		if user != nil {
			c.ui.SetEmailPendingVerification(ctx, user.Email)
		}
		return routing.Verification
	}
	c.ui.SetEmailPendingVerification(ctx, "")

	has := c.profiles.HasProfile(ctx)
	if !c.ui.Snapshot().IsAuthenticated {
		// The session ended while the profile was being checked.
		return routing.Login
	}
	if has {
		c.ui.SetProfileExists(ctx, uistate.ProfilePresent)
		return routing.Home
	}
	c.ui.SetProfileExists(ctx, uistate.ProfileMissing)
	return routing.ProfileSetup
}

func (c *Coordinator) armFallback(ctx context.Context) {
	c.fallbackArmed.Store(true)
	t := time.AfterFunc(c.opts.FallbackWait, func() { c.runFallback(ctx) })

	c.mu.Lock()
	c.fallback = t
	c.mu.Unlock()
}

// stopFallback disarms and cancels the fallback timer. A callback that has
// already fired sees the disarmed flag and returns.
func (c *Coordinator) stopFallback() {
	c.fallbackArmed.Store(false)
	c.mu.Lock()
	t := c.fallback
	c.fallback = nil
	c.mu.Unlock()
	if t != nil {
		t.Stop()
	}
}

// runFallback resolves the destination from the stored session when no
// link settled startup within the wait window.
func (c *Coordinator) runFallback(ctx context.Context) {
	if !c.fallbackArmed.CompareAndSwap(true, false) {
		return
	}
	if !c.processing.CompareAndSwap(false, true) {
		return
	}
	defer c.release()

	if !c.track() {
		return
	}
	defer c.wg.Done()

	c.log.Info(ctx, "no deep link processed, resolving from stored session")
	c.ui.SetAuthResolving(ctx, true)
	defer c.ui.SetAuthResolving(ctx, false)

	sess, err := c.auth.GetSession(ctx)
	if err != nil {
		c.log.Warn(ctx, "fallback session check failed", "error", err)
		// An ended session was already reported by the SIGNED_OUT listener.
		if !errors.Is(err, common.ErrNoSession) {
			c.showError(ctx, common.UserMessage(err))
		}
	}
	if sess == nil {
		c.ui.SetAuthenticated(ctx, false)
		c.replace(ctx, routing.Login)
		return
	}
	c.replace(ctx, c.resolveDestination(ctx, sess.User))
}
