package coordinator

import (
	"context"

	"github.com/dmitrijs2005/xplit/internal/client/models"
	"github.com/dmitrijs2005/xplit/internal/client/routing"
	"github.com/dmitrijs2005/xplit/internal/common"
)

// baseCtx is the coordinator's lifetime context, or Background before Start.
func (c *Coordinator) baseCtx() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// onSessionEvent runs on the gateway caller's goroutine. Flags are always
// updated; navigation only happens when the processing claim is free, since
// a flow holding it navigates on its own.
func (c *Coordinator) onSessionEvent(event models.SessionEvent, sess *models.Session) {
	ctx := c.baseCtx()
	c.log.Debug(ctx, "session event", "event", string(event))

	switch event {
	case models.EventInitialSession:
		c.ui.SetAuthenticated(ctx, sess != nil)

	case models.EventTokenRefreshed:
		c.ui.SetAuthenticated(ctx, true)

	case models.EventSignedIn:
		c.ui.SetAuthenticated(ctx, true)
		if sess == nil || !c.claim() {
			return
		}
		defer c.release()
		c.replace(ctx, c.resolveDestination(ctx, sess.User))

	case models.EventSignedOut:
		c.recovery.Store(false)
		c.ui.ClearAuth(ctx)
		c.profiles.Invalidate()
		if !c.signingOut.Load() {
			c.showError(ctx, common.UserMessage(common.ErrNoSession))
		}
		// A claim holder sees the cleared state and routes to login itself.
		if !c.claim() {
			return
		}
		defer c.release()
		c.replace(ctx, routing.Login)

	case models.EventUserUpdated:
		if sess == nil || !sess.User.EmailConfirmed() {
			return
		}
		pending := c.ui.Snapshot().EmailPendingVerification
		if pending == "" && c.CurrentRoute() != routing.Verification {
			return
		}
		if !c.claim() {
			return
		}
		defer c.release()
		c.replace(ctx, c.resolveDestination(ctx, sess.User))

	case models.EventPasswordRecovery:
		c.recovery.Store(true)
		c.ui.SetAuthenticated(ctx, true)
		if !c.claim() {
			return
		}
		defer c.release()
		if c.recovery.Swap(false) {
			c.replace(ctx, routing.ResetPassword)
		}
	}
}
