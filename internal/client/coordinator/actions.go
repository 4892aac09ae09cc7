package coordinator

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/xplit/internal/client/models"
	"github.com/dmitrijs2005/xplit/internal/client/routing"
	"github.com/dmitrijs2005/xplit/internal/client/uistate"
	"github.com/dmitrijs2005/xplit/internal/common"
)

// SignIn signs in with a password. Routing on success comes from the
// SIGNED_IN event. An unconfirmed e-mail parks the user on verification.
func (c *Coordinator) SignIn(ctx context.Context, email, password string) error {
	_, err := c.auth.SignIn(ctx, email, password)
	if errors.Is(err, common.ErrEmailNotVerified) {
		c.ui.SetEmailPendingVerification(ctx, strings.TrimSpace(email))
		c.replace(ctx, routing.Verification)
	}
	return err
}

// SignUp registers an account. When the provider wants the address
// confirmed first the user is sent to verification; otherwise the SIGNED_IN
// event routes them.
func (c *Coordinator) SignUp(ctx context.Context, email, password string) (*models.SignUpResult, error) {
	res, err := c.auth.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if res.Session == nil {
		c.ui.SetEmailPendingVerification(ctx, strings.TrimSpace(email))
		c.replace(ctx, routing.Verification)
	}
	return res, nil
}

// SignOut ends the session. The resulting SIGNED_OUT event clears the UI
// state and routes to login without an error banner.
func (c *Coordinator) SignOut(ctx context.Context) error {
	c.signingOut.Store(true)
	defer c.signingOut.Store(false)
	return c.auth.SignOut(ctx)
}

// RequestPasswordReset sends a password reset link to email.
func (c *Coordinator) RequestPasswordReset(ctx context.Context, email string) error {
	return c.auth.ResetPasswordForEmail(ctx, email)
}

// UpdatePassword sets a new password and signs out so the user logs in
// with it.
func (c *Coordinator) UpdatePassword(ctx context.Context, newPassword string) error {
	if err := c.auth.UpdatePassword(ctx, newPassword); err != nil {
		return err
	}
	if err := c.SignOut(ctx); err != nil {
		c.log.Warn(ctx, "sign out after password update failed", "error", err)
	}
	return nil
}

// ResendVerification resends the confirmation e-mail to the pending
// address. Without one there is nothing to verify and the user goes back to
// sign-up.
func (c *Coordinator) ResendVerification(ctx context.Context) error {
	email := c.ui.Snapshot().EmailPendingVerification
	if email == "" {
		c.replace(ctx, routing.SignUp)
		return common.NewValidationError("email", "No email is waiting for verification.")
	}
	return c.auth.ResendVerification(ctx, email)
}

// CheckVerification asks the provider whether the signed-in user confirmed
// their e-mail and re-routes when they have.
//
// The claim is taken before the provider call, so the USER_UPDATED event it
// may raise only updates flags and the routing happens once, here.
func (c *Coordinator) CheckVerification(ctx context.Context) (bool, error) {
	claimed := c.claim()
	if claimed {
		defer c.release()
	}

	user, err := c.auth.GetCurrentUser(ctx)
	if err != nil {
		return false, err
	}
	if !user.EmailConfirmed() {
		return false, nil
	}
	if claimed {
		c.replace(ctx, c.resolveDestination(ctx, user))
	}
	return true, nil
}

// CreateProfile finishes profile setup and moves on to home.
func (c *Coordinator) CreateProfile(ctx context.Context, handle, displayName string) (*models.Profile, error) {
	p, err := c.profiles.CreateProfile(ctx, handle, displayName)
	if err != nil {
		return nil, err
	}
	c.ui.SetProfileExists(ctx, uistate.ProfilePresent)
	c.replace(ctx, routing.Home)
	return p, nil
}

// Navigate moves to target through the route guard and returns where the
// user actually landed.
func (c *Coordinator) Navigate(ctx context.Context, target routing.Route) routing.Route {
	dest, redirected := routing.Guard(target, routing.StateFrom(c.ui.Snapshot()))
	if redirected {
		c.log.Debug(ctx, "navigation redirected", "target", string(target), "destination", string(dest))
	}
	c.replace(ctx, dest)
	return dest
}

// Foreground resumes token auto refresh and re-checks the current route.
func (c *Coordinator) Foreground(ctx context.Context) {
	c.auth.StartAutoRefresh(c.baseCtx())
	c.Navigate(ctx, c.CurrentRoute())
}

// Background pauses token auto refresh.
func (c *Coordinator) Background() {
	c.auth.StopAutoRefresh()
}
