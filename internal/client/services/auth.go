// Package services contains application services for the xplit client.
// This file defines the auth gateway: sign-up, sign-in, link exchange,
// session persistence and refresh, password flows, and session-change
// notifications.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/xplit/internal/client/client"
	"github.com/dmitrijs2005/xplit/internal/client/models"
	"github.com/dmitrijs2005/xplit/internal/client/sessionstore"
	"github.com/dmitrijs2005/xplit/internal/common"
	"github.com/dmitrijs2005/xplit/internal/logging"
)

// AuthGateway wraps the identity provider for the rest of the client.
//
// Contract:
//   - Every successful state change is persisted through the session store
//     before the matching event is delivered, and each transition fires
//     exactly one event.
//   - Listeners are called synchronously on the caller's goroutine with no
//     internal lock held; they may call back into the gateway.
//   - Errors match the sentinels in package common.
type AuthGateway interface {
	SignUp(ctx context.Context, email, password string) (*models.SignUpResult, error)
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	ExchangeCodeForSession(ctx context.Context, code string) (*models.Session, error)
	SetSessionFromFragment(ctx context.Context, accessToken, refreshToken string) (*models.Session, error)
	SignOut(ctx context.Context) error

	GetSession(ctx context.Context) (*models.Session, error)
	GetCurrentUser(ctx context.Context) (*models.User, error)

	ResetPasswordForEmail(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, newPassword string) error
	ResendVerification(ctx context.Context, email string) error

	OnSessionChange(l models.SessionListener) (unsubscribe func())
	Initialize(ctx context.Context) (*models.Session, error)
	StartAutoRefresh(ctx context.Context)
	StopAutoRefresh()
	Close(ctx context.Context) error
}

// AuthOptions tunes the gateway. Zero values fall back to defaults.
type AuthOptions struct {
	// StorageKey names the session entry; the PKCE verifier lives under
	// StorageKey + "-code-verifier".
	StorageKey string

	// RedirectURL is where confirmation links land; ResetRedirectURL is used
	// for password recovery.
	RedirectURL      string
	ResetRedirectURL string

	RefreshMargin       time.Duration
	AutoRefreshInterval time.Duration

	// EmailCooldown is the minimum spacing between e-mails of one kind to
	// one address. Negative disables throttling.
	EmailCooldown time.Duration

	Now func() time.Time
}

const (
	DefaultStorageKey          = "xplit-auth-token"
	DefaultRefreshMargin       = 60 * time.Second
	DefaultAutoRefreshInterval = 30 * time.Second
	DefaultEmailCooldown       = 60 * time.Second

	// MinPasswordLength is enforced before any network call.
	MinPasswordLength = 8

	recoverySuffix = "/" + string(models.EventPasswordRecovery)
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func (o AuthOptions) withDefaults() AuthOptions {
	if o.StorageKey == "" {
		o.StorageKey = DefaultStorageKey
	}
	if o.RefreshMargin <= 0 {
		o.RefreshMargin = DefaultRefreshMargin
	}
	if o.AutoRefreshInterval <= 0 {
		o.AutoRefreshInterval = DefaultAutoRefreshInterval
	}
	if o.EmailCooldown == 0 {
		o.EmailCooldown = DefaultEmailCooldown
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type authGateway struct {
	client client.Client
	store  sessionstore.Storage
	log    logging.Logger
	opts   AuthOptions

	mu        sync.Mutex
	session   *models.Session
	loaded    bool
	listeners map[uint64]models.SessionListener
	nextID    uint64

	refreshGroup singleflight.Group

	limitMu  sync.Mutex
	limiters map[string]*rate.Limiter

	autoMu     sync.Mutex
	autoCancel context.CancelFunc
	autoDone   chan struct{}
}

// NewAuthGateway constructs an AuthGateway over the provider client and the
// encrypted session store.
func NewAuthGateway(c client.Client, store sessionstore.Storage, log logging.Logger, opts AuthOptions) AuthGateway {
	return &authGateway{
		client:    c,
		store:     store,
		log:       log,
		opts:      opts.withDefaults(),
		listeners: make(map[uint64]models.SessionListener),
		limiters:  make(map[string]*rate.Limiter),
	}
}

func (a *authGateway) verifierKey() string { return a.opts.StorageKey + "-code-verifier" }

// ValidateEmail checks the address shape used by every e-mail form.
func ValidateEmail(email string) error {
	if !emailRe.MatchString(strings.TrimSpace(email)) {
		return common.NewValidationError("email", "Please enter a valid email address.")
	}
	return nil
}

// ValidateNewPassword enforces the minimum password strength.
func ValidateNewPassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrWeakCredential, MinPasswordLength)
	}
	return nil
}

// SignUp registers a new account. With e-mail confirmation enabled the
// result carries no session; the confirmation link comes back through
// ExchangeCodeForSession.
func (a *authGateway) SignUp(ctx context.Context, email, password string) (*models.SignUpResult, error) {
	email = strings.TrimSpace(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidateNewPassword(password); err != nil {
		return nil, err
	}

	challenge, err := a.newVerifier(ctx, false)
	if err != nil {
		return nil, err
	}

	user, sess, err := a.client.SignUp(ctx, email, password, client.EmailOptions{
		RedirectTo:    a.opts.RedirectURL,
		CodeChallenge: challenge,
	})
	if err != nil {
		a.dropVerifier(ctx)
		return nil, fmt.Errorf("sign up: %w", err)
	}

	// The provider hides existing accounts behind a user with no identities.
	if sess == nil && user != nil && len(user.Identities) == 0 {
		a.dropVerifier(ctx)
		return nil, common.ErrEmailAlreadyRegistered
	}

	if sess != nil {
		a.dropVerifier(ctx)
		if err := a.saveSession(ctx, sess); err != nil {
			return nil, err
		}
		a.emit(models.EventSignedIn, sess)
	}
	return &models.SignUpResult{User: user, Session: sess}, nil
}

func (a *authGateway) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	email = strings.TrimSpace(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, common.NewValidationError("password", "Please enter your password.")
	}

	sess, err := a.client.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", credentialError(err))
	}
	if sess.User != nil && !sess.User.EmailConfirmed() {
		return nil, common.ErrEmailNotVerified
	}

	if err := a.saveSession(ctx, sess); err != nil {
		return nil, err
	}
	a.emit(models.EventSignedIn, sess)
	return sess, nil
}

// credentialError narrows an unclassified 4xx from the password grant to
// ErrInvalidCredentials.
func credentialError(err error) error {
	var pe *client.ProviderError
	if errors.As(err, &pe) && errors.Is(pe.Kind, common.ErrProviderError) &&
		pe.Status >= 400 && pe.Status < 500 {
		narrowed := *pe
		narrowed.Kind = common.ErrInvalidCredentials
		return &narrowed
	}
	return err
}

// ExchangeCodeForSession trades a one-time link code for a session using the
// verifier stored when the link was requested. A code minted by a password
// reset fires PASSWORD_RECOVERY instead of SIGNED_IN.
func (a *authGateway) ExchangeCodeForSession(ctx context.Context, code string) (*models.Session, error) {
	if code == "" {
		return nil, common.ErrInvalidOrExpiredCode
	}

	stored, ok, err := a.store.Get(ctx, a.verifierKey())
	if err != nil {
		return nil, fmt.Errorf("load code verifier: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: no code verifier on this device", common.ErrInvalidOrExpiredCode)
	}
	verifier, recovery := strings.CutSuffix(stored, recoverySuffix)

	sess, err := a.client.ExchangeCode(ctx, code, verifier)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", linkError(err))
	}

	a.dropVerifier(ctx)
	if err := a.saveSession(ctx, sess); err != nil {
		return nil, err
	}

	event := models.EventSignedIn
	if recovery {
		event = models.EventPasswordRecovery
	}
	a.emit(event, sess)
	return sess, nil
}

// linkError reports any client-side rejection of a link credential as
// ErrInvalidOrExpiredCode.
func linkError(err error) error {
	var pe *client.ProviderError
	if errors.As(err, &pe) && pe.Status >= 400 && pe.Status < 500 &&
		!errors.Is(pe.Kind, common.ErrRateLimited) && !errors.Is(pe.Kind, common.ErrInvalidOrExpiredCode) {
		return fmt.Errorf("%w: %w", common.ErrInvalidOrExpiredCode, err)
	}
	return err
}

// SetSessionFromFragment installs tokens delivered in a legacy link
// fragment. The access token is decoded without verification only to read
// its expiry and subject; the provider validates it when fetching the user.
func (a *authGateway) SetSessionFromFragment(ctx context.Context, accessToken, refreshToken string) (*models.Session, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return nil, fmt.Errorf("%w: malformed access token", common.ErrInvalidOrExpiredCode)
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, fmt.Errorf("%w: access token without a valid subject", common.ErrInvalidOrExpiredCode)
	}

	now := a.opts.Now()
	var sess *models.Session

	if claims.ExpiresAt == nil || !now.Before(claims.ExpiresAt.Time) {
		if refreshToken == "" {
			return nil, fmt.Errorf("%w: access token expired", common.ErrInvalidOrExpiredCode)
		}
		refreshed, err := a.client.RefreshSession(ctx, refreshToken)
		if err != nil {
			return nil, fmt.Errorf("refresh fragment session: %w", linkError(err))
		}
		sess = refreshed
	} else {
		user, err := a.client.GetUser(ctx, accessToken)
		if err != nil {
			return nil, fmt.Errorf("load fragment user: %w", linkError(err))
		}
		if user.ID != claims.Subject {
			return nil, fmt.Errorf("%w: token subject mismatch", common.ErrInvalidOrExpiredCode)
		}
		exp := claims.ExpiresAt.Unix()
		sess = &models.Session{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			TokenType:    "bearer",
			ExpiresAt:    exp,
			ExpiresIn:    exp - now.Unix(),
			User:         user,
		}
	}

	if err := a.saveSession(ctx, sess); err != nil {
		return nil, err
	}
	a.emit(models.EventSignedIn, sess)
	return sess, nil
}

// SignOut revokes the session remotely on a best-effort basis and always
// clears it locally.
func (a *authGateway) SignOut(ctx context.Context) error {
	sess, err := a.loadSession(ctx)
	if err != nil {
		a.log.Warn(ctx, "sign out: could not load session", "error", err)
	}
	if sess != nil {
		if err := a.client.Logout(ctx, sess.AccessToken); err != nil {
			a.log.Warn(ctx, "remote sign out failed, clearing local session anyway", "error", err)
		}
	}

	a.dropVerifier(ctx)
	if err := a.clearSession(ctx); err != nil {
		return err
	}
	a.emit(models.EventSignedOut, nil)
	return nil
}

// GetSession returns the persisted session, refreshing it first when it
// expires within the refresh margin. A refresh the provider rejects ends the
// session and fires SIGNED_OUT.
func (a *authGateway) GetSession(ctx context.Context) (*models.Session, error) {
	sess, err := a.loadSession(ctx)
	if err != nil || sess == nil {
		return nil, err
	}

	now := a.opts.Now()
	if !sess.ExpiresWithin(now, a.opts.RefreshMargin) {
		return sess, nil
	}

	if sess.RefreshToken == "" {
		if sess.ExpiresWithin(now, 0) {
			a.log.Info(ctx, "session expired without refresh token")
			return nil, a.endSession(ctx)
		}
		return sess, nil
	}

	refreshed, err := a.refresh(ctx, sess.RefreshToken)
	if err == nil {
		return refreshed, nil
	}

	var pe *client.ProviderError
	if errors.As(err, &pe) && pe.Status >= 400 && pe.Status < 500 && !errors.Is(err, common.ErrRateLimited) {
		a.log.Warn(ctx, "refresh rejected, ending session", "error", err)
		if endErr := a.endSession(ctx); endErr != nil {
			return nil, endErr
		}
		return nil, fmt.Errorf("refresh session: %w", common.ErrNoSession)
	}

	// Network trouble: keep using the old token while it is still valid.
	if !sess.ExpiresWithin(now, 0) {
		a.log.Warn(ctx, "refresh failed, using current token", "error", err)
		return sess, nil
	}
	return nil, fmt.Errorf("refresh session: %w", err)
}

func (a *authGateway) refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	v, err, _ := a.refreshGroup.Do(refreshToken, func() (any, error) {
		sess, err := a.client.RefreshSession(ctx, refreshToken)
		if err != nil {
			return nil, err
		}
		if err := a.saveSession(ctx, sess); err != nil {
			return nil, err
		}
		a.emit(models.EventTokenRefreshed, sess)
		return sess, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Session), nil
}

func (a *authGateway) endSession(ctx context.Context) error {
	if err := a.clearSession(ctx); err != nil {
		return err
	}
	a.emit(models.EventSignedOut, nil)
	return nil
}

// GetCurrentUser fetches the user behind the current session from the
// provider. A change in e-mail confirmation is saved and fires
// USER_UPDATED.
func (a *authGateway) GetCurrentUser(ctx context.Context) (*models.User, error) {
	sess, err := a.GetSession(ctx)
	if err != nil || sess == nil {
		return nil, err
	}

	user, err := a.client.GetUser(ctx, sess.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if sess.User == nil || sess.User.EmailConfirmed() != user.EmailConfirmed() || sess.User.Email != user.Email {
		updated := *sess
		updated.User = user
		if err := a.saveSession(ctx, &updated); err != nil {
			return nil, err
		}
		a.emit(models.EventUserUpdated, &updated)
	}
	return user, nil
}

func (a *authGateway) ResetPasswordForEmail(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if !a.allowEmail("recover", email) {
		return common.ErrRateLimited
	}

	challenge, err := a.newVerifier(ctx, true)
	if err != nil {
		return err
	}
	if err := a.client.Recover(ctx, email, client.EmailOptions{RedirectTo: a.opts.ResetRedirectURL, CodeChallenge: challenge}); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

func (a *authGateway) UpdatePassword(ctx context.Context, newPassword string) error {
	if err := ValidateNewPassword(newPassword); err != nil {
		return err
	}
	sess, err := a.GetSession(ctx)
	if err != nil {
		return err
	}
	if sess == nil {
		return common.ErrNoSession
	}

	user, err := a.client.UpdateUser(ctx, sess.AccessToken, client.UserAttributes{Password: newPassword})
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	updated := *sess
	updated.User = user
	if err := a.saveSession(ctx, &updated); err != nil {
		return err
	}
	a.emit(models.EventUserUpdated, &updated)
	return nil
}

func (a *authGateway) ResendVerification(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if !a.allowEmail("resend", email) {
		return common.ErrRateLimited
	}

	challenge, err := a.newVerifier(ctx, false)
	if err != nil {
		return err
	}
	if err := a.client.ResendSignup(ctx, email, client.EmailOptions{RedirectTo: a.opts.RedirectURL, CodeChallenge: challenge}); err != nil {
		return fmt.Errorf("resend verification: %w", err)
	}
	return nil
}

func (a *authGateway) OnSessionChange(l models.SessionListener) (unsubscribe func()) {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = l
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.listeners, id)
			a.mu.Unlock()
		})
	}
}

// Initialize loads the persisted session and fires INITIAL_SESSION with it
// (nil when signed out).
func (a *authGateway) Initialize(ctx context.Context) (*models.Session, error) {
	sess, err := a.GetSession(ctx)
	a.emit(models.EventInitialSession, sess)
	return sess, err
}

// StartAutoRefresh keeps the session fresh in the background until
// StopAutoRefresh or ctx cancellation. Calling it twice is a no-op.
func (a *authGateway) StartAutoRefresh(ctx context.Context) {
	a.autoMu.Lock()
	defer a.autoMu.Unlock()
	if a.autoCancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	a.autoCancel = cancel
	a.autoDone = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(a.opts.AutoRefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := a.GetSession(ctx); err != nil && ctx.Err() == nil {
					a.log.Warn(ctx, "auto refresh failed", "error", err)
				}
			}
		}
	}()
}

func (a *authGateway) StopAutoRefresh() {
	a.autoMu.Lock()
	cancel, done := a.autoCancel, a.autoDone
	a.autoCancel, a.autoDone = nil, nil
	a.autoMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (a *authGateway) Close(ctx context.Context) error {
	a.StopAutoRefresh()
	return a.client.Close()
}

// newVerifier stores a fresh PKCE verifier and returns its challenge.
func (a *authGateway) newVerifier(ctx context.Context, recovery bool) (string, error) {
	verifier := client.NewCodeVerifier()
	stored := verifier
	if recovery {
		stored += recoverySuffix
	}
	if err := a.store.Set(ctx, a.verifierKey(), stored); err != nil {
		return "", fmt.Errorf("store code verifier: %w", err)
	}
	return client.CodeChallengeS256(verifier), nil
}

func (a *authGateway) dropVerifier(ctx context.Context) {
	if err := a.store.Remove(ctx, a.verifierKey()); err != nil {
		a.log.Warn(ctx, "failed to remove code verifier", "error", err)
	}
}

func (a *authGateway) allowEmail(kind, email string) bool {
	if a.opts.EmailCooldown < 0 {
		return true
	}
	key := kind + ":" + strings.ToLower(email)

	a.limitMu.Lock()
	defer a.limitMu.Unlock()
	l, ok := a.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Every(a.opts.EmailCooldown), 1)
		a.limiters[key] = l
	}
	return l.AllowN(a.opts.Now(), 1)
}

func (a *authGateway) loadSession(ctx context.Context) (*models.Session, error) {
	a.mu.Lock()
	if a.loaded {
		s := a.session
		a.mu.Unlock()
		return s, nil
	}
	a.mu.Unlock()

	raw, ok, err := a.store.Get(ctx, a.opts.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var sess *models.Session
	if ok {
		var s models.Session
		if err := json.Unmarshal([]byte(raw), &s); err != nil || s.AccessToken == "" {
			a.log.Warn(ctx, "discarding unreadable stored session")
			if err := a.store.Remove(ctx, a.opts.StorageKey); err != nil {
				return nil, fmt.Errorf("remove session: %w", err)
			}
		} else {
			sess = &s
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.loaded {
		a.session, a.loaded = sess, true
	}
	return a.session, nil
}

func (a *authGateway) saveSession(ctx context.Context, sess *models.Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := a.store.Set(ctx, a.opts.StorageKey, string(b)); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	a.mu.Lock()
	a.session, a.loaded = sess, true
	a.mu.Unlock()
	return nil
}

func (a *authGateway) clearSession(ctx context.Context) error {
	if err := a.store.Remove(ctx, a.opts.StorageKey); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	a.mu.Lock()
	a.session, a.loaded = nil, true
	a.mu.Unlock()
	return nil
}

func (a *authGateway) emit(event models.SessionEvent, sess *models.Session) {
	a.mu.Lock()
	listeners := make([]models.SessionListener, 0, len(a.listeners))
	for _, l := range a.listeners {
		listeners = append(listeners, l)
	}
	a.mu.Unlock()

	for _, l := range listeners {
		l(event, sess)
	}
}
