package coordinator

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/xplit/internal/client/models"
	"github.com/dmitrijs2005/xplit/internal/client/routing"
	"github.com/dmitrijs2005/xplit/internal/common"
)

// ---- fake auth gateway ----

type fakeAuth struct {
	mu sync.Mutex

	// ExchangeGate, when set, blocks ExchangeCodeForSession until closed.
	ExchangeGate  chan struct{}
	ExchangeRet   *models.Session
	ExchangeErr   error
	ExchangeCalls int
	// Recovery makes a successful exchange emit PASSWORD_RECOVERY.
	Recovery bool

	FragmentRet   *models.Session
	FragmentErr   error
	FragmentCalls int

	SignInRet *models.Session
	SignInErr error

	SignUpRet *models.SignUpResult
	SignUpErr error

	SignOutErr   error
	SignOutCalls int

	SessionRet   *models.Session
	SessionErr   error
	SessionCalls int

	UserRet *models.User
	UserErr error
	// seenConfirmed mirrors the stored session's confirmation state.
	seenConfirmed bool

	// InitSignedOut makes Initialize end the stored session, as a rejected
	// refresh does.
	InitSignedOut bool

	UpdatePasswordErr error
	ResetErr          error
	ResendErr         error
	LastResend        string

	AutoRefreshStarts int
	AutoRefreshStops  int

	listeners map[int]models.SessionListener
	nextID    int
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{listeners: make(map[int]models.SessionListener)}
}

func (f *fakeAuth) emit(ev models.SessionEvent, s *models.Session) {
	f.mu.Lock()
	ls := make([]models.SessionListener, 0, len(f.listeners))
	for _, l := range f.listeners {
		ls = append(ls, l)
	}
	f.mu.Unlock()
	for _, l := range ls {
		l(ev, s)
	}
}

func (f *fakeAuth) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func (f *fakeAuth) exchangeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ExchangeCalls
}

func (f *fakeAuth) sessionCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.SessionCalls
}

func (f *fakeAuth) SignUp(ctx context.Context, email, password string) (*models.SignUpResult, error) {
	if f.SignUpErr != nil {
		return nil, f.SignUpErr
	}
	if f.SignUpRet.Session != nil {
		f.emit(models.EventSignedIn, f.SignUpRet.Session)
	}
	return f.SignUpRet, nil
}

func (f *fakeAuth) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	if f.SignInErr != nil {
		return nil, f.SignInErr
	}
	f.emit(models.EventSignedIn, f.SignInRet)
	return f.SignInRet, nil
}

func (f *fakeAuth) ExchangeCodeForSession(ctx context.Context, code string) (*models.Session, error) {
	f.mu.Lock()
	f.ExchangeCalls++
	gate := f.ExchangeGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if f.ExchangeErr != nil {
		return nil, f.ExchangeErr
	}
	if f.Recovery {
		f.emit(models.EventPasswordRecovery, f.ExchangeRet)
	} else {
		f.emit(models.EventSignedIn, f.ExchangeRet)
	}
	return f.ExchangeRet, nil
}

func (f *fakeAuth) SetSessionFromFragment(ctx context.Context, accessToken, refreshToken string) (*models.Session, error) {
	f.mu.Lock()
	f.FragmentCalls++
	f.mu.Unlock()
	if f.FragmentErr != nil {
		return nil, f.FragmentErr
	}
	f.emit(models.EventSignedIn, f.FragmentRet)
	return f.FragmentRet, nil
}

func (f *fakeAuth) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.SignOutCalls++
	f.mu.Unlock()
	f.emit(models.EventSignedOut, nil)
	return f.SignOutErr
}

func (f *fakeAuth) GetSession(ctx context.Context) (*models.Session, error) {
	f.mu.Lock()
	f.SessionCalls++
	f.mu.Unlock()
	return f.SessionRet, f.SessionErr
}

func (f *fakeAuth) GetCurrentUser(ctx context.Context) (*models.User, error) {
	if f.UserErr != nil {
		return nil, f.UserErr
	}
	f.mu.Lock()
	changed := f.UserRet != nil && f.UserRet.EmailConfirmed() != f.seenConfirmed
	if changed {
		f.seenConfirmed = f.UserRet.EmailConfirmed()
	}
	f.mu.Unlock()
	if changed {
		f.emit(models.EventUserUpdated, &models.Session{AccessToken: "at", RefreshToken: "rt", User: f.UserRet})
	}
	return f.UserRet, nil
}

func (f *fakeAuth) ResetPasswordForEmail(ctx context.Context, email string) error {
	return f.ResetErr
}

func (f *fakeAuth) UpdatePassword(ctx context.Context, newPassword string) error {
	return f.UpdatePasswordErr
}

func (f *fakeAuth) ResendVerification(ctx context.Context, email string) error {
	f.LastResend = email
	return f.ResendErr
}

func (f *fakeAuth) OnSessionChange(l models.SessionListener) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = l
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *fakeAuth) Initialize(ctx context.Context) (*models.Session, error) {
	if f.InitSignedOut {
		f.emit(models.EventSignedOut, nil)
		f.emit(models.EventInitialSession, nil)
		return nil, fmt.Errorf("refresh session: %w", common.ErrNoSession)
	}
	f.emit(models.EventInitialSession, f.SessionRet)
	return f.SessionRet, nil
}

func (f *fakeAuth) StartAutoRefresh(ctx context.Context) {
	f.mu.Lock()
	f.AutoRefreshStarts++
	f.mu.Unlock()
}

func (f *fakeAuth) StopAutoRefresh() {
	f.mu.Lock()
	f.AutoRefreshStops++
	f.mu.Unlock()
}

func (f *fakeAuth) Close(ctx context.Context) error { return nil }

// ---- fake profile gate ----

type fakeProfiles struct {
	mu sync.Mutex

	Has         bool
	HasCalls    int
	Invalidated int

	CreateRet *models.Profile
	CreateErr error

	// OnHas runs inside HasProfile, before it answers.
	OnHas func()
}

func (f *fakeProfiles) HasProfile(ctx context.Context) bool {
	f.mu.Lock()
	f.HasCalls++
	has, hook := f.Has, f.OnHas
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return has
}

func (f *fakeProfiles) hasCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.HasCalls
}

func (f *fakeProfiles) CheckProfile(ctx context.Context) (bool, error) {
	return f.HasProfile(ctx), nil
}

func (f *fakeProfiles) IsHandleAvailable(ctx context.Context, handle string) (bool, error) {
	return true, nil
}

func (f *fakeProfiles) CreateProfile(ctx context.Context, handle, displayName string) (*models.Profile, error) {
	return f.CreateRet, f.CreateErr
}

func (f *fakeProfiles) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.Profile, error) {
	return f.CreateRet, nil
}

func (f *fakeProfiles) SearchProfiles(ctx context.Context, query string, limit int) ([]models.Profile, error) {
	return nil, nil
}

func (f *fakeProfiles) UploadAvatar(ctx context.Context, body io.Reader, contentType string) (string, error) {
	return "", nil
}

func (f *fakeProfiles) Invalidate() {
	f.mu.Lock()
	f.Invalidated++
	f.mu.Unlock()
}

// ---- recording navigator ----

type recNav struct {
	mu     sync.Mutex
	routes []routing.Route
	errs   []string
}

func (n *recNav) Replace(ctx context.Context, r routing.Route) {
	n.mu.Lock()
	n.routes = append(n.routes, r)
	n.mu.Unlock()
}

func (n *recNav) ShowError(ctx context.Context, msg string) {
	n.mu.Lock()
	n.errs = append(n.errs, msg)
	n.mu.Unlock()
}

func (n *recNav) Routes() []routing.Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]routing.Route(nil), n.routes...)
}

func (n *recNav) Errors() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.errs...)
}

// ---- link source ----

type fakeLinks struct {
	mu      sync.Mutex
	initial string
	fn      func(string)
	unsubs  int
}

func (l *fakeLinks) InitialURL(ctx context.Context) (string, error) { return l.initial, nil }

func (l *fakeLinks) Subscribe(fn func(string)) func() {
	l.mu.Lock()
	l.fn = fn
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		l.fn = nil
		l.unsubs++
		l.mu.Unlock()
	}
}

func (l *fakeLinks) deliver(url string) {
	l.mu.Lock()
	fn := l.fn
	l.mu.Unlock()
	if fn != nil {
		fn(url)
	}
}
