package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dmitrijs2005/xplit/internal/client/client"
	"github.com/dmitrijs2005/xplit/internal/client/models"
)

// ---- fake provider client ----

type rpcCall struct {
	Fn    string
	Token string
	Args  any
}

type fakeClient struct {
	mu sync.Mutex

	SignUpUser    *models.User
	SignUpSession *models.Session
	SignUpErr     error
	LastSignUp    client.EmailOptions

	SignInRet *models.Session
	SignInErr error

	ExchangeRet      *models.Session
	ExchangeErr      error
	LastExchangeCode string
	LastVerifier     string
	ExchangeCalls    int

	RefreshRet   *models.Session
	RefreshErr   error
	RefreshCalls int
	RefreshHook  func()

	GetUserRet *models.User
	GetUserErr error

	UpdateUserRet *models.User
	UpdateUserErr error
	LastAttrs     client.UserAttributes

	LogoutErr   error
	LogoutCalls int

	RecoverErr  error
	LastRecover client.EmailOptions
	ResendErr   error
	ResendCalls int

	RPC      map[string]any
	RPCErr   map[string]error
	RPCCalls []rpcCall
}

func (f *fakeClient) Close() error { return nil }

func (f *fakeClient) SignUp(ctx context.Context, email, password string, opts client.EmailOptions) (*models.User, *models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastSignUp = opts
	return f.SignUpUser, f.SignUpSession, f.SignUpErr
}

func (f *fakeClient) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	return f.SignInRet, f.SignInErr
}

func (f *fakeClient) ExchangeCode(ctx context.Context, authCode, codeVerifier string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ExchangeCalls++
	f.LastExchangeCode = authCode
	f.LastVerifier = codeVerifier
	return f.ExchangeRet, f.ExchangeErr
}

func (f *fakeClient) RefreshSession(ctx context.Context, refreshToken string) (*models.Session, error) {
	f.mu.Lock()
	f.RefreshCalls++
	hook := f.RefreshHook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return f.RefreshRet, f.RefreshErr
}

func (f *fakeClient) GetUser(ctx context.Context, accessToken string) (*models.User, error) {
	return f.GetUserRet, f.GetUserErr
}

func (f *fakeClient) UpdateUser(ctx context.Context, accessToken string, attrs client.UserAttributes) (*models.User, error) {
	f.LastAttrs = attrs
	return f.UpdateUserRet, f.UpdateUserErr
}

func (f *fakeClient) Logout(ctx context.Context, accessToken string) error {
	f.LogoutCalls++
	return f.LogoutErr
}

func (f *fakeClient) Recover(ctx context.Context, email string, opts client.EmailOptions) error {
	f.LastRecover = opts
	return f.RecoverErr
}

func (f *fakeClient) ResendSignup(ctx context.Context, email string, opts client.EmailOptions) error {
	f.ResendCalls++
	return f.ResendErr
}

func (f *fakeClient) CallRPC(ctx context.Context, accessToken, fn string, args, out any) error {
	f.mu.Lock()
	f.RPCCalls = append(f.RPCCalls, rpcCall{Fn: fn, Token: accessToken, Args: args})
	err := f.RPCErr[fn]
	val, ok := f.RPC[fn]
	f.mu.Unlock()

	if err != nil {
		return err
	}
	if ok && out != nil {
		b, _ := json.Marshal(val)
		return json.Unmarshal(b, out)
	}
	return nil
}

func (f *fakeClient) calls(fn string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.RPCCalls {
		if c.Fn == fn {
			n++
		}
	}
	return n
}

// ---- in-memory session storage ----

type memStorage struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStorage() *memStorage { return &memStorage{data: map[string]string{}} }

func (m *memStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStorage) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// ---- event recorder ----

type eventLog struct {
	mu     sync.Mutex
	events []models.SessionEvent
}

func (e *eventLog) listener(ev models.SessionEvent, _ *models.Session) {
	e.mu.Lock()
	e.events = append(e.events, ev)
	e.mu.Unlock()
}

func (e *eventLog) all() []models.SessionEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.SessionEvent(nil), e.events...)
}
