package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/xplit/internal/client/models"
	"github.com/dmitrijs2005/xplit/internal/common"
	"github.com/dmitrijs2005/xplit/internal/netx"
)

const (
	authPath = "/auth/v1"
	rpcPath  = "/rest/v1/rpc/"
)

// HTTPClient implements Client over the provider's REST endpoints.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewHTTPClient validates baseURL and returns a client whose requests time
// out after timeout (zero means no client-side timeout).
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid provider url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid provider url %q", baseURL)
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(u.String(), "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

type pkceParams struct {
	CodeChallenge       string `json:"code_challenge,omitempty"`
	CodeChallengeMethod string `json:"code_challenge_method,omitempty"`
}

func newPKCEParams(challenge string) pkceParams {
	if challenge == "" {
		return pkceParams{}
	}
	return pkceParams{CodeChallenge: challenge, CodeChallengeMethod: ChallengeMethod}
}

func (c *HTTPClient) SignUp(ctx context.Context, email, password string, opts EmailOptions) (*models.User, *models.Session, error) {
	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		pkceParams
	}{email, password, newPKCEParams(opts.CodeChallenge)}

	var raw json.RawMessage
	if err := c.do(ctx, "signup", http.MethodPost, c.authURL("/signup", redirectQuery(opts.RedirectTo)), "", body, &raw); err != nil {
		return nil, nil, err
	}

	// With auto-confirm the provider answers with a session, otherwise with
	// the bare user object.
	var sess models.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, nil, fmt.Errorf("signup: decode response: %w", err)
	}
	if sess.AccessToken != "" {
		return sess.User, &sess, nil
	}

	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, nil, fmt.Errorf("signup: decode response: %w", err)
	}
	return &user, nil, nil
}

func (c *HTTPClient) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	body := map[string]string{"email": email, "password": password}
	return c.token(ctx, "password", body)
}

func (c *HTTPClient) ExchangeCode(ctx context.Context, authCode, codeVerifier string) (*models.Session, error) {
	body := map[string]string{"auth_code": authCode, "code_verifier": codeVerifier}
	return c.token(ctx, "pkce", body)
}

func (c *HTTPClient) RefreshSession(ctx context.Context, refreshToken string) (*models.Session, error) {
	body := map[string]string{"refresh_token": refreshToken}
	return c.token(ctx, "refresh_token", body)
}

func (c *HTTPClient) token(ctx context.Context, grant string, body any) (*models.Session, error) {
	q := url.Values{"grant_type": {grant}}
	var sess models.Session
	if err := c.do(ctx, "token "+grant, http.MethodPost, c.authURL("/token", q), "", body, &sess); err != nil {
		return nil, err
	}
	if sess.AccessToken == "" {
		return nil, &ProviderError{Status: http.StatusOK, Message: "token response without access token", Kind: common.ErrProviderError}
	}
	return &sess, nil
}

func (c *HTTPClient) GetUser(ctx context.Context, accessToken string) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, "get user", http.MethodGet, c.authURL("/user", nil), accessToken, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *HTTPClient) UpdateUser(ctx context.Context, accessToken string, attrs UserAttributes) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, "update user", http.MethodPut, c.authURL("/user", nil), accessToken, attrs, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *HTTPClient) Logout(ctx context.Context, accessToken string) error {
	return c.do(ctx, "logout", http.MethodPost, c.authURL("/logout", nil), accessToken, nil, nil)
}

func (c *HTTPClient) Recover(ctx context.Context, email string, opts EmailOptions) error {
	body := struct {
		Email string `json:"email"`
		pkceParams
	}{email, newPKCEParams(opts.CodeChallenge)}
	return c.do(ctx, "recover", http.MethodPost, c.authURL("/recover", redirectQuery(opts.RedirectTo)), "", body, nil)
}

func (c *HTTPClient) ResendSignup(ctx context.Context, email string, opts EmailOptions) error {
	body := struct {
		Type  string `json:"type"`
		Email string `json:"email"`
		pkceParams
	}{"signup", email, newPKCEParams(opts.CodeChallenge)}
	return c.do(ctx, "resend", http.MethodPost, c.authURL("/resend", redirectQuery(opts.RedirectTo)), "", body, nil)
}

func (c *HTTPClient) CallRPC(ctx context.Context, accessToken, fn string, args, out any) error {
	if args == nil {
		args = struct{}{}
	}
	return c.do(ctx, "rpc "+fn, http.MethodPost, c.baseURL+rpcPath+url.PathEscape(fn), accessToken, args, out)
}

func (c *HTTPClient) authURL(path string, q url.Values) string {
	u := c.baseURL + authPath + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func redirectQuery(redirectTo string) url.Values {
	if redirectTo == "" {
		return nil
	}
	return url.Values{"redirect_to": {redirectTo}}
}

func (c *HTTPClient) do(ctx context.Context, op, method, u, accessToken string, body, out any) error {
	h := http.Header{}
	h.Set(common.APIKeyHeaderName, c.apiKey)
	bearer := accessToken
	if bearer == "" {
		bearer = c.apiKey
	}
	h.Set(common.AuthorizationHeaderName, "Bearer "+bearer)

	err := netx.DoJSON(ctx, c.http, method, u, h, body, out)
	if err == nil {
		return nil
	}

	var herr *netx.HTTPError
	if errors.As(err, &herr) {
		return decodeProviderError(herr)
	}
	return transportError(op, err)
}

// errorBody covers the auth error shapes (current and legacy) and the
// database error shape.
type errorBody struct {
	ErrorCode        string          `json:"error_code"`
	Code             json.RawMessage `json:"code"`
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

func decodeProviderError(herr *netx.HTTPError) *ProviderError {
	var eb errorBody
	_ = json.Unmarshal(herr.Body, &eb)

	code := eb.ErrorCode
	if code == "" && len(eb.Code) > 0 {
		// auth errors repeat the status as a number; database errors carry a
		// SQLSTATE string
		var s string
		if json.Unmarshal(eb.Code, &s) == nil {
			code = s
		}
	}
	if code == "" {
		code = eb.Error
	}

	msg := firstNonEmpty(eb.Msg, eb.Message, eb.ErrorDescription, eb.Error)
	if msg == "" {
		msg = string(bytes.TrimSpace(herr.Body))
	}

	return &ProviderError{
		Status:  herr.Status,
		Code:    code,
		Message: msg,
		Kind:    Classify(herr.Status, code, msg),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
