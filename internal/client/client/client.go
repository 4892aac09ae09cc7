package client

import (
	"context"

	"github.com/dmitrijs2005/xplit/internal/client/models"
)

// EmailOptions accompanies requests that make the provider send an e-mail
// with a link back into the app.
type EmailOptions struct {
	RedirectTo    string
	CodeChallenge string
}

// UserAttributes are the user fields that may be changed by the owner.
type UserAttributes struct {
	Password string `json:"password,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Client is the identity provider contract used by the auth and profile
// services.
type Client interface {
	Close() error

	// SignUp returns the created user and, when the provider does not require
	// e-mail confirmation, a session.
	SignUp(ctx context.Context, email, password string, opts EmailOptions) (*models.User, *models.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
	ExchangeCode(ctx context.Context, authCode, codeVerifier string) (*models.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*models.Session, error)

	GetUser(ctx context.Context, accessToken string) (*models.User, error)
	UpdateUser(ctx context.Context, accessToken string, attrs UserAttributes) (*models.User, error)
	Logout(ctx context.Context, accessToken string) error

	Recover(ctx context.Context, email string, opts EmailOptions) error
	ResendSignup(ctx context.Context, email string, opts EmailOptions) error

	// CallRPC invokes a database function as the user owning accessToken
	// (or anonymously when empty) and decodes its result into out.
	CallRPC(ctx context.Context, accessToken, fn string, args, out any) error
}
