package models

import "time"

// Session is the credential pair representing an authenticated identity.
// At most one Session is persisted per device.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	User         *User  `json:"user"`
}

// Expiry returns the absolute expiry time, or the zero time if unknown.
func (s *Session) Expiry() time.Time {
	if s == nil || s.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(s.ExpiresAt, 0)
}

// ExpiresWithin reports whether the session is expired or will be within d.
// Sessions without a known expiry never report as expiring.
func (s *Session) ExpiresWithin(now time.Time, d time.Duration) bool {
	exp := s.Expiry()
	if exp.IsZero() {
		return false
	}
	return !now.Add(d).Before(exp)
}

// SignUpResult is returned by sign-up. Session is nil when the provider
// requires e-mail confirmation first.
type SignUpResult struct {
	User    *User
	Session *Session
}
