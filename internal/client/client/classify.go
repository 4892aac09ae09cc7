package client

import (
	"net/http"
	"strings"

	"github.com/jackc/pgerrcode"

	"github.com/dmitrijs2005/xplit/internal/common"
)

// Classify maps a provider failure to one of the common sentinel errors.
// code is the structured error code when the provider sends one (auth
// error_code or a Postgres SQLSTATE); message fragments are consulted only as
// a fallback for older provider versions.
func Classify(status int, code, message string) error {
	code = strings.ToLower(strings.TrimSpace(code))
	msg := strings.ToLower(message)

	switch code {
	case "user_already_exists", "email_exists":
		return common.ErrEmailAlreadyRegistered
	case "weak_password":
		return common.ErrWeakCredential
	case "email_not_confirmed":
		return common.ErrEmailNotVerified
	case "invalid_credentials":
		return common.ErrInvalidCredentials
	case "user_not_found":
		return common.ErrUserNotFound
	case "over_email_send_rate_limit", "over_request_rate_limit":
		return common.ErrRateLimited
	case "bad_code_verifier", "flow_state_not_found", "flow_state_expired", "otp_expired", "bad_jwt":
		return common.ErrInvalidOrExpiredCode
	case "refresh_token_not_found", "refresh_token_already_used", "session_not_found", "session_expired":
		return common.ErrNoSession
	case pgerrcode.UniqueViolation:
		return common.ErrHandleTaken
	}

	switch {
	case strings.Contains(msg, "already registered"):
		return common.ErrEmailAlreadyRegistered
	case strings.Contains(msg, "password should be"), strings.Contains(msg, "weak password"):
		return common.ErrWeakCredential
	case strings.Contains(msg, "email not confirmed"), strings.Contains(msg, "email not verified"):
		return common.ErrEmailNotVerified
	case strings.Contains(msg, "invalid login credentials"), strings.Contains(msg, "invalid email or password"):
		return common.ErrInvalidCredentials
	case strings.Contains(msg, "user not found"):
		return common.ErrUserNotFound
	case strings.Contains(msg, "duplicate key"),
		strings.Contains(msg, "unique constraint"),
		strings.Contains(msg, "already exists"),
		strings.Contains(msg, "handle") && strings.Contains(msg, "taken"):
		return common.ErrHandleTaken
	case strings.Contains(msg, "flow state"),
		strings.Contains(msg, "code verifier"),
		strings.Contains(msg, "invalid or has expired"),
		strings.Contains(msg, "token has expired"):
		return common.ErrInvalidOrExpiredCode
	case strings.Contains(msg, "invalid refresh token"):
		return common.ErrNoSession
	}

	switch status {
	case http.StatusTooManyRequests:
		return common.ErrRateLimited
	case http.StatusUnauthorized:
		return common.ErrNoSession
	}
	return common.ErrProviderError
}
