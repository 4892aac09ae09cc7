package common

import "errors"

// UserMessage maps an error from the taxonomy to the copy shown on screen.
// Unknown errors get a generic retry message; the original text is never
// shown because provider messages are not meant for end users.
func UserMessage(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password."
	case errors.Is(err, ErrEmailNotVerified):
		return "Please verify your email address before logging in."
	case errors.Is(err, ErrEmailAlreadyRegistered):
		return "An account with this email already exists."
	case errors.Is(err, ErrWeakCredential):
		return "Password must be at least 8 characters long."
	case errors.Is(err, ErrUserNotFound):
		return "No account found with this email address."
	case errors.Is(err, ErrHandleTaken):
		return "This handle is already taken. Please choose another one."
	case errors.Is(err, ErrInvalidOrExpiredCode):
		return "This sign-in link is invalid or has expired. Please request a new one."
	case errors.Is(err, ErrNoSession):
		return "Your session has ended. Please sign in again."
	case errors.Is(err, ErrRateLimited):
		return "Too many requests. Please wait a moment and try again."
	case errors.Is(err, ErrKeyStoreUnavailable):
		return "Secure storage is unavailable on this device."
	case errors.Is(err, ErrProfileCheckFailed):
		return "Unable to load your profile. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}
