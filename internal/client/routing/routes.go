// Package routing names the app's screens and decides where a navigation
// request may land given the current auth state.
package routing

import "strings"

// Route is a screen name.
type Route string

const (
	Splash         Route = "splash"
	Onboarding     Route = "onboarding"
	Login          Route = "login"
	SignUp         Route = "signup"
	ForgotPassword Route = "forgot-password"
	ResetPassword  Route = "reset-password"
	Verification   Route = "verification"
	Callback       Route = "callback"
	ProfileSetup   Route = "profile-setup"
	Home           Route = "home"
)

var public = map[Route]struct{}{
	Splash:         {},
	Onboarding:     {},
	Login:          {},
	SignUp:         {},
	ForgotPassword: {},
	ResetPassword:  {},
	Verification:   {},
	Callback:       {},
}

// IsPublic reports whether r is reachable without a session.
func (r Route) IsPublic() bool {
	_, ok := public[r]
	return ok
}

// Normalize accepts screen paths as typed by users or produced by links
// ("/login", "(tabs)", "Home") and returns the Route.
func Normalize(s string) Route {
	s = strings.ToLower(strings.Trim(strings.TrimSpace(s), "/"))
	switch s {
	case "", "(tabs)", "index", "tabs":
		return Home
	}
	return Route(s)
}
