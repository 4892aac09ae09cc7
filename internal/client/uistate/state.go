// Package uistate holds the process-wide UI state read by every screen.
// Fields change only through the Store's named setters; subscribers are told
// about every change.
package uistate

// Theme is the colour scheme preference.
type Theme string

const (
	ThemeSystem Theme = "system"
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
)

// ProfileStatus is the tri-state answer to "has this identity finished
// profile setup".
type ProfileStatus int

const (
	ProfileUnknown ProfileStatus = iota
	ProfileMissing
	ProfilePresent
)

func (p ProfileStatus) String() string {
	switch p {
	case ProfileMissing:
		return "missing"
	case ProfilePresent:
		return "present"
	default:
		return "unknown"
	}
}

// DefaultTab is the tab shown after sign-in.
const DefaultTab = "index"

// State is a value snapshot. Theme, OnboardingDone, IsAuthenticated,
// CurrentTab and EmailPendingVerification survive restarts; AuthResolving
// and ProfileExists always start from their zero values.
type State struct {
	Theme                    Theme
	OnboardingDone           bool
	IsAuthenticated          bool
	CurrentTab               string
	EmailPendingVerification string

	AuthResolving bool
	ProfileExists ProfileStatus
}

// Defaults is the state of a fresh install.
func Defaults() State {
	return State{Theme: ThemeSystem, CurrentTab: DefaultTab}
}
