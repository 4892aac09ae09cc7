package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrijs2005/xplit/internal/client/uistate"
)

func TestGuard(t *testing.T) {
	noSession := GuardState{}
	missing := GuardState{HasSession: true, Profile: uistate.ProfileMissing}
	present := GuardState{HasSession: true, Profile: uistate.ProfilePresent}
	unknown := GuardState{HasSession: true, Profile: uistate.ProfileUnknown}

	tests := []struct {
		name     string
		target   Route
		st       GuardState
		want     Route
		redirect bool
	}{
		{"public without session", Login, noSession, Login, false},
		{"public reset without session", ResetPassword, noSession, ResetPassword, false},
		{"protected without session", Home, noSession, Login, true},
		{"profile setup without session", ProfileSetup, noSession, Login, true},
		{"resolving suppresses redirect", Home, GuardState{AuthResolving: true}, Home, false},
		{"no profile to home", Home, missing, ProfileSetup, true},
		{"no profile arbitrary screen", Route("settings"), missing, ProfileSetup, true},
		{"no profile on setup", ProfileSetup, missing, ProfileSetup, false},
		{"no profile public allowed", Verification, missing, Verification, false},
		{"profile on setup", ProfileSetup, present, Home, true},
		{"profile to home", Home, present, Home, false},
		{"unknown profile allowed", Home, unknown, Home, false},
		{"unknown profile on setup", ProfileSetup, unknown, ProfileSetup, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, redirected := Guard(tt.target, tt.st)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.redirect, redirected)
		})
	}
}

func TestGuard_NoRedirectLoop(t *testing.T) {
	routes := []Route{Splash, Onboarding, Login, SignUp, ForgotPassword, ResetPassword, Verification, Callback, ProfileSetup, Home, "settings"}
	states := []GuardState{
		{},
		{AuthResolving: true},
		{HasSession: true},
		{HasSession: true, Profile: uistate.ProfileMissing},
		{HasSession: true, Profile: uistate.ProfilePresent},
	}

	for _, st := range states {
		for _, r := range routes {
			first, _ := Guard(r, st)
			second, redirected := Guard(first, st)
			assert.False(t, redirected, "%v from %s", st, r)
			assert.Equal(t, first, second)
		}
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, Login, Normalize("/login"))
	assert.Equal(t, Home, Normalize("(tabs)"))
	assert.Equal(t, Home, Normalize(""))
	assert.Equal(t, ProfileSetup, Normalize(" Profile-Setup/ "))
}

func TestStateFrom(t *testing.T) {
	st := uistate.Defaults()
	st.IsAuthenticated = true
	st.ProfileExists = uistate.ProfilePresent

	assert.Equal(t, GuardState{HasSession: true, Profile: uistate.ProfilePresent}, StateFrom(st))
}
