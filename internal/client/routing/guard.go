package routing

import "github.com/dmitrijs2005/xplit/internal/client/uistate"

// GuardState is the slice of app state the guard looks at.
type GuardState struct {
	AuthResolving bool
	HasSession    bool
	Profile       uistate.ProfileStatus
}

// StateFrom builds a GuardState from a UI snapshot.
func StateFrom(st uistate.State) GuardState {
	return GuardState{
		AuthResolving: st.AuthResolving,
		HasSession:    st.IsAuthenticated,
		Profile:       st.ProfileExists,
	}
}

// Guard returns the route navigation to target should end on and whether
// that is a redirect. Feeding the result back in never redirects again.
//
// Public routes are always allowed and nothing is redirected while auth is
// resolving. An unknown profile status does not redirect either; the
// coordinator re-routes once the check completes.
func Guard(target Route, st GuardState) (Route, bool) {
	if target.IsPublic() || st.AuthResolving {
		return target, false
	}
	if !st.HasSession {
		return Login, true
	}
	switch st.Profile {
	case uistate.ProfileMissing:
		if target != ProfileSetup {
			return ProfileSetup, true
		}
	case uistate.ProfilePresent:
		if target == ProfileSetup {
			return Home, true
		}
	}
	return target, false
}
