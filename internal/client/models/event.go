package models

// SessionEvent names a session transition delivered to listeners.
type SessionEvent string

const (
	EventInitialSession   SessionEvent = "INITIAL_SESSION"
	EventSignedIn         SessionEvent = "SIGNED_IN"
	EventSignedOut        SessionEvent = "SIGNED_OUT"
	EventTokenRefreshed   SessionEvent = "TOKEN_REFRESHED"
	EventUserUpdated      SessionEvent = "USER_UPDATED"
	EventPasswordRecovery SessionEvent = "PASSWORD_RECOVERY"
)

// SessionListener receives session transitions. session is nil for SIGNED_OUT
// and for INITIAL_SESSION when nobody is signed in.
type SessionListener func(event SessionEvent, session *Session)
