package models

import "time"

// User mirrors the identity record kept by the provider. It is a read-mostly
// local cache; the provider owns every mutation.
type User struct {
	// ID is stable and never changes for the lifetime of the account.
	ID    string `json:"id"`
	Email string `json:"email"`

	// EmailConfirmedAt is nil until the address has been verified.
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`

	// Identities lists linked sign-in methods. The provider returns an empty
	// list when sign-up hits an already registered address.
	Identities []Identity `json:"identities,omitempty"`

	CreatedAt time.Time `json:"created_at,omitzero"`
}

// Identity is one sign-in method linked to a User.
type Identity struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
}

// EmailConfirmed reports whether the e-mail address has been verified.
func (u *User) EmailConfirmed() bool {
	return u != nil && u.EmailConfirmedAt != nil && !u.EmailConfirmedAt.IsZero()
}
