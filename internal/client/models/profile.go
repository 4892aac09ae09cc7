package models

import "time"

// Profile is the application-level identity record. ID equals the owning
// User.ID and Handle is immutable once set.
type Profile struct {
	ID          string    `json:"id"`
	Handle      string    `json:"handle"`
	DisplayName string    `json:"display_name"`
	Bio         string    `json:"bio,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
}

// ProfileUpdate carries optional profile changes; nil fields are untouched.
type ProfileUpdate struct {
	DisplayName *string `json:"p_display_name"`
	Bio         *string `json:"p_bio"`
	AvatarURL   *string `json:"p_avatar_url"`
}
