package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "credentials", err: ErrInvalidCredentials, want: "Invalid email or password."},
		{name: "wrapped handle", err: fmt.Errorf("create profile: %w", ErrHandleTaken), want: "This handle is already taken. Please choose another one."},
		{name: "validation", err: NewValidationError("handle", "Handle is too short"), want: "Handle is too short"},
		{name: "unknown", err: errors.New("boom"), want: "Something went wrong. Please try again."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}

func TestValidationError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NewValidationError("display_name", "required"))

	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "wrap: display_name: required", err.Error())
}
