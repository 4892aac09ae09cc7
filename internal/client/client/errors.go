package client

import (
	"fmt"

	"github.com/dmitrijs2005/xplit/internal/common"
)

// ProviderError is a failed provider response. It unwraps to the classified
// sentinel so callers can use errors.Is(err, common.ErrInvalidCredentials)
// and friends.
type ProviderError struct {
	Status  int
	Code    string
	Message string
	Kind    error
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (status %d, code %s): %s", e.Kind, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Kind }

// transportError wraps a failure that never produced a response.
func transportError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, common.ErrProviderError, err)
}
