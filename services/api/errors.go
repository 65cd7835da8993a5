package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNoRefreshToken is returned by a manual refresh when no refresh token is
// stored; the silent-refresh path is disabled without one.
var ErrNoRefreshToken = errors.New("no refresh token available")

// Error is a server-reported failure: a non-2xx status or a success:false
// envelope. Message is the server-provided description when there was one.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("storefront api error: status %d", e.StatusCode)
}

// WithFallback returns err unchanged when it carries a server-provided
// message, otherwise wraps it with the operation's fallback description.
func WithFallback(err error, fallback string) error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return err
	}
	return fmt.Errorf("%s: %w", fallback, err)
}

// IsDefinitiveAuthFailure reports whether err is an authoritative rejection
// of the stored credentials: a 403, or a 401 whose message mentions an
// invalid token. Transport failures and other server errors return false so
// a restored session survives them. The substring check mirrors the server's
// current error text; replace it with a structured code if the contract
// grows one.
func IsDefinitiveAuthFailure(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode == http.StatusForbidden {
		return true
	}
	return apiErr.StatusCode == http.StatusUnauthorized &&
		strings.Contains(strings.ToLower(apiErr.Message), "invalid")
}
