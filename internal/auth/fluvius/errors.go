package fluvius

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Flow step names carried inside HTTP errors for diagnosis.
const (
	StepAuthorize   = "authorize"
	StepCredentials = "credentials"
	StepConfirm     = "confirm"
	StepToken       = "token"
)

// ErrStateMismatch indicates the state value in the final redirect does not
// match the one generated at the start of the attempt. This signals response
// substitution or cross-attempt confusion and is never retried.
var ErrStateMismatch = errors.New("fluvius auth: state in redirect does not match login attempt")

// InvalidCredentialsError indicates the provider rejected the submitted
// credentials. Status preserves the raw provider status marker; any status
// other than "200" maps here, including ones this client does not recognize.
// Terminal: retrying with the same credentials cannot succeed.
type InvalidCredentialsError struct {
	// Status is the provider's status marker from the credential response.
	Status string
	// Message is the provider's localized error message, if any.
	Message string
}

func (e *InvalidCredentialsError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("fluvius auth: credentials rejected (status %s): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("fluvius auth: credentials rejected (status %s)", e.Status)
}

// ScrapeError indicates an expected field was absent from a scraped page or
// redirect. It usually means the provider changed its page structure and the
// flow needs to be re-inspected; it is not a transient condition.
type ScrapeError struct {
	// Field is the name of the missing field.
	Field string
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("fluvius auth: page structure changed, field %q not found", e.Field)
}

// HTTPError indicates an unexpected HTTP status at a flow step other than the
// token exchange. Terminal for this attempt.
type HTTPError struct {
	Step       string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("fluvius auth: step %s failed with HTTP %d", e.Step, e.StatusCode)
}

// TokenEndpointError indicates the token endpoint rejected the exchange. A 400
// here frequently self-resolves after the provider refreshes internal
// metadata, so callers may retry the whole attempt once after a short delay.
type TokenEndpointError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *TokenEndpointError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("fluvius auth: token exchange failed with HTTP %d: %s: %s", e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("fluvius auth: token exchange failed with HTTP %d", e.StatusCode)
}

// Retryable reports whether a failed attempt is worth a single retry by the
// caller. Only token endpoint failures and timeouts qualify; credential,
// state, and scrape failures are terminal by design.
func Retryable(err error) bool {
	var tokenErr *TokenEndpointError
	if errors.As(err, &tokenErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
