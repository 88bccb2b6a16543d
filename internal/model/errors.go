package model

import (
	"errors"
	"fmt"
)

// Sentinel error kinds, exhaustive per spec.md §7.
var (
	// ErrTransientProvider signals a retryable provider failure that was
	// exhausted; the account is excluded from the current batch.
	ErrTransientProvider = errors.New("transient provider error")

	// ErrLLMRateLimit signals an exhausted LLM 429 retry budget.
	ErrLLMRateLimit = errors.New("llm rate limit exhausted")

	// ErrLLMParseFailure signals a stage whose LLM output could not be
	// parsed even by the tolerant parser.
	ErrLLMParseFailure = errors.New("llm output parse failure")

	// ErrNoValidAccounts signals every account failed TokenGuard validation.
	ErrNoValidAccounts = errors.New("no valid accounts")

	// ErrNonMeeting is not a failure — it terminates the pipeline early
	// with a minimal brief. Modeled as a sentinel so coordinator control
	// flow can use errors.Is the same way it does for real errors.
	ErrNonMeeting = errors.New("classification: non-meeting")

	// ErrCancelled signals the consumer disconnected; propagates silently.
	ErrCancelled = errors.New("prep cancelled")
)

// RevokedTokenError is returned by TokenGuard when an account's refresh
// token has been revoked by the provider (invalid_grant or equivalent).
// Terminal: the account will never be retried within the process.
type RevokedTokenError struct {
	AccountID string
	Email     string
	Cause     error
}

func (e *RevokedTokenError) Error() string {
	return fmt.Sprintf("account %s (%s): token revoked: %v", e.AccountID, e.Email, e.Cause)
}

func (e *RevokedTokenError) Unwrap() error { return e.Cause }

// IsRevoked reports whether err (or any error it wraps) is a RevokedTokenError.
func IsRevoked(err error) bool {
	var re *RevokedTokenError
	return errors.As(err, &re)
}

// PrepErrorStatus mirrors the stream-terminating error event's HTTP-like
// status code (§7: "status" field on the error event).
type PrepErrorStatus int

const (
	PrepStatusUnauthorized PrepErrorStatus = 401
	PrepStatusUnavailable  PrepErrorStatus = 503
	PrepStatusBadRequest   PrepErrorStatus = 400
)

// PrepError is a stream-terminating error, carried on the `error` event.
type PrepError struct {
	Status    PrepErrorStatus `json:"status"`
	Kind      string          `json:"error"`
	Message   string          `json:"message"`
	RequestID string          `json:"requestId"`
	Revoked   bool            `json:"revoked,omitempty"`
	Details   any             `json:"details,omitempty"`
}

func (e *PrepError) Error() string { return e.Message }

// FailedAccount describes one account's TokenGuard failure, surfaced on a
// NO_VALID_ACCOUNTS error event's per-account diagnostics.
type FailedAccount struct {
	Email     string `json:"email"`
	AccountID string `json:"accountId"`
	Error     string `json:"error"`
	IsRevoked bool   `json:"isRevoked"`
}
