package service

import "errors"

// Session lifecycle errors. Each maps to a stable code the error middleware
// translates into an HTTP status; everything else is treated as internal.
var (
	// ErrInvalidTransition means the session's persisted status does not allow
	// the requested operation. Not retryable from the same state.
	ErrInvalidTransition = errors.New("invalid session state transition")

	// ErrAttemptExhausted means the daily attempt policy rejected creation.
	ErrAttemptExhausted = errors.New("daily session attempt exhausted")

	// ErrReconnectionTimeout means the session stayed paused past the
	// reconnection window and has been locked as a side effect.
	ErrReconnectionTimeout = errors.New("reconnection timeout exceeded")

	// ErrCompletionStream means the upstream completion provider failed
	// mid-stream. The session stays active so the caller may retry.
	ErrCompletionStream = errors.New("completion stream failed")

	// ErrSynthesisFailed is raised only when every sentence of a response
	// failed synthesis. A partial failure degrades to missing chunks instead.
	ErrSynthesisFailed = errors.New("speech synthesis failed for all sentences")

	// ErrEntitlementDenied means the entitlement check refused capacity.
	ErrEntitlementDenied = errors.New("entitlement denied")

	// ErrSessionNotFound means no session matched the id for this user.
	ErrSessionNotFound = errors.New("session not found")
)
