package service

import "errors"

// Sentinel errors the orchestrator and its callers map to HTTP status codes
// and fallback behavior (§7). Wrapped with fmt.Errorf("...: %w", ...) at the
// point of detection so errors.Is still matches through the call stack.
var (
	// ErrInvalidQuery covers empty or malformed input queries.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrSessionNotFound is returned when a session ID has no known conversation.
	ErrSessionNotFound = errors.New("session not found")
	// ErrConnectionLost covers storage connectivity failures.
	ErrConnectionLost = errors.New("connection lost")
	// ErrTimeout covers context deadline exceeded on a downstream call.
	ErrTimeout = errors.New("operation timed out")
	// ErrDimensionMismatch is returned when an embedding vector's length
	// does not match the configured vector dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrIntegrityError covers data that fails a structural invariant.
	ErrIntegrityError = errors.New("integrity error")
	// ErrTransient covers errors expected to succeed on retry.
	ErrTransient = errors.New("transient error")
	// ErrQuotaExceeded is returned when the completion provider reports a
	// quota or rate-limit condition that retries will not resolve soon.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrUnauthorized covers authentication/authorization failures calling
	// an external provider.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrContentFiltered is returned when a provider's safety filter blocks
	// a completion.
	ErrContentFiltered = errors.New("content filtered")
	// ErrModelUnavailable is returned when every model in the fallback
	// list has been exhausted.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrNoIndex is returned when the requested retrieval strategy has no
	// searchable content at all (as opposed to zero matches).
	ErrNoIndex = errors.New("no index available for strategy")
	// ErrEmptyResult covers an operation that completed but produced
	// nothing usable.
	ErrEmptyResult = errors.New("empty result")
	// ErrOverloaded is returned by the Completion Client's admission
	// control when the in-flight request bound is exceeded (§5).
	ErrOverloaded = errors.New("overloaded")
)
