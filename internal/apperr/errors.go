// Package apperr holds the error taxonomy shared by the scheduler, the quiz
// session machine, the stores and the HTTP layer.
//
// Callers wrap a sentinel with context and inspect it with errors.Is:
//
//	return fmt.Errorf("%w: unknown outcome %q", apperr.ErrInvalidArgument, s)
package apperr

import "errors"

var (
	// ErrInvalidArgument marks malformed input to a scheduler or session operation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrGenerationFailed marks an empty or failed response from the generation collaborator.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrStorageQuotaExceeded marks a persistence write rejected because the backend is full.
	ErrStorageQuotaExceeded = errors.New("storage quota exceeded")
	// ErrStorageCorrupt marks a persisted snapshot that failed to deserialize.
	ErrStorageCorrupt = errors.New("storage corrupt")
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition marks a state machine operation attempted from the wrong state.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrConfirmationRequired marks a destructive operation called without explicit confirmation.
	ErrConfirmationRequired = errors.New("confirmation required")
	// ErrUnavailable marks a collaborator that is not configured.
	ErrUnavailable = errors.New("unavailable")
	// ErrUnauthorized marks a credential that is unknown, expired or revoked.
	ErrUnauthorized = errors.New("unauthorized")
)

// Warning is a non-fatal condition surfaced to the user alongside a successful response.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WarningFor converts a recoverable storage error into a user-facing warning.
// It returns false for errors that are not warnings.
func WarningFor(err error) (Warning, bool) {
	switch {
	case errors.Is(err, ErrStorageQuotaExceeded):
		return Warning{
			Code:    "STORAGE_QUOTA_EXCEEDED",
			Message: "Storage is full; your most recent change may not survive a reload.",
		}, true
	case errors.Is(err, ErrStorageCorrupt):
		return Warning{
			Code:    "STORAGE_CORRUPT",
			Message: "Saved data could not be read and was reset.",
		}, true
	}
	return Warning{}, false
}
