package visit

import "errors"

// Domain errors. Callers match them with errors.Is; the HTTP layer maps each
// to a status code.
var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidInput       = errors.New("invalid input")

	// ErrQuotaExceeded and ErrProviderAuth report failures of the
	// transcription or summarization provider.
	ErrQuotaExceeded = errors.New("provider quota exceeded")
	ErrProviderAuth  = errors.New("provider rejected credentials")
)
