package models

import "errors"

// Error taxonomy shared by every layer. Wrap with fmt.Errorf("...: %w", Err...)
// and classify with errors.Is.
var (
	// ErrValidation marks bad input rejected before any I/O.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks an absent farm, farmer, reading or notification.
	ErrNotFound = errors.New("not found")
	// ErrProviderUnavailable marks a failed or timed-out SMS, email or weather call.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrProviderMisconfigured marks a provider without credentials.
	ErrProviderMisconfigured = errors.New("provider not configured")
	// ErrPersistence marks a failed store write.
	ErrPersistence = errors.New("persistence error")
)
