package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrProviderFailure wraps every failed provider call. The more specific
	// causes below are wrapped alongside it.
	ErrProviderFailure = errors.New("content provider failure")

	// ErrTimeout is returned when a provider call exceeds its deadline
	ErrTimeout = errors.New("provider call timed out")

	// ErrInvalidResponse is returned when the provider reply cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from content provider")

	// ErrTransport is returned for network or API errors reaching the provider
	ErrTransport = errors.New("provider transport error")

	// ErrContentBlocked is returned when the provider blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by provider safety filters")

	// ErrInvalidConfig is returned when the client or provider configuration is invalid
	ErrInvalidConfig = errors.New("invalid generation configuration")
)
