package service

import "errors"

// Sentinel errors returned by GenerationService. Provider failures are
// reported with generation.ErrProviderFailure.
var (
	// ErrInvalidRequest indicates the request failed validation or asks for
	// counts no selected task type can satisfy. The ledger is not touched.
	ErrInvalidRequest = errors.New("invalid generation request")

	// ErrQuotaExhausted indicates the account has no generation quota left.
	// No provider call is made.
	ErrQuotaExhausted = errors.New("generation quota exhausted")

	// ErrPersistence indicates the assembled result could not be stored.
	// The reserved quota unit has been returned.
	ErrPersistence = errors.New("failed to persist generation result")

	// ErrMissingDependency indicates the service was constructed without a
	// required collaborator.
	ErrMissingDependency = errors.New("missing service dependency")
)
