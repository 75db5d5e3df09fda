// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidFormat is returned when data is not in the expected format.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrUnknownTaskType is returned when a task type discriminator is not recognised.
	ErrUnknownTaskType = errors.New("unknown task type")

	// ErrUnknownSubject is returned when a request names an unsupported subject.
	ErrUnknownSubject = errors.New("unknown subject")

	// ErrUnknownDifficulty is returned when a request names an unsupported difficulty.
	ErrUnknownDifficulty = errors.New("unknown difficulty")

	// ErrEmptyRequest is returned when a request asks for zero tasks.
	ErrEmptyRequest = errors.New("request asks for no tasks")
)
