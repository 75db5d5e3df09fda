package domain

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Subject is the content category of a request.
type Subject string

// Supported subjects.
const (
	SubjectMath     Subject = "math"
	SubjectLanguage Subject = "language"
	SubjectScience  Subject = "science"
	SubjectHistory  Subject = "history"
)

// Valid reports whether s is a supported subject.
func (s Subject) Valid() bool {
	switch s {
	case SubjectMath, SubjectLanguage, SubjectScience, SubjectHistory:
		return true
	}
	return false
}

// Numeric reports whether tasks in this subject are graded on numbers, which
// enables the per-difficulty number ceiling check.
func (s Subject) Numeric() bool {
	return s == SubjectMath || s == SubjectScience
}

// Difficulty is the requested level of a batch.
type Difficulty string

// Supported difficulties.
const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is a supported difficulty.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// NumberCeiling is the largest number a task of this difficulty is expected to use.
func (d Difficulty) NumberCeiling() float64 {
	switch d {
	case DifficultyEasy:
		return 100
	case DifficultyMedium:
		return 1_000
	default:
		return 1_000_000
	}
}

// MaxCountPerForm bounds the number of tasks a request may ask for per form.
const MaxCountPerForm = 50

// Request describes one batch the caller wants generated.
type Request struct {
	ID          uuid.UUID  `json:"id"`
	AccountID   uuid.UUID  `json:"account_id"`
	Subject     Subject    `json:"subject" validate:"required"`
	Difficulty  Difficulty `json:"difficulty" validate:"required"`
	Topic       string     `json:"topic" validate:"required,max=200"`
	Types       []TaskType `json:"types" validate:"required,min=1,dive,required"`
	ClosedCount int        `json:"closed_count" validate:"gte=0,lte=50"`
	OpenCount   int        `json:"open_count" validate:"gte=0,lte=50"`
}

var requestValidator = validator.New()

// NewRequest builds a request with a fresh ID and validates it.
func NewRequest(
	accountID uuid.UUID,
	subject Subject,
	difficulty Difficulty,
	topic string,
	types []TaskType,
	closedCount, openCount int,
) (*Request, error) {
	req := &Request{
		ID:          uuid.New(),
		AccountID:   accountID,
		Subject:     subject,
		Difficulty:  difficulty,
		Topic:       strings.TrimSpace(topic),
		Types:       types,
		ClosedCount: closedCount,
		OpenCount:   openCount,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// Validate checks struct tags and the domain rules of a request.
func (r *Request) Validate() error {
	if r.ID == uuid.Nil {
		return fmt.Errorf("%w: request id is empty", ErrInvalidID)
	}
	if r.AccountID == uuid.Nil {
		return fmt.Errorf("%w: account id is empty", ErrInvalidID)
	}
	if err := requestValidator.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !r.Subject.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrValidation, ErrUnknownSubject, r.Subject)
	}
	if !r.Difficulty.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrValidation, ErrUnknownDifficulty, r.Difficulty)
	}
	for _, t := range r.Types {
		if !t.Valid() {
			return fmt.Errorf("%w: %w: %q", ErrValidation, ErrUnknownTaskType, t)
		}
	}
	if r.ClosedCount+r.OpenCount == 0 {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyRequest)
	}
	return nil
}

// Selects reports whether the request selected task type t.
func (r *Request) Selects(t TaskType) bool {
	for _, s := range r.Types {
		if s == t {
			return true
		}
	}
	return false
}

// CountFor returns the requested count for a form.
func (r *Request) CountFor(f Form) int {
	if f == FormClosed {
		return r.ClosedCount
	}
	return r.OpenCount
}

// TotalCount is the number of tasks requested across both forms.
func (r *Request) TotalCount() int {
	return r.ClosedCount + r.OpenCount
}
