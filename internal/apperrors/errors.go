// Package apperrors defines the typed error kinds the battle-outcome
// pipeline surfaces to its callers (spec.md §7). Each kind wraps an
// underlying cause with fmt.Errorf("%w", ...) the way the teacher's
// repository layer does, but is exposed as a checkable sentinel via
// errors.Is/errors.As instead of a bare string.
package apperrors

import "fmt"

// Kind distinguishes the error categories from spec.md §7.
type Kind string

const (
	KindConfigError        Kind = "config_error"
	KindDataIntegrityError Kind = "data_integrity_error"
	KindSchemaMismatch     Kind = "schema_mismatch"
	KindInvalidMove        Kind = "invalid_move"
	KindInvalidSpecies     Kind = "invalid_species"
	KindDeadlineExceeded   Kind = "deadline_exceeded"
	KindModelNotAvailable  Kind = "model_not_available"
)

// Error is a typed application error carrying a Kind and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so
// errors.Is(err, apperrors.New(KindInvalidMove, "", nil)) works as a
// category check regardless of Message/Cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an *Error of the given kind.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Sentinels for errors.Is category checks, e.g. errors.Is(err, apperrors.ErrInvalidMove).
var (
	ErrConfigError        = &Error{Kind: KindConfigError}
	ErrDataIntegrityError = &Error{Kind: KindDataIntegrityError}
	ErrSchemaMismatch     = &Error{Kind: KindSchemaMismatch}
	ErrInvalidMove        = &Error{Kind: KindInvalidMove}
	ErrInvalidSpecies     = &Error{Kind: KindInvalidSpecies}
	ErrDeadlineExceeded   = &Error{Kind: KindDeadlineExceeded}
	ErrModelNotAvailable  = &Error{Kind: KindModelNotAvailable}
)
