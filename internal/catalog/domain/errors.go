package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Every failure returned by the catalog wraps exactly one
// of these so callers can branch with errors.Is.
var (
	// ErrNotFound is returned when an entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotDraft is returned when a mutator targets a Published or Archived entity.
	ErrNotDraft = errors.New("entity is not a draft")

	// ErrNotPublished is returned when an operation requires a Published entity.
	ErrNotPublished = errors.New("entity is not published")

	// ErrInvalidTransition is returned for a lifecycle move the state machine forbids.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicate is returned when a uniqueness rule would be violated.
	ErrDuplicate = errors.New("duplicate")

	// ErrInvalidArgument is returned for malformed or contradictory input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidReference is returned when a referenced entity is missing, archived or incompatible.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrWrongMode is returned when a Simple mutator targets an Advanced spec or vice versa.
	ErrWrongMode = errors.New("wrong transformation mode")

	// ErrInUse is returned when an entity cannot be removed or changed because something depends on it.
	ErrInUse = errors.New("entity is in use")

	// ErrValidationFailed is returned when static validation rejects a publish.
	ErrValidationFailed = errors.New("validation failed")
)

// NotFoundError is returned when an entity lookup fails.
type NotFoundError struct {
	Kind EntityKind
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// StatusError is returned when an entity is in the wrong lifecycle state for an operation.
type StatusError struct {
	Kind   EntityKind
	ID     string
	Op     string
	Status Status
	Want   Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cannot %s %s %q: status is %s, want %s", e.Op, e.Kind, e.ID, e.Status, e.Want)
}

func (e *StatusError) Unwrap() error {
	switch e.Want {
	case StatusDraft:
		return ErrNotDraft
	case StatusPublished:
		return ErrNotPublished
	default:
		return ErrInvalidTransition
	}
}

// Issue is a single static validation finding.
type Issue struct {
	Field   string `json:"field" yaml:"field"`
	Message string `json:"message" yaml:"message"`
}

func (i Issue) String() string {
	if i.Field == "" {
		return i.Message
	}
	return i.Field + ": " + i.Message
}

// ValidationError carries every issue found while validating an entity.
type ValidationError struct {
	Kind   EntityKind
	ID     string
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return fmt.Sprintf("%s %q failed validation (%d issues): %s", e.Kind, e.ID, len(e.Issues), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// InvalidArgument builds an error wrapping ErrInvalidArgument.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Duplicate builds an error wrapping ErrDuplicate.
func Duplicate(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDuplicate, fmt.Sprintf(format, args...))
}

// InvalidReference builds an error wrapping ErrInvalidReference.
func InvalidReference(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidReference, fmt.Sprintf(format, args...))
}

// InUse builds an error wrapping ErrInUse.
func InUse(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInUse, fmt.Sprintf(format, args...))
}

func wrongMode(specID string, want, got TransformMode) error {
	return fmt.Errorf("%w: spec %s is %s, operation requires %s", ErrWrongMode, specID, got, want)
}
