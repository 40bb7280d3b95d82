package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the caller boundary.
// A Kind is itself an error so callers can write errors.Is(err, errors.Validation).
type Kind uint8

const (
	// Unknown is returned by KindOf for errors outside the taxonomy.
	Unknown Kind = iota
	// Validation covers rejected input: unknown operator, unknown sort direction,
	// empty filter/sort, operator/value type mismatch.
	Validation
	// Precondition signals a caller bug, e.g. a location clause compiled without a point.
	Precondition
	// NotFound is returned when a referenced profile does not exist.
	NotFound
	// Conflict means a second match was about to be created for one pair.
	// It must never reach a well-behaved caller.
	Conflict
	// Store wraps transport/storage failures.
	Store
)

var kindNames = map[Kind]string{
	Unknown:      "unknown",
	Validation:   "validation",
	Precondition: "precondition",
	NotFound:     "not_found",
	Conflict:     "conflict",
	Store:        "store",
}

func (k Kind) Error() string { return kindNames[k] }

// String returns the metric-friendly name of the kind.
func (k Kind) String() string { return kindNames[k] }

// Error is a sentinel error carrying a Kind.
type Error struct {
	kind Kind
	msg  string
}

// New creates a sentinel error of the given kind.
//
// Example:
//
//	var ErrEmptyFilter = errors.New(errors.Validation, "filter_by must not be empty")
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

// Kind returns the classification of the error.
func (e *Error) Kind() Kind { return e.kind }

// Is matches the sentinel itself (default errors.Is behaviour) and its Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.kind
}

// wrapped attaches a kind and operation name to an underlying error.
type wrapped struct {
	kind Kind
	op   string
	err  error
}

func (w *wrapped) Error() string { return fmt.Sprintf("%s: %v", w.op, w.err) }
func (w *wrapped) Unwrap() error { return w.err }

func (w *wrapped) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == w.kind
}

// Wrap annotates err with a kind and an operation name.
// If err already carries a kind, that kind wins and only the op prefix is added.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	if existing := KindOf(err); existing != Unknown {
		kind = existing
	}
	return &wrapped{kind: kind, op: op, err: err}
}

// KindOf returns the Kind carried by err's chain, or Unknown.
func KindOf(err error) Kind {
	var w *wrapped
	if errors.As(err, &w) {
		return w.kind
	}
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return Unknown
}
