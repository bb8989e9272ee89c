package ml

import (
	"errors"
	"fmt"
)

// ErrorKind classifies prediction failures so callers can branch on kind
// rather than on message text.
type ErrorKind int

const (
	// Internal is any unexpected failure during computation.
	Internal ErrorKind = iota
	// NotInitialized means no model bundle has been published yet.
	NotInitialized
	// MissingField means a required request field was absent.
	MissingField
	// InvalidShape means a feature vector has the wrong length.
	InvalidShape
)

func (k ErrorKind) String() string {
	switch k {
	case NotInitialized:
		return "not_initialized"
	case MissingField:
		return "missing_field"
	case InvalidShape:
		return "invalid_shape"
	default:
		return "internal"
	}
}

// Error is the typed error returned by every core operation.
type Error struct {
	Kind ErrorKind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Msg == "" {
			return e.Err.Error()
		}
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotInitialized) works
// regardless of the operation that produced it.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Op == "" && t.Kind == e.Kind
}

// ErrNotInitialized is returned when no model bundle is ready.
var ErrNotInitialized = &Error{Kind: NotInitialized, Msg: "Model not initialized"}

// KindOf reports the ErrorKind carried by err, defaulting to Internal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

func notInitialized(op string) error {
	return &Error{Kind: NotInitialized, Op: op, Msg: ErrNotInitialized.Msg}
}

func invalidShape(op string, expected, got int) error {
	return &Error{
		Kind: InvalidShape,
		Op:   op,
		Msg:  fmt.Sprintf("Expected %d features, got %d", expected, got),
	}
}

// NewMissingField builds a MissingField error for a required JSON key.
func NewMissingField(op, field, where string) error {
	return &Error{
		Kind: MissingField,
		Op:   op,
		Msg:  fmt.Sprintf("Missing %q in %s", field, where),
	}
}

func internal(op string, err error) error {
	return &Error{Kind: Internal, Op: op, Err: err}
}
