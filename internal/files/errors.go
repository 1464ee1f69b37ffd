package files

import "errors"

// Error kinds. Every error returned by Service wraps exactly one of them,
// except unexpected failures which wrap none.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrBackend      = errors.New("object store error")
)

// Error carries a kind, the message shown to the caller and the underlying cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func invalidInput(message string) error {
	return &Error{Kind: ErrInvalidInput, Message: message}
}

func forbidden(message string, cause error) error {
	return &Error{Kind: ErrForbidden, Message: message, Err: cause}
}

func notFound(message string) error {
	return &Error{Kind: ErrNotFound, Message: message}
}

func backend(cause error) error {
	return &Error{Kind: ErrBackend, Message: "object store request failed", Err: cause}
}
