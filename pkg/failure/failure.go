// Package failure defines the error taxonomy shared by the outbound clients
// and the message dispatcher.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies where an operation failed.
type Kind int

const (
	// KindUnknown is used for errors that did not originate in this module.
	KindUnknown Kind = iota
	// KindNetwork means the outbound request could not be sent or its body read.
	KindNetwork
	// KindProvider means the provider answered with a non-success HTTP status.
	KindProvider
	// KindParse means a response body was not the JSON we expected.
	KindParse
	// KindInput means the inbound message could not be turned into a request.
	KindInput
)

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "NetworkFailure"
	case KindProvider:
		return "ProviderError"
	case KindParse:
		return "ParseError"
	case KindInput:
		return "InputError"
	default:
		return "Unknown"
	}
}

// Error is a classified failure. Message is what callers see in the
// response's error field; Cause keeps the underlying error for logs.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// New creates a classified error without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a classified error around cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Provider returns a ProviderError whose message is the HTTP status text.
func Provider(statusText string) *Error {
	return &Error{Kind: KindProvider, Message: statusText}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message renders err for a response's error field. Provider errors
// surface only the status text, matching what the caller is told by the
// provider itself.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) && fe.Kind == KindProvider {
		return fe.Message
	}
	return err.Error()
}
