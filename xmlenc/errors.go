package xmlenc

import (
	"errors"
	"fmt"

	"github.com/weakdom/rbxml/rbxvalue"
)

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind via errors.As rather than matching error
// strings; Error() text is for humans and may evolve.
type Kind string

const (
	// KindUnsupportedPropertyConversion: a stored value could not be
	// converted to its descriptor's declared type. Fatal to the encode.
	KindUnsupportedPropertyConversion Kind = "UnsupportedPropertyConversion"

	// KindUnknownProperty: a property missing from the reflection database
	// was encountered under ErrorOnUnknown. Fatal.
	KindUnknownProperty Kind = "UnknownProperty"

	// KindSink: the markup sink reported a failure. Fatal, cause preserved.
	KindSink Kind = "Sink"

	// KindTextEncoding: the completed byte stream was not valid UTF-8.
	KindTextEncoding Kind = "TextEncoding"
)

// Error is the encoder's structured error type.
type Error struct {
	Kind     Kind
	Class    string
	Property string
	Expected rbxvalue.Type
	Actual   rbxvalue.Type
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case KindUnsupportedPropertyConversion:
		return fmt.Sprintf(
			"cannot serialize %s.%s: expected %s, found %s: %s",
			e.Class, e.Property, e.Expected, e.Actual, e.Message)
	case KindUnknownProperty:
		return fmt.Sprintf("unknown property %s.%s", e.Class, e.Property)
	case KindSink:
		return fmt.Sprintf("markup sink failure: %v", e.Cause)
	case KindTextEncoding:
		return fmt.Sprintf("encoded document is not valid UTF-8: %s", e.Message)
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsKind reports whether err is (or wraps) an *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

func sinkError(cause error) *Error {
	return &Error{Kind: KindSink, Cause: cause}
}
