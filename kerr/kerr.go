// Package kerr defines the error taxonomy shared by the value model, codec,
// compressor and session layers.
//
// Errors carry a Kind so callers can branch on failure category without
// string-matching messages.
package kerr

import "fmt"

// Kind identifies which row of the §7 taxonomy an Error belongs to.
type Kind int

const (
	_ Kind = iota
	WrongType
	OutOfRange
	Truncated
	FramingError
	UnknownType
	UnsupportedFlags
	CompressionError
	CredentialsError
	RemoteError
	ConnectionClosed
	ProtocolError
)

func (k Kind) String() string {
	switch k {
	case WrongType:
		return "WrongType"
	case OutOfRange:
		return "OutOfRange"
	case Truncated:
		return "Truncated"
	case FramingError:
		return "FramingError"
	case UnknownType:
		return "UnknownType"
	case UnsupportedFlags:
		return "UnsupportedFlags"
	case CompressionError:
		return "CompressionError"
	case CredentialsError:
		return "CredentialsError"
	case RemoteError:
		return "RemoteError"
	case ConnectionClosed:
		return "ConnectionClosed"
	case ProtocolError:
		return "ProtocolError"
	default:
		return "Unknown"
	}
}

// Error is the single error type used across the module. Callers should
// match on Kind via errors.As, not on the message text.
type Error struct {
	Kind Kind
	Msg  string
	err  error // optional wrapped cause
}

func New(k Kind, msg string) *Error {
	return &Error{Kind: k, Msg: msg}
}

func Newf(k Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(k Kind, cause error, msg string) *Error {
	return &Error{Kind: k, Msg: msg, err: cause}
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.err }

// Is reports whether err is a *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Of extracts the Kind of err, returning false if err isn't a *Error.
func Of(err error) (Kind, bool) {
	if err == nil {
		return 0, false
	}
	if e, ok := err.(*Error); ok {
		return e.Kind, true
	}
	return 0, false
}
