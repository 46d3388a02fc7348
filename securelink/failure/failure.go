// Package failure defines the error kinds shared by every securelink layer.
//
// Each fallible operation returns an *Error tagged with a Kind. Kinds are
// themselves errors, so callers can match with errors.Is:
//
//	if errors.Is(err, failure.VerificationFailed) { ... }
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind uint8

const (
	Unknown Kind = iota

	// Handshake layer. Fatal to the current handshake attempt.
	KeygenFailed
	SignFailed
	ConnectionFailed
	VerificationFailed

	// Message layer. Fatal to a single message only.
	AuthenticationFailed
	UnsupportedCipher

	// Identity layer. Fatal to that load or save.
	KeyLoadFailed
	KeySaveFailed
)

func (k Kind) String() string {
	switch k {
	case KeygenFailed:
		return "keygen failed"
	case SignFailed:
		return "sign failed"
	case ConnectionFailed:
		return "connection failed"
	case VerificationFailed:
		return "verification failed"
	case AuthenticationFailed:
		return "authentication failed"
	case UnsupportedCipher:
		return "unsupported cipher"
	case KeyLoadFailed:
		return "key load failed"
	case KeySaveFailed:
		return "key save failed"
	default:
		return "unknown failure"
	}
}

func (k Kind) Error() string { return k.String() }

// Error is a failure carrying its Kind, the operation that produced it and
// the underlying cause (which may be nil).
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// New returns an *Error of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf is New with a formatted cause.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the Kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return Unknown
}
