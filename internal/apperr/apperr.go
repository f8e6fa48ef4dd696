// Package apperr defines the error kinds shared by the delivery core.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers and for the wire layer.
type Kind int

const (
	Unknown Kind = iota
	InvalidInput
	NotFound
	TargetNotFound
	AlreadyExists
	BackingStore
	Unauthenticated
	RateLimited
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "InvalidInput"
	case NotFound:
		return "NotFound"
	case TargetNotFound:
		return "TargetNotFound"
	case AlreadyExists:
		return "AlreadyExists"
	case BackingStore:
		return "BackingStoreError"
	case Unauthenticated:
		return "Unauthenticated"
	case RateLimited:
		return "RateLimited"
	default:
		return "Unknown"
	}
}

// Error is a classified error. Op names the operation that failed and Msg is
// the human-readable text shown to users.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

// Sentinels for errors.Is checks. Matching is by kind.
var (
	ErrInvalidInput    = &Error{Kind: InvalidInput}
	ErrNotFound        = &Error{Kind: NotFound}
	ErrTargetNotFound  = &Error{Kind: TargetNotFound}
	ErrAlreadyExists   = &Error{Kind: AlreadyExists}
	ErrBackingStore    = &Error{Kind: BackingStore}
	ErrUnauthenticated = &Error{Kind: Unauthenticated}
	ErrRateLimited     = &Error{Kind: RateLimited}
)

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality. A TargetNotFound error also matches ErrNotFound.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	return t.Kind == NotFound && e.Kind == TargetNotFound
}

// New returns a classified error with a user-facing message.
func New(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Newf is New with formatting.
func Newf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Store wraps a backing-store failure unless err is already classified.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: BackingStore, Op: op, Msg: "backing store unavailable", Err: err}
}

// KindOf returns the kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Unknown
}

// Message renders err for end users, without operation prefixes or driver detail.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ae *Error
	if !errors.As(err, &ae) {
		return "something went wrong"
	}
	if ae.Msg != "" {
		return ae.Msg
	}
	switch ae.Kind {
	case InvalidInput:
		return "invalid input"
	case NotFound:
		return "not found"
	case TargetNotFound:
		return "number not found"
	case AlreadyExists:
		return "already exists"
	case BackingStore:
		return "backing store unavailable"
	case Unauthenticated:
		return "not signed in"
	case RateLimited:
		return "too many requests, slow down"
	default:
		return "something went wrong"
	}
}
