// Package autherr defines the error taxonomy shared by the sign-in coordinator.
//
// Every failure that leaves a login flow or a password operation is an *Error
// carrying a Kind. Callers branch on the kind with errors.Is against the
// sentinel values, or with KindOf.
package autherr

import (
	"errors"
	"fmt"
)

// Kind classifies a sign-in failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindProviderCancelled means the user dismissed the provider UI. It is not an error
	// from the user's point of view and is never reported through failure hooks.
	KindProviderCancelled
	KindProviderFailed
	KindExchangeFailed
	KindBackendOperationFailed
	KindNoCurrentUser
)

// Sentinels matching each kind with errors.Is.
var (
	ErrProviderCancelled      = errors.New("provider cancelled")
	ErrProviderFailed         = errors.New("provider failed")
	ErrExchangeFailed         = errors.New("credential exchange failed")
	ErrBackendOperationFailed = errors.New("backend operation failed")
	ErrNoCurrentUser          = errors.New("no current user")
)

var kindSentinels = map[Kind]error{
	KindProviderCancelled:      ErrProviderCancelled,
	KindProviderFailed:         ErrProviderFailed,
	KindExchangeFailed:         ErrExchangeFailed,
	KindBackendOperationFailed: ErrBackendOperationFailed,
	KindNoCurrentUser:          ErrNoCurrentUser,
}

func (k Kind) String() string {
	if err, ok := kindSentinels[k]; ok {
		return err.Error()
	}
	return "unknown"
}

// Error is a classified sign-in failure.
type Error struct {
	Kind     Kind
	Provider string // provider name, empty for backend-only operations
	Op       string // operation that failed, e.g. "SignUpWithPassword"
	Err      error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Provider != "" {
		msg = fmt.Sprintf("%s: %s", e.Provider, msg)
	}
	if e.Op != "" {
		msg = fmt.Sprintf("[%s] %s", e.Op, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && target == sentinel
}

// New returns a classified error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// NewProvider returns a classified error attributed to a provider.
func NewProvider(kind Kind, providerName, op string, err error) *Error {
	return &Error{Kind: kind, Provider: providerName, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ProviderOf returns the provider name attached to err, if any.
func ProviderOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Provider
	}
	return ""
}
