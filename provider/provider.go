// Package provider defines the contract every identity provider adapter implements.
//
// An adapter wraps one provider's native sign-in and sign-out calls and
// normalizes the outcome into a Result: Authenticated with a Credential, Failed
// with an error, or Cancelled when the user dismissed the provider UI.
package provider

import (
	"context"
	"errors"
	"net/url"
)

// Provider identifiers used as Credential.ProviderID.
const (
	PasswordProviderID = "password"
	GoogleProviderID   = "google.com"
	FacebookProviderID = "facebook.com"
)

var (
	// ErrDismissed is returned by presenters when the user closes the provider UI.
	ErrDismissed = errors.New("provider ui dismissed")
	// ErrNoPresenter means the presentation context lacks the capability the adapter needs.
	ErrNoPresenter = errors.New("presentation context cannot host this provider")
)

// Adapter is one identity provider.
type Adapter interface {
	// Name is the stable provider name used for registration, logs and failure hooks.
	Name() string

	// Authenticate runs the provider's interactive flow and blocks until it
	// completes or the user dismisses it.
	Authenticate(ctx context.Context, pc PresentationContext) Result

	// SignOut clears the provider's local session. Failures are logged, never returned.
	SignOut(ctx context.Context)
}

// PresentationContext is supplied by the caller and identifies where a provider
// may show its UI. Adapters type-assert the capability they require
// (ConsentPresenter or CredentialPrompter).
type PresentationContext any

// ConsentPresenter hosts a browser-based consent flow. It shows authURL to the
// user and returns the query parameters the provider redirected back with.
type ConsentPresenter interface {
	PresentConsent(ctx context.Context, authURL string) (url.Values, error)
}

// CredentialPrompter collects an email and password from the user.
type CredentialPrompter interface {
	PromptCredentials(ctx context.Context) (email, password string, err error)
}

// IsCancellation reports whether err means the user abandoned the flow.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrDismissed) || errors.Is(err, context.Canceled)
}

// ResultFromError maps a flow error to Cancelled or Failed.
func ResultFromError(err error) Result {
	if IsCancellation(err) {
		return Cancelled()
	}
	return Failed(err)
}
