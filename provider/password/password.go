// Package password is the email/password adapter. It only collects credentials;
// verification happens in the backend during the exchange.
package password

import (
	"context"
	"strings"

	"github.com/jrsteele09/go-auth-session/provider"
	"github.com/pkg/errors"
)

// Name is the provider name used for registration and failure hooks.
const Name = "password"

var ErrEmptyCredentials = errors.New("email and password are required")

// Provider implements provider.Adapter for email/password sign-in.
type Provider struct{}

var _ provider.Adapter = Provider{}

func New() Provider {
	return Provider{}
}

func (Provider) Name() string {
	return Name
}

func (Provider) Authenticate(ctx context.Context, pc provider.PresentationContext) provider.Result {
	prompter, ok := pc.(provider.CredentialPrompter)
	if !ok {
		return provider.Failed(provider.ErrNoPresenter)
	}

	email, password, err := prompter.PromptCredentials(ctx)
	if err != nil {
		return provider.ResultFromError(errors.Wrap(err, "[password.Authenticate] prompt"))
	}
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return provider.Failed(ErrEmptyCredentials)
	}

	return provider.Authenticated(provider.Credential{
		ProviderID: provider.PasswordProviderID,
		Email:      email,
		Password:   password,
	})
}

// SignOut is a no-op: the adapter keeps no provider-side session.
func (Provider) SignOut(context.Context) {}
