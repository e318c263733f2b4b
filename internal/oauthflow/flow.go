// Package oauthflow runs an OAuth 2.0 authorization code flow with PKCE through a
// caller-supplied consent presenter. It is shared by the social provider adapters.
package oauthflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-session/provider"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

var (
	ErrStateMismatch = errors.New("oauth callback state mismatch")
	ErrMissingCode   = errors.New("oauth callback missing code")
)

// errorAccessDenied is the RFC 6749 error code sent when the user declines consent.
const errorAccessDenied = "access_denied"

// CallbackError is an error reported by the provider on the redirect.
type CallbackError struct {
	Code        string
	Description string
}

func (e *CallbackError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("oauth callback error: %s", e.Code)
	}
	return fmt.Sprintf("oauth callback error: %s - %s", e.Code, e.Description)
}

// Run presents the consent page for cfg, validates the redirect and exchanges the
// code for a token. A declined consent is reported as provider.ErrDismissed.
func Run(ctx context.Context, cfg *oauth2.Config, presenter provider.ConsentPresenter, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	authOpts := append([]oauth2.AuthCodeOption{oauth2.S256ChallengeOption(verifier)}, opts...)
	authURL := cfg.AuthCodeURL(state, authOpts...)

	params, err := presenter.PresentConsent(ctx, authURL)
	if err != nil {
		return nil, errors.Wrap(err, "[oauthflow.Run] consent")
	}

	if code := params.Get("error"); code != "" {
		if code == errorAccessDenied {
			return nil, errors.Wrap(provider.ErrDismissed, "[oauthflow.Run] consent declined")
		}
		return nil, &CallbackError{Code: code, Description: params.Get("error_description")}
	}
	if params.Get("state") != state {
		return nil, ErrStateMismatch
	}
	code := params.Get("code")
	if code == "" {
		return nil, ErrMissingCode
	}

	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, errors.Wrap(err, "[oauthflow.Run] token exchange")
	}
	return tok, nil
}
