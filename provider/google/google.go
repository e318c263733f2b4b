// Package google is the Google Sign-In adapter: an OpenID Connect authorization
// code flow whose verified ID token becomes the credential.
package google

import (
	"context"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-session/internal/oauthflow"
	"github.com/jrsteele09/go-auth-session/provider"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Name is the provider name used for registration and failure hooks.
const Name = "google"

// DefaultIssuer is Google's OIDC issuer.
const DefaultIssuer = "https://accounts.google.com"

var (
	ErrMissingIDToken = errors.New("no id_token in google token response")
	ErrNonceMismatch  = errors.New("id_token nonce mismatch")
)

// Config holds the OAuth client registration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Issuer       string   // defaults to DefaultIssuer
	Scopes       []string // defaults to openid, email, profile
}

// Provider implements provider.Adapter for Google.
type Provider struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
	logger   zerolog.Logger

	mu     sync.Mutex
	cached *oauth2.Token // local provider session
}

var _ provider.Adapter = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

func WithLogger(logger zerolog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// New discovers the issuer's endpoints and keys and returns a Provider.
func New(ctx context.Context, cfg Config, options ...Option) (*Provider, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("[google.New] client id is required")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{oidc.ScopeOpenID, "email", "profile"}
	}

	oidcProvider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, errors.Wrap(err, "[google.New] oidc discovery")
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     oidcProvider.Endpoint(),
		Scopes:       cfg.Scopes,
	}
	verifier := oidcProvider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	return NewWithVerifier(oauthCfg, verifier, options...), nil
}

// NewWithVerifier builds a Provider from an explicit client config and verifier.
func NewWithVerifier(oauthCfg *oauth2.Config, verifier *oidc.IDTokenVerifier, options ...Option) *Provider {
	p := &Provider{
		oauth:    oauthCfg,
		verifier: verifier,
		logger:   log.Logger,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string {
	return Name
}

// Authenticate signs out any cached Google session, then runs a fresh consent flow.
func (p *Provider) Authenticate(ctx context.Context, pc provider.PresentationContext) provider.Result {
	p.SignOut(ctx)

	presenter, ok := pc.(provider.ConsentPresenter)
	if !ok {
		return provider.Failed(provider.ErrNoPresenter)
	}

	nonce := uuid.NewString()
	tok, err := oauthflow.Run(ctx, p.oauth, presenter, oidc.Nonce(nonce))
	if err != nil {
		return provider.ResultFromError(err)
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return provider.Failed(ErrMissingIDToken)
	}
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return provider.Failed(errors.Wrap(err, "[google.Authenticate] verify id_token"))
	}
	if idToken.Nonce != nonce {
		return provider.Failed(ErrNonceMismatch)
	}

	p.mu.Lock()
	p.cached = tok
	p.mu.Unlock()

	p.logger.Debug().Str("provider", Name).Str("sub", idToken.Subject).Msg("provider authenticated")
	return provider.Authenticated(provider.Credential{
		ProviderID:  provider.GoogleProviderID,
		IDToken:     rawIDToken,
		AccessToken: tok.AccessToken,
	})
}

// SignOut forgets the cached Google token.
func (p *Provider) SignOut(_ context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached != nil {
		p.logger.Debug().Str("provider", Name).Msg("cleared provider session")
	}
	p.cached = nil
}

// CachedToken returns the token from the last successful Authenticate, or nil.
func (p *Provider) CachedToken() *oauth2.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cached
}
