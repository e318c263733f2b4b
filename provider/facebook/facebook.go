// Package facebook is the Facebook Login adapter. Facebook's access token is the
// opaque identity token handed to the backend.
package facebook

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-auth-session/internal/oauthflow"
	"github.com/jrsteele09/go-auth-session/provider"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

// Name is the provider name used for registration and failure hooks.
const Name = "facebook"

var ErrMissingAccessToken = errors.New("no access_token in facebook token response")

// Config holds the Facebook app registration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string // defaults to public_profile, email
}

// Provider implements provider.Adapter for Facebook.
type Provider struct {
	oauth  *oauth2.Config
	logger zerolog.Logger

	mu     sync.Mutex
	cached *oauth2.Token
}

var _ provider.Adapter = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

func WithLogger(logger zerolog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// WithEndpoint overrides the Facebook OAuth endpoints.
func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(p *Provider) {
		p.oauth.Endpoint = endpoint
	}
}

func New(cfg Config, options ...Option) (*Provider, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("[facebook.New] client id is required")
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"public_profile", "email"}
	}

	p := &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     facebook.Endpoint,
			Scopes:       cfg.Scopes,
		},
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(p)
	}
	return p, nil
}

func (p *Provider) Name() string {
	return Name
}

// Authenticate logs out of any cached Facebook session before logging in again.
func (p *Provider) Authenticate(ctx context.Context, pc provider.PresentationContext) provider.Result {
	p.SignOut(ctx)

	presenter, ok := pc.(provider.ConsentPresenter)
	if !ok {
		return provider.Failed(provider.ErrNoPresenter)
	}

	tok, err := oauthflow.Run(ctx, p.oauth, presenter)
	if err != nil {
		return provider.ResultFromError(err)
	}
	if tok.AccessToken == "" {
		return provider.Failed(ErrMissingAccessToken)
	}

	p.mu.Lock()
	p.cached = tok
	p.mu.Unlock()

	p.logger.Debug().Str("provider", Name).Msg("provider authenticated")
	return provider.Authenticated(provider.Credential{
		ProviderID:  provider.FacebookProviderID,
		IDToken:     tok.AccessToken,
		AccessToken: tok.AccessToken,
	})
}

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
