// Package identitytoolkit is a backend.Backend over the Identity Toolkit REST API
// (the API behind Firebase Authentication and its local emulator).
//
// The signed-in session (ID token and refresh token) is held in memory only.
package identitytoolkit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-session/backend"
	"github.com/jrsteele09/go-auth-session/provider"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL    = "https://identitytoolkit.googleapis.com/v1"
	defaultRequestURI = "http://localhost"
	defaultTimeout    = 30 * time.Second
)

var ErrNoSession = errors.New("no signed-in session")

// APIError is an error response from the API.
type APIError struct {
	Status  int
	Code    string // e.g. EMAIL_EXISTS
	Message string // full message as returned
}

func (e *APIError) Error() string {
	return fmt.Sprintf("identitytoolkit %d: %s", e.Status, e.Message)
}

type signedIn struct {
	user         backend.AppUser
	idToken      string
	refreshToken string
}

// Client implements backend.Backend.
type Client struct {
	baseURL    string
	apiKey     string
	requestURI string
	httpClient *http.Client
	logger     zerolog.Logger

	mu      sync.RWMutex
	session *signedIn
}

var _ backend.Backend = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRequestURI sets the requestUri sent with federated sign-ins.
func WithRequestURI(requestURI string) Option {
	return func(c *Client) {
		c.requestURI = requestURI
	}
}

func New(apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("[identitytoolkit.New] api key is required")
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		requestURI: defaultRequestURI,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

type authResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ProviderID   string `json:"providerId"`
}

func (c *Client) CreateAccount(ctx context.Context, email, password string) (*backend.AppUser, error) {
	var resp authResponse
	err := c.call(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.CreateAccount]")
	}
	resp.ProviderID = provider.PasswordProviderID
	return c.storeSession(resp), nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*backend.AppUser, error) {
	var resp authResponse
	err := c.call(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.SignIn]")
	}
	resp.ProviderID = provider.PasswordProviderID
	return c.storeSession(resp), nil
}

func (c *Client) SignInWithCredential(ctx context.Context, cred provider.Credential) (*backend.AppUser, error) {
	if cred.IsPassword() {
		return c.SignIn(ctx, cred.Email, cred.Password)
	}

	var resp authResponse
	err := c.call(ctx, "accounts:signInWithIdp", map[string]any{
		"postBody":            idpPostBody(cred),
		"requestUri":          c.requestURI,
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}, &resp)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.SignInWithCredential]")
	}
	if resp.ProviderID == "" {
		resp.ProviderID = cred.ProviderID
	}
	return c.storeSession(resp), nil
}

// SignOut drops the in-memory session. There is no server call.
func (c *Client) SignOut(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = nil
	return nil
}

func (c *Client) DeleteCurrentUser(ctx context.Context) error {
	idToken, err := c.idToken()
	if err != nil {
		return errors.Wrap(err, "[Client.DeleteCurrentUser]")
	}
	if err := c.call(ctx, "accounts:delete", map[string]any{"idToken": idToken}, nil); err != nil {
		return errors.Wrap(err, "[Client.DeleteCurrentUser]")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = nil
	return nil
}

func (c *Client) UpdateProfile(ctx context.Context, displayName string) (*backend.AppUser, error) {
	idToken, err := c.idToken()
	if err != nil {
		return nil, errors.Wrap(err, "[Client.UpdateProfile]")
	}

	var resp authResponse
	err = c.call(ctx, "accounts:update", map[string]any{
		"idToken":           idToken,
		"displayName":       displayName,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.UpdateProfile]")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, errors.Wrap(ErrNoSession, "[Client.UpdateProfile] signed out during update")
	}
	c.session.user.DisplayName = resp.DisplayName
	if resp.IDToken != "" {
		c.session.idToken = resp.IDToken
	}
	if resp.RefreshToken != "" {
		c.session.refreshToken = resp.RefreshToken
	}
	u := c.session.user
	return &u, nil
}

func (c *Client) CurrentUser() *backend.AppUser {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	u := c.session.user
	return &u
}

func (c *Client) idToken() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return "", ErrNoSession
	}
	return c.session.idToken, nil
}

func (c *Client) storeSession(resp authResponse) *backend.AppUser {
	s := &signedIn{
		user: backend.AppUser{
			UID:         resp.LocalID,
			DisplayName: resp.DisplayName,
			Email:       resp.Email,
			ProviderID:  resp.ProviderID,
		},
		idToken:      resp.IDToken,
		refreshToken: resp.RefreshToken,
	}

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	u := s.user
	return &u
}

// idpPostBody encodes the provider credential the way signInWithIdp expects.
// Facebook issues only an access token; OIDC providers send the ID token.
func idpPostBody(cred provider.Credential) string {
	v := url.Values{}
	v.Set("providerId", cred.ProviderID)
	if cred.IDToken != "" && cred.IDToken != cred.AccessToken {
		v.Set("id_token", cred.IDToken)
	}
	if cred.AccessToken != "" {
		v.Set("access_token", cred.AccessToken)
	}
	return v.Encode()
}

func (c *Client) call(ctx context.Context, method string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}

	endpoint := fmt.Sprintf("%s/%s?key=%s", c.baseURL, method, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s", method)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.Wrapf(err, "%s read response", method)
	}

	if res.StatusCode >= http.StatusBadRequest {
		apiErr := parseAPIError(res.StatusCode, raw)
		c.logger.Debug().Str("method", method).Int("status", res.StatusCode).Str("code", apiErr.Code).Msg("identity toolkit error")
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "%s decode response", method)
	}
	return nil
}

func parseAPIError(status int, raw []byte) *APIError {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Error.Message == "" {
		apiErr.Message = http.StatusText(status)
		apiErr.Code = apiErr.Message
		return apiErr
	}
	apiErr.Message = envelope.Error.Message
	apiErr.Code = strings.TrimSpace(strings.SplitN(envelope.Error.Message, ":", 2)[0])
	return apiErr
}
