package oauthflow_test

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/jrsteele09/go-auth-session/internal/oauthflow"
	"github.com/jrsteele09/go-auth-session/provider"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testCode = "auth-code-1"

// presenterFunc adapts a function to provider.ConsentPresenter
type presenterFunc func(ctx context.Context, authURL string) (url.Values, error)

func (f presenterFunc) PresentConsent(ctx context.Context, authURL string) (url.Values, error) {
	return f(ctx, authURL)
}

// approve echoes the state back with a code and records the challenge it saw
func approve(t *testing.T, challenge *string) provider.ConsentPresenter {
	return presenterFunc(func(_ context.Context, authURL string) (url.Values, error) {
		u, err := url.Parse(authURL)
		require.NoError(t, err)
		q := u.Query()
		require.Equal(t, "S256", q.Get("code_challenge_method"))
		*challenge = q.Get("code_challenge")
		return url.Values{"state": {q.Get("state")}, "code": {testCode}}, nil
	})
}

func tokenServer(t *testing.T, challenge *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != testCode {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		sum := sha256.Sum256([]byte(r.Form.Get("code_verifier")))
		if base64.RawURLEncoding.EncodeToString(sum[:]) != *challenge {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"pkce"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-1",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     "id-1",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(srv *httptest.Server) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    "client",
		RedirectURL: "http://127.0.0.1/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:   srv.URL + "/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func TestRun_ExchangesCodeWithPKCE(t *testing.T) {
	var challenge string
	srv := tokenServer(t, &challenge)

	tok, err := oauthflow.Run(context.Background(), testConfig(srv), approve(t, &challenge))

	require.NoError(t, err)
	require.Equal(t, "access-1", tok.AccessToken)
	require.Equal(t, "id-1", tok.Extra("id_token"))
}

func TestRun_AccessDeniedIsDismissal(t *testing.T) {
	var challenge string
	srv := tokenServer(t, &challenge)
	p := presenterFunc(func(context.Context, string) (url.Values, error) {
		return url.Values{"error": {"access_denied"}}, nil
	})

	_, err := oauthflow.Run(context.Background(), testConfig(srv), p)

	require.ErrorIs(t, err, provider.ErrDismissed)
	require.True(t, provider.IsCancellation(err))
}

func TestRun_ProviderErrorIsFailure(t *testing.T) {
	var challenge string
	srv := tokenServer(t, &challenge)
	p := presenterFunc(func(context.Context, string) (url.Values, error) {
		return url.Values{"error": {"server_error"}, "error_description": {"boom"}}, nil
	})

	_, err := oauthflow.Run(context.Background(), testConfig(srv), p)

	var cbErr *oauthflow.CallbackError
	require.ErrorAs(t, err, &cbErr)
	require.Equal(t, "server_error", cbErr.Code)
	require.False(t, provider.IsCancellation(err))
}

func TestRun_StateMismatch(t *testing.T) {
	var challenge string
	srv := tokenServer(t, &challenge)
	p := presenterFunc(func(context.Context, string) (url.Values, error) {
		return url.Values{"state": {"forged"}, "code": {testCode}}, nil
	})

	_, err := oauthflow.Run(context.Background(), testConfig(srv), p)

	require.ErrorIs(t, err, oauthflow.ErrStateMismatch)
}

func TestRun_MissingCode(t *testing.T) {
	var challenge string
	srv := tokenServer(t, &challenge)
	p := presenterFunc(func(_ context.Context, authURL string) (url.Values, error) {
		u, _ := url.Parse(authURL)
		return url.Values{"state": {u.Query().Get("state")}}, nil
	})

	_, err := oauthflow.Run(context.Background(), testConfig(srv), p)

	require.ErrorIs(t, err, oauthflow.ErrMissingCode)
}

func TestRun_PresenterDismissed(t *testing.T) {
	var challenge string
	srv := tokenServer(t, &challenge)
	p := presenterFunc(func(context.Context, string) (url.Values, error) {
		return nil, provider.ErrDismissed
	})

	_, err := oauthflow.Run(context.Background(), testConfig(srv), p)

	require.True(t, provider.IsCancellation(err))
}

func TestRun_TokenEndpointRejects(t *testing.T) {
	var challenge string
	srv := tokenServer(t, &challenge)
	p := presenterFunc(func(_ context.Context, authURL string) (url.Values, error) {
		u, _ := url.Parse(authURL)
		return url.Values{"state": {u.Query().Get("state")}, "code": {"wrong"}}, nil
	})

	_, err := oauthflow.Run(context.Background(), testConfig(srv), p)

	require.Error(t, err)
	require.False(t, provider.IsCancellation(err))
}
