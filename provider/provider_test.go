package provider_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jrsteele09/go-auth-session/provider"
	"github.com/stretchr/testify/require"
)

func TestResultFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want provider.Outcome
	}{
		{"dismissed", provider.ErrDismissed, provider.OutcomeCancelled},
		{"wrapped dismissed", fmt.Errorf("consent: %w", provider.ErrDismissed), provider.OutcomeCancelled},
		{"context cancelled", context.Canceled, provider.OutcomeCancelled},
		{"network", errors.New("connection refused"), provider.OutcomeFailed},
		{"deadline", context.DeadlineExceeded, provider.OutcomeFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := provider.ResultFromError(tt.err)
			require.Equal(t, tt.want, res.Outcome)
			if tt.want == provider.OutcomeFailed {
				require.ErrorIs(t, res.Err, tt.err)
			}
		})
	}
}

func TestCredentialString_RedactsSecrets(t *testing.T) {
	pw := provider.Credential{ProviderID: provider.PasswordProviderID, Email: "a@b.com", Password: "hunter2"}
	require.NotContains(t, pw.String(), "hunter2")
	require.Contains(t, pw.String(), "a@b.com")

	social := provider.Credential{ProviderID: provider.GoogleProviderID, IDToken: "secret-id-token"}
	require.NotContains(t, social.String(), "secret-id-token")
	require.False(t, social.IsPassword())
}
