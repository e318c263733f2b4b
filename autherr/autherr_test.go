package autherr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jrsteele09/go-auth-session/autherr"
	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesKindSentinel(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("outer: %w", autherr.NewProvider(autherr.KindExchangeFailed, "google", "Exchanger.Exchange", cause))

	require.ErrorIs(t, err, autherr.ErrExchangeFailed)
	require.ErrorIs(t, err, cause)
	require.NotErrorIs(t, err, autherr.ErrProviderFailed)
	require.Equal(t, autherr.KindExchangeFailed, autherr.KindOf(err))
	require.Equal(t, "google", autherr.ProviderOf(err))
}

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *autherr.Error
		want string
	}{
		{"kind only", &autherr.Error{Kind: autherr.KindNoCurrentUser}, "no current user"},
		{"with op", autherr.New(autherr.KindNoCurrentUser, "Exchanger.DeleteCurrentUser", nil), "[Exchanger.DeleteCurrentUser] no current user"},
		{"with provider and cause", autherr.NewProvider(autherr.KindProviderFailed, "facebook", "Orchestrator.Login", errors.New("denied")), "[Orchestrator.Login] facebook: provider failed: denied"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestKindOf_PlainError(t *testing.T) {
	require.Equal(t, autherr.KindUnknown, autherr.KindOf(errors.New("plain")))
	require.Equal(t, "", autherr.ProviderOf(nil))
	require.Equal(t, "unknown", autherr.KindUnknown.String())
}
