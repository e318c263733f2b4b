package fakebackend_test

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	fakebackend "github.com/jrsteele09/go-auth-session/backend/backendfake"
	"github.com/jrsteele09/go-auth-session/provider"
	"github.com/stretchr/testify/require"
)

func unsignedIDToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return tok
}

func TestCreateAccount_SignsIn(t *testing.T) {
	fb := fakebackend.NewFakeBackend()

	user, err := fb.CreateAccount(context.Background(), "Jane@Example.com", "secret1")

	require.NoError(t, err)
	require.NotEmpty(t, user.UID)
	require.Equal(t, "jane@example.com", user.Email)
	require.Equal(t, user.UID, fb.CurrentUser().UID)
}

func TestCreateAccount_Validation(t *testing.T) {
	fb := fakebackend.NewFakeBackend()
	_, err := fb.CreateAccount(context.Background(), "a@b.com", "secret1")
	require.NoError(t, err)

	_, err = fb.CreateAccount(context.Background(), "a@b.com", "secret2")
	require.ErrorIs(t, err, fakebackend.ErrEmailExists)

	_, err = fb.CreateAccount(context.Background(), "c@d.com", "pw")
	require.ErrorIs(t, err, fakebackend.ErrWeakPassword)

	_, err = fb.CreateAccount(context.Background(), "not-an-email", "secret1")
	require.ErrorIs(t, err, fakebackend.ErrInvalidEmail)
}

func TestSetMinPasswordLength(t *testing.T) {
	fb := fakebackend.NewFakeBackend()
	fb.SetMinPasswordLength(2)

	_, err := fb.CreateAccount(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)

	_, err = fb.CreateAccount(context.Background(), "c@d.com", "p")
	require.ErrorIs(t, err, fakebackend.ErrWeakPassword)
}

func TestSignIn(t *testing.T) {
	fb := fakebackend.NewFakeBackend()
	_, err := fb.Seed("a@b.com", "secret1", "Jane Doe", false)
	require.NoError(t, err)
	require.Nil(t, fb.CurrentUser())

	_, err = fb.SignIn(context.Background(), "a@b.com", "wrong-password")
	require.ErrorIs(t, err, fakebackend.ErrInvalidPassword)

	_, err = fb.SignIn(context.Background(), "nobody@b.com", "secret1")
	require.ErrorIs(t, err, fakebackend.ErrEmailNotFound)

	user, err := fb.SignIn(context.Background(), "a@b.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", user.DisplayName)
	require.Equal(t, provider.PasswordProviderID, user.ProviderID)
}

func TestSignInWithCredential_IDTokenClaims(t *testing.T) {
	fb := fakebackend.NewFakeBackend()
	idToken := unsignedIDToken(t, jwt.MapClaims{"sub": "g-1", "email": "jane@example.com", "name": "Jane Doe"})
	cred := provider.Credential{ProviderID: provider.GoogleProviderID, IDToken: idToken}

	first, err := fb.SignInWithCredential(context.Background(), cred)
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", first.DisplayName)
	require.Equal(t, "jane@example.com", first.Email)
	require.Equal(t, provider.GoogleProviderID, first.ProviderID)

	again, err := fb.SignInWithCredential(context.Background(), cred)
	require.NoError(t, err)
	require.Equal(t, first.UID, again.UID, "same subject maps to the same account")
}

func TestSignInWithCredential_OpaqueAccessToken(t *testing.T) {
	fb := fakebackend.NewFakeBackend()

	user, err := fb.SignInWithCredential(context.Background(), provider.Credential{
		ProviderID:  provider.FacebookProviderID,
		AccessToken: "fb-access",
	})

	require.NoError(t, err)
	require.Equal(t, user.UID, fb.CurrentUser().UID)
}

func TestSignInWithCredential_Rejects(t *testing.T) {
	fb := fakebackend.NewFakeBackend()

	_, err := fb.SignInWithCredential(context.Background(), provider.Credential{ProviderID: provider.GoogleProviderID})
	require.ErrorIs(t, err, fakebackend.ErrInvalidCredential)

	noSub := unsignedIDToken(t, jwt.MapClaims{"email": "x@y.com"})
	_, err = fb.SignInWithCredential(context.Background(), provider.Credential{ProviderID: provider.GoogleProviderID, IDToken: noSub})
	require.ErrorIs(t, err, fakebackend.ErrInvalidCredential)

	_, err = fb.SignInWithCredential(context.Background(), provider.Credential{ProviderID: provider.PasswordProviderID, Email: "a@b.com"})
	require.ErrorIs(t, err, fakebackend.ErrInvalidCredential)
}

func TestDeleteCurrentUser(t *testing.T) {
	fb := fakebackend.NewFakeBackend()
	_, err := fb.Seed("a@b.com", "secret1", "", true)
	require.NoError(t, err)

	require.NoError(t, fb.DeleteCurrentUser(context.Background()))
	require.Nil(t, fb.CurrentUser())

	_, err = fb.SignIn(context.Background(), "a@b.com", "secret1")
	require.ErrorIs(t, err, fakebackend.ErrEmailNotFound)

	require.ErrorIs(t, fb.DeleteCurrentUser(context.Background()), fakebackend.ErrNoCurrentUser)
}

func TestDeleteCurrentUser_KeepSession(t *testing.T) {
	fb := fakebackend.NewFakeBackend()
	user, err := fb.Seed("a@b.com", "secret1", "", true)
	require.NoError(t, err)
	fb.KeepSessionOnDelete(true)

	require.NoError(t, fb.DeleteCurrentUser(context.Background()))
	require.NotNil(t, fb.CurrentUser())
	require.Equal(t, user.UID, fb.CurrentUser().UID)
}

func TestUpdateProfile(t *testing.T) {
	fb := fakebackend.NewFakeBackend()
	_, err := fb.UpdateProfile(context.Background(), "Nobody")
	require.ErrorIs(t, err, fakebackend.ErrNoCurrentUser)

	_, err = fb.Seed("a@b.com", "secret1", "", true)
	require.NoError(t, err)
	user, err := fb.UpdateProfile(context.Background(), "Jane Doe")
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", user.DisplayName)
	require.Equal(t, "Jane Doe", fb.CurrentUser().DisplayName)
}

func TestFailNext_AppliesOnce(t *testing.T) {
	fb := fakebackend.NewFakeBackend()
	boom := errors.New("boom")
	fb.FailNext(fakebackend.OpSignOut, boom)

	require.ErrorIs(t, fb.SignOut(context.Background()), boom)
	require.NoError(t, fb.SignOut(context.Background()))
	require.Equal(t, []fakebackend.Op{fakebackend.OpSignOut, fakebackend.OpSignOut}, fb.Calls())
}

func TestReturnedUsersAreCopies(t *testing.T) {
	fb := fakebackend.NewFakeBackend()
	user, err := fb.Seed("a@b.com", "secret1", "Jane", true)
	require.NoError(t, err)

	user.DisplayName = "Mallory"

	require.Equal(t, "Jane", fb.CurrentUser().DisplayName)
}
