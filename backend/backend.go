// Package backend describes the central auth backend the coordinator signs in to.
// Implementations own accounts, password checks and token validation.
package backend

import (
	"context"

	"github.com/jrsteele09/go-auth-session/provider"
)

// AppUser is the backend's identity record for the signed-in user.
type AppUser struct {
	UID         string `json:"uid"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
	ProviderID  string `json:"provider_id,omitempty"` // provider used for the current sign-in
}

// Backend is the auth API consumed by the exchanger.
type Backend interface {
	// CreateAccount creates an email/password account and signs it in.
	CreateAccount(ctx context.Context, email, password string) (*AppUser, error)
	// SignIn signs in with email and password.
	SignIn(ctx context.Context, email, password string) (*AppUser, error)
	// SignInWithCredential trades a provider credential for an application session.
	SignInWithCredential(ctx context.Context, cred provider.Credential) (*AppUser, error)
	// SignOut clears the local backend session.
	SignOut(ctx context.Context) error
	// DeleteCurrentUser deletes the signed-in account.
	DeleteCurrentUser(ctx context.Context) error
	// UpdateProfile sets the signed-in user's display name and returns the updated user.
	UpdateProfile(ctx context.Context, displayName string) (*AppUser, error)
	// CurrentUser returns the signed-in user, or nil.
	CurrentUser() *AppUser
}
