// Package exchange trades provider credentials for an application session and
// runs the password-only backend operations.
package exchange

import (
	"context"
	"strings"

	"github.com/jrsteele09/go-auth-session/autherr"
	"github.com/jrsteele09/go-auth-session/backend"
	"github.com/jrsteele09/go-auth-session/provider"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Exchanger wraps the backend auth API.
type Exchanger struct {
	backend backend.Backend
	machine *session.Machine
	logger  zerolog.Logger
}

// Option configures an Exchanger.
type Option func(*Exchanger)

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Exchanger) {
		e.logger = logger
	}
}

// New returns an Exchanger bound to a backend and the session state machine.
func New(b backend.Backend, machine *session.Machine, options ...Option) (*Exchanger, error) {
	if b == nil {
		return nil, errors.New("[exchange.New] backend is required")
	}
	if machine == nil {
		return nil, errors.New("[exchange.New] session machine is required")
	}

	e := &Exchanger{
		backend: b,
		machine: machine,
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(e)
	}
	return e, nil
}

// Exchange signs in to the backend with a provider credential. It does not
// change the session state; the caller transitions on success.
func (e *Exchanger) Exchange(ctx context.Context, providerName string, cred provider.Credential) (*backend.AppUser, error) {
	var (
		user *backend.AppUser
		err  error
	)
	if cred.IsPassword() {
		user, err = e.backend.SignIn(ctx, cred.Email, cred.Password)
	} else {
		user, err = e.backend.SignInWithCredential(ctx, cred)
	}
	if err != nil {
		return nil, autherr.NewProvider(autherr.KindExchangeFailed, providerName, "Exchanger.Exchange", err)
	}
	if user == nil {
		return nil, autherr.NewProvider(autherr.KindExchangeFailed, providerName, "Exchanger.Exchange", errors.New("backend returned no user"))
	}

	e.logger.Info().Str("provider", providerName).Str("uid", user.UID).Msg("credential exchanged")
	return user, nil
}

// SignUpWithPassword creates an account, signs in, then sets the display name to
// "firstName lastName". A failed rename does not undo the account or the
// sign-in: the created user is returned together with the rename error.
func (e *Exchanger) SignUpWithPassword(ctx context.Context, email, password, firstName, lastName string) (*backend.AppUser, error) {
	user, err := e.backend.CreateAccount(ctx, email, password)
	if err != nil {
		e.logger.Err(err).Msg("password sign-up failed")
		return nil, autherr.New(autherr.KindBackendOperationFailed, "Exchanger.SignUpWithPassword", err)
	}
	e.machine.Transition(session.SignedIn)
	e.logger.Info().Str("uid", user.UID).Msg("account created")

	displayName := strings.TrimSpace(firstName + " " + lastName)
	renamed, err := e.RenameCurrentUser(ctx, displayName)
	if err != nil {
		return user, err
	}
	return renamed, nil
}

// SignInWithPassword signs in with email and password.
func (e *Exchanger) SignInWithPassword(ctx context.Context, email, password string) (*backend.AppUser, error) {
	user, err := e.backend.SignIn(ctx, email, password)
	if err != nil {
		e.logger.Err(err).Msg("password sign-in failed")
		return nil, autherr.New(autherr.KindBackendOperationFailed, "Exchanger.SignInWithPassword", err)
	}
	e.machine.Transition(session.SignedIn)
	return user, nil
}

// RenameCurrentUser sets the signed-in user's display name.
func (e *Exchanger) RenameCurrentUser(ctx context.Context, displayName string) (*backend.AppUser, error) {
	if e.backend.CurrentUser() == nil {
		return nil, autherr.New(autherr.KindNoCurrentUser, "Exchanger.RenameCurrentUser", nil)
	}
	user, err := e.backend.UpdateProfile(ctx, displayName)
	if err != nil {
		e.logger.Err(err).Msg("failed to update display name")
		return nil, autherr.New(autherr.KindBackendOperationFailed, "Exchanger.RenameCurrentUser", err)
	}
	return user, nil
}

// DeleteCurrentUser deletes the signed-in account. When the backend then reports
// no current user the session moves to SignedOut.
func (e *Exchanger) DeleteCurrentUser(ctx context.Context) error {
	if e.backend.CurrentUser() == nil {
		return autherr.New(autherr.KindNoCurrentUser, "Exchanger.DeleteCurrentUser", nil)
	}
	if err := e.backend.DeleteCurrentUser(ctx); err != nil {
		e.logger.Err(err).Msg("failed to delete user")
		return autherr.New(autherr.KindBackendOperationFailed, "Exchanger.DeleteCurrentUser", err)
	}
	if e.backend.CurrentUser() == nil {
		e.machine.Transition(session.SignedOut)
	}
	return nil
}

// SignOut clears the backend session, moves to SignedOut and only then runs the
// observer's data-clearing callback.
func (e *Exchanger) SignOut(ctx context.Context) error {
	if err := e.backend.SignOut(ctx); err != nil {
		e.logger.Err(err).Msg("backend sign-out failed")
		return autherr.New(autherr.KindBackendOperationFailed, "Exchanger.SignOut", err)
	}
	e.machine.Transition(session.SignedOut)
	e.machine.RunSignedOutCleanup()
	return nil
}

// SyncState reconciles the session state with the backend, e.g. on startup.
func (e *Exchanger) SyncState(context.Context) session.State {
	e.machine.DeriveStateFromBackend(e.backend.CurrentUser() != nil)
	return e.machine.CurrentState()
}
