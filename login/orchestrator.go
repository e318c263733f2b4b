// Package login sequences a sign-in attempt: provider authentication, credential
// exchange, and the session state update, with cleanup on every failure path.
package login

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jrsteele09/go-auth-session/autherr"
	"github.com/jrsteele09/go-auth-session/backend"
	"github.com/jrsteele09/go-auth-session/exchange"
	"github.com/jrsteele09/go-auth-session/provider"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrLoginInProgress = errors.New("a login attempt is already in progress")
	ErrUnknownProvider = errors.New("unknown provider")
)

// FailureHook receives the name of a provider whose login failed. It is not
// called for cancellations.
type FailureHook func(providerName string)

// Orchestrator runs login flows against registered provider adapters.
type Orchestrator struct {
	machine   *session.Machine
	exchanger *exchange.Exchanger
	adapters  map[string]provider.Adapter
	onFailure FailureHook
	logger    zerolog.Logger

	flows sync.WaitGroup
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithFailureHook sets the hook called when a provider or exchange step fails.
func WithFailureHook(hook FailureHook) Option {
	return func(o *Orchestrator) {
		o.onFailure = hook
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New registers the adapters by name. Names must be unique.
func New(machine *session.Machine, exchanger *exchange.Exchanger, adapters []provider.Adapter, options ...Option) (*Orchestrator, error) {
	if machine == nil {
		return nil, errors.New("[login.New] session machine is required")
	}
	if exchanger == nil {
		return nil, errors.New("[login.New] exchanger is required")
	}

	o := &Orchestrator{
		machine:   machine,
		exchanger: exchanger,
		adapters:  make(map[string]provider.Adapter, len(adapters)),
		logger:    log.Logger,
	}
	for _, a := range adapters {
		if a == nil {
			return nil, errors.New("[login.New] nil adapter")
		}
		if _, dup := o.adapters[a.Name()]; dup {
			return nil, errors.Errorf("[login.New] duplicate provider %q", a.Name())
		}
		o.adapters[a.Name()] = a
	}
	for _, opt := range options {
		opt(o)
	}
	return o, nil
}

// Providers returns the registered provider names, sorted.
func (o *Orchestrator) Providers() []string {
	names := make([]string, 0, len(o.adapters))
	for name := range o.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Login runs a complete login with the named provider and blocks until it ends.
// Only one login may run at a time; a concurrent call gets ErrLoginInProgress.
func (o *Orchestrator) Login(ctx context.Context, providerName string, pc provider.PresentationContext) (*backend.AppUser, error) {
	adapter, ok := o.adapters[providerName]
	if !ok {
		return nil, errors.Wrap(ErrUnknownProvider, providerName)
	}
	if !o.machine.TryBeginLogin() {
		return nil, ErrLoginInProgress
	}
	return o.run(ctx, adapter, pc)
}

// StartLogin begins a login in the background. The outcome is observed through
// the session machine; only an unknown provider or a login already in progress
// is reported here.
func (o *Orchestrator) StartLogin(ctx context.Context, providerName string, pc provider.PresentationContext) error {
	adapter, ok := o.adapters[providerName]
	if !ok {
		return errors.Wrap(ErrUnknownProvider, providerName)
	}
	if !o.machine.TryBeginLogin() {
		return ErrLoginInProgress
	}

	o.flows.Add(1)
	go func() {
		defer o.flows.Done()
		if _, err := o.run(ctx, adapter, pc); err != nil && autherr.KindOf(err) != autherr.KindProviderCancelled {
			o.logger.Err(err).Str("provider", providerName).Msg("background login failed")
		}
	}()
	return nil
}

// Wait blocks until every login started with StartLogin has finished.
func (o *Orchestrator) Wait() {
	o.flows.Wait()
}

// run executes one attempt. The caller has raised the in-progress flag; run
// clears it on every exit path.
func (o *Orchestrator) run(ctx context.Context, adapter provider.Adapter, pc provider.PresentationContext) (*backend.AppUser, error) {
	const op = "Orchestrator.Login"
	defer o.machine.SetInProgress(false)

	name := adapter.Name()
	adapter.SignOut(ctx)
	res := authenticate(ctx, adapter, pc)

	switch res.Outcome {
	case provider.OutcomeAuthenticated:
	case provider.OutcomeCancelled:
		adapter.SignOut(ctx)
		o.logger.Info().Str("provider", name).Msg("login cancelled")
		return nil, autherr.NewProvider(autherr.KindProviderCancelled, name, op, nil)
	default:
		adapter.SignOut(ctx)
		o.logger.Err(res.Err).Str("provider", name).Msg("provider authentication failed")
		o.reportFailure(name)
		return nil, autherr.NewProvider(autherr.KindProviderFailed, name, op, res.Err)
	}

	user, err := o.exchanger.Exchange(ctx, name, res.Credential)
	if err != nil {
		// The provider session is dropped on every failure, including this one.
		adapter.SignOut(ctx)
		o.reportFailure(name)
		return nil, err
	}

	o.machine.Transition(session.SignedIn)
	return user, nil
}

// authenticate converts an adapter panic into a Failed result.
func authenticate(ctx context.Context, adapter provider.Adapter, pc provider.PresentationContext) (res provider.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = provider.Failed(fmt.Errorf("provider %s panicked: %v", adapter.Name(), r))
		}
	}()
	return adapter.Authenticate(ctx, pc)
}

func (o *Orchestrator) reportFailure(providerName string) {
	if o.onFailure != nil {
		o.onFailure(providerName)
	}
}

// SignUpWithPassword creates an email/password account. See
// exchange.Exchanger.SignUpWithPassword for the rename failure contract.
func (o *Orchestrator) SignUpWithPassword(ctx context.Context, email, password, firstName, lastName string) (*backend.AppUser, error) {
	if !o.machine.TryBeginLogin() {
		return nil, ErrLoginInProgress
	}
	defer o.machine.SetInProgress(false)
	return o.exchanger.SignUpWithPassword(ctx, email, password, firstName, lastName)
}

// SignInWithPassword signs in with email and password.
func (o *Orchestrator) SignInWithPassword(ctx context.Context, email, password string) (*backend.AppUser, error) {
	if !o.machine.TryBeginLogin() {
		return nil, ErrLoginInProgress
	}
	defer o.machine.SetInProgress(false)
	return o.exchanger.SignInWithPassword(ctx, email, password)
}

func (o *Orchestrator) RenameCurrentUser(ctx context.Context, displayName string) (*backend.AppUser, error) {
	return o.exchanger.RenameCurrentUser(ctx, displayName)
}

func (o *Orchestrator) DeleteCurrentUser(ctx context.Context) error {
	return o.exchanger.DeleteCurrentUser(ctx)
}

// SignOut signs out of every provider, then out of the backend.
func (o *Orchestrator) SignOut(ctx context.Context) error {
	for _, name := range o.Providers() {
		o.adapters[name].SignOut(ctx)
	}
	return o.exchanger.SignOut(ctx)
}

// SyncState reconciles the session state with the backend.
func (o *Orchestrator) SyncState(ctx context.Context) session.State {
	return o.exchanger.SyncState(ctx)
}
