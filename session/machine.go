// Package session owns the single source of truth for the application's sign-in state.
package session

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Machine tracks SessionState and the login-in-progress flag.
//
// Provider completions arrive on arbitrary goroutines, so transitions are
// serialized by transitionMu. Observer notifications go through a single-consumer
// queue drained outside that lock, in transition order, so an observer may call
// back into the Machine (or into code that transitions it) without deadlocking.
// Reads are lock free.
type Machine struct {
	state      atomic.Int32
	inProgress atomic.Bool

	transitionMu sync.Mutex

	notifyMu sync.Mutex
	queue    []notification
	draining bool

	observerMu sync.RWMutex
	observer   Observer

	subsMu    sync.Mutex
	subs      map[int]chan State
	nextSubID int

	logger zerolog.Logger
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger used for transition diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithObserver registers the initial observer.
func WithObserver(o Observer) Option {
	return func(m *Machine) {
		m.observer = o
	}
}

// New returns a Machine in the SignedOut state with no login in progress.
func New(options ...Option) *Machine {
	m := &Machine{
		subs:   make(map[int]chan State),
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// CurrentState returns the current sign-in state.
func (m *Machine) CurrentState() State {
	return State(m.state.Load())
}

// Transition moves to the given state. Setting the current value is a no-op and
// emits nothing. Otherwise the value is stored and published to subscribers,
// then the observer is notified. It reports whether the state changed.
//
// A Transition made from inside an observer callback is notified after that
// callback returns.
func (m *Machine) Transition(to State) bool {
	m.transitionMu.Lock()
	from := State(m.state.Load())
	if from == to {
		m.transitionMu.Unlock()
		return false
	}
	m.state.Store(int32(to))
	m.publish(to)
	m.enqueue(notification{state: to})
	m.transitionMu.Unlock()

	m.logger.Debug().Str("from", from.String()).Str("to", to.String()).Msg("session state transition")
	m.drain()
	return true
}

// DeriveStateFromBackend reconciles the state with the backend's session
// presence, e.g. on startup when a session survived a restart.
func (m *Machine) DeriveStateFromBackend(currentUserPresent bool) {
	if currentUserPresent {
		m.Transition(SignedIn)
		return
	}
	m.Transition(SignedOut)
}

// SetInProgress sets the login-in-progress flag.
func (m *Machine) SetInProgress(inProgress bool) {
	m.inProgress.Store(inProgress)
}

// TryBeginLogin raises the in-progress flag if it is clear and reports whether it did.
func (m *Machine) TryBeginLogin() bool {
	return m.inProgress.CompareAndSwap(false, true)
}

// IsLoginInProgress reports the login-in-progress flag.
func (m *Machine) IsLoginInProgress() bool {
	return m.inProgress.Load()
}

// SetObserver replaces the registered observer. Passing nil clears the slot.
func (m *Machine) SetObserver(o Observer) {
	m.observerMu.Lock()
	defer m.observerMu.Unlock()
	m.observer = o
}

// RunSignedOutCleanup invokes the observer's data-clearing callback. It is
// queued behind any pending state notification.
func (m *Machine) RunSignedOutCleanup() {
	m.enqueue(notification{cleanup: true})
	m.drain()
}

func (m *Machine) currentObserver() Observer {
	m.observerMu.RLock()
	defer m.observerMu.RUnlock()
	return m.observer
}
