package session

// Observer receives session notifications. A Machine holds at most one.
//
// Callbacks run one at a time in transition order. A callback may read or
// transition the Machine, or sign out; anything it triggers is notified once
// the callback returns.
type Observer interface {
	// OnStateChange is called after every effective transition.
	OnStateChange(State)
	// OnSignedOutCleanup is called after an explicit sign-out has reached SignedOut,
	// so the application can clear user data.
	OnSignedOutCleanup()
}

// ObserverFuncs adapts a pair of functions to the Observer interface. Nil fields are skipped.
type ObserverFuncs struct {
	StateChange func(State)
	Cleanup     func()
}

func (o ObserverFuncs) OnStateChange(s State) {
	if o.StateChange != nil {
		o.StateChange(s)
	}
}

func (o ObserverFuncs) OnSignedOutCleanup() {
	if o.Cleanup != nil {
		o.Cleanup()
	}
}
