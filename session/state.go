package session

// State is the application-wide sign-in status.
type State int32

const (
	SignedOut State = iota // initial
	SignedIn
)

func (s State) String() string {
	switch s {
	case SignedOut:
		return "signed_out"
	case SignedIn:
		return "signed_in"
	}
	return "unknown"
}
