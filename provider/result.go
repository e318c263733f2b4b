package provider

import "fmt"

// Outcome tags a Result.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeAuthenticated
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAuthenticated:
		return "authenticated"
	case OutcomeCancelled:
		return "cancelled"
	}
	return "failed"
}

// Credential is the provider-issued proof of identity forwarded to the backend.
// The core never inspects the tokens.
type Credential struct {
	ProviderID  string
	IDToken     string // opaque identity token
	AccessToken string // optional provider access token

	// Email and Password are set only for password credentials.
	Email    string
	Password string
}

// IsPassword reports whether this is an email/password credential.
func (c Credential) IsPassword() bool {
	return c.ProviderID == PasswordProviderID
}

// String never prints secrets.
func (c Credential) String() string {
	if c.IsPassword() {
		return fmt.Sprintf("Credential{provider=%s email=%s}", c.ProviderID, c.Email)
	}
	return fmt.Sprintf("Credential{provider=%s id_token=%t access_token=%t}", c.ProviderID, c.IDToken != "", c.AccessToken != "")
}

// Result is the single outcome of Adapter.Authenticate.
type Result struct {
	Outcome    Outcome
	Credential Credential // set when Outcome is OutcomeAuthenticated
	Err        error      // set when Outcome is OutcomeFailed
}

func Authenticated(c Credential) Result {
	return Result{Outcome: OutcomeAuthenticated, Credential: c}
}

func Failed(err error) Result {
	return Result{Outcome: OutcomeFailed, Err: err}
}

func Cancelled() Result {
	return Result{Outcome: OutcomeCancelled}
}
