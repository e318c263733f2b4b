package fakebackend

import (
	"context"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-session/backend"
	"github.com/jrsteele09/go-auth-session/provider"
	"golang.org/x/crypto/bcrypt"
)

var _ backend.Backend = (*FakeBackend)(nil)

// Op names a backend call for failure injection.
type Op string

const (
	OpCreateAccount        Op = "create_account"
	OpSignIn               Op = "sign_in"
	OpSignInWithCredential Op = "sign_in_with_credential"
	OpSignOut              Op = "sign_out"
	OpDeleteCurrentUser    Op = "delete_current_user"
	OpUpdateProfile        Op = "update_profile"
)

const defaultMinPasswordLength = 6

type account struct {
	user         backend.AppUser
	passwordHash string
}

// FakeBackend is an in-memory auth backend. Federated credentials are accepted
// the way a local auth emulator accepts them: ID tokens are parsed but not verified.
type FakeBackend struct {
	accounts  map[string]*account // uid to account
	emailIDs  map[string]string   // email to uid
	federated map[string]string   // providerID:subject to uid
	current   string              // uid of the signed-in user
	failures  map[Op]error
	calls     []Op

	keepSessionOnDelete bool
	minPasswordLength   int
	lock                sync.RWMutex
}

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		accounts:  make(map[string]*account),
		emailIDs:  make(map[string]string),
		federated: make(map[string]string),
		failures:  make(map[Op]error),

		minPasswordLength: defaultMinPasswordLength,
	}
}

// FailNext makes the next call of op return err.
func (fb *FakeBackend) FailNext(op Op, err error) {
	fb.lock.Lock()
	defer fb.lock.Unlock()
	fb.failures[op] = err
}

// KeepSessionOnDelete makes DeleteCurrentUser succeed without clearing the
// current user, like a backend whose local session lags behind the server.
func (fb *FakeBackend) KeepSessionOnDelete(keep bool) {
	fb.lock.Lock()
	defer fb.lock.Unlock()
	fb.keepSessionOnDelete = keep
}

// SetMinPasswordLength changes the WEAK_PASSWORD threshold for new accounts.
func (fb *FakeBackend) SetMinPasswordLength(n int) {
	fb.lock.Lock()
	defer fb.lock.Unlock()
	fb.minPasswordLength = n
}

// Calls returns the sequence of backend operations invoked so far.
func (fb *FakeBackend) Calls() []Op {
	fb.lock.RLock()
	defer fb.lock.RUnlock()
	return append([]Op(nil), fb.calls...)
}

// Seed adds an email/password account, optionally restoring it as the signed-in
// user as if a session had survived a restart.
func (fb *FakeBackend) Seed(email, password, displayName string, signedIn bool) (*backend.AppUser, error) {
	fb.lock.Lock()
	defer fb.lock.Unlock()

	acc, err := fb.createLocked(email, password)
	if err != nil {
		return nil, err
	}
	acc.user.DisplayName = displayName
	if signedIn {
		fb.current = acc.user.UID
	}
	return fb.copyUser(acc), nil
}

func (fb *FakeBackend) CreateAccount(_ context.Context, email, password string) (*backend.AppUser, error) {
	fb.lock.Lock()
	defer fb.lock.Unlock()

	if err := fb.begin(OpCreateAccount); err != nil {
		return nil, err
	}
	acc, err := fb.createLocked(email, password)
	if err != nil {
		return nil, err
	}
	fb.current = acc.user.UID
	return fb.copyUser(acc), nil
}

func (fb *FakeBackend) SignIn(_ context.Context, email, password string) (*backend.AppUser, error) {
	fb.lock.Lock()
	defer fb.lock.Unlock()

	if err := fb.begin(OpSignIn); err != nil {
		return nil, err
	}
	uid, ok := fb.emailIDs[normalizeEmail(email)]
	if !ok {
		return nil, ErrEmailNotFound
	}
	acc := fb.accounts[uid]
	if bcrypt.CompareHashAndPassword([]byte(acc.passwordHash), []byte(password)) != nil {
		return nil, ErrInvalidPassword
	}
	acc.user.ProviderID = provider.PasswordProviderID
	fb.current = uid
	return fb.copyUser(acc), nil
}

func (fb *FakeBackend) SignInWithCredential(_ context.Context, cred provider.Credential) (*backend.AppUser, error) {
	fb.lock.Lock()
	defer fb.lock.Unlock()

	if err := fb.begin(OpSignInWithCredential); err != nil {
		return nil, err
	}
	if cred.IsPassword() {
		return nil, ErrInvalidCredential
	}
	identity, err := identityFromCredential(cred)
	if err != nil {
		return nil, err
	}

	key := cred.ProviderID + ":" + identity.subject
	uid, ok := fb.federated[key]
	if !ok {
		uid = uuid.New().String()
		fb.federated[key] = uid
		fb.accounts[uid] = &account{user: backend.AppUser{
			UID:         uid,
			DisplayName: identity.name,
			Email:       identity.email,
		}}
	}
	acc := fb.accounts[uid]
	acc.user.ProviderID = cred.ProviderID
	fb.current = uid
	return fb.copyUser(acc), nil
}

func (fb *FakeBackend) SignOut(context.Context) error {
	fb.lock.Lock()
	defer fb.lock.Unlock()

	if err := fb.begin(OpSignOut); err != nil {
		return err
	}
	fb.current = ""
	return nil
}

func (fb *FakeBackend) DeleteCurrentUser(context.Context) error {
	fb.lock.Lock()
	defer fb.lock.Unlock()

	if err := fb.begin(OpDeleteCurrentUser); err != nil {
		return err
	}
	acc, ok := fb.accounts[fb.current]
	if !ok {
		return ErrNoCurrentUser
	}
	delete(fb.accounts, acc.user.UID)
	delete(fb.emailIDs, normalizeEmail(acc.user.Email))
	for key, uid := range fb.federated {
		if uid == acc.user.UID {
			delete(fb.federated, key)
		}
	}
	if !fb.keepSessionOnDelete {
		fb.current = ""
	}
	return nil
}

func (fb *FakeBackend) UpdateProfile(_ context.Context, displayName string) (*backend.AppUser, error) {
	fb.lock.Lock()
	defer fb.lock.Unlock()

	if err := fb.begin(OpUpdateProfile); err != nil {
		return nil, err
	}
	acc, ok := fb.accounts[fb.current]
	if !ok {
		return nil, ErrNoCurrentUser
	}
	acc.user.DisplayName = displayName
	return fb.copyUser(acc), nil
}

func (fb *FakeBackend) CurrentUser() *backend.AppUser {
	fb.lock.RLock()
	defer fb.lock.RUnlock()

	if fb.current == "" {
		return nil
	}
	// A kept session may outlive a deleted account.
	acc, ok := fb.accounts[fb.current]
	if !ok {
		return &backend.AppUser{UID: fb.current}
	}
	return fb.copyUser(acc)
}

// begin records the call and returns an injected failure, if any. Caller holds the lock.
func (fb *FakeBackend) begin(op Op) error {
	fb.calls = append(fb.calls, op)
	if err, ok := fb.failures[op]; ok {
		delete(fb.failures, op)
		return err
	}
	return nil
}

func (fb *FakeBackend) createLocked(email, password string) (*account, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if len(password) < fb.minPasswordLength {
		return nil, ErrWeakPassword
	}
	if _, exists := fb.emailIDs[email]; exists {
		return nil, ErrEmailExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	acc := &account{
		user: backend.AppUser{
			UID:        uuid.New().String(),
			Email:      email,
			ProviderID: provider.PasswordProviderID,
		},
		passwordHash: string(hash),
	}
	fb.accounts[acc.user.UID] = acc
	fb.emailIDs[email] = acc.user.UID
	return acc, nil
}

func (fb *FakeBackend) copyUser(acc *account) *backend.AppUser {
	u := acc.user
	return &u
}

type federatedIdentity struct {
	subject string
	email   string
	name    string
}

// identityFromCredential reads the subject from an ID token when the credential
// carries a JWT, otherwise keys the account by the opaque token itself.
func identityFromCredential(cred provider.Credential) (federatedIdentity, error) {
	if cred.IDToken != "" {
		claims := jwt.MapClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(cred.IDToken, claims); err == nil {
			sub, _ := claims.GetSubject()
			if sub == "" {
				return federatedIdentity{}, ErrInvalidCredential
			}
			email, _ := claims["email"].(string)
			name, _ := claims["name"].(string)
			return federatedIdentity{subject: sub, email: email, name: name}, nil
		}
	}

	token := cred.IDToken
	if token == "" {
		token = cred.AccessToken
	}
	if token == "" {
		return federatedIdentity{}, ErrInvalidCredential
	}
	return federatedIdentity{subject: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
