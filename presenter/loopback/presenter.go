// Package loopback hosts provider consent flows for desktop and CLI apps: the
// authorization URL is handed to the user's browser and the provider redirects
// back to a listener on the loopback interface.
package loopback

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-session/provider"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 2 * time.Second

var ErrUnknownState = errors.New("callback state does not match a pending consent")

// Opener shows the authorization URL to the user, e.g. by launching a browser.
type Opener func(authURL string) error

// PrintOpener writes the URL to w for the user to open manually.
func PrintOpener(w io.Writer) Opener {
	return func(authURL string) error {
		_, err := fmt.Fprintf(w, "Open this URL in your browser to continue:\n\n  %s\n\n", authURL)
		return err
	}
}

// Presenter implements provider.ConsentPresenter.
type Presenter struct {
	redirect *url.URL
	open     Opener
	listen   bool
	logger   zerolog.Logger

	mu      sync.Mutex
	pending map[string]chan url.Values // state to waiting consent
}

var _ provider.ConsentPresenter = (*Presenter)(nil)

// Option configures a Presenter.
type Option func(*Presenter)

func WithOpener(open Opener) Option {
	return func(p *Presenter) {
		p.open = open
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(p *Presenter) {
		p.logger = logger
	}
}

// WithoutListener disables the built-in listener; the caller mounts Handler on
// its own server at the redirect path.
func WithoutListener() Option {
	return func(p *Presenter) {
		p.listen = false
	}
}

// New returns a Presenter for the given redirect URL, which must point at a
// loopback host, e.g. http://127.0.0.1:8085/callback.
func New(redirectURL string, options ...Option) (*Presenter, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return nil, errors.Wrap(err, "[loopback.New] redirect url")
	}
	if u.Scheme != "http" || u.Port() == "" {
		return nil, errors.Errorf("[loopback.New] redirect url %q must be http with an explicit port", redirectURL)
	}
	if ip := net.ParseIP(u.Hostname()); u.Hostname() != "localhost" && (ip == nil || !ip.IsLoopback()) {
		return nil, errors.Errorf("[loopback.New] redirect host %q is not a loopback address", u.Hostname())
	}

	p := &Presenter{
		redirect: u,
		open:     PrintOpener(os.Stdout),
		listen:   true,
		logger:   log.Logger,
		pending:  make(map[string]chan url.Values),
	}
	for _, opt := range options {
		opt(p)
	}
	return p, nil
}

// RedirectURL is the URL providers must redirect to.
func (p *Presenter) RedirectURL() string {
	return p.redirect.String()
}

// PresentConsent opens authURL and waits for the provider's redirect. Cancelling
// ctx abandons the consent.
func (p *Presenter) PresentConsent(ctx context.Context, authURL string) (url.Values, error) {
	u, err := url.Parse(authURL)
	if err != nil {
		return nil, errors.Wrap(err, "[Presenter.PresentConsent] auth url")
	}
	state := u.Query().Get("state")
	if state == "" {
		return nil, errors.New("[Presenter.PresentConsent] auth url has no state")
	}

	result := p.register(state)
	defer p.unregister(state)

	if p.listen {
		stop, err := p.serve()
		if err != nil {
			return nil, err
		}
		defer stop()
	}

	if err := p.open(authURL); err != nil {
		return nil, errors.Wrap(err, "[Presenter.PresentConsent] open")
	}

	select {
	case params := <-result:
		return params, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Handler serves the redirect path.
func (p *Presenter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(p.callbackPath(), p.callback)
	return mux
}

func (p *Presenter) callback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid callback", http.StatusBadRequest)
		return
	}
	params := r.Form
	state := params.Get("state")

	p.mu.Lock()
	waiter, ok := p.pending[state]
	if ok {
		delete(p.pending, state)
	}
	p.mu.Unlock()

	if !ok {
		p.logger.Err(ErrUnknownState).Msg("consent callback rejected")
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}
	waiter <- params

	if params.Get("error") != "" {
		fmt.Fprintln(w, "Sign-in was not completed. You can close this window.")
		return
	}
	fmt.Fprintln(w, "Sign-in complete. You can close this window.")
}

func (p *Presenter) callbackPath() string {
	if p.redirect.Path == "" {
		return "/"
	}
	return p.redirect.Path
}

func (p *Presenter) register(state string) <-chan url.Values {
	ch := make(chan url.Values, 1)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending[state] = ch
	return ch
}

func (p *Presenter) unregister(state string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pending, state)
}

func (p *Presenter) serve() (stop func(), err error) {
	ln, err := net.Listen("tcp", p.redirect.Host)
	if err != nil {
		return nil, errors.Wrap(err, "[Presenter.serve] listen")
	}
	srv := &http.Server{Handler: p.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			p.logger.Err(err).Msg("loopback listener stopped")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			p.logger.Err(err).Msg("loopback listener shutdown")
		}
	}, nil
}
