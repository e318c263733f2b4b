package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/jrsteele09/go-auth-session/backend"
	"github.com/jrsteele09/go-auth-session/exchange"
	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/login"
	"github.com/jrsteele09/go-auth-session/presenter/loopback"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const usage = `commands:
  login [-provider name]              sign in (password, google, facebook)
  signup -email -password -first -last
  rename -name <display name>
  delete                              delete the signed-in account
  signout
  status                              print the session state
  help
  quit
`

// app keeps one session for the lifetime of the process; commands are read
// from input until quit or end of input.
type app struct {
	machine      *session.Machine
	orchestrator *login.Orchestrator
	presentation presentation
	lines        *lineSource
	out          io.Writer
	unwatch      func()
}

func newApp(ctx context.Context, c config.Config, in io.Reader, out io.Writer) (*app, error) {
	b, err := newBackend(c)
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] backend")
	}

	machine := session.New(
		session.WithLogger(log.Logger),
		session.WithObserver(session.ObserverFuncs{
			Cleanup: func() { log.Info().Msg("Signed out, local session data cleared") },
		}),
	)

	exchanger, err := exchange.New(b, machine, exchange.WithLogger(log.Logger))
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] exchanger")
	}

	adapters, err := newAdapters(ctx, c)
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] adapters")
	}

	orchestrator, err := login.New(machine, exchanger, adapters,
		login.WithLogger(log.Logger),
		login.WithFailureHook(func(providerName string) {
			log.Warn().Str("provider", providerName).Msg("Login failed")
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] orchestrator")
	}

	consent, err := loopback.New(c.GetRedirectURL(),
		loopback.WithOpener(loopback.PrintOpener(out)),
		loopback.WithLogger(log.Logger),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] presenter")
	}

	lines := newLineSource(in)
	a := &app{
		machine:      machine,
		orchestrator: orchestrator,
		presentation: presentation{Presenter: consent, stdinPrompter: newStdinPrompter(lines, out)},
		lines:        lines,
		out:          out,
	}
	a.unwatch = watchState(machine)
	orchestrator.SyncState(ctx)
	return a, nil
}

func (a *app) close() {
	a.orchestrator.Wait()
	a.unwatch()
}

// repl runs commands until quit, end of input or ctx is cancelled. Command
// errors are printed and the loop carries on.
func (a *app) repl(ctx context.Context) error {
	for {
		fmt.Fprint(a.out, "> ")
		line, err := a.lines.next(ctx)
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			fmt.Fprintln(a.out)
			return nil
		}
		if err != nil {
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "quit", "exit":
			return nil
		case "help":
			fmt.Fprint(a.out, usage)
			continue
		}
		if err := a.dispatch(ctx, fields[0], fields[1:]); err != nil {
			fmt.Fprintf(a.out, "error: %v\n", err)
		}
	}
}

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(a.out)
	switch command {
	case "login":
		providerName := fs.String("provider", "password", "provider name: "+strings.Join(a.orchestrator.Providers(), ", "))
		if err := fs.Parse(args); err != nil {
			return err
		}
		user, err := a.orchestrator.Login(ctx, *providerName, a.presentation)
		if err != nil {
			return err
		}
		a.printUser(user)

	case "signup":
		email := fs.String("email", "", "account email")
		pw := fs.String("password", "", "account password")
		first := fs.String("first", "", "first name")
		last := fs.String("last", "", "last name")
		if err := fs.Parse(args); err != nil {
			return err
		}
		user, err := a.orchestrator.SignUpWithPassword(ctx, *email, *pw, *first, *last)
		a.printUser(user)
		if err != nil {
			return err
		}

	case "rename":
		name := fs.String("name", "", "new display name")
		if err := fs.Parse(args); err != nil {
			return err
		}
		displayName := strings.TrimSpace(strings.Join(append([]string{*name}, fs.Args()...), " "))
		user, err := a.orchestrator.RenameCurrentUser(ctx, displayName)
		if err != nil {
			return err
		}
		a.printUser(user)

	case "delete":
		return a.orchestrator.DeleteCurrentUser(ctx)

	case "signout":
		return a.orchestrator.SignOut(ctx)

	case "status":
		fmt.Fprintf(a.out, "state=%s\n", a.machine.CurrentState())

	default:
		fmt.Fprint(a.out, usage)
		return errors.Errorf("unknown command %q", command)
	}
	return nil
}

func (a *app) printUser(user *backend.AppUser) {
	if user == nil {
		return
	}
	fmt.Fprintf(a.out, "uid=%s name=%q email=%s provider=%s\n", user.UID, user.DisplayName, user.Email, user.ProviderID)
}
