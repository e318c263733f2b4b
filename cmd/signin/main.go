package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-auth-session/backend"
	fakebackend "github.com/jrsteele09/go-auth-session/backend/backendfake"
	"github.com/jrsteele09/go-auth-session/backend/identitytoolkit"
	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/provider"
	"github.com/jrsteele09/go-auth-session/provider/facebook"
	"github.com/jrsteele09/go-auth-session/provider/google"
	"github.com/jrsteele09/go-auth-session/provider/password"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("signin failed")
	}
}

func run(args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	configureLogging(c)
	displayAppname(c.GetAppName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, c, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	defer app.close()

	// A command on the command line runs first, then the session stays open
	// for further commands.
	if len(args) > 0 {
		if err := app.dispatch(ctx, args[0], args[1:]); err != nil {
			fmt.Fprintf(os.Stdout, "error: %v\n", err)
		}
	}
	return app.repl(ctx)
}

func configureLogging(c config.EnvConfig) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

func newBackend(c config.Config) (backend.Backend, error) {
	if c.GetIdentityToolkitAPIKey() == "" {
		log.Warn().Msg("IDENTITY_TOOLKIT_API_KEY not set, using in-memory backend")
		return fakebackend.NewFakeBackend(), nil
	}
	return identitytoolkit.New(c.GetIdentityToolkitAPIKey(),
		identitytoolkit.WithBaseURL(c.GetIdentityToolkitURL()),
		identitytoolkit.WithRequestURI(c.GetRedirectURL()),
		identitytoolkit.WithLogger(log.Logger),
	)
}

func newAdapters(ctx context.Context, c config.ProviderConfig) ([]provider.Adapter, error) {
	adapters := []provider.Adapter{password.New()}

	if c.GetGoogleClientID() != "" {
		g, err := google.New(ctx, google.Config{
			ClientID:     c.GetGoogleClientID(),
			ClientSecret: c.GetGoogleClientSecret(),
			RedirectURL:  c.GetRedirectURL(),
			Issuer:       c.GetGoogleIssuer(),
		}, google.WithLogger(log.Logger))
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, g)
	}

	if c.GetFacebookClientID() != "" {
		f, err := facebook.New(facebook.Config{
			ClientID:     c.GetFacebookClientID(),
			ClientSecret: c.GetFacebookClientSecret(),
			RedirectURL:  c.GetRedirectURL(),
		}, facebook.WithLogger(log.Logger))
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, f)
	}
	return adapters, nil
}

func watchState(machine *session.Machine) (cancel func()) {
	states, cancel := machine.Subscribe(1)
	go func() {
		for s := range states {
			fmt.Printf("session state: %s\n", s)
		}
	}()
	return cancel
}
