package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jrsteele09/go-auth-session/presenter/loopback"
	"github.com/jrsteele09/go-auth-session/provider"
	"github.com/pkg/errors"
)

// presentation satisfies both capability interfaces so a single value can be
// handed to any adapter.
type presentation struct {
	*loopback.Presenter
	*stdinPrompter
}

var (
	_ provider.ConsentPresenter   = presentation{}
	_ provider.CredentialPrompter = presentation{}
)

// lineSource reads input lines in the background so that both the command loop
// and the credential prompt can wait on them with a context.
type lineSource struct {
	lines chan string
	err   error // set before lines is closed
}

func newLineSource(r io.Reader) *lineSource {
	ls := &lineSource{lines: make(chan string)}
	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			ls.lines <- scanner.Text()
		}
		ls.err = scanner.Err()
		close(ls.lines)
	}()
	return ls
}

// next returns the next line, io.EOF once input is exhausted, or the context error.
func (ls *lineSource) next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-ls.lines:
		if !ok {
			if ls.err != nil {
				return "", errors.Wrap(ls.err, "[lineSource.next]")
			}
			return "", io.EOF
		}
		return line, nil
	}
}

type stdinPrompter struct {
	lines *lineSource
	out   io.Writer
}

func newStdinPrompter(lines *lineSource, out io.Writer) *stdinPrompter {
	return &stdinPrompter{lines: lines, out: out}
}

func (p *stdinPrompter) PromptCredentials(ctx context.Context) (string, string, error) {
	email, err := p.ask(ctx, "email: ")
	if err != nil {
		return "", "", err
	}
	password, err := p.ask(ctx, "password: ")
	if err != nil {
		return "", "", err
	}
	return email, password, nil
}

func (p *stdinPrompter) ask(ctx context.Context, label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.lines.next(ctx)
	if errors.Is(err, io.EOF) {
		return "", provider.ErrDismissed
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
