package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/jrsteele09/go-auth-session/provider"
	"github.com/stretchr/testify/require"
)

func TestStdinPrompter(t *testing.T) {
	var out bytes.Buffer
	p := newStdinPrompter(newLineSource(strings.NewReader(" ada@example.com \nsecret\n")), &out)

	email, password, err := p.PromptCredentials(context.Background())

	require.NoError(t, err)
	require.Equal(t, "ada@example.com", email)
	require.Equal(t, "secret", password)
	require.Equal(t, "email: password: ", out.String())
}

func TestStdinPrompter_EOFIsDismissal(t *testing.T) {
	p := newStdinPrompter(newLineSource(strings.NewReader("")), &bytes.Buffer{})

	_, _, err := p.PromptCredentials(context.Background())

	require.ErrorIs(t, err, provider.ErrDismissed)
}

func TestStdinPrompter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newStdinPrompter(newLineSource(strings.NewReader("a\nb\n")), &bytes.Buffer{})

	_, _, err := p.PromptCredentials(ctx)

	require.ErrorIs(t, err, context.Canceled)
}

func TestLineSource_SharedBetweenReaders(t *testing.T) {
	ls := newLineSource(strings.NewReader("login\nada@example.com\npw\n"))
	p := newStdinPrompter(ls, io.Discard)

	cmd, err := ls.next(context.Background())
	require.NoError(t, err)
	require.Equal(t, "login", cmd)

	email, password, err := p.PromptCredentials(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", email)
	require.Equal(t, "pw", password)

	_, err = ls.next(context.Background())
	require.ErrorIs(t, err, io.EOF)
}
