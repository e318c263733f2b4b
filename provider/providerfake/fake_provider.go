package providerfake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-auth-session/provider"
)

var _ provider.Adapter = (*FakeProvider)(nil)

// FakeProvider returns scripted results and records every call in order.
type FakeProvider struct {
	name string

	lock    sync.Mutex
	results []provider.Result
	calls   []string

	// OnAuthenticate, if set, runs inside Authenticate before the scripted result is returned.
	OnAuthenticate func(ctx context.Context)
}

func NewFakeProvider(name string, results ...provider.Result) *FakeProvider {
	return &FakeProvider{name: name, results: results}
}

func (fp *FakeProvider) Name() string {
	return fp.name
}

// Authenticate pops the next scripted result. With no script left it fails.
func (fp *FakeProvider) Authenticate(ctx context.Context, _ provider.PresentationContext) provider.Result {
	fp.lock.Lock()
	fp.calls = append(fp.calls, "authenticate")
	hook := fp.OnAuthenticate
	fp.lock.Unlock()

	if hook != nil {
		hook(ctx)
	}

	fp.lock.Lock()
	defer fp.lock.Unlock()
	if len(fp.results) == 0 {
		return provider.Failed(errNoScript)
	}
	res := fp.results[0]
	fp.results = fp.results[1:]
	return res
}

func (fp *FakeProvider) SignOut(context.Context) {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	fp.calls = append(fp.calls, "signout")
}

// Script appends results for later Authenticate calls.
func (fp *FakeProvider) Script(results ...provider.Result) {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	fp.results = append(fp.results, results...)
}

// Calls returns the recorded call sequence.
func (fp *FakeProvider) Calls() []string {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	return append([]string(nil), fp.calls...)
}

// SignOutCount returns how many times SignOut was called.
func (fp *FakeProvider) SignOutCount() int {
	n := 0
	for _, c := range fp.Calls() {
		if c == "signout" {
			n++
		}
	}
	return n
}
