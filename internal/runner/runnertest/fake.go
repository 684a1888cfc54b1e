// Package runnertest provides a scriptable Runner for pipeline tests.
package runnertest

import (
	"context"
	"strings"
	"sync"

	"provizor/internal/runner"
)

// Call records one command the fake received.
type Call struct {
	Spec    runner.Spec
	Capture bool
}

// Response scripts the outcome for commands matching a prefix of the
// rendered command line (e.g. "terraform apply").
type Response struct {
	Stdout []byte
	Err    error
	// Times limits how often the response fires; 0 means unlimited.
	Times int

	used int
}

// Fake is an in-memory Runner. Commands match scripted responses by
// longest prefix; unmatched commands succeed with empty output.
type Fake struct {
	mu        sync.Mutex
	calls     []Call
	responses map[string]*Response
}

// New builds an empty Fake.
func New() *Fake {
	return &Fake{responses: map[string]*Response{}}
}

// Script registers a response for command lines starting with prefix.
func (f *Fake) Script(prefix string, resp Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := resp
	f.responses[prefix] = &r
}

// Calls returns a copy of all recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CommandLines returns the rendered command line of every call, in order.
func (f *Fake) CommandLines() []string {
	var out []string
	for _, c := range f.Calls() {
		out = append(out, c.Spec.String())
	}
	return out
}

func (f *Fake) dispatch(spec runner.Spec, capture bool) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Spec: spec, Capture: capture})

	line := spec.String()
	var best *Response
	bestLen := -1
	for prefix, resp := range f.responses {
		if strings.HasPrefix(line, prefix) && len(prefix) > bestLen {
			if resp.Times > 0 && resp.used >= resp.Times {
				continue
			}
			best = resp
			bestLen = len(prefix)
		}
	}
	if best == nil {
		return nil, nil
	}
	best.used++
	return best.Stdout, best.Err
}

// Run implements runner.Runner.
func (f *Fake) Run(_ context.Context, spec runner.Spec) error {
	_, err := f.dispatch(spec, false)
	return err
}

// Capture implements runner.Runner.
func (f *Fake) Capture(_ context.Context, spec runner.Spec) ([]byte, error) {
	return f.dispatch(spec, true)
}
