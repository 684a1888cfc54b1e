// Package runner executes external tools (terraform, ansible-playbook,
// nix) with streamed output.
//
// Everything the orchestrator shells out to goes through the Runner
// interface so pipelines can be tested without the real binaries.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Spec describes one external command invocation.
type Spec struct {
	Name string
	Args []string
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Env entries are appended on top of the parent environment.
	Env map[string]string
}

func (s Spec) String() string {
	return strings.Join(append([]string{s.Name}, s.Args...), " ")
}

// ExitError reports a command that ran and exited non-zero.
type ExitError struct {
	Cmd  string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command failed (%d): %s", e.Code, e.Cmd)
}

// Runner runs external commands.
type Runner interface {
	// Run executes the command, streaming combined output to the sink.
	Run(ctx context.Context, spec Spec) error
	// Capture executes the command and returns its stdout. Stderr is
	// streamed to the sink.
	Capture(ctx context.Context, spec Spec) ([]byte, error)
}

// LineSink receives one line of command output at a time.
type LineSink func(line string)

// Exec is the real Runner backed by os/exec.
type Exec struct {
	// Sink receives combined output lines. Nil discards output.
	Sink LineSink
	// Echo logs each command line before running it (debug mode).
	Echo bool

	log *zap.Logger
}

// NewExec builds an Exec runner logging through the given logger.
func NewExec(log *zap.Logger, sink LineSink) *Exec {
	return &Exec{Sink: sink, log: log}
}

func (e *Exec) command(ctx context.Context, spec Spec) *exec.Cmd {
	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...) // #nosec G204
	cmd.Dir = spec.Dir
	cmd.Env = os.Environ()
	for k, v := range spec.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	if e.Echo && e.log != nil {
		e.log.Debug("exec", zap.String("cmd", spec.String()), zap.String("dir", spec.Dir))
	}
	return cmd
}

// Run implements Runner.
func (e *Exec) Run(ctx context.Context, spec Spec) error {
	cmd := e.command(ctx, spec)
	sink := newLineWriter(e.Sink)
	cmd.Stdout = sink
	cmd.Stderr = sink

	err := cmd.Run()
	sink.Flush()
	return wrapExit(spec, err)
}

// Capture implements Runner.
func (e *Exec) Capture(ctx context.Context, spec Spec) ([]byte, error) {
	cmd := e.command(ctx, spec)
	sink := newLineWriter(e.Sink)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = sink

	err := cmd.Run()
	sink.Flush()
	if err := wrapExit(spec, err); err != nil {
		return stdout.Bytes(), err
	}
	return stdout.Bytes(), nil
}

func wrapExit(spec Spec, err error) error {
	if err == nil {
		return nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return &ExitError{Cmd: spec.String(), Code: ee.ExitCode()}
	}
	return fmt.Errorf("failed to start %s: %w", spec.Name, err)
}

// lineWriter splits a byte stream into lines for a LineSink. Writers from
// os/exec may deliver partial lines, so a trailing fragment is buffered
// until the next newline or Flush.
type lineWriter struct {
	mu   sync.Mutex
	sink LineSink
	buf  bytes.Buffer
}

func newLineWriter(sink LineSink) *lineWriter {
	return &lineWriter{sink: sink}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Partial line: put it back and wait for more.
			w.buf.WriteString(line)
			break
		}
		w.emit(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

// Flush emits any buffered partial line.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(strings.TrimRight(w.buf.String(), "\r\n"))
		w.buf.Reset()
	}
}

func (w *lineWriter) emit(line string) {
	if w.sink != nil && line != "" {
		w.sink(line)
	}
}
