// Package tui provides a Bubble Tea dashboard for provisioning runs.
package tui

import "provizor/internal/orchestrator"

// StageMsg carries one pipeline progress event.
type StageMsg struct {
	Event orchestrator.Event
}

// LogMsg appends one line to the log pane.
type LogMsg struct {
	Line string
}

// TickMsg is sent periodically to advance the spinner.
type TickMsg struct{}

// DoneMsg signals that the run finished with the given summary.
type DoneMsg struct {
	Summary orchestrator.Summary
}

// ErrMsg carries a run-level error.
type ErrMsg struct{ Err error }
