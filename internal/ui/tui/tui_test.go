package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"provizor/internal/orchestrator"
)

func TestApplyEventTransitions(t *testing.T) {
	m := NewModel("run-1", []string{"web-01", "db-01"})

	m.applyEvent(orchestrator.Event{Host: "web-01", Stage: orchestrator.StageInfra, State: orchestrator.StateStarted})
	if m.Hosts[0].Stages[orchestrator.StageInfra] != stageActive {
		t.Error("expected infra to be active")
	}

	m.applyEvent(orchestrator.Event{Host: "web-01", Stage: orchestrator.StageInfra, State: orchestrator.StateDone})
	if m.Hosts[0].Stages[orchestrator.StageInfra] != stageDone {
		t.Error("expected infra to be done")
	}

	m.applyEvent(orchestrator.Event{
		Host: "db-01", Stage: orchestrator.StageOS,
		State: orchestrator.StateFailed, Err: errors.New("boom"),
	})
	if m.Hosts[1].Stages[orchestrator.StageOS] != stageFailed {
		t.Error("expected os to be failed")
	}
	if m.Hosts[1].Err == nil || !m.Hosts[1].Done {
		t.Error("expected host error and done flag to be set")
	}

	// Events for unknown hosts are dropped.
	m.applyEvent(orchestrator.Event{Host: "ghost", Stage: orchestrator.StageOS, State: orchestrator.StateDone})
}

func TestUpdateQuitKeys(t *testing.T) {
	m := NewModel("run-1", []string{"web-01"})
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}); cmd == nil {
		t.Error("expected quit command for q")
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC}); cmd == nil {
		t.Error("expected quit command for ctrl+c")
	}
}

func TestUpdateDoneQuits(t *testing.T) {
	m := NewModel("run-1", []string{"web-01"})
	updated, cmd := m.Update(DoneMsg{Summary: orchestrator.Summary{
		RunID: "run-1",
		Hosts: []orchestrator.HostResult{{Host: "web-01", OK: true}},
	}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if !updated.(Model).Finished {
		t.Error("expected model to be finished")
	}
}

func TestLogPaneBounded(t *testing.T) {
	var m tea.Model = NewModel("run-1", []string{"web-01"})
	for i := 0; i < logPaneSize*2; i++ {
		m, _ = m.Update(LogMsg{Line: "line"})
	}
	got := len(m.(Model).LogLines)
	if got != logPaneSize {
		t.Errorf("expected %d log lines, got %d", logPaneSize, got)
	}
}

func TestViewShowsSummary(t *testing.T) {
	m := NewModel("run-1", []string{"web-01", "db-01"})
	m.Finished = true
	m.Summary = orchestrator.Summary{
		RunID: "run-1",
		Hosts: []orchestrator.HostResult{
			{Host: "web-01", OK: true},
			{Host: "db-01", OK: false, Err: "terraform apply: exit 1"},
		},
	}

	out := m.View()
	if !strings.Contains(out, "web-01") || !strings.Contains(out, "db-01") {
		t.Fatalf("expected both hosts in view, got:\n%s", out)
	}
	if !strings.Contains(out, "terraform apply: exit 1") {
		t.Error("expected failure reason in summary")
	}
}

func TestProgress(t *testing.T) {
	m := NewModel("run-1", []string{"web-01"})
	if p := progress(m); p != 0 {
		t.Errorf("expected zero progress, got %v", p)
	}
	m.applyEvent(orchestrator.Event{Host: "web-01", Stage: orchestrator.StageRender, State: orchestrator.StateDone})
	if p := progress(m); p <= 0 || p >= 1 {
		t.Errorf("expected partial progress, got %v", p)
	}
}
