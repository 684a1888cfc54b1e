package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"provizor/internal/orchestrator"
)

// stageOrder fixes the column order of host rows.
var stageOrder = []orchestrator.Stage{
	orchestrator.StageRender,
	orchestrator.StageInfra,
	orchestrator.StageHealth,
	orchestrator.StagePXE,
	orchestrator.StageOS,
	orchestrator.StagePost,
	orchestrator.StageArchive,
}

type stageState int

const (
	stagePending stageState = iota
	stageActive
	stageDone
	stageWarned
	stageFailed
)

// HostRow tracks one host's progress through the pipeline.
type HostRow struct {
	Name   string
	Stages map[orchestrator.Stage]stageState
	Err    error
	Done   bool
}

// logPaneSize bounds the rolling log pane.
const logPaneSize = 8

// Model is the Bubble Tea model for the provisioning dashboard.
type Model struct {
	RunID string
	Hosts []HostRow

	LogLines []string

	SpinnerFrame int
	Width        int
	Height       int

	Summary  orchestrator.Summary
	Finished bool
	Err      error
}

// NewModel builds the dashboard model for the given hosts.
func NewModel(runID string, hosts []string) Model {
	m := Model{RunID: runID}
	for _, h := range hosts {
		m.Hosts = append(m.Hosts, HostRow{
			Name:   h,
			Stages: map[orchestrator.Stage]stageState{},
		})
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case StageMsg:
		m.applyEvent(msg.Event)

	case LogMsg:
		m.LogLines = append(m.LogLines, msg.Line)
		if len(m.LogLines) > logPaneSize {
			m.LogLines = m.LogLines[len(m.LogLines)-logPaneSize:]
		}

	case TickMsg:
		m.SpinnerFrame++
		return m, tickCmd()

	case DoneMsg:
		m.Summary = msg.Summary
		m.Finished = true
		return m, tea.Quit

	case ErrMsg:
		m.Err = msg.Err
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) applyEvent(e orchestrator.Event) {
	for i := range m.Hosts {
		if m.Hosts[i].Name != e.Host {
			continue
		}
		switch e.State {
		case orchestrator.StateStarted:
			m.Hosts[i].Stages[e.Stage] = stageActive
		case orchestrator.StateDone:
			m.Hosts[i].Stages[e.Stage] = stageDone
		case orchestrator.StateWarned:
			m.Hosts[i].Stages[e.Stage] = stageWarned
		case orchestrator.StateFailed:
			m.Hosts[i].Stages[e.Stage] = stageFailed
			m.Hosts[i].Err = e.Err
			m.Hosts[i].Done = true
		}
		return
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}
