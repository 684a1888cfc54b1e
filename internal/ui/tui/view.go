package tui

import (
	"fmt"
	"strings"
)

func renderView(m Model) string {
	var b strings.Builder

	renderHeader(&b, m)
	renderHosts(&b, m)
	renderLogPane(&b, m)
	renderFooter(&b, m)

	return b.String()
}

func renderHeader(b *strings.Builder, m Model) {
	b.WriteString(titleStyle.Render(fmt.Sprintf("provizor run %s", m.RunID)))

	status := " "
	switch {
	case m.Err != nil:
		status += failStyle.Render(fmt.Sprintf("Error: %v", m.Err))
	case m.Finished && m.Summary.Failed():
		status += failStyle.Render("Finished with failures")
	case m.Finished:
		status += okStyle.Render("Finished")
	default:
		status += activeStyle.Render(currentSpinner(m.SpinnerFrame) + " Provisioning")
	}
	b.WriteString(status)
	b.WriteString("\n")
}

func renderHosts(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Hosts"))
	b.WriteString("\n")

	for _, host := range m.Hosts {
		name := host.Name
		if len(name) > 20 {
			name = name[:20]
		}
		fmt.Fprintf(b, "    %-20s", name)
		for _, stage := range stageOrder {
			state, seen := host.Stages[stage]
			var cell string
			switch {
			case !seen:
				cell = dimStyle.Render(pending)
			case state == stageActive:
				cell = activeStyle.Render(currentSpinner(m.SpinnerFrame))
			case state == stageDone:
				cell = okStyle.Render(checkMark)
			case state == stageWarned:
				cell = warnStyle.Render(warnMark)
			default:
				cell = failStyle.Render(crossMark)
			}
			fmt.Fprintf(b, " %s %s", cell, dimStyle.Render(string(stage)))
		}
		if host.Err != nil {
			fmt.Fprintf(b, "  %s", failStyle.Render(host.Err.Error()))
		}
		b.WriteString("\n")
	}
}

func renderLogPane(b *strings.Builder, m Model) {
	if len(m.LogLines) == 0 {
		return
	}
	b.WriteString(sectionStyle.Render("  Log"))
	b.WriteString("\n")
	for _, line := range m.LogLines {
		fmt.Fprintf(b, "    %s\n", dimStyle.Render(line))
	}
}

func renderFooter(b *strings.Builder, m Model) {
	if m.Finished {
		b.WriteString(sectionStyle.Render("  Summary"))
		b.WriteString("\n")
		for _, h := range m.Summary.Hosts {
			if h.OK {
				fmt.Fprintf(b, "    %s %s\n", okStyle.Render(checkMark), h.Host)
			} else {
				fmt.Fprintf(b, "    %s %s: %s\n", failStyle.Render(crossMark), h.Host, h.Err)
			}
		}
	}
	b.WriteString(footerStyle.Render("  q to quit"))
	b.WriteString("\n")
}

// progress reports the fraction of stage cells that reached a terminal
// state, for tests and plain-mode reporting.
func progress(m Model) float64 {
	if len(m.Hosts) == 0 {
		return 0
	}
	total := len(m.Hosts) * len(stageOrder)
	var done int
	for _, host := range m.Hosts {
		for _, state := range host.Stages {
			switch state {
			case stageDone, stageWarned, stageFailed:
				done++
			}
		}
	}
	return float64(done) / float64(total)
}
