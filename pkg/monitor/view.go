package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/avery/liftd/internal/output"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(20)
	valueStyle   = lipgloss.NewStyle()
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	paneStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("liftd monitor"))
	b.WriteString("\n\n")

	b.WriteString(paneStyle.Render(m.syncPane()))
	b.WriteString("\n")
	b.WriteString(paneStyle.Render(m.pendingPane()))
	b.WriteString("\n")
	b.WriteString(paneStyle.Render(m.workoutPane()))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errStyle.Render("sync failed: " + m.err.Error()))
		b.WriteString("\n")
	}

	help := "q quit"
	if m.engine != nil {
		help = "s sync · " + help
	}
	b.WriteString(helpStyle.Render(help))
	return b.String()
}

func (m *Model) syncPane() string {
	var b strings.Builder

	state := string(m.state)
	if m.syncing {
		state = m.spinner.View() + " " + state
	}
	b.WriteString(labelStyle.Render("sync state"))
	b.WriteString(valueStyle.Render(state))
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("last sync"))
	if m.lastSync.IsZero() {
		b.WriteString(valueStyle.Render("never"))
	} else {
		b.WriteString(valueStyle.Render(fmt.Sprintf("%s (%s ago)",
			m.lastSync.Local().Format("15:04:05"),
			time.Since(m.lastSync).Round(time.Second))))
	}
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("unsynced"))
	b.WriteString(output.FormatSyncBadge(m.totalPending()))
	return b.String()
}

func (m *Model) pendingPane() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("pending by table"))
	b.WriteString("\n")
	for _, name := range m.tableNames() {
		b.WriteString(labelStyle.Render(name))
		b.WriteString(output.FormatSyncBadge(m.pending[name]))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) workoutPane() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("recent workouts"))
	b.WriteString("\n")
	if len(m.workouts) == 0 {
		b.WriteString(helpStyle.Render("none yet"))
		return b.String()
	}
	limit := min(len(m.workouts), 8)
	for _, w := range m.workouts[:limit] {
		b.WriteString(output.FormatWorkoutLine(w))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
