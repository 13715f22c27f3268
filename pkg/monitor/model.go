// Package monitor is the live terminal dashboard: per-table pending counts,
// sync engine state, and the latest workouts, refreshed from store
// observations rather than polling.
package monitor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/avery/liftd/internal/models"
	"github.com/avery/liftd/internal/ops"
	"github.com/avery/liftd/internal/sync"
)

// refreshInterval drives the periodic pending-count and state refresh. The
// workout pane updates immediately through its observation channel.
const refreshInterval = time.Second

// Model is the bubbletea model for `liftd monitor`.
type Model struct {
	svc    *ops.Service
	engine *sync.Engine

	spinner  spinner.Model
	pending  map[string]int
	state    sync.State
	lastSync time.Time
	workouts []models.Workout
	syncing  bool
	err      error

	workoutCh     <-chan []models.Workout
	cancelObserve func()

	width  int
	height int
}

type tickMsg time.Time

type workoutsMsg []models.Workout

type refreshMsg struct {
	pending  map[string]int
	state    sync.State
	lastSync time.Time
}

type syncDoneMsg struct {
	report *sync.Report
	err    error
}

// New builds the monitor model. The engine may be nil when sync is not
// configured; the dashboard then shows local state only.
func New(svc *ops.Service, engine *sync.Engine) (*Model, error) {
	ch, cancel, err := svc.ObserveWorkouts()
	if err != nil {
		return nil, err
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return &Model{
		svc:           svc,
		engine:        engine,
		spinner:       sp,
		pending:       map[string]int{},
		state:         sync.StateIdle,
		workoutCh:     ch,
		cancelObserve: cancel,
	}, nil
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.refresh(), m.waitWorkouts(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitWorkouts blocks on the observation channel and converts emissions into
// messages. Re-armed after every delivery.
func (m *Model) waitWorkouts() tea.Cmd {
	return func() tea.Msg {
		recs, ok := <-m.workoutCh
		if !ok {
			return nil
		}
		return workoutsMsg(recs)
	}
}

// refresh gathers the poll-driven half of the dashboard.
func (m *Model) refresh() tea.Cmd {
	return func() tea.Msg {
		msg := refreshMsg{state: sync.StateIdle}
		if m.engine != nil {
			msg.state = m.engine.State()
		}
		counts, err := m.svc.Store().PendingCounts()
		if err == nil {
			msg.pending = counts
		}
		if last, err := m.svc.Store().LastSyncAt(); err == nil {
			msg.lastSync = last
		}
		return msg
	}
}

// runSync kicks off a sync cycle in the background.
func (m *Model) runSync() tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		report, err := engine.Sync(ctx)
		return syncDoneMsg{report: report, err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.cancelObserve()
			return m, tea.Quit
		case "s":
			if m.engine != nil && !m.syncing {
				m.syncing = true
				m.err = nil
				return m, m.runSync()
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tea.Batch(m.refresh(), tick())

	case refreshMsg:
		if msg.pending != nil {
			m.pending = msg.pending
		}
		m.state = msg.state
		m.lastSync = msg.lastSync

	case workoutsMsg:
		m.workouts = msg
		return m, m.waitWorkouts()

	case syncDoneMsg:
		m.syncing = false
		m.err = msg.err
		return m, m.refresh()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// totalPending sums the per-table counts.
func (m *Model) totalPending() int {
	var n int
	for _, c := range m.pending {
		n += c
	}
	return n
}

// tableNames returns the pending-count tables in stable order.
func (m *Model) tableNames() []string {
	names := make([]string, 0, len(m.pending))
	for name := range m.pending {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run starts the program on the current terminal.
func Run(svc *ops.Service, engine *sync.Engine) error {
	m, err := New(svc, engine)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	return nil
}
