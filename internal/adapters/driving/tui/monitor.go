// Package tui is the read-only terminal monitor for a running watcher.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/custodia-labs/scoresync/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/scoresync/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/scoresync/internal/core/domain"
)

// DefaultInterval is how often the monitor reloads its snapshot.
const DefaultInterval = 2 * time.Second

// Snapshot is the state shown by the monitor.
type Snapshot struct {
	Store   string
	Root    string
	Cursor  string
	Records []domain.GenerationRecord
}

// Loader reads a fresh snapshot.
type Loader func(ctx context.Context) (Snapshot, error)

type snapshotMsg struct {
	snapshot Snapshot
	err      error
	at       time.Time
}

type tickMsg time.Time

// Monitor shows the change cursor and recent generation runs, reloading
// them on a timer. It follows the Elm architecture and implements tea.Model.
type Monitor struct {
	ctx      context.Context
	load     Loader
	interval time.Duration
	now      func() time.Time

	styles *styles.Styles
	keys   *keymap.KeyMap
	help   help.Model

	snapshot Snapshot
	loadedAt time.Time
	err      error
	selected int
	details  bool
	width    int
}

// NewMonitor creates a monitor. A non-positive interval selects DefaultInterval.
func NewMonitor(load Loader, interval time.Duration) (*Monitor, error) {
	if load == nil {
		return nil, ErrMissingLoader
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		ctx:      context.Background(),
		load:     load,
		interval: interval,
		now:      time.Now,
		styles:   styles.DefaultStyles(),
		keys:     keymap.DefaultKeyMap(),
		help:     help.New(),
	}, nil
}

// WithContext sets the context passed to the loader.
func (m *Monitor) WithContext(ctx context.Context) *Monitor {
	m.ctx = ctx
	return m
}

// Init loads the first snapshot and starts the timer.
func (m *Monitor) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.tick())
}

func (m *Monitor) refresh() tea.Cmd {
	return func() tea.Msg {
		snapshot, err := m.load(m.ctx)
		return snapshotMsg{snapshot: snapshot, err: err, at: m.now()}
	}
}

func (m *Monitor) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages.
func (m *Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		return m, tea.Batch(m.refresh(), m.tick())

	case snapshotMsg:
		m.loadedAt = msg.at
		m.err = msg.err
		if msg.err == nil {
			m.snapshot = msg.snapshot
			if m.selected >= len(m.snapshot.Records) {
				m.selected = max(len(m.snapshot.Records)-1, 0)
			}
		}
		return m, nil
	}
	return m, nil
}

func (m *Monitor) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh()
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.snapshot.Records)-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.Details):
		m.details = !m.details
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

// View renders the monitor.
func (m *Monitor) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("scoresync monitor"))
	b.WriteString("\n\n")
	b.WriteString(m.styles.Panel.Render(m.renderState()))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(m.styles.Error.Render("Error: " + m.err.Error()))
		b.WriteString("\n\n")
	}

	records := m.snapshot.Records
	if len(records) == 0 {
		b.WriteString(m.styles.Muted.Render("No generation runs recorded yet."))
		b.WriteString("\n")
	}
	for i := range records {
		b.WriteString(m.clip(m.renderRecord(i, &records[i])))
		b.WriteString("\n")
		if m.details && i == m.selected {
			b.WriteString(m.renderDetails(&records[i]))
		}
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Monitor) renderState() string {
	cursor := m.snapshot.Cursor
	if cursor == "" {
		cursor = "(none)"
	}
	updated := "never"
	if !m.loadedAt.IsZero() {
		updated = humanize.RelTime(m.loadedAt, m.now(), "ago", "from now")
	}

	rows := [][2]string{
		{"Store", m.snapshot.Store},
		{"Root", m.snapshot.Root},
		{"Cursor", cursor},
		{"Updated", updated},
	}
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = m.styles.Label.Render(row[0]) + " " + row[1]
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Monitor) renderRecord(index int, r *domain.GenerationRecord) string {
	outcome := fmt.Sprintf("%-10s", r.Outcome)
	when := humanize.RelTime(r.StartedAt, m.now(), "ago", "from now")
	rest := fmt.Sprintf("%s  %d pdfs  %s", r.SourceName, r.Derivatives, when)

	if index == m.selected {
		return m.styles.Selected.Render("> " + outcome + " " + rest)
	}
	return "  " + m.styles.Outcome(r.Outcome).Render(outcome) + " " + m.styles.Normal.Render(rest)
}

func (m *Monitor) renderDetails(r *domain.GenerationRecord) string {
	lines := []string{
		"id:      " + r.SourceID,
		"took:    " + r.EndedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
		fmt.Sprintf("trashed: %d", r.Trashed),
	}
	if r.Error != "" {
		lines = append(lines, m.styles.Error.Render("error:   "+r.Error))
	}
	return m.styles.Muted.PaddingLeft(4).Render(strings.Join(lines, "\n")) + "\n"
}

func (m *Monitor) clip(line string) string {
	if m.width <= 0 {
		return line
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(line)
}

// Run starts the monitor on the alternate screen and blocks until it quits.
func (m *Monitor) Run() error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	return err
}

// Snapshot returns the last loaded snapshot.
func (m *Monitor) Snapshot() Snapshot {
	return m.snapshot
}

// Selected returns the index of the highlighted record.
func (m *Monitor) Selected() int {
	return m.selected
}

// Err returns the error from the last load.
func (m *Monitor) Err() error {
	return m.err
}
