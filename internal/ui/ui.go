// Package ui renders the live mixing interface: one row per track with
// mute state and volume, driven by single-key controls.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stemmix/stemmix/internal/mixer"
)

// tickMsg drives the periodic snapshot refresh.
type tickMsg time.Time

const tickEvery = 100 * time.Millisecond

var (
	// Nord palette.
	nord3  = lipgloss.Color("#4C566A")
	nord8  = lipgloss.Color("#88C0D0")
	nord11 = lipgloss.Color("#BF616A")
	nord13 = lipgloss.Color("#EBCB8B")
	nord14 = lipgloss.Color("#A3BE8C")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(nord8)
	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(nord13)
	mutedStyle  = lipgloss.NewStyle().Foreground(nord11)
	activeStyle = lipgloss.NewStyle().Foreground(nord14)
	keyStyle    = lipgloss.NewStyle().Foreground(nord8)
	helpStyle   = lipgloss.NewStyle().Faint(true)

	statusStyles = map[mixer.Status]lipgloss.Style{
		mixer.Playing: lipgloss.NewStyle().Bold(true).Foreground(nord14),
		mixer.Paused:  lipgloss.NewStyle().Bold(true).Foreground(nord13),
		mixer.Stopped: lipgloss.NewStyle().Bold(true).Foreground(nord11),
	}
)

// Model is the bubbletea model for one mixing session.
type Model struct {
	mixer *mixer.Mixer
	title string
	step  float64

	stems  []string // toggle targets for the number keys
	rows   []mixer.TrackState
	status mixer.Status
	pos    time.Duration
	dur    time.Duration

	bar    progress.Model
	cursor int
	width  int
}

// New builds the interface for an already loaded mixer. The step is the
// volume change applied per left/right key press.
func New(mx *mixer.Mixer, title string, step float64) Model {
	bar := progress.New(progress.WithSolidFill(string(nord14)), progress.WithoutPercentage())
	bar.Width = 20
	bar.EmptyColor = string(nord3)

	m := Model{mixer: mx, title: title, step: step, bar: bar}
	for _, name := range mx.Tracks() {
		if name != mixer.OriginalName {
			m.stems = append(m.stems, name)
		}
	}
	m.refresh()
	return m
}

func (m *Model) refresh() {
	m.rows = m.mixer.Snapshot()
	m.status = m.mixer.Status()
	m.pos = m.mixer.Position()
	m.dur = m.mixer.Duration()
}

func tick() tea.Cmd {
	return tea.Tick(tickEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			switch m.status {
			case mixer.Playing:
				m.mixer.Pause()
			case mixer.Paused:
				m.mixer.Resume()
			default:
				m.mixer.Play()
			}
		case "s":
			m.mixer.Stop()
		case "r":
			m.mixer.Rewind()
		case "up":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down":
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}
		case "left":
			if m.cursor < len(m.rows) {
				m.mixer.AdjustVolume(m.rows[m.cursor].Name, -m.step)
			}
		case "right":
			if m.cursor < len(m.rows) {
				m.mixer.AdjustVolume(m.rows[m.cursor].Name, m.step)
			}
		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			idx := int(key[0] - '1')
			if idx < len(m.stems) {
				m.mixer.ToggleMute(m.stems[idx])
			}
		}
		m.refresh()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(30, max(10, msg.Width-44))
		return m, nil

	case tickMsg:
		m.refresh()
		return m, tick()
	}
	return m, nil
}

func (m Model) View() string {
	b := &strings.Builder{}

	status := statusStyles[m.status].Render(strings.ToUpper(m.status.String()))
	fmt.Fprintf(b, "  %s  %s  %s / %s\n\n",
		titleStyle.Render(m.title), status, clock(m.pos), clock(m.dur))

	digit := 0
	for i, row := range m.rows {
		marker := " "
		if i == m.cursor {
			marker = cursorStyle.Render(">")
		}

		key := " "
		if row.Name != mixer.OriginalName {
			digit++
			if digit <= 9 {
				key = keyStyle.Render(fmt.Sprintf("%d", digit))
			}
		}

		state := activeStyle.Render("ACTIVE")
		if row.Muted {
			state = mutedStyle.Render(" MUTED")
		}

		fmt.Fprintf(b, "  %s %s  %-10s %s  %s %.2f\n",
			marker, key, row.Name, state, m.bar.ViewAs(row.Volume), row.Volume)
	}

	b.WriteString("\n" + helpStyle.Render(
		"  space play/pause   s stop   r rewind   1-9 toggle stem   up/down select   left/right volume   q quit") + "\n")
	return b.String()
}

func clock(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
