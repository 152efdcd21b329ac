// Package keypad is a terminal control panel that sends gesture commands from
// key presses, for testing the speech side without a camera.
package keypad

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/soyle-app/soyle/internal/gesture"
	"github.com/soyle-app/soyle/internal/stream"
)

// Binding maps one key to a gesture.
type Binding struct {
	Key   string
	Label gesture.Label
}

// Bindings is the key map, in display order.
var Bindings = []Binding{
	{"f", gesture.Fist},
	{"5", gesture.Palm},
	{"4", gesture.Four},
	{"3", gesture.Three},
	{"2", gesture.Peace},
	{"1", gesture.One},
	{"o", gesture.OK},
	{"p", gesture.Point},
	{"l", gesture.LShape},
	{"r", gesture.Rock},
	{"i", gesture.ILY},
	{"c", gesture.CallMe},
	{"t", gesture.ThumbUp},
	{"d", gesture.ThumbDown},
	{"s", gesture.Pinch},
}

// Sender queues manual commands. *stream.Client implements it.
type Sender interface {
	Override(label gesture.Label) bool
	Stats() stream.ClientStats
}

const refreshInterval = 250 * time.Millisecond

type tickMsg time.Time

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	keyStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("226"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	pressedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("25"))
)

// Model is the bubbletea model of the control panel.
type Model struct {
	sender  Sender
	addr    string
	keys    map[string]gesture.Label
	stats   stream.ClientStats
	last    gesture.Label
	dropped bool
	presses int
}

// New creates a Model sending through s. addr is only displayed.
func New(s Sender, addr string) Model {
	keys := make(map[string]gesture.Label, len(Bindings))
	for _, b := range Bindings {
		keys[b.Key] = b.Label
	}
	return Model{
		sender: s,
		addr:   addr,
		keys:   keys,
		stats:  s.Stats(),
	}
}

// NewProgram wraps New in a bubbletea program.
func NewProgram(s Sender, addr string) *tea.Program {
	return tea.NewProgram(New(s, addr))
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		default:
			if label, ok := m.keys[key]; ok {
				m.presses++
				m.last = label
				m.dropped = !m.sender.Override(label)
				m.stats = m.sender.Stats()
			}
		}

	case tickMsg:
		m.stats = m.sender.Stats()
		return m, tick()
	}
	return m, nil
}

// Last returns the last key-pressed gesture and whether it was dropped.
func (m Model) Last() (gesture.Label, bool) {
	return m.last, m.dropped
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Soyle keys"))
	b.WriteString(dimStyle.Render("  " + m.addr))
	b.WriteString("\n\n")

	if m.stats.Status == gesture.Connecting {
		b.WriteString(warnStyle.Render("○ connecting..."))
	} else {
		b.WriteString(okStyle.Render("● connected"))
		b.WriteString(dimStyle.Render(fmt.Sprintf("  frames %d  sent %d", m.stats.FramesRead, m.stats.Sent)))
	}
	b.WriteString("\n")

	switch {
	case m.last == "":
		b.WriteString(dimStyle.Render("last: none"))
	case m.dropped:
		b.WriteString(warnStyle.Render(fmt.Sprintf("last: %s (dropped, queue full)", m.last)))
	default:
		b.WriteString(fmt.Sprintf("last: %s", pressedStyle.Render(" "+string(m.last)+" ")))
	}
	b.WriteString("\n\n")

	for i, bind := range Bindings {
		cell := fmt.Sprintf("%s %-10s", keyStyle.Render(bind.Key), bind.Label)
		b.WriteString(cell)
		if i%3 == 2 {
			b.WriteString("\n")
		} else {
			b.WriteString("  ")
		}
	}
	if len(Bindings)%3 != 0 {
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("q to quit"))
	b.WriteString("\n")
	return b.String()
}
