// ABOUTME: Bubbletea model for the player status view
// ABOUTME: Shows engine state, cursor, cycle counts and the silence countdown
package ui

import (
	"fmt"
	"strings"

	"github.com/Resonate-Protocol/fifoplay/pkg/irq"
	"github.com/Resonate-Protocol/fifoplay/pkg/playback"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("220"))

	helpStyle = lipgloss.NewStyle().Faint(true)
)

// Model represents the TUI state
type Model struct {
	// Device
	backend string
	mode    string
	title   string

	// Engine
	engine   playback.Stats
	loopback *playback.LoopbackStats
	irq      irq.Stats

	underruns uint64

	// Output
	volume int
	muted  bool

	showDebug bool
	quitting  bool

	controls *Controls

	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Stopping engine...\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("fifoplay"))
	b.WriteString("\n\n")

	field(&b, "Backend", m.backend)
	field(&b, "Mode", m.mode)
	if m.title != "" {
		field(&b, "Asset", truncate(m.title, 40))
	}
	field(&b, "Rate", m.engine.SampleRate.String())
	b.WriteString("\n")

	if m.loopback != nil {
		b.WriteString(m.renderLoopback())
	} else {
		b.WriteString(m.renderEngine())
	}

	b.WriteString("\n")
	muteIcon := ""
	if m.muted {
		muteIcon = " (muted)"
	}
	field(&b, "Volume", fmt.Sprintf("[%s] %d%%%s", renderBar(m.volume, 100, 10), m.volume, muteIcon))

	if m.showDebug {
		b.WriteString("\n")
		b.WriteString(m.renderDebug())
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓:Volume  m:Mute  d:Debug  q:Quit"))
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderEngine() string {
	var b strings.Builder
	s := m.engine

	b.WriteString(sectionStyle.Render("Engine: " + s.State.String()))
	b.WriteString("\n")

	switch s.State {
	case playback.StateSilence:
		done := s.SilenceLength - s.SilenceRemaining()
		field(&b, "Silence", fmt.Sprintf("[%s] %d/%d cycles left",
			renderBar(done, s.SilenceLength, 20), s.SilenceRemaining(), s.SilenceLength))
	default:
		pct := int(s.Progress() * 100)
		field(&b, "Cursor", fmt.Sprintf("[%s] %d/%d bytes", renderBar(pct, 100, 20), s.Cursor, s.PayloadSize))
	}

	field(&b, "Cycles", fmt.Sprintf("%d (stream %d, silence %d)", s.Cycles, s.StreamCycles, s.SilenceCycles))
	field(&b, "Loops", fmt.Sprintf("%d", s.Loops))
	field(&b, "Sent", formatBytes(s.BytesSubmitted))

	return b.String()
}

func (m Model) renderLoopback() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Loopback"))
	b.WriteString("\n")
	field(&b, "Cycles", fmt.Sprintf("%d", m.loopback.Cycles))
	field(&b, "Captured", formatBytes(m.loopback.BytesCaptured))
	field(&b, "Sent", formatBytes(m.loopback.BytesSubmitted))
	return b.String()
}

func (m Model) renderDebug() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Debug"))
	b.WriteString("\n")
	field(&b, "IRQ", fmt.Sprintf("raised %d, dispatched %d, coalesced %d", m.irq.Raised, m.irq.Dispatched, m.irq.Coalesced))
	field(&b, "Not ready", fmt.Sprintf("%d", m.engine.NotReady))
	field(&b, "Dropped", formatBytes(m.engine.BytesDropped))
	field(&b, "Read errors", fmt.Sprintf("%d", m.engine.ReadErrors))
	field(&b, "Underruns", fmt.Sprintf("%d", m.underruns))
	return b.String()
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		m.controls.quit()
		return m, tea.Quit
	case "up":
		m.volume = min(m.volume+5, 100)
		m.controls.changed(m.volume, m.muted)
	case "down":
		m.volume = max(m.volume-5, 0)
		m.controls.changed(m.volume, m.muted)
	case "m":
		m.muted = !m.muted
		m.controls.changed(m.volume, m.muted)
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Backend != "" {
		m.backend = msg.Backend
	}
	if msg.Mode != "" {
		m.mode = msg.Mode
	}
	if msg.Title != "" {
		m.title = msg.Title
	}
	if msg.Engine != nil {
		m.engine = *msg.Engine
	}
	if msg.Loopback != nil {
		lb := *msg.Loopback
		m.loopback = &lb
	}
	if msg.IRQ != nil {
		m.irq = *msg.IRQ
	}
	if msg.Underruns != 0 {
		m.underruns = msg.Underruns
	}
}

// StatusMsg updates TUI state. Nil and zero fields are left unchanged.
type StatusMsg struct {
	Backend   string
	Mode      string
	Title     string
	Engine    *playback.Stats
	Loopback  *playback.LoopbackStats
	IRQ       *irq.Stats
	Underruns uint64
}

func field(b *strings.Builder, name, value string) {
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-9s ", name+":")))
	b.WriteString(valueStyle.Render(value))
	b.WriteString("\n")
}

func renderBar(value, total, width int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}
	filled := min(max(value, 0)*width/total, width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func formatBytes(n uint64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
