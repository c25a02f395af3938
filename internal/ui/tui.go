// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and carries volume and quit requests out of it
package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// VolumeChangeMsg is a volume or mute change made in the TUI
type VolumeChangeMsg struct {
	Volume int
	Muted  bool
}

// Controls holds channels for requests made from the TUI.
// Quit is closed once, so any number of goroutines may wait on it.
type Controls struct {
	Changes chan VolumeChangeMsg
	Quit    chan struct{}

	quitOnce sync.Once
}

// NewControls creates a new control handler
func NewControls() *Controls {
	return &Controls{
		Changes: make(chan VolumeChangeMsg, 10),
		Quit:    make(chan struct{}),
	}
}

func (c *Controls) changed(volume int, muted bool) {
	if c == nil {
		return
	}
	select {
	case c.Changes <- VolumeChangeMsg{Volume: volume, Muted: muted}:
	default:
	}
}

func (c *Controls) quit() {
	if c == nil {
		return
	}
	c.quitOnce.Do(func() { close(c.Quit) })
}

// NewModel creates a new TUI model
func NewModel(ctrl *Controls, volume int) Model {
	return Model{
		volume:   volume,
		controls: ctrl,
	}
}

// Run creates the TUI program; the caller runs it
func Run(ctrl *Controls, volume int) *tea.Program {
	return tea.NewProgram(NewModel(ctrl, volume), tea.WithAltScreen())
}
