package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	open key.Binding
	quit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		open: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open browser")),
		quit: key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.open, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.open, k.quit}}
}
