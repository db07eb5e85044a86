package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the reader's key bindings.
type KeyMap struct {
	Next     key.Binding
	Previous key.Binding
	Close    key.Binding
	Help     key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Next: key.NewBinding(
			key.WithKeys("l", "right", "n", " ", "pgdown"),
			key.WithHelp("l/→", "next"),
		),
		Previous: key.NewBinding(
			key.WithKeys("h", "left", "p", "pgup"),
			key.WithHelp("h/←", "previous"),
		),
		Close: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "close"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Previous, k.Next, k.Close, k.Help}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Previous, k.Next}, {k.Close, k.Help}}
}
