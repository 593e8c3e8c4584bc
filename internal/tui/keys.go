package tui

import "charm.land/bubbles/v2/key"

type keyMap struct {
	Accept key.Binding
	Reject key.Binding
	Stop   key.Binding
	Up     key.Binding
	Down   key.Binding
	Quit   key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Accept: key.NewBinding(key.WithKeys("a", "enter"), key.WithHelp("a", "accept")),
		Reject: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reject")),
		Stop:   key.NewBinding(key.WithKeys("esc", "s"), key.WithHelp("esc", "stop")),
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Accept, k.Reject, k.Stop, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Accept, k.Reject, k.Stop}, {k.Up, k.Down, k.Quit}}
}
