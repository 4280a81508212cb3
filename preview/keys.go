package preview

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the key bindings for the preview.
type keyMap struct {
	Quit  key.Binding
	More  key.Binding
	Less  key.Binding
	Reset key.Binding
}

// keys holds the default bindings.
var keys = keyMap{
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	More:  key.NewBinding(key.WithKeys("up", "right", "+"), key.WithHelp("up", "more progress")),
	Less:  key.NewBinding(key.WithKeys("down", "left", "-"), key.WithHelp("down", "less progress")),
	Reset: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset progress")),
}
