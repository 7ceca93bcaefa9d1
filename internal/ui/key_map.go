package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	toggle   key.Binding
	next     key.Binding
	previous key.Binding
	favorite key.Binding
	history  key.Binding
	login    key.Binding
	logout   key.Binding
	back     key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		toggle:   key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "play/pause")),
		next:     key.NewBinding(key.WithKeys("n", "right"), key.WithHelp("n/→", "next")),
		previous: key.NewBinding(key.WithKeys("p", "left"), key.WithHelp("p/←", "previous")),
		favorite: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "favorite")),
		history:  key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "history")),
		login:    key.NewBinding(key.WithKeys("l", "enter"), key.WithHelp("l", "log in")),
		logout:   key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "log out")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.toggle, k.next, k.previous, k.favorite, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.toggle, k.next, k.previous},
		{k.favorite, k.history, k.back},
		{k.login, k.logout, k.quit},
	}
}

// loginKeys is the help shown before authentication.
type loginKeys struct{ keyMap }

func (k loginKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.login, k.quit}
}

func (k loginKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.login, k.quit}}
}
