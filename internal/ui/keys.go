package ui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the global keybindings. Board and admin keys live in
// their views.
type KeyMap struct {
	// Screens
	BoardView key.Binding
	AdminView key.Binding
	StatsView key.Binding

	Refresh    key.Binding
	Help       key.Binding
	ThemeCycle key.Binding
	Logout     key.Binding
	Quit       key.Binding
}

// DefaultKeyMap returns the default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		BoardView: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "board"),
		),
		AdminView: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "users"),
		),
		StatsView: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "stats"),
		),

		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		ThemeCycle: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "theme"),
		),
		Logout: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "logout"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns short help bindings (for status bar)
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.BoardView, k.AdminView, k.StatsView, k.Refresh, k.Logout, k.Help, k.Quit}
}

// FullHelp returns full help bindings (for help view)
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.BoardView, k.AdminView, k.StatsView},
		{k.Refresh, k.ThemeCycle, k.Logout},
		{k.Help, k.Quit},
	}
}
