package ui

import "github.com/dori/taskboard/internal/guard"

// View represents the screen currently shown
type View int

const (
	ViewChecking View = iota
	ViewLogin
	ViewBoard
	ViewAdmin
	ViewStats
)

// String returns the display name for a view
func (v View) String() string {
	switch v {
	case ViewChecking:
		return "Checking"
	case ViewLogin:
		return "Login"
	case ViewBoard:
		return "Board"
	case ViewAdmin:
		return "Users"
	case ViewStats:
		return "Stats"
	default:
		return "Unknown"
	}
}

// viewFor maps a resolved route to its screen
func viewFor(r guard.Route) View {
	switch r {
	case guard.RouteLogin:
		return ViewLogin
	case guard.RouteAdmin:
		return ViewAdmin
	case guard.RouteStats:
		return ViewStats
	default:
		return ViewBoard
	}
}

// bootstrapDoneMsg is sent once the persisted session has been checked
type bootstrapDoneMsg struct{}

// currentUserMsg is sent when the profile fetch for the admin guard returns
type currentUserMsg struct{}
