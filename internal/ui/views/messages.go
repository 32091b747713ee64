package views

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Store names carried by StoreChangedMsg
const (
	SourceTasks = "tasks"
	SourceUsers = "users"
)

// StoreChangedMsg is sent when a store action has finished. Views read
// store state directly, so the message only triggers a redraw.
type StoreChangedMsg struct {
	Source string
}

// LoginResultMsg reports the outcome of a login attempt
type LoginResultMsg struct {
	OK bool
}

// NoticeMsg shows a short confirmation in the status line
type NoticeMsg struct {
	Text string
}

// run turns a blocking store action into a command
func run(ctx context.Context, source string, fn func(ctx context.Context)) tea.Cmd {
	return func() tea.Msg {
		fn(ctx)
		return StoreChangedMsg{Source: source}
	}
}

// truncate shortens s to max runes, marking the cut
func truncate(s string, max int) string {
	r := []rune(s)
	if max < 4 || len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
