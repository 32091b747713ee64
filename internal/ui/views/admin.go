package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dori/taskboard/internal/model"
	"github.com/dori/taskboard/internal/ui/theme"
	"github.com/dori/taskboard/internal/users"
)

// AdminMode represents the current input mode
type AdminMode int

const (
	AdminModeNormal AdminMode = iota
	AdminModeEdit
	AdminModeConfirmDelete
)

var editLabels = [3]string{"First name", "Last name", "Email"}

// AdminView lists users and lets admins edit or delete them
type AdminView struct {
	ctx    context.Context
	users  *users.Store
	width  int
	height int

	cursorRow int
	scroll    int

	mode     AdminMode
	inputs   [3]textinput.Model
	focus    int
	targetID string
}

// NewAdminView creates the user management screen
func NewAdminView(ctx context.Context, store *users.Store) AdminView {
	var inputs [3]textinput.Model
	for i := range inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 128
		ti.Placeholder = editLabels[i]
		inputs[i] = ti
	}
	return AdminView{
		ctx:    ctx,
		users:  store,
		inputs: inputs,
	}
}

// Init loads the user list
func (v AdminView) Init() tea.Cmd {
	return v.Refresh()
}

// Refresh re-fetches the user list
func (v AdminView) Refresh() tea.Cmd {
	return run(v.ctx, SourceUsers, v.users.FetchAllUsers)
}

// SetSize sets the view dimensions
func (v AdminView) SetSize(width, height int) AdminView {
	v.width = width
	v.height = height
	return v
}

// Update handles messages
func (v AdminView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StoreChangedMsg:
		if msg.Source == SourceUsers {
			v.clampCursor()
		}
		return v, nil

	case tea.KeyMsg:
		switch v.mode {
		case AdminModeEdit:
			return v.handleEditMode(msg)
		case AdminModeConfirmDelete:
			return v.handleConfirmDeleteMode(msg)
		default:
			return v.handleNormalMode(msg)
		}
	}

	if v.mode == AdminModeEdit {
		var cmd tea.Cmd
		v.inputs[v.focus], cmd = v.inputs[v.focus].Update(msg)
		return v, cmd
	}
	return v, nil
}

func (v AdminView) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	list := v.users.Users()

	switch msg.String() {
	case "j", "down":
		if v.cursorRow < len(list)-1 {
			v.cursorRow++
			v.ensureCursorVisible()
		}
	case "k", "up":
		if v.cursorRow > 0 {
			v.cursorRow--
			v.ensureCursorVisible()
		}
	case "g":
		v.cursorRow, v.scroll = 0, 0
	case "G":
		v.cursorRow = max(len(list)-1, 0)
		v.ensureCursorVisible()

	case "e", "enter":
		if v.cursorRow < len(list) {
			u := list[v.cursorRow]
			v.targetID = u.ID
			v.mode = AdminModeEdit
			for i, value := range []string{u.FirstName, u.LastName, u.Email} {
				v.inputs[i].SetValue(value)
				v.inputs[i].CursorEnd()
				v.inputs[i].Blur()
			}
			v.focus = 0
			cmd := v.inputs[0].Focus()
			return v, cmd
		}

	case "d":
		if v.cursorRow < len(list) {
			v.targetID = list[v.cursorRow].ID
			v.mode = AdminModeConfirmDelete
		}
	}
	return v, nil
}

func (v AdminView) handleEditMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		v.mode = AdminModeNormal
		v.inputs[v.focus].Blur()
		return v, nil

	case "tab", "down", "shift+tab", "up":
		v.inputs[v.focus].Blur()
		step := 1
		if s := msg.String(); s == "shift+tab" || s == "up" {
			step = len(v.inputs) - 1
		}
		v.focus = (v.focus + step) % len(v.inputs)
		cmd := v.inputs[v.focus].Focus()
		return v, cmd

	case "enter":
		update := model.UserUpdate{
			FirstName: strings.TrimSpace(v.inputs[0].Value()),
			LastName:  strings.TrimSpace(v.inputs[1].Value()),
			Email:     strings.TrimSpace(v.inputs[2].Value()),
		}
		id := v.targetID
		v.mode = AdminModeNormal
		v.inputs[v.focus].Blur()
		return v, run(v.ctx, SourceUsers, func(ctx context.Context) {
			v.users.UpdateUser(ctx, id, update)
		})
	}

	var cmd tea.Cmd
	v.inputs[v.focus], cmd = v.inputs[v.focus].Update(msg)
	return v, cmd
}

func (v AdminView) handleConfirmDeleteMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		id := v.targetID
		v.mode = AdminModeNormal
		v.targetID = ""
		return v, run(v.ctx, SourceUsers, func(ctx context.Context) {
			v.users.DeleteUser(ctx, id)
		})
	case "n", "N", "esc":
		v.mode = AdminModeNormal
		v.targetID = ""
	}
	return v, nil
}

func (v *AdminView) clampCursor() {
	n := len(v.users.Users())
	if v.cursorRow >= n {
		v.cursorRow = max(n-1, 0)
	}
	v.ensureCursorVisible()
}

func (v *AdminView) ensureCursorVisible() {
	visible := max(v.height-8, 3)
	if v.cursorRow >= v.scroll+visible {
		v.scroll = v.cursorRow - visible + 1
	}
	if v.cursorRow < v.scroll {
		v.scroll = v.cursorRow
	}
}

// View renders the user table
func (v AdminView) View() string {
	if v.width == 0 || v.height == 0 {
		return "Loading..."
	}

	t := theme.Current.Theme
	styles := theme.Current.Styles

	list := v.users.Users()
	var lines []string
	lines = append(lines, styles.Title.Render(fmt.Sprintf("Users (%d)", len(list))))

	nameWidth := max((v.width-20)/2, 16)
	row := func(name, email, role string) string {
		return lipgloss.NewStyle().Width(nameWidth).Render(truncate(name, nameWidth-1)) +
			lipgloss.NewStyle().Width(nameWidth).Render(truncate(email, nameWidth-1)) +
			role
	}
	lines = append(lines, styles.Label.Render(row("NAME", "EMAIL", "ROLE")))

	visible := max(v.height-8, 3)
	end := min(v.scroll+visible, len(list))
	for i := v.scroll; i < end; i++ {
		u := list[i]
		role := "member"
		if u.IsAdmin {
			role = styles.Badge.Render("admin")
		}
		line := row(u.FullName(), u.Email, role)
		if i == v.cursorRow {
			line = styles.CardSelected.Width(v.width - 4).Render(line)
		} else {
			line = styles.Card.Render(line)
		}
		lines = append(lines, line)
	}
	if len(list) == 0 {
		lines = append(lines, styles.Placeholder.Italic(true).Render("(no users loaded)"))
	}
	lines = append(lines, "")

	switch v.mode {
	case AdminModeEdit:
		var fields []string
		for i, in := range v.inputs {
			style := styles.Input
			if i == v.focus {
				style = styles.InputFocused
			}
			fields = append(fields, style.Width(nameWidth).Render(editLabels[i]+": "+in.View()))
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, fields...))
		lines = append(lines, styles.Footer.Render("tab: next field • enter: save • esc: cancel • blank fields keep their value"))
	case AdminModeConfirmDelete:
		name := v.targetID
		for _, u := range list {
			if u.ID == v.targetID {
				name = u.FullName()
			}
		}
		lines = append(lines, lipgloss.NewStyle().Foreground(t.Error).Bold(true).
			Render(fmt.Sprintf("Delete user '%s'? This cannot be undone. (y/n)", name)))
	default:
		lines = append(lines, styles.Footer.Render("j/k: nav • e: edit • d: delete • r: refresh"))
	}

	return strings.Join(lines, "\n")
}

// IsInputMode returns true if the view is capturing text input
func (v AdminView) IsInputMode() bool {
	return v.mode == AdminModeEdit
}
