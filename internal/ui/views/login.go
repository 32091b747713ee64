package views

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dori/taskboard/internal/session"
	"github.com/dori/taskboard/internal/ui/theme"
)

// LoginView is the email and password form
type LoginView struct {
	ctx     context.Context
	session *session.Store
	width   int
	height  int

	email    textinput.Model
	password textinput.Model
	focus    int
	problem  string
}

// NewLoginView creates the login form, prefilled with lastEmail
func NewLoginView(ctx context.Context, sess *session.Store, lastEmail string) LoginView {
	email := textinput.New()
	email.Prompt = ""
	email.Placeholder = "you@example.com"
	email.CharLimit = 128
	email.SetValue(lastEmail)

	password := textinput.New()
	password.Prompt = ""
	password.Placeholder = "password"
	password.CharLimit = 128
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	v := LoginView{
		ctx:      ctx,
		session:  sess,
		email:    email,
		password: password,
	}
	return v.Reset()
}

// Init starts the cursor blinking
func (v LoginView) Init() tea.Cmd {
	return textinput.Blink
}

// Reset clears the password and focuses the first empty field. Called
// whenever the form is shown, including after logout.
func (v LoginView) Reset() LoginView {
	v.password.SetValue("")
	v.problem = ""
	if strings.TrimSpace(v.email.Value()) != "" {
		v.focus = 1
		v.email.Blur()
		v.password.Focus()
	} else {
		v.focus = 0
		v.password.Blur()
		v.email.Focus()
	}
	return v
}

// SetSize sets the view dimensions
func (v LoginView) SetSize(width, height int) LoginView {
	v.width = width
	v.height = height
	return v
}

// Update handles messages
func (v LoginView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "tab", "shift+tab", "up", "down":
			return v.switchFocus()
		case "enter":
			if v.focus == 0 {
				return v.switchFocus()
			}
			return v.submit()
		}
		v.problem = ""
	}

	var cmd tea.Cmd
	if v.focus == 0 {
		v.email, cmd = v.email.Update(msg)
	} else {
		v.password, cmd = v.password.Update(msg)
	}
	return v, cmd
}

func (v LoginView) switchFocus() (tea.Model, tea.Cmd) {
	if v.focus == 0 {
		v.focus = 1
		v.email.Blur()
		cmd := v.password.Focus()
		return v, cmd
	}
	v.focus = 0
	v.password.Blur()
	cmd := v.email.Focus()
	return v, cmd
}

func (v LoginView) submit() (tea.Model, tea.Cmd) {
	email := strings.TrimSpace(v.email.Value())
	password := v.password.Value()
	if email == "" || password == "" {
		v.problem = "Email and password are required"
		return v, nil
	}
	if v.session.Loading() {
		return v, nil
	}

	ctx, store := v.ctx, v.session
	return v, func() tea.Msg {
		return LoginResultMsg{OK: store.Login(ctx, email, password)}
	}
}

// View renders the form
func (v LoginView) View() string {
	if v.width == 0 || v.height == 0 {
		return "Loading..."
	}

	t := theme.Current.Theme
	styles := theme.Current.Styles

	field := func(label string, in textinput.Model, focused bool) string {
		style := styles.Input
		if focused {
			style = styles.InputFocused
		}
		return styles.Label.Render(label) + "\n" + style.Width(40).Render(in.View())
	}

	lines := []string{
		styles.PanelTitle.Render("Sign in"),
		"",
		field("Email", v.email, v.focus == 0),
		field("Password", v.password, v.focus == 1),
		"",
	}

	problem := v.problem
	if problem == "" {
		problem = v.session.Error()
	}
	switch {
	case v.session.Loading():
		lines = append(lines, styles.Subtitle.Render("Signing in..."))
	case problem != "":
		lines = append(lines, lipgloss.NewStyle().Foreground(t.Error).Render(problem))
	default:
		lines = append(lines, styles.Footer.Render("tab: switch field • enter: sign in • ctrl+c: quit"))
	}

	panel := styles.Panel.Render(strings.Join(lines, "\n"))
	return lipgloss.Place(v.width, v.height, lipgloss.Center, lipgloss.Center, panel)
}

// IsInputMode is always true; every key types into the form
func (v LoginView) IsInputMode() bool {
	return true
}
