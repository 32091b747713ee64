package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dori/taskboard/internal/api"
	"github.com/dori/taskboard/internal/app"
	"github.com/dori/taskboard/internal/guard"
	"github.com/dori/taskboard/internal/model"
	"github.com/dori/taskboard/internal/session"
	"github.com/dori/taskboard/internal/ui/theme"
	"github.com/dori/taskboard/internal/ui/views"
	"github.com/sirupsen/logrus"
)

// bootSession reports Loading until the startup bootstrap has returned,
// so guards do not redirect to login before the stored token was checked
type bootSession struct {
	*session.Store
	booting bool
}

func (s bootSession) Loading() bool {
	return s.booting || s.Store.Loading()
}

// RootModel is the main application model. It runs the session
// bootstrap, applies the route guards and delegates to the shown screen.
type RootModel struct {
	ctx     context.Context
	app     *app.App
	keys    KeyMap
	help    help.Model
	spinner spinner.Model
	width   int
	height  int

	route        guard.Route
	shown        View
	booting      bool
	fetchingUser bool

	loginView views.LoginView
	boardView views.BoardView
	adminView views.AdminView
	statsView views.StatsView

	helpVisible bool
	statusMsg   string
}

// NewRootModel creates a new root model
func NewRootModel(ctx context.Context, application *app.App) RootModel {
	h := help.New()
	h.ShortSeparator = " │ "

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	lastEmail, err := application.DB.Get(api.KeyUserEmail)
	if err != nil {
		application.Log.WithError(err).Warn("failed to read last email")
	}

	return RootModel{
		ctx:       ctx,
		app:       application,
		keys:      DefaultKeyMap(),
		help:      h,
		spinner:   sp,
		route:     guard.RouteHome,
		shown:     ViewChecking,
		booting:   true,
		loginView: views.NewLoginView(ctx, application.Session, lastEmail),
		boardView: views.NewBoardView(ctx, application.Tasks, application.Session),
		adminView: views.NewAdminView(ctx, application.Users),
		statsView: views.NewStatsView(application.DB, application.Tasks),
	}
}

// Init starts the session bootstrap. Cached tasks are loaded once the
// session is confirmed, so the board has something to show before the
// first fetch returns.
func (m RootModel) Init() tea.Cmd {
	ctx, a := m.ctx, m.app
	bootstrap := func() tea.Msg {
		a.Bootstrap(ctx)
		return bootstrapDoneMsg{}
	}
	return tea.Batch(m.spinner.Tick, bootstrap)
}

func (m RootModel) session() bootSession {
	return bootSession{Store: m.app.Session, booting: m.booting}
}

// Update handles messages
func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

		// Reserve space for header (1 line) and footer (3 lines)
		contentHeight := m.height - 4
		m.loginView = m.loginView.SetSize(m.width, contentHeight)
		m.boardView = m.boardView.SetSize(m.width, contentHeight)
		m.adminView = m.adminView.SetSize(m.width, contentHeight)
		m.statsView = m.statsView.SetSize(m.width, contentHeight)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case bootstrapDoneMsg:
		m.booting = false
		m.app.Log.WithField("authenticated", m.app.Session.IsAuthenticated()).Debug("bootstrap finished")

	case currentUserMsg:
		m.fetchingUser = false

	case views.LoginResultMsg:
		if msg.OK {
			m.route = guard.RouteHome
			if u := m.app.Session.State().User; u != nil {
				m.statusMsg = "Welcome, " + displayName(u)
			}
		}

	case views.NoticeMsg:
		m.statusMsg = msg.Text
		return m, nil

	case tea.KeyMsg:
		// Clear status/errors on any keypress
		m.statusMsg = ""
		m.app.Tasks.ClearError()
		m.app.Users.ClearError()

		isInputMode := m.isInputMode()

		switch {
		case key.Matches(msg, m.keys.Quit):
			// ctrl+c always quits, but 'q' only quits when not in input mode
			if msg.String() == "ctrl+c" || !isInputMode {
				return m, tea.Quit
			}

		case key.Matches(msg, m.keys.ThemeCycle):
			m.cycleTheme()
			return m, nil

		case key.Matches(msg, m.keys.Logout):
			if m.app.Session.IsAuthenticated() {
				m.app.Logout()
				m.fetchingUser = false
				m.route = guard.RouteLogin
				m.statusMsg = "Logged out"
				cmd := m.sync()
				return m, cmd
			}
		}

		if isInputMode || m.shown == ViewChecking || m.shown == ViewLogin {
			break
		}

		switch {
		case key.Matches(msg, m.keys.Help):
			m.helpVisible = !m.helpVisible
			return m, nil

		case key.Matches(msg, m.keys.BoardView):
			m.route = guard.RouteHome
			cmd := m.sync()
			return m, cmd
		case key.Matches(msg, m.keys.AdminView):
			m.route = guard.RouteAdmin
			cmd := m.sync()
			return m, cmd
		case key.Matches(msg, m.keys.StatsView):
			m.route = guard.RouteStats
			cmd := m.sync()
			return m, cmd

		case key.Matches(msg, m.keys.Refresh):
			cmd := m.refresh()
			return m, cmd
		}

		if m.helpVisible {
			if msg.String() == "esc" {
				m.helpVisible = false
			}
			return m, nil
		}
	}

	cmds = append(cmds, m.delegate(msg))
	cmds = append(cmds, m.sync())
	return m, tea.Batch(cmds...)
}

// delegate passes key input to the shown screen and store
// notifications to every screen
func (m *RootModel) delegate(msg tea.Msg) tea.Cmd {
	if _, ok := msg.(views.StoreChangedMsg); ok {
		var cmds []tea.Cmd
		var cmd tea.Cmd
		var next tea.Model

		next, cmd = m.boardView.Update(msg)
		m.boardView = next.(views.BoardView)
		cmds = append(cmds, cmd)
		next, cmd = m.adminView.Update(msg)
		m.adminView = next.(views.AdminView)
		cmds = append(cmds, cmd)
		next, cmd = m.statsView.Update(msg)
		m.statsView = next.(views.StatsView)
		cmds = append(cmds, cmd)
		return tea.Batch(cmds...)
	}

	switch m.shown {
	case ViewLogin:
		next, cmd := m.loginView.Update(msg)
		m.loginView = next.(views.LoginView)
		return cmd
	case ViewBoard:
		next, cmd := m.boardView.Update(msg)
		m.boardView = next.(views.BoardView)
		return cmd
	case ViewAdmin:
		next, cmd := m.adminView.Update(msg)
		m.adminView = next.(views.AdminView)
		return cmd
	case ViewStats:
		next, cmd := m.statsView.Update(msg)
		m.statsView = next.(views.StatsView)
		return cmd
	}
	return nil
}

// sync applies the guards to the requested route, switching screens and
// starting the loads a newly shown screen needs
func (m *RootModel) sync() tea.Cmd {
	sess := m.session()
	var cmds []tea.Cmd

	if m.route == guard.RouteAdmin && !m.fetchingUser && guard.NeedsCurrentUser(sess, m.app.Users) {
		cmds = append(cmds, m.fetchCurrentUser())
	}

	route, ok := guard.Resolve(m.route, sess, m.app.Users)
	if !ok {
		// a screen already shown for this route stays up while its guard rechecks
		if viewFor(route) != m.shown {
			m.shown = ViewChecking
		}
		return tea.Batch(cmds...)
	}
	if route != m.route {
		if m.route == guard.RouteAdmin && route == guard.RouteHome {
			m.statusMsg = "User management is for admins only"
		}
		m.app.Log.WithFields(logrus.Fields{"from": m.route, "to": route}).Debug("guard redirect")
		m.route = route
	}

	if v := viewFor(route); v != m.shown {
		m.shown = v
		cmds = append(cmds, m.enter(v))
	}
	return tea.Batch(cmds...)
}

// enter starts whatever a screen loads when it becomes visible
func (m *RootModel) enter(v View) tea.Cmd {
	switch v {
	case ViewLogin:
		m.loginView = m.loginView.Reset()
		return m.loginView.Init()
	case ViewBoard:
		cmds := []tea.Cmd{m.boardView.Init()}
		if !m.fetchingUser && guard.NeedsCurrentUser(m.session(), m.app.Users) {
			cmds = append(cmds, m.fetchCurrentUser())
		}
		return tea.Batch(cmds...)
	case ViewAdmin:
		return m.adminView.Init()
	case ViewStats:
		return m.statsView.Init()
	}
	return nil
}

func (m *RootModel) refresh() tea.Cmd {
	switch m.shown {
	case ViewBoard:
		return m.boardView.Refresh()
	case ViewAdmin:
		return m.adminView.Refresh()
	case ViewStats:
		return tea.Batch(m.boardView.Refresh(), m.statsView.Init())
	}
	return nil
}

func (m *RootModel) fetchCurrentUser() tea.Cmd {
	m.fetchingUser = true
	ctx, users := m.ctx, m.app.Users
	return func() tea.Msg {
		users.FetchCurrentUser(ctx)
		return currentUserMsg{}
	}
}

func (m RootModel) isInputMode() bool {
	switch m.shown {
	case ViewLogin:
		return m.loginView.IsInputMode()
	case ViewBoard:
		return m.boardView.IsInputMode()
	case ViewAdmin:
		return m.adminView.IsInputMode()
	case ViewStats:
		return m.statsView.IsInputMode()
	}
	return false
}

func (m RootModel) loading() bool {
	return m.booting || m.app.Session.Loading() || m.app.Tasks.Loading() || m.app.Users.Loading()
}

// View renders the UI
func (m RootModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())

	// Reserve: 1 line for header + 3 lines for footer
	contentHeight := m.height - 4
	var content string
	switch {
	case m.helpVisible:
		content = m.renderHelp()
	case m.shown == ViewChecking:
		content = lipgloss.Place(m.width, contentHeight, lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" Checking your session...")
	case m.shown == ViewLogin:
		content = m.loginView.View()
	case m.shown == ViewBoard:
		content = m.boardView.View()
	case m.shown == ViewAdmin:
		content = m.adminView.View()
	case m.shown == ViewStats:
		content = m.statsView.View()
	}

	// Ensure content fills available space
	contentLines := strings.Count(content, "\n") + 1
	if contentLines < contentHeight {
		content += strings.Repeat("\n", contentHeight-contentLines)
	}
	sections = append(sections, content)
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

// renderHeader renders the header bar
func (m RootModel) renderHeader() string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	title := styles.Header.Render("taskboard")
	dim := lipgloss.NewStyle().Foreground(t.Subtle).Padding(0, 1)
	left := lipgloss.JoinHorizontal(lipgloss.Center, title, dim.Render(fmt.Sprintf("[%s]", m.shown)))
	if m.loading() {
		left = lipgloss.JoinHorizontal(lipgloss.Center, left, m.spinner.View())
	}

	var right []string
	if u := m.app.Session.State().User; u != nil {
		right = append(right, styles.StatusValue.Render(displayName(u)))
		if m.app.Users.IsAdmin() {
			right = append(right, styles.Badge.Render("admin"))
		}
	}
	right = append(right, dim.Render("theme: "+t.Name))
	rightSide := strings.Join(right, " ")

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(rightSide), 0)
	return left + strings.Repeat(" ", gap) + rightSide
}

// renderFooter renders the error banner, status line and key hints
func (m RootModel) renderFooter() string {
	styles := theme.Current.Styles

	hint := func(k, desc string) string {
		return styles.HelpKey.Render(k) + styles.HelpDesc.Render(" "+desc)
	}
	sep := styles.HelpDesc.Render(" │ ")

	var lines []string
	if msg := m.errorMessage(); msg != "" {
		lines = append(lines, styles.ErrorBanner.Render(msg))
	} else if m.statusMsg != "" {
		lines = append(lines, styles.Notice.Render(m.statusMsg))
	}

	switch m.shown {
	case ViewLogin, ViewChecking:
		lines = append(lines, hint("tab", "next field")+sep+hint("C-t", "theme")+sep+hint("C-c", "quit"))
	default:
		h := m.help
		h.Styles.ShortKey = styles.HelpKey
		h.Styles.ShortDesc = styles.HelpDesc
		h.Styles.ShortSeparator = styles.HelpDesc
		lines = append(lines, h.View(m.keys))
	}

	return strings.Join(lines, "\n")
}

// errorMessage returns the first store error worth showing
func (m RootModel) errorMessage() string {
	if msg := m.app.Tasks.Error(); msg != "" {
		return msg
	}
	return m.app.Users.Error()
}

// renderHelp renders the help overlay
func (m RootModel) renderHelp() string {
	t := theme.Current.Theme

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(t.Primary).MarginBottom(1)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(t.Secondary).MarginTop(1)
	keyStyle := lipgloss.NewStyle().Foreground(t.Foreground).Bold(true).Width(14)
	descStyle := lipgloss.NewStyle().Foreground(t.Subtle)

	sections := []struct {
		name string
		keys [][2]string
	}{
		{"Board", [][2]string{
			{"h/l j/k", "Move between columns and cards"},
			{"H / L", "Move task to the previous/next column"},
			{"a", "Add a task to the current column"},
			{"e / E", "Edit title / description"},
			{"t", "Log time (1-480 minutes)"},
			{"T", "Set total time (increase only)"},
			{"o / O", "Assign to me / unassign"},
			{"i", "Suggest a description"},
			{"d", "Hide task until the next refresh"},
			{"/", "Filter by text"},
		}},
		{"Users (admins)", [][2]string{
			{"e", "Edit name and email"},
			{"d", "Delete user"},
		}},
		{"Global", [][2]string{
			{"1 / 2 / 3", "Board / users / stats"},
			{"r", "Refresh"},
			{"ctrl+t", "Cycle theme"},
			{"ctrl+l", "Log out"},
			{"q / ctrl+c", "Quit"},
		}},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("taskboard help"))
	b.WriteString("\n")
	for _, s := range sections {
		b.WriteString(sectionStyle.Render(s.name))
		b.WriteString("\n")
		for _, kv := range s.keys {
			b.WriteString(keyStyle.Render(kv[0]))
			b.WriteString(descStyle.Render(kv[1]))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(descStyle.Render("Press ? or esc to close"))
	return b.String()
}

func displayName(u *model.AuthUser) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// cycleTheme cycles through available themes
func (m *RootModel) cycleTheme() {
	themes := theme.Available()
	current := theme.Current.Theme.Name

	for i, t := range themes {
		if t.Name == current {
			next := themes[(i+1)%len(themes)]
			theme.SetTheme(next)
			m.statusMsg = fmt.Sprintf("Theme: %s", next.Name)
			return
		}
	}
}
