package views

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dori/taskboard/internal/db"
	"github.com/dori/taskboard/internal/model"
	"github.com/dori/taskboard/internal/tasks"
	"github.com/dori/taskboard/internal/ui/theme"
)

const activityDays = 7

// Local message types for the stats view
type statsLoadedMsg struct {
	daily  []int
	recent []model.TimeEntry
	err    error
}

// StatsView summarises the board and the time logged from this machine
type StatsView struct {
	db     *db.DB
	tasks  *tasks.Store
	width  int
	height int

	daily  []int
	recent []model.TimeEntry
	err    error

	now func() time.Time
}

// NewStatsView creates the stats screen
func NewStatsView(database *db.DB, store *tasks.Store) StatsView {
	return StatsView{
		db:    database,
		tasks: store,
		now:   time.Now,
	}
}

// Init loads the journal
func (v StatsView) Init() tea.Cmd {
	return v.loadStats()
}

// SetSize sets the view dimensions
func (v StatsView) SetSize(width, height int) StatsView {
	v.width = width
	v.height = height
	return v
}

// loadStats reads the time journal
func (v StatsView) loadStats() tea.Cmd {
	database, now := v.db, v.now()
	return func() tea.Msg {
		daily, err := database.DailyMinutes(activityDays, now)
		if err != nil {
			return statsLoadedMsg{err: err}
		}
		recent, err := database.RecentTimeEntries(5)
		return statsLoadedMsg{daily: daily, recent: recent, err: err}
	}
}

// Update handles messages
func (v StatsView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statsLoadedMsg:
		v.daily = msg.daily
		v.recent = msg.recent
		v.err = msg.err
		return v, nil

	case StoreChangedMsg:
		if msg.Source == SourceTasks {
			return v, v.loadStats()
		}
	}
	return v, nil
}

// View renders the UI
func (v StatsView) View() string {
	if v.width == 0 || v.height == 0 {
		return "Loading..."
	}

	t := theme.Current.Theme
	styles := theme.Current.Styles
	stats := v.tasks.Stats()

	var sections []string
	sections = append(sections, styles.Title.Render("Statistics"))

	cardStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 2).
		Width(18)
	labelStyle := lipgloss.NewStyle().Foreground(t.Subtle)
	card := func(value string, color lipgloss.Color, label string) string {
		return cardStyle.Render(
			lipgloss.NewStyle().Bold(true).Foreground(color).Render(value) + "\n" +
				labelStyle.Render(label),
		)
	}

	cards := []string{
		card(fmt.Sprintf("%d", stats.Todo), t.StatusTodo, model.StatusTodo.Label()),
		card(fmt.Sprintf("%d", stats.InProgress), t.StatusInProgress, model.StatusInProgress.Label()),
		card(fmt.Sprintf("%d", stats.Done), t.StatusDone, model.StatusDone.Label()),
		card(model.FormatMinutes(stats.TotalMinutes), t.Primary, "Time Tracked"),
	}
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	sections = append(sections, v.renderProgress(stats), "")

	if v.err != nil {
		sections = append(sections, lipgloss.NewStyle().Foreground(t.Error).Render("Journal unavailable: "+v.err.Error()))
	} else {
		sections = append(sections, v.renderActivityChart(), "", v.renderRecent())
	}

	return strings.Join(sections, "\n")
}

// renderProgress draws the completion bar
func (v StatsView) renderProgress(stats model.Stats) string {
	t := theme.Current.Theme
	width := min(max(v.width-20, 10), 60)
	filled := width * stats.CompletionPercent() / 100

	bar := lipgloss.NewStyle().Foreground(t.Success).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(t.Subtle).Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %d%% done", bar, stats.CompletionPercent())
}

// renderActivityChart draws minutes logged per day for the last week
func (v StatsView) renderActivityChart() string {
	t := theme.Current.Theme

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(t.Secondary)
	lines := []string{headerStyle.Render("Time Logged (Last 7 Days)")}

	maxMinutes := 1
	for _, m := range v.daily {
		maxMinutes = max(maxMinutes, m)
	}

	chartHeight := 5
	barWidth := 5
	for row := chartHeight; row >= 1; row-- {
		var rowStr strings.Builder
		threshold := float64(row) / float64(chartHeight)

		for i, minutes := range v.daily {
			ratio := float64(minutes) / float64(maxMinutes)

			var block string
			switch {
			case ratio >= threshold:
				block = lipgloss.NewStyle().Foreground(t.Success).Render(strings.Repeat("█", barWidth))
			case ratio >= threshold-0.2 && ratio > 0:
				block = lipgloss.NewStyle().Foreground(t.Secondary).Render(strings.Repeat("▄", barWidth))
			default:
				block = strings.Repeat(" ", barWidth)
			}

			rowStr.WriteString(block)
			if i < len(v.daily)-1 {
				rowStr.WriteString(" ")
			}
		}
		lines = append(lines, rowStr.String())
	}

	cell := lipgloss.NewStyle().Width(barWidth).Align(lipgloss.Center)
	var labels, totals []string
	start := v.now().AddDate(0, 0, -(len(v.daily) - 1))
	for i, minutes := range v.daily {
		labels = append(labels, cell.Foreground(t.Subtle).Render(start.AddDate(0, 0, i).Format("Mon")))
		totals = append(totals, cell.Foreground(t.Foreground).Render(shortMinutes(minutes)))
	}
	lines = append(lines, strings.Join(labels, " "), strings.Join(totals, " "))

	return strings.Join(lines, "\n")
}

// shortMinutes fits a duration into a chart cell
func shortMinutes(m int) string {
	if m >= 60 {
		return fmt.Sprintf("%dh", m/60)
	}
	return fmt.Sprintf("%dm", m)
}

// renderRecent lists the newest journal entries
func (v StatsView) renderRecent() string {
	t := theme.Current.Theme
	styles := theme.Current.Styles

	lines := []string{lipgloss.NewStyle().Bold(true).Foreground(t.Secondary).Render("Recent Time Logs")}
	if len(v.recent) == 0 {
		return strings.Join(append(lines, styles.Placeholder.Render("Nothing logged from this machine yet")), "\n")
	}
	for _, e := range v.recent {
		lines = append(lines, fmt.Sprintf("%s  %s  %s",
			styles.Label.Render(e.LoggedAt.Local().Format("Jan 2 15:04")),
			lipgloss.NewStyle().Foreground(t.Success).Render("+"+model.FormatMinutes(e.Minutes)),
			truncate(e.TaskTitle, max(v.width-30, 10)),
		))
	}
	return strings.Join(lines, "\n")
}

// IsInputMode returns true if the view is capturing text input
func (v StatsView) IsInputMode() bool {
	return false
}
