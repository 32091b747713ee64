package views

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dori/taskboard/internal/model"
	"github.com/dori/taskboard/internal/session"
	"github.com/dori/taskboard/internal/tasks"
	"github.com/dori/taskboard/internal/ui/theme"
)

// BoardMode represents the current input mode
type BoardMode int

const (
	BoardModeNormal BoardMode = iota
	BoardModeAdd
	BoardModeEditTitle
	BoardModeEditDescription
	BoardModeLogTime
	BoardModeSetTotal
	BoardModeSearch
	BoardModeConfirmHide
)

// columns in board order
var boardColumns = model.Statuses()

// BoardView is the three-column task board
type BoardView struct {
	ctx     context.Context
	tasks   *tasks.Store
	session *session.Store
	width   int
	height  int

	// Navigation state
	column       int
	cursorRow    int
	columnScroll [3]int

	// Input mode
	mode      BoardMode
	textInput textinput.Model
	targetID  string

	searchFilter string
}

// NewBoardView creates a board over the tasks store
func NewBoardView(ctx context.Context, store *tasks.Store, sess *session.Store) BoardView {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 256

	return BoardView{
		ctx:       ctx,
		tasks:     store,
		session:   sess,
		textInput: ti,
	}
}

// Init fetches the task list
func (v BoardView) Init() tea.Cmd {
	return v.Refresh()
}

// Refresh re-fetches the task list
func (v BoardView) Refresh() tea.Cmd {
	return run(v.ctx, SourceTasks, v.tasks.FetchTasks)
}

// SetSize sets the view dimensions
func (v BoardView) SetSize(width, height int) BoardView {
	v.width = width
	v.height = height
	return v
}

// Update handles messages
func (v BoardView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StoreChangedMsg:
		if msg.Source == SourceTasks {
			v.clampCursor()
		}
		return v, nil

	case tea.KeyMsg:
		switch v.mode {
		case BoardModeNormal:
			return v.handleNormalMode(msg)
		case BoardModeConfirmHide:
			return v.handleConfirmHideMode(msg)
		default:
			return v.handleInputMode(msg)
		}
	}

	if v.IsInputMode() {
		var cmd tea.Cmd
		v.textInput, cmd = v.textInput.Update(msg)
		return v, cmd
	}
	return v, nil
}

// handleNormalMode handles keys in normal mode
func (v BoardView) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	task, hasTask := v.selected()

	switch msg.String() {
	// Column navigation
	case "h", "left":
		if v.column > 0 {
			v.column--
			v.clampCursor()
		}

	case "l", "right":
		if v.column < len(boardColumns)-1 {
			v.column++
			v.clampCursor()
		}

	// Row navigation
	case "j", "down":
		if v.cursorRow < len(v.filteredColumn(v.column))-1 {
			v.cursorRow++
			v.ensureCursorVisible()
		}

	case "k", "up":
		if v.cursorRow > 0 {
			v.cursorRow--
			v.ensureCursorVisible()
		}

	case "g":
		v.cursorRow = 0
		v.columnScroll[v.column] = 0

	case "G":
		if col := v.filteredColumn(v.column); len(col) > 0 {
			v.cursorRow = len(col) - 1
			v.ensureCursorVisible()
		}

	// Move task between columns
	case "H":
		return v, v.moveTask(-1)
	case "L":
		return v, v.moveTask(1)

	case "a":
		return v.prompt(BoardModeAdd, "", "New task..."), nil

	case "e", "enter":
		if hasTask {
			return v.prompt(BoardModeEditTitle, task.Title, ""), nil
		}

	case "E":
		if hasTask {
			return v.prompt(BoardModeEditDescription, task.Description, "Description..."), nil
		}

	case "t":
		if hasTask {
			return v.prompt(BoardModeLogTime, "", fmt.Sprintf("minutes (%d-%d)", tasks.MinLogMinutes, tasks.MaxLogMinutes)), nil
		}

	case "T":
		if hasTask {
			return v.prompt(BoardModeSetTotal, strconv.Itoa(task.TotalMinutes), "total minutes"), nil
		}

	case "i":
		if hasTask {
			return v, v.suggestDescription(task)
		}

	case "o":
		if hasTask {
			if user := v.session.State().User; user != nil {
				id, assignee := task.ID, user.ID
				return v, run(v.ctx, SourceTasks, func(ctx context.Context) {
					v.tasks.AssignTask(ctx, id, assignee)
				})
			}
		}

	case "O":
		if hasTask && task.Assignee != nil {
			id, none := task.ID, ""
			return v, run(v.ctx, SourceTasks, func(ctx context.Context) {
				v.tasks.UpdateTask(ctx, id, model.TaskPatch{AssigneeID: &none})
			})
		}

	case "d":
		if hasTask {
			v.targetID = task.ID
			v.mode = BoardModeConfirmHide
		}

	case "/":
		return v.prompt(BoardModeSearch, v.searchFilter, "Search..."), nil

	case "esc":
		if v.searchFilter != "" {
			v.searchFilter = ""
			v.clampCursor()
			return v, notice("Filter cleared")
		}
	}

	return v, nil
}

// prompt switches to an input mode aimed at the selected task
func (v BoardView) prompt(mode BoardMode, value, placeholder string) BoardView {
	if task, ok := v.selected(); ok {
		v.targetID = task.ID
	}
	v.mode = mode
	v.textInput.SetValue(value)
	v.textInput.Placeholder = placeholder
	v.textInput.Focus()
	v.textInput.CursorEnd()
	return v
}

func (v BoardView) closePrompt() BoardView {
	v.mode = BoardModeNormal
	v.textInput.Blur()
	v.targetID = ""
	return v
}

// handleInputMode handles keys while a text prompt is open
func (v BoardView) handleInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return v.closePrompt(), nil
	case "enter":
		value := strings.TrimSpace(v.textInput.Value())
		mode, id := v.mode, v.targetID

		if mode == BoardModeSearch {
			v.searchFilter = value
			v.cursorRow = 0
			v.columnScroll = [3]int{}
			return v.closePrompt(), nil
		}

		cmd, problem := v.submit(mode, id, value)
		if problem != "" {
			// keep the prompt open so the value can be fixed
			return v, notice(problem)
		}
		return v.closePrompt(), cmd
	}

	var cmd tea.Cmd
	v.textInput, cmd = v.textInput.Update(msg)
	return v, cmd
}

// submit validates a prompt value and returns the store action for it
func (v BoardView) submit(mode BoardMode, id, value string) (tea.Cmd, string) {
	switch mode {
	case BoardModeAdd:
		if value == "" {
			return nil, "Title must not be empty"
		}
		status := boardColumns[v.column]
		return run(v.ctx, SourceTasks, func(ctx context.Context) {
			v.tasks.CreateTask(ctx, model.NewTask{Title: value, Status: status})
		}), ""

	case BoardModeEditTitle:
		if value == "" {
			return nil, "Title must not be empty"
		}
		return run(v.ctx, SourceTasks, func(ctx context.Context) {
			v.tasks.UpdateTask(ctx, id, model.TaskPatch{Title: &value})
		}), ""

	case BoardModeEditDescription:
		return run(v.ctx, SourceTasks, func(ctx context.Context) {
			v.tasks.UpdateTask(ctx, id, model.TaskPatch{Description: &value})
		}), ""

	case BoardModeLogTime:
		minutes, err := strconv.Atoi(value)
		if err != nil || minutes < tasks.MinLogMinutes || minutes > tasks.MaxLogMinutes {
			return nil, fmt.Sprintf("Enter between %d and %d minutes", tasks.MinLogMinutes, tasks.MaxLogMinutes)
		}
		return run(v.ctx, SourceTasks, func(ctx context.Context) {
			v.tasks.UpdateTaskTime(ctx, id, minutes)
		}), ""

	case BoardModeSetTotal:
		total, err := strconv.Atoi(value)
		if err != nil || total < 0 {
			return nil, "Enter a whole number of minutes"
		}
		return run(v.ctx, SourceTasks, func(ctx context.Context) {
			v.tasks.UpdateTask(ctx, id, model.TaskPatch{TotalMinutes: &total})
		}), ""
	}
	return nil, ""
}

// handleConfirmHideMode handles keys in hide confirmation mode
func (v BoardView) handleConfirmHideMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		id := v.targetID
		v.mode = BoardModeNormal
		v.targetID = ""
		v.tasks.DeleteTask(id)
		v.clampCursor()
		return v, notice("Task hidden until the next refresh")
	case "n", "N", "esc":
		v.mode = BoardModeNormal
		v.targetID = ""
	}
	return v, nil
}

// moveTask moves the selected task one column left or right
func (v BoardView) moveTask(direction int) tea.Cmd {
	task, ok := v.selected()
	if !ok {
		return nil
	}
	target := v.column + direction
	if target < 0 || target >= len(boardColumns) {
		return nil
	}
	id, status := task.ID, boardColumns[target]
	return run(v.ctx, SourceTasks, func(ctx context.Context) {
		v.tasks.UpdateTaskStatus(ctx, id, status)
	})
}

// suggestDescription drafts a description and saves it on the task
func (v BoardView) suggestDescription(task model.Task) tea.Cmd {
	id, title := task.ID, task.Title
	return run(v.ctx, SourceTasks, func(ctx context.Context) {
		if desc, ok := v.tasks.SuggestDescription(ctx, title); ok {
			v.tasks.UpdateTask(ctx, id, model.TaskPatch{Description: &desc})
		}
	})
}

func notice(text string) tea.Cmd {
	return func() tea.Msg { return NoticeMsg{Text: text} }
}

// selected returns the task under the cursor
func (v BoardView) selected() (model.Task, bool) {
	col := v.filteredColumn(v.column)
	if v.cursorRow < len(col) {
		return col[v.cursorRow], true
	}
	return model.Task{}, false
}

// filteredColumn returns a column's tasks after the search filter
func (v BoardView) filteredColumn(index int) []model.Task {
	all := v.tasks.ByStatus(boardColumns[index])
	if v.searchFilter == "" {
		return all
	}
	needle := strings.ToLower(v.searchFilter)
	var out []model.Task
	for _, t := range all {
		if strings.Contains(strings.ToLower(t.Title), needle) ||
			strings.Contains(strings.ToLower(t.Description), needle) {
			out = append(out, t)
		}
	}
	return out
}

// clampCursor ensures cursor is valid for current column
func (v *BoardView) clampCursor() {
	n := len(v.filteredColumn(v.column))
	if v.cursorRow >= n {
		v.cursorRow = max(n-1, 0)
	}
	v.ensureCursorVisible()
}

// ensureCursorVisible adjusts scroll to keep cursor in view
func (v *BoardView) ensureCursorVisible() {
	visible := v.visibleItemCount()
	if v.cursorRow >= v.columnScroll[v.column]+visible {
		v.columnScroll[v.column] = v.cursorRow - visible + 1
	}
	if v.cursorRow < v.columnScroll[v.column] {
		v.columnScroll[v.column] = v.cursorRow
	}
}

// visibleItemCount returns how many cards fit in a column; each card
// takes two lines
func (v *BoardView) visibleItemCount() int {
	n := (v.height - 10) / 2
	if n < 1 {
		return 5
	}
	return n
}

// View renders the board
func (v BoardView) View() string {
	if v.width == 0 || v.height == 0 {
		return "Loading..."
	}

	t := theme.Current.Theme
	styles := theme.Current.Styles

	colWidth := (v.width - 2) / len(boardColumns)
	if colWidth < 24 {
		colWidth = 24
	}
	innerWidth := colWidth - 4

	visible := v.visibleItemCount()
	var cols []string
	for i, status := range boardColumns {
		list := v.filteredColumn(i)
		active := i == v.column

		header := lipgloss.NewStyle().
			Bold(true).
			Foreground(t.StatusColor(status)).
			Width(innerWidth).
			Align(lipgloss.Center).
			Render(fmt.Sprintf("%s (%d)", status.Label(), len(list)))

		items := []string{header}
		start := min(v.columnScroll[i], len(list))
		end := min(start+visible, len(list))
		if start > 0 {
			items = append(items, styles.Meta.Width(innerWidth).Render(fmt.Sprintf("↑ %d more", start)))
		}
		for j := start; j < end; j++ {
			items = append(items, v.renderCard(list[j], active && j == v.cursorRow, innerWidth))
		}
		if end < len(list) {
			items = append(items, styles.Meta.Width(innerWidth).Render(fmt.Sprintf("↓ %d more", len(list)-end)))
		}
		if len(list) == 0 {
			items = append(items, styles.Placeholder.Italic(true).Render("(empty)"))
		}

		cs := styles.Column
		if active {
			cs = styles.ColumnFocused
		}
		cols = append(cols, cs.Width(colWidth-2).Height(v.height-6).Render(strings.Join(items, "\n")))
	}
	board := lipgloss.JoinHorizontal(lipgloss.Top, cols...)

	return lipgloss.JoinVertical(lipgloss.Left, board, v.renderDetail(), v.renderPrompt())
}

// renderCard renders one task as a title line and a meta line
func (v BoardView) renderCard(task model.Task, selected bool, width int) string {
	styles := theme.Current.Styles

	style := styles.Card
	if selected {
		style = styles.CardSelected
	}
	title := style.Width(width).Render(truncate(task.Title, width-2))

	meta := "unassigned"
	if task.Assignee != nil {
		meta = "@" + task.Assignee.FirstName
	}
	if task.TotalMinutes > 0 {
		meta += " · " + model.FormatMinutes(task.TotalMinutes)
	}
	return title + "\n" + styles.Meta.Width(width).Render(truncate(meta, width-2))
}

// renderDetail shows the selected task's description and counters
func (v BoardView) renderDetail() string {
	styles := theme.Current.Styles

	stats := v.tasks.Stats()
	summary := fmt.Sprintf("%d tasks · %d%% done · %s logged",
		stats.Total, stats.CompletionPercent(), model.FormatMinutes(stats.TotalMinutes))
	if hidden := len(v.tasks.Hidden()); hidden > 0 {
		summary += fmt.Sprintf(" · %d hidden", hidden)
	}
	if v.searchFilter != "" {
		summary += fmt.Sprintf(" · filter %q", v.searchFilter)
	}

	task, ok := v.selected()
	if !ok {
		return styles.Label.Render(summary)
	}
	desc := task.Description
	if desc == "" {
		desc = "No description"
	}
	line := fmt.Sprintf("%s by %s: %s", task.Title, task.Creator.FullName(), desc)
	return styles.Label.Render(summary) + "\n" + styles.Subtitle.Render(truncate(line, v.width-2))
}

// renderPrompt renders the active input or the key hints
func (v BoardView) renderPrompt() string {
	t := theme.Current.Theme
	styles := theme.Current.Styles
	input := styles.InputFocused.Width(v.width - 4)

	switch v.mode {
	case BoardModeAdd:
		return input.Render(fmt.Sprintf("Add to %s: %s", boardColumns[v.column].Label(), v.textInput.View()))
	case BoardModeEditTitle:
		return input.Render("Title: " + v.textInput.View())
	case BoardModeEditDescription:
		return input.Render("Description: " + v.textInput.View())
	case BoardModeLogTime:
		return input.Render("Log time: " + v.textInput.View())
	case BoardModeSetTotal:
		return input.Render("Total time: " + v.textInput.View())
	case BoardModeSearch:
		return input.Render("Search: " + v.textInput.View())
	case BoardModeConfirmHide:
		title := ""
		if task, ok := v.tasks.Task(v.targetID); ok {
			title = task.Title
		}
		return lipgloss.NewStyle().Foreground(t.Error).Bold(true).
			Render(fmt.Sprintf("Hide '%s' from the board? (y/n)", title))
	}

	return styles.Footer.Render(
		"h/l: column • j/k: nav • H/L: move • a: add • e/E: edit • t: log time • o/O: assign • i: suggest • d: hide • /: search",
	)
}

// IsInputMode returns true if the view is capturing text input
func (v BoardView) IsInputMode() bool {
	return v.mode != BoardModeNormal && v.mode != BoardModeConfirmHide
}
