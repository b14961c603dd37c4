package tui

import (
	"context"
	"strings"
	"time"

	"tend-cli/internal/gateway"
	"tend-cli/internal/model"
	"tend-cli/internal/prefs"
	"tend-cli/internal/quickadd"
	"tend-cli/internal/realtime"
	"tend-cli/internal/store"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the interactive board and blocks until the user quits. The
// realtime manager feeds collaborator edits into the store while the board
// is up; a periodic tick repaints so date buckets stay current.
func Run(ctx context.Context, st *store.Store, gw gateway.Gateway, ps *prefs.Store) error {
	mgr := realtime.NewManager(gw, st, st)
	mgr.Start(ctx)
	defer mgr.Stop()

	m := newBoardModel(st, ps)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

type tickMsg struct{}

func tick() tea.Cmd {
	return tea.Tick(2*time.Second, func(time.Time) tea.Msg { return tickMsg{} })
}

var viewOrder = []model.View{
	model.ViewTasks, model.ViewReminders, model.ViewRecurring,
	model.ViewComplete, model.ViewTrash,
}

type boardModel struct {
	st    *store.Store
	prefs *prefs.Store

	width  int
	height int

	col int
	row int

	adding bool
	input  textinput.Model

	status string
}

func newBoardModel(st *store.Store, ps *prefs.Store) boardModel {
	in := textinput.New()
	in.Placeholder = `quick add: "call mom tomorrow at 6pm #Family"`
	in.CharLimit = 200
	return boardModel{st: st, prefs: ps, input: in}
}

func (m boardModel) Init() tea.Cmd { return tick() }

// columnStatuses is the status domain of the current view, minus complete
// (which has its own view). Trash and complete render as a single column.
func (m boardModel) columnStatuses() []model.Status {
	switch m.st.CurrentView() {
	case model.ViewTasks:
		return []model.Status{model.StatusStart, model.StatusInProgress}
	case model.ViewReminders:
		return []model.Status{model.StatusToday, model.StatusWithin7, model.StatusSevenPlus}
	case model.ViewRecurring:
		return []model.Status{
			model.Status(model.FreqDaily), model.Status(model.FreqWeekly),
			model.Status(model.FreqMonthly), model.Status(model.FreqYearly),
		}
	default:
		return nil
	}
}

// columns groups the filtered items for rendering. In category display mode
// the tasks view groups by category instead of status.
func (m boardModel) columns() []column {
	items := m.st.FilteredItems()
	v := m.st.CurrentView()

	if v == model.ViewTasks && m.st.DisplayMode() == model.DisplayCategories {
		var cols []column
		idx := map[string]int{}
		for _, c := range m.st.Categories() {
			idx[c] = len(cols)
			title := c
			if title == "" {
				title = "uncategorized"
			}
			cols = append(cols, column{title: title})
		}
		for _, it := range items {
			i, ok := idx[it.Category]
			if !ok {
				continue
			}
			cols[i].items = append(cols[i].items, it)
		}
		if len(cols) == 0 {
			cols = []column{{title: "uncategorized"}}
		}
		return cols
	}

	statuses := m.columnStatuses()
	if statuses == nil {
		title := "trash"
		if v == model.ViewComplete {
			title = "completed"
		}
		return []column{{title: title, items: items}}
	}

	cols := make([]column, len(statuses))
	for i, s := range statuses {
		cols[i] = column{title: string(s), status: s}
	}
	for _, it := range items {
		for i, s := range statuses {
			if it.Status == s {
				cols[i].items = append(cols[i].items, it)
				break
			}
		}
	}
	return cols
}

type column struct {
	title  string
	status model.Status
	items  []model.Item
}

func (m *boardModel) clampSelection(cols []column) {
	if m.col >= len(cols) {
		m.col = len(cols) - 1
	}
	if m.col < 0 {
		m.col = 0
	}
	if len(cols) == 0 {
		m.row = 0
		return
	}
	if m.row >= len(cols[m.col].items) {
		m.row = len(cols[m.col].items) - 1
	}
	if m.row < 0 {
		m.row = 0
	}
}

func (m boardModel) selected(cols []column) (model.Item, bool) {
	if m.col >= len(cols) || m.row >= len(cols[m.col].items) {
		return model.Item{}, false
	}
	return cols[m.col].items[m.row], true
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		// Repaint; realtime edits and date rollovers show up here.
		return m, tick()

	case tea.KeyMsg:
		if m.adding {
			return m.updateQuickAdd(msg)
		}
		return m.updateBoard(msg)
	}
	return m, nil
}

func (m boardModel) updateQuickAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.adding = false
		m.input.Reset()
		return m, nil
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		m.adding = false
		m.input.Reset()
		if text == "" {
			return m, nil
		}
		m.status = m.quickAdd(text)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *boardModel) quickAdd(text string) string {
	now := time.Now()
	draft := quickadd.Parse(now, text)

	listID := m.st.CurrentListID()
	if draft.ListName != "" {
		for _, l := range m.st.Lists() {
			if strings.EqualFold(l.Name, draft.ListName) {
				listID = l.ID
				break
			}
		}
	}
	if listID == "" || listID == model.AllLists {
		for _, l := range m.st.Lists() {
			if l.IsDefault {
				listID = l.ID
				break
			}
		}
	}

	if _, err := m.st.AddItem(context.Background(), draft.Item(now, listID)); err != nil {
		return err.Error()
	}
	return "added: " + draft.Title
}

func (m boardModel) updateBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cols := m.columns()
	m.clampSelection(cols)
	ctx := context.Background()

	switch msg.String() {
	case "ctrl+c", "q":
		m.savePrefs()
		return m, tea.Quit

	case "tab":
		m.cycleView(1)
		return m, nil
	case "shift+tab":
		m.cycleView(-1)
		return m, nil

	case "left", "h":
		m.col--
	case "right", "l":
		m.col++
	case "up", "k":
		m.row--
	case "down", "j":
		m.row++

	case "[", "]":
		delta := 1
		if msg.String() == "[" {
			delta = -1
		}
		m.cycleList(delta)
		return m, nil

	case "H", "<":
		m.status = m.moveSelected(ctx, cols, -1)
	case "L", ">":
		m.status = m.moveSelected(ctx, cols, 1)

	case "c":
		if it, ok := m.selected(cols); ok {
			m.status = errString(m.st.MoveItem(ctx, it.ID, model.StatusComplete))
		}
	case "d":
		if it, ok := m.selected(cols); ok {
			if m.st.CurrentView() == model.ViewTrash {
				m.status = errString(m.st.PermanentlyDeleteItem(ctx, it.ID))
			} else {
				m.status = errString(m.st.DeleteItem(ctx, it.ID))
			}
		}
	case "u":
		if it, ok := m.selected(cols); ok && it.Deleted() {
			m.status = errString(m.st.RestoreItem(ctx, it.ID))
		}

	case "m":
		if m.st.DisplayMode() == model.DisplayCategories {
			m.st.SetDisplayMode(model.DisplayColumns)
		} else {
			m.st.SetDisplayMode(model.DisplayCategories)
		}
		m.savePrefs()
		return m, nil

	case "a":
		m.adding = true
		m.input.Focus()
		return m, textinput.Blink

	case "r":
		m.status = errString(m.st.Reload(ctx))
	}

	m.clampSelection(m.columns())
	return m, nil
}

// moveSelected shifts the selected item one status column left or right
// within the view's domain.
func (m *boardModel) moveSelected(ctx context.Context, cols []column, delta int) string {
	statuses := m.columnStatuses()
	if statuses == nil {
		return ""
	}
	it, ok := m.selected(cols)
	if !ok {
		return ""
	}
	target := m.col + delta
	if target < 0 || target >= len(statuses) {
		return ""
	}
	if err := m.st.MoveItem(ctx, it.ID, statuses[target]); err != nil {
		return err.Error()
	}
	return ""
}

func (m *boardModel) cycleView(delta int) {
	cur := m.st.CurrentView()
	for i, v := range viewOrder {
		if v == cur {
			next := (i + delta + len(viewOrder)) % len(viewOrder)
			m.st.SetCurrentView(viewOrder[next])
			break
		}
	}
	m.col, m.row = 0, 0
	m.savePrefs()
}

// cycleList steps through "all" plus every list.
func (m *boardModel) cycleList(delta int) {
	ids := []string{model.AllLists}
	for _, l := range m.st.Lists() {
		ids = append(ids, l.ID)
	}
	cur := 0
	for i, id := range ids {
		if id == m.st.CurrentListID() {
			cur = i
			break
		}
	}
	next := (cur + delta + len(ids)) % len(ids)
	m.st.SetCurrentListID(ids[next])
	m.col, m.row = 0, 0
	m.savePrefs()
}

func (m *boardModel) savePrefs() {
	_ = m.prefs.Save(prefs.Prefs{
		CurrentView:   m.st.CurrentView(),
		CurrentListID: m.st.CurrentListID(),
		DisplayMode:   m.st.DisplayMode(),
	})
}

func errString(err error) string {
	if err != nil {
		return err.Error()
	}
	return ""
}
