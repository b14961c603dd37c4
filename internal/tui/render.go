package tui

import (
	"fmt"
	"strings"

	"tend-cli/internal/model"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	faintStyle  = lipgloss.NewStyle().Faint(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	colStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
	colTitleStyle = lipgloss.NewStyle().Bold(true).Underline(true)

	selectedStyle = lipgloss.NewStyle().Reverse(true)
	inFlightStyle = lipgloss.NewStyle().Faint(true).Italic(true)
	holdStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

func (m boardModel) View() string {
	cols := m.columns()
	mm := m
	mm.clampSelection(cols)

	header := headerStyle.Render(fmt.Sprintf("tend  %s · %s", m.st.CurrentView(), m.listLabel()))
	if m.st.Loading() {
		header += faintStyle.Render("  loading…")
	}

	body := mm.renderColumns(cols)

	var footer string
	switch {
	case m.adding:
		footer = m.input.View()
	case m.st.Err() != "":
		footer = errStyle.Render(m.st.Err())
	case m.status != "":
		footer = errStyle.Render(m.status)
	default:
		footer = faintStyle.Render("tab: view  [ ]: list  </>: move  c: done  d: delete  u: restore  a: add  m: mode  r: reload  q: quit")
	}

	return strings.Join([]string{header, body, footer}, "\n\n")
}

func (m boardModel) listLabel() string {
	id := m.st.CurrentListID()
	if id == "" || id == model.AllLists {
		return "all lists"
	}
	if l, ok := m.st.List(id); ok {
		return l.Name
	}
	return id
}

func (m boardModel) renderColumns(cols []column) string {
	width := m.width
	if width <= 0 {
		width = 100
	}
	colWidth := width/max(len(cols), 1) - 4
	if colWidth < 16 {
		colWidth = 16
	}

	rendered := make([]string, len(cols))
	for i, c := range cols {
		var b strings.Builder
		b.WriteString(colTitleStyle.Render(fmt.Sprintf("%s (%d)", c.title, len(c.items))))
		b.WriteString("\n")
		if len(c.items) == 0 {
			b.WriteString(faintStyle.Render("none"))
		}
		for j, it := range c.items {
			line := m.renderItem(it, colWidth)
			if i == m.col && j == m.row {
				line = selectedStyle.Render(line)
			}
			b.WriteString("\n" + line)
		}
		rendered[i] = colStyle.Width(colWidth).Render(b.String())
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m boardModel) renderItem(it model.Item, width int) string {
	title := it.Title
	// Truncate by runes so multi-byte titles never split mid-character.
	if limit := width - 6; limit > 0 {
		if r := []rune(title); len(r) > limit {
			title = string(r[:limit-1]) + "…"
		}
	}

	marker := " "
	switch {
	case it.Type == model.TypeTask && it.Priority == model.PriorityNow:
		marker = "!"
	case it.Type == model.TypeTask && it.Priority == model.PriorityHigh:
		marker = "^"
	}

	line := marker + " " + title
	switch {
	case m.st.InFlight(it.ID):
		return inFlightStyle.Render(line + " …")
	case it.OnHold():
		return holdStyle.Render(line + " ⏸")
	case len(it.Notes) > 0:
		return line + faintStyle.Render(fmt.Sprintf(" [%d]", len(it.Notes)))
	}
	return line
}
