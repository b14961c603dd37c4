package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"tend-cli/internal/dates"
	"tend-cli/internal/model"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

func newItemsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Item commands",
	}
	cmd.AddCommand(newItemsAddCmd(app))
	cmd.AddCommand(newItemsListCmd(app))
	cmd.AddCommand(newItemsShowCmd(app))
	cmd.AddCommand(newItemsUpdateCmd(app))
	cmd.AddCommand(newItemsCompleteCmd(app))
	cmd.AddCommand(newItemsMoveCmd(app))
	cmd.AddCommand(newItemsCategoriesCmd(app))
	return cmd
}

func newItemsAddCmd(app *App) *cobra.Command {
	var (
		itemType string
		priority string
		listRef  string
		category string
		dateText string
		every    string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task or reminder",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, cleanup, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer cleanup()

			it := model.Item{
				Title:    strings.TrimSpace(strings.Join(args, " ")),
				Type:     model.ItemType(itemType),
				Priority: model.Priority(priority),
				Category: category,
			}
			now := time.Now()
			if dateText != "" {
				d, ok := dates.ParseDate(now, dateText)
				if !ok {
					return writeErr(cmd, fmt.Errorf("could not understand date: %q", dateText))
				}
				it.ReminderDate = &d
				it.Type = model.TypeReminder
			}
			if every != "" {
				rec, ok := dates.ParseRecurrence(now, every)
				if !ok {
					return writeErr(cmd, fmt.Errorf("could not understand recurrence: %q", every))
				}
				it.Recurrence = &rec
				it.Type = model.TypeReminder
			}

			if listRef != "" {
				id, err := resolveListID(st, listRef)
				if err != nil {
					return writeErr(cmd, err)
				}
				it.ListID = id
			} else {
				id, err := defaultListID(st)
				if err != nil {
					return writeErr(cmd, err)
				}
				it.ListID = id
			}

			id, err := st.AddItem(cmd.Context(), it)
			if err != nil {
				return writeErr(cmd, err)
			}
			created, _ := st.Item(id)
			return writeOut(cmd, app, map[string]any{"data": created})
		},
	}

	cmd.Flags().StringVar(&itemType, "type", "", "Item type (task|reminder; inferred when omitted)")
	cmd.Flags().StringVar(&priority, "priority", "", "Task priority (now|high|low)")
	cmd.Flags().StringVar(&listRef, "list", "", "Target list (name or id; default list when omitted)")
	cmd.Flags().StringVar(&category, "category", "", "Task category")
	cmd.Flags().StringVar(&dateText, "date", "", "Reminder date, natural language (\"tomorrow at 3pm\")")
	cmd.Flags().StringVar(&every, "every", "", "Recurrence, natural language (\"every tuesday at 9\")")
	return cmd
}

func newItemsListCmd(app *App) *cobra.Command {
	var (
		viewName string
		listRef  string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items for a view",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, cleanup, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer cleanup()

			if viewName != "" {
				v := model.View(viewName)
				if !v.IsValid() {
					return writeErr(cmd, fmt.Errorf("unknown view: %s", viewName))
				}
				st.SetCurrentView(v)
			}
			if listRef != "" {
				id, err := resolveListID(st, listRef)
				if err != nil {
					return writeErr(cmd, err)
				}
				st.SetCurrentListID(id)
			}
			app.savePrefs(st)

			items := st.FilteredItems()
			if tableFormat(app) {
				return writeItemTable(cmd, items, st.Lists())
			}
			return writeOut(cmd, app, map[string]any{
				"data": items,
				"meta": map[string]any{"view": st.CurrentView(), "listId": st.CurrentListID()},
			})
		},
	}

	cmd.Flags().StringVar(&viewName, "view", "", "View (tasks|reminders|recurring|trash|complete)")
	cmd.Flags().StringVar(&listRef, "list", "", "Filter to one list (name or id; \"all\" for every list)")
	return cmd
}

func newItemsShowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <item-id>",
		Short: "Show one item with its notes and attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, cleanup, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer cleanup()

			it, ok := st.Item(args[0])
			if !ok {
				return writeErr(cmd, fmt.Errorf("item not found: %s", args[0]))
			}
			if !tableFormat(app) {
				return writeOut(cmd, app, map[string]any{"data": it})
			}

			out, err := glamour.Render(itemMarkdown(it), "auto")
			if err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	return cmd
}

// itemMarkdown renders an item as markdown for the human-readable show view.
func itemMarkdown(it model.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", it.Title)
	fmt.Fprintf(&b, "`%s` · status **%s**", it.Type, it.Status)
	if it.Type == model.TypeTask {
		fmt.Fprintf(&b, " · priority **%s**", it.Priority)
		if it.Category != "" {
			fmt.Fprintf(&b, " · category **%s**", it.Category)
		}
	}
	if it.OnHold() {
		b.WriteString(" · **on hold**")
	}
	b.WriteString("\n")
	if it.ReminderDate != nil {
		fmt.Fprintf(&b, "\nDue %s\n", it.ReminderDate.Local().Format("Monday, Jan 2 2006 15:04"))
	}
	if it.Recurrence != nil {
		fmt.Fprintf(&b, "\nRepeats %s", it.Recurrence.Frequency)
		if it.Recurrence.TimeOfDay != "" {
			fmt.Fprintf(&b, " at %s", it.Recurrence.TimeOfDay)
		}
		b.WriteString("\n")
	}
	if len(it.Notes) > 0 {
		b.WriteString("\n## Notes\n\n")
		// Newest note first.
		notes := append([]model.Note(nil), it.Notes...)
		sort.SliceStable(notes, func(i, j int) bool { return notes[i].CreatedAt.After(notes[j].CreatedAt) })
		for _, n := range notes {
			fmt.Fprintf(&b, "- %s\n", n.Content)
		}
	}
	if len(it.Attachments) > 0 {
		b.WriteString("\n## Attachments\n\n")
		for _, a := range it.Attachments {
			fmt.Fprintf(&b, "- %s (%d bytes)\n", a.Name, a.SizeBytes)
		}
	}
	return b.String()
}

func newItemsUpdateCmd(app *App) *cobra.Command {
	var (
		title     string
		priority  string
		category  string
		listRef   string
		dateText  string
		every     string
		clearDate bool
	)

	cmd := &cobra.Command{
		Use:   "update <item-id>",
		Short: "Update item fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, cleanup, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer cleanup()

			var patch model.ItemPatch
			if cmd.Flags().Changed("title") {
				patch.Title = model.Set(strings.TrimSpace(title))
			}
			if cmd.Flags().Changed("priority") {
				patch.Priority = model.Set(model.Priority(priority))
			}
			if cmd.Flags().Changed("category") {
				if category == "" {
					patch.Category = model.Clear[string]()
				} else {
					patch.Category = model.Set(category)
				}
			}
			if listRef != "" {
				id, err := resolveListID(st, listRef)
				if err != nil {
					return writeErr(cmd, err)
				}
				patch.ListID = model.Set(id)
			}
			now := time.Now()
			if clearDate {
				patch.ReminderDate = model.Clear[time.Time]()
				patch.Recurrence = model.Clear[model.Recurrence]()
			}
			if dateText != "" {
				d, ok := dates.ParseDate(now, dateText)
				if !ok {
					return writeErr(cmd, fmt.Errorf("could not understand date: %q", dateText))
				}
				patch.ReminderDate = model.Set(d)
			}
			if every != "" {
				rec, ok := dates.ParseRecurrence(now, every)
				if !ok {
					return writeErr(cmd, fmt.Errorf("could not understand recurrence: %q", every))
				}
				patch.Recurrence = model.Set(rec)
			}

			if err := st.UpdateItem(cmd.Context(), args[0], patch); err != nil {
				return writeErr(cmd, err)
			}
			it, _ := st.Item(args[0])
			return writeOut(cmd, app, map[string]any{"data": it, "meta": map[string]any{"inFlight": st.InFlight(args[0])}})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&priority, "priority", "", "Task priority (now|high|low)")
	cmd.Flags().StringVar(&category, "category", "", "Task category (empty clears)")
	cmd.Flags().StringVar(&listRef, "list", "", "Move to list (name or id)")
	cmd.Flags().StringVar(&dateText, "date", "", "Reminder date, natural language")
	cmd.Flags().StringVar(&every, "every", "", "Recurrence, natural language")
	cmd.Flags().BoolVar(&clearDate, "clear-date", false, "Remove the reminder date and recurrence")
	return cmd
}

func newItemsCompleteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete <item-id>",
		Short: "Mark an item complete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, cleanup, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer cleanup()

			if err := st.MoveItem(cmd.Context(), args[0], model.StatusComplete); err != nil {
				return writeErr(cmd, err)
			}
			it, _ := st.Item(args[0])
			return writeOut(cmd, app, map[string]any{"data": it})
		},
	}
	return cmd
}

func newItemsMoveCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <item-id> <status>",
		Short: "Move an item to another status column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, cleanup, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer cleanup()

			if err := st.MoveItem(cmd.Context(), args[0], model.Status(args[1])); err != nil {
				return writeErr(cmd, err)
			}
			it, _ := st.Item(args[0])
			return writeOut(cmd, app, map[string]any{"data": it})
		},
	}
	return cmd
}

func newItemsCategoriesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List task categories in first-use order",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, cleanup, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer cleanup()
			return writeOut(cmd, app, map[string]any{"data": st.Categories()})
		},
	}
	return cmd
}
