package cli

import (
	"strings"
	"time"

	"tend-cli/internal/assist"
	"tend-cli/internal/model"
	"tend-cli/internal/quickadd"

	"github.com/spf13/cobra"
)

func newQuickCmd(app *App) *cobra.Command {
	var noAssist bool

	cmd := &cobra.Command{
		Use:   "quick <text>...",
		Short: "Add an item from free text",
		Long: strings.TrimSpace(`
Add an item from free text. Dates and recurrences become reminders, "!" or
"urgent" set priority now, "important" sets high, and "#<list>" targets a
list by name. When an AI key is configured, tasks get a cleaned-up title and
a category suggestion; without one the parsed text is used as-is.
`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, cleanup, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer cleanup()

			now := time.Now()
			draft := quickadd.Parse(now, strings.Join(args, " "))

			listID := ""
			if draft.ListName != "" {
				if id, err := resolveListID(st, draft.ListName); err == nil {
					listID = id
				}
			}
			if listID == "" || listID == model.AllLists {
				id, err := defaultListID(st)
				if err != nil {
					return writeErr(cmd, err)
				}
				listID = id
			}

			it := draft.Item(now, listID)
			if it.Type == model.TypeTask && !noAssist {
				ai := assist.New(app.cfg.AssistKey)
				if ai.Enabled() {
					sug := ai.Enhance(cmd.Context(), it.Title, st.Categories())
					it.Title = sug.Title
					it.Category = sug.Category
				}
			}

			id, err := st.AddItem(cmd.Context(), it)
			if err != nil {
				return writeErr(cmd, err)
			}
			created, _ := st.Item(id)
			return writeOut(cmd, app, map[string]any{"data": created})
		},
	}

	cmd.Flags().BoolVar(&noAssist, "no-assist", false, "Skip AI title/category enhancement")
	return cmd
}
