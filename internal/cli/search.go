package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <terms>...",
		Short: "Search titles, notes, and dates, best matches first",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, cleanup, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer cleanup()

			items := st.Search(strings.Join(args, " "))
			if tableFormat(app) {
				return writeItemTable(cmd, items, st.Lists())
			}
			return writeOut(cmd, app, map[string]any{"data": items})
		},
	}
	return cmd
}
