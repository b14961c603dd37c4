package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func newNotesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Note commands",
	}
	cmd.AddCommand(newNotesAddCmd(app))
	cmd.AddCommand(newNotesUpdateCmd(app))
	cmd.AddCommand(newNotesDeleteCmd(app))
	return cmd
}

func newNotesAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <item-id> <content>",
		Short: "Add a note to an item (\"on hold\"/\"off hold\" toggle the hold flag)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, cleanup, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer cleanup()

			if err := st.AddNote(cmd.Context(), args[0], strings.Join(args[1:], " ")); err != nil {
				return writeErr(cmd, err)
			}
			it, _ := st.Item(args[0])
			return writeOut(cmd, app, map[string]any{"data": it})
		},
	}
	return cmd
}

func newNotesUpdateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <note-id> <content>",
		Short: "Rewrite a note",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, cleanup, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer cleanup()

			if err := st.UpdateNote(cmd.Context(), args[0], strings.Join(args[1:], " ")); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]string{"updated": args[0]}})
		},
	}
	return cmd
}

func newNotesDeleteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <note-id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, cleanup, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer cleanup()

			if err := st.DeleteNote(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]string{"deleted": args[0]}})
		},
	}
	return cmd
}
