package cli

import (
	"fmt"

	"tend-cli/internal/model"

	"github.com/spf13/cobra"
)

// Permanent deletes are unrecoverable, so they hide behind --yes.
var errNeedsYes = fmt.Errorf("refusing to permanently delete without --yes")

func newTrashCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trash",
		Short: "Trash commands",
	}
	cmd.AddCommand(newTrashListCmd(app))
	cmd.AddCommand(newTrashPutCmd(app))
	cmd.AddCommand(newTrashRestoreCmd(app))
	cmd.AddCommand(newTrashDeleteCmd(app))
	cmd.AddCommand(newTrashEmptyCmd(app))
	return cmd
}

func newTrashListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trashed items, most recently deleted first",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, cleanup, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer cleanup()

			st.SetCurrentView(model.ViewTrash)
			st.SetCurrentListID(model.AllLists)
			items := st.FilteredItems()
			if tableFormat(app) {
				return writeItemTable(cmd, items, st.Lists())
			}
			return writeOut(cmd, app, map[string]any{"data": items})
		},
	}
	return cmd
}

func newTrashPutCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <item-id>",
		Short: "Move an item to the trash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, cleanup, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer cleanup()

			if err := st.DeleteItem(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			it, _ := st.Item(args[0])
			return writeOut(cmd, app, map[string]any{"data": it})
		},
	}
	return cmd
}

func newTrashRestoreCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <item-id>",
		Short: "Restore a trashed item with a freshly derived status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, cleanup, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer cleanup()

			if err := st.RestoreItem(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			it, _ := st.Item(args[0])
			return writeOut(cmd, app, map[string]any{"data": it})
		},
	}
	return cmd
}

func newTrashDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <item-id>",
		Short: "Permanently delete one trashed item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return writeErr(cmd, errNeedsYes)
			}
			st, _, cleanup, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer cleanup()

			if err := st.PermanentlyDeleteItem(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]string{"deleted": args[0]}})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the permanent delete")
	return cmd
}

func newTrashEmptyCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "empty",
		Short: "Permanently delete everything in the trash",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return writeErr(cmd, errNeedsYes)
			}
			st, _, cleanup, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer cleanup()

			if err := st.EmptyTrash(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]bool{"emptied": true}})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the permanent delete")
	return cmd
}
