package cli

import (
	"fmt"
	"strings"

	"tend-cli/internal/model"

	"github.com/spf13/cobra"
)

func newListsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lists",
		Short: "List commands",
	}
	cmd.AddCommand(newListsAddCmd(app))
	cmd.AddCommand(newListsListCmd(app))
	cmd.AddCommand(newListsUpdateCmd(app))
	cmd.AddCommand(newListsDeleteCmd(app))
	cmd.AddCommand(newListsShareCmd(app))
	cmd.AddCommand(newListsUnshareCmd(app))
	return cmd
}

func newListsAddCmd(app *App) *cobra.Command {
	var (
		colorHex string
		icon     string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, cleanup, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer cleanup()

			id, err := st.AddList(cmd.Context(), model.List{
				Name:  strings.TrimSpace(strings.Join(args, " ")),
				Color: colorHex,
				Icon:  icon,
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			l, _ := st.List(id)
			return writeOut(cmd, app, map[string]any{"data": l})
		},
	}

	cmd.Flags().StringVar(&colorHex, "color", "", "List color (hex)")
	cmd.Flags().StringVar(&icon, "icon", "", "List icon name")
	return cmd
}

func newListsListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all lists",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, cleanup, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer cleanup()

			if tableFormat(app) {
				return writeListTable(cmd, st.Lists())
			}
			return writeOut(cmd, app, map[string]any{"data": st.Lists()})
		},
	}
	return cmd
}

func newListsUpdateCmd(app *App) *cobra.Command {
	var (
		name     string
		colorHex string
		icon     string
		lock     bool
		unlock   bool
	)

	cmd := &cobra.Command{
		Use:   "update <list>",
		Short: "Update list fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, cleanup, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer cleanup()

			id, err := resolveListID(st, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}

			var patch model.ListPatch
			if cmd.Flags().Changed("name") {
				patch.Name = model.Set(strings.TrimSpace(name))
			}
			if cmd.Flags().Changed("color") {
				patch.Color = model.Set(colorHex)
			}
			if cmd.Flags().Changed("icon") {
				patch.Icon = model.Set(icon)
			}
			if lock {
				patch.Locked = model.Set(true)
			}
			if unlock {
				patch.Locked = model.Set(false)
			}

			if err := st.UpdateList(cmd.Context(), id, patch); err != nil {
				return writeErr(cmd, err)
			}
			l, _ := st.List(id)
			return writeOut(cmd, app, map[string]any{"data": l})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&colorHex, "color", "", "List color (hex)")
	cmd.Flags().StringVar(&icon, "icon", "", "List icon name")
	cmd.Flags().BoolVar(&lock, "lock", false, "Lock the list")
	cmd.Flags().BoolVar(&unlock, "unlock", false, "Unlock the list")
	return cmd
}

func newListsDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <list>",
		Short: "Delete a list (active items are dropped; trashed items move to the default list)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return writeErr(cmd, fmt.Errorf("deleting a list drops its active items; pass --yes to confirm"))
			}
			st, _, cleanup, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer cleanup()

			id, err := resolveListID(st, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := st.DeleteList(cmd.Context(), id); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]string{"deleted": id}})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the delete")
	return cmd
}

func newListsShareCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share <list> <email>...",
		Short: "Share a list with other accounts",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, gw, cleanup, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer cleanup()

			id, err := resolveListID(st, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			l, ok := st.List(id)
			if !ok {
				return writeErr(cmd, fmt.Errorf("list not found: %s", id))
			}

			emails := args[1:]
			checks, err := gw.CheckUsersExist(cmd.Context(), emails)
			if err != nil {
				return writeErr(cmd, err)
			}
			var missing []string
			for _, c := range checks {
				if !c.Exists {
					missing = append(missing, c.Email)
				}
			}
			if len(missing) > 0 {
				return writeErr(cmd, fmt.Errorf("no account for: %s", strings.Join(missing, ", ")))
			}

			shared := append([]string{}, l.SharedWith...)
			for _, e := range emails {
				if !containsFold(shared, e) {
					shared = append(shared, e)
				}
			}
			if err := st.UpdateList(cmd.Context(), id, model.ListPatch{SharedWith: model.Set(shared)}); err != nil {
				return writeErr(cmd, err)
			}
			l, _ = st.List(id)
			return writeOut(cmd, app, map[string]any{"data": l})
		},
	}
	return cmd
}

func newListsUnshareCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unshare <list> <email>",
		Short: "Stop sharing a list with an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, cleanup, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer cleanup()

			id, err := resolveListID(st, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			l, ok := st.List(id)
			if !ok {
				return writeErr(cmd, fmt.Errorf("list not found: %s", id))
			}

			var shared []string
			for _, e := range l.SharedWith {
				if !strings.EqualFold(e, args[1]) {
					shared = append(shared, e)
				}
			}
			if err := st.UpdateList(cmd.Context(), id, model.ListPatch{SharedWith: model.Set(shared)}); err != nil {
				return writeErr(cmd, err)
			}
			l, _ = st.List(id)
			return writeOut(cmd, app, map[string]any{"data": l})
		},
	}
	return cmd
}

func containsFold(xs []string, s string) bool {
	for _, x := range xs {
		if strings.EqualFold(x, s) {
			return true
		}
	}
	return false
}
