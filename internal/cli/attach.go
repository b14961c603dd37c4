package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newAttachCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attach",
		Short: "Attachment commands",
	}
	cmd.AddCommand(newAttachAddCmd(app))
	cmd.AddCommand(newAttachDeleteCmd(app))
	return cmd
}

func newAttachAddCmd(app *App) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add <item-id> <file>",
		Short: "Attach a file to an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, gw, cleanup, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer cleanup()

			f, err := os.Open(args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			defer f.Close()
			info, err := f.Stat()
			if err != nil {
				return writeErr(cmd, err)
			}
			if name == "" {
				name = filepath.Base(args[1])
			}

			att, err := gw.AddAttachment(cmd.Context(), args[0], name, f, info.Size())
			if err != nil {
				return writeErr(cmd, err)
			}
			_ = st.Reload(cmd.Context())
			return writeOut(cmd, app, map[string]any{"data": att})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Attachment name (default: file basename)")
	return cmd
}

func newAttachDeleteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <attachment-id>",
		Short: "Delete an attachment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gw, cleanup, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer cleanup()

			if err := gw.DeleteAttachment(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]string{"deleted": args[0]}})
		},
	}
	return cmd
}
