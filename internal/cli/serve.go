package cli

import (
	"tend-cli/internal/gateway/sqlite"
	"tend-cli/internal/server"

	"github.com/spf13/cobra"
)

func newServeCmd(app *App) *cobra.Command {
	var (
		addr     string
		register []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a sync server over the local data dir",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			root, err := sqlite.Open(ctx, app.cfg.DataDir, "")
			if err != nil {
				return writeErr(cmd, err)
			}
			defer root.Close()

			srv := server.New(root)
			tokens := make(map[string]string, len(register))
			for _, email := range register {
				tokens[email] = srv.RegisterAccount(email)
			}
			if len(tokens) > 0 {
				if err := writeOut(cmd, app, map[string]any{"data": map[string]any{"tokens": tokens}}); err != nil {
					return err
				}
			}
			return srv.Run(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().StringSliceVar(&register, "register", nil, "Account emails to register (tokens are printed at startup)")
	return cmd
}
