package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"tend-cli/internal/config"
	"tend-cli/internal/gateway"
	"tend-cli/internal/gateway/httpc"
	"tend-cli/internal/gateway/sqlite"
	"tend-cli/internal/model"
	"tend-cli/internal/prefs"
	"tend-cli/internal/store"
	"tend-cli/internal/tui"

	"github.com/spf13/cobra"
)

type App struct {
	ConfigPath string
	DataDir    string
	Server     string
	Token      string
	Format     string
	PrettyJSON bool

	cfg config.Config
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "tend",
		Short:        "Tend tasks and reminders from the terminal",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive board
  tend

  # Scriptable commands
  tend items list --view tasks
  tend quick "call the dentist tomorrow at 3pm #Errands"

  # Run a sync server for other devices
  tend serve --addr :8080 --register me@example.com
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.HasSubCommands() && len(args) == 0 {
				return runBoard(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.resolveConfig()
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "Path to config file (default ~/.config/tend/config.toml)")
	cmd.PersistentFlags().StringVar(&app.DataDir, "data-dir", "", "Path to the local data dir (overrides config)")
	cmd.PersistentFlags().StringVar(&app.Server, "server", "", "Sync server base URL (overrides config; empty means local-only)")
	cmd.PersistentFlags().StringVar(&app.Token, "token", "", "Sync server bearer token (overrides config)")
	cmd.PersistentFlags().StringVar(&app.Format, "format", "json", "Output format (json|table)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")

	cmd.AddCommand(newItemsCmd(app))
	cmd.AddCommand(newListsCmd(app))
	cmd.AddCommand(newNotesCmd(app))
	cmd.AddCommand(newAttachCmd(app))
	cmd.AddCommand(newTrashCmd(app))
	cmd.AddCommand(newSearchCmd(app))
	cmd.AddCommand(newQuickCmd(app))
	cmd.AddCommand(newServeCmd(app))

	return cmd
}

// resolveConfig layers config sources: file, then env (inside config.Load),
// then flags.
func (app *App) resolveConfig() error {
	path := app.ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if app.DataDir != "" {
		cfg.DataDir = app.DataDir
	}
	if app.Server != "" {
		cfg.Server = app.Server
	}
	if app.Token != "" {
		cfg.Token = app.Token
	}
	app.cfg = cfg
	return nil
}

func (app *App) openGateway(ctx context.Context) (gateway.Gateway, func(), error) {
	if app.cfg.Server != "" {
		c, err := httpc.New(app.cfg.Server, app.cfg.Token)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	}
	g, err := sqlite.Open(ctx, app.cfg.DataDir, "")
	if err != nil {
		return nil, nil, err
	}
	return g, func() { _ = g.Close() }, nil
}

// openStore loads the full state once. One-shot commands use this; the
// board additionally starts the realtime manager.
func (app *App) openStore(ctx context.Context) (*store.Store, gateway.Gateway, func(), error) {
	gw, closeGw, err := app.openGateway(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	st := store.New(gw)
	if err := st.LoadData(ctx); err != nil {
		closeGw()
		return nil, nil, nil, err
	}
	p := app.prefsStore().Load()
	st.SetCurrentView(p.CurrentView)
	st.SetCurrentListID(p.CurrentListID)
	st.SetDisplayMode(p.DisplayMode)
	cleanup := func() {
		st.Close()
		closeGw()
	}
	return st, gw, cleanup, nil
}

// savePrefs persists the store's current view selection. Best effort: a
// failed prefs write never fails the command.
func (app *App) savePrefs(st *store.Store) {
	_ = app.prefsStore().Save(prefs.Prefs{
		CurrentView:   st.CurrentView(),
		CurrentListID: st.CurrentListID(),
		DisplayMode:   st.DisplayMode(),
	})
}

func (app *App) prefsStore() *prefs.Store {
	dir := prefs.DefaultDir()
	if app.cfg.DataDir != "" {
		dir = filepath.Join(app.cfg.DataDir, "prefs")
	}
	return prefs.Open(dir)
}

func runBoard(cmd *cobra.Command, app *App) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st, gw, cleanup, err := app.openStore(ctx)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer cleanup()
	return tui.Run(ctx, st, gw, app.prefsStore())
}

// resolveListID accepts a list id, a list name (case-insensitive), or the
// "all" sentinel.
func resolveListID(st *store.Store, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == model.AllLists {
		return model.AllLists, nil
	}
	for _, l := range st.Lists() {
		if l.ID == ref || strings.EqualFold(l.Name, ref) {
			return l.ID, nil
		}
	}
	return "", fmt.Errorf("no such list: %s", ref)
}

// defaultListID returns the default list, falling back to the first list.
func defaultListID(st *store.Store) (string, error) {
	lists := st.Lists()
	for _, l := range lists {
		if l.IsDefault {
			return l.ID, nil
		}
	}
	if len(lists) > 0 {
		return lists[0].ID, nil
	}
	return "", fmt.Errorf("no lists available")
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return writeJSON(cmd.OutOrStdout(), v, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
