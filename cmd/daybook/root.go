package main

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/daybook/internal/app"
	"github.com/dshills/daybook/internal/config"
	"github.com/dshills/daybook/internal/logging"
	"github.com/dshills/daybook/internal/tui"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	dbPath     string
	ephemeral  bool
	logLevel   string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "daybook",
		Short: "Terminal kanban board, goals and habits with undo/redo",
		Long: `daybook keeps tasks, goals and habits in a local SQLite database.

Run without arguments to open the board. Every edit can be undone with u
(or Ctrl-Z) and redone with Ctrl-R (or Ctrl-Y) until you log out with L.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBoard(cmd, g)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	pf.StringVar(&g.dbPath, "db", "", "database file (overrides store.path)")
	pf.BoolVar(&g.ephemeral, "ephemeral", false, "keep data in memory only")
	pf.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newScriptCmd(g),
		newTasksCmd(g),
		newConfigCmd(g),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the config file and applies flag overrides.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.dbPath != "" {
		cfg.Store.Path = g.dbPath
	}
	if g.ephemeral {
		cfg.Store.Ephemeral = true
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSession loads configuration, builds the logger and opens a session.
// The returned cleanup closes both.
func (g *globalFlags) openSession(fallback logging.Sink) (*app.Session, *config.Config, func(), error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	log, err := logging.New(cfg.Log, fallback)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	s, err := app.New(cfg, app.WithLogger(log))
	if err != nil {
		_ = log.Close()
		return nil, nil, nil, err
	}
	cleanup := func() {
		if err := s.Close(); err != nil {
			log.Warn("close failed", zap.Error(err))
		}
		_ = log.Close()
	}
	return s, cfg, cleanup, nil
}

func runBoard(cmd *cobra.Command, g *globalFlags) error {
	s, _, cleanup, err := g.openSession(logging.SinkDiscard)
	if err != nil {
		return err
	}
	defer cleanup()

	path := g.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	if err := s.WatchConfig(path); err != nil {
		s.Logger().Warn("config reload disabled", zap.Error(err))
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("opening terminal: %w", err)
	}
	ui, err := tui.New(cmd.Context(), s, screen)
	if err != nil {
		return err
	}
	return ui.Run(cmd.Context())
}
