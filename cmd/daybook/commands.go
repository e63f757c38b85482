package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/daybook/internal/board"
	"github.com/dshills/daybook/internal/config"
	"github.com/dshills/daybook/internal/history"
	"github.com/dshills/daybook/internal/logging"
	"github.com/dshills/daybook/internal/script"
)

func newScriptCmd(g *globalFlags) *cobra.Command {
	var dumpHistory bool

	cmd := &cobra.Command{
		Use:   "script FILE",
		Short: "Run a Lua script against the board",
		Long: `Run a Lua script that edits the board through the board and history
modules. All edits made by the script form a single undo step; if the script
fails its edits are reverted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, cleanup, err := g.openSession(logging.SinkStderr)
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			return s.Do(cmd.Context(), func(b *board.Board, h *history.Manager) error {
				r := script.NewRunner(b, h, script.WithOutput(out), script.WithLogger(s.Logger()))
				res, err := r.RunFile(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%d edits\n", res.Edits)

				if dumpHistory {
					enc := yaml.NewEncoder(out)
					enc.SetIndent(2)
					if err := enc.Encode(map[string][]history.Info{
						"undo": h.UndoInfo(),
						"redo": h.RedoInfo(),
					}); err != nil {
						return err
					}
					return enc.Close()
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dumpHistory, "dump-history", false, "print the history stacks as YAML after the run")
	return cmd
}

func newTasksCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks [column]",
		Short: "List tasks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cols := board.Columns
			if len(args) == 1 {
				col, err := board.ParseColumn(args[0])
				if err != nil {
					return err
				}
				cols = []board.Column{col}
			}

			s, _, cleanup, err := g.openSession(logging.SinkStderr)
			if err != nil {
				return err
			}
			defer cleanup()

			return s.Do(cmd.Context(), func(b *board.Board, _ *history.Manager) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "COLUMN\tPOS\tTITLE\tID")
				for _, col := range cols {
					for _, t := range b.Tasks(col) {
						fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", t.Column, t.Position+1, t.Title, t.ID)
					}
				}
				return w.Flush()
			})
		},
	}
}

func newConfigCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			return config.Encode(cmd.OutOrStdout(), cfg, config.Format(format))
		},
	}
	show.Flags().StringVar(&format, "format", string(config.FormatTOML), "output format: toml or yaml")

	cmd.AddCommand(show)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "daybook %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
