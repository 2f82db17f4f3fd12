// Package cli implements the concord command line.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/talgya/concord/internal/config"
)

type rootOptions struct {
	configPath string
	dbPath     string
	logLevel   string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "concord",
		Short: "Diplomatic influence and relationship-memory simulation",
		Long: "Concord simulates realms that remember how they were treated: opinions, treaties, " +
			"trust and spheres of influence evolve month by month.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides config)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newStepCmd(opts))
	root.AddCommand(newInspectCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the command line.
func Execute() error {
	return NewRootCmd().Execute()
}

// load reads configuration, applies command-line overrides and installs the logger.
func (o *rootOptions) load(logOut io.Writer) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	if o.dbPath != "" {
		cfg.Database.Path = o.dbPath
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return cfg, err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level})))
	return cfg, nil
}
