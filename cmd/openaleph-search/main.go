// Package main provides the openaleph-search CLI: query construction,
// index administration, and bulk ingestion against an
// Elasticsearch-compatible cluster holding FollowTheMoney entities.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"openaleph.org/search/log"
	"openaleph.org/search/settings"
)

func main() {
	app := newApp()

	rootCmd := &cobra.Command{
		Use:   "openaleph-search",
		Short: "Search and indexing front-end for FollowTheMoney entity data",
		Long: `openaleph-search translates a compact URL-style query grammar into
Elasticsearch request bodies, manages the entity index layout, and
streams entities into the cluster in bulk.

Configuration comes from flags, a YAML config file, and environment
variables prefixed ` + settings.EnvPrefix + `_, in decreasing precedence.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup(cmd)
		},
	}

	app.registerFlags(rootCmd)

	rootCmd.AddCommand(
		newQueryStringCmd(app),
		newBodyCmd(app),
		newDumpActionsCmd(app),
		newAnalyzeCmd(app),
		newUpgradeCmd(app),
		newResetCmd(app),
		newMappingCmd(app),
		newFormatEntitiesCmd(app),
		newIndexEntitiesCmd(app),
		newIndexActionsCmd(app),
		newConfigCmd(app),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// app carries the process-wide state every subcommand shares: the parsed
// configuration and the logging setup. The cluster client is constructed
// per command, only where one is needed.
type app struct {
	cfg        *settings.Config
	logCfg     *log.Config
	configFile string
}

func newApp() *app {
	return &app{
		cfg:    &settings.Config{},
		logCfg: log.NewConfig(),
	}
}

func (a *app) registerFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	a.cfg.RegisterFlags(flags)
	a.logCfg.RegisterFlags(flags)
	flags.StringVar(&a.configFile, "config", "", "YAML configuration file")

	for _, register := range []func(*cobra.Command) error{
		a.cfg.RegisterCompletions,
		a.logCfg.RegisterCompletions,
	} {
		if err := register(cmd); err != nil {
			fmt.Fprintf(os.Stderr, "register completions: %v\n", err)
		}
	}
}

// setup finalizes the configuration from flags, file, and environment,
// and installs the process logger. Runs before every subcommand.
func (a *app) setup(cmd *cobra.Command) error {
	logger, err := a.logCfg.NewLogger(os.Stderr)
	if err != nil {
		return err
	}

	slog.SetDefault(logger)

	cfg, err := settings.LoadFlags(a.configFile, cmd.Flags())
	if err != nil {
		return err
	}

	a.cfg = cfg

	return nil
}
