package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"visahunt-engine/internal/config"
	"visahunt-engine/internal/logger"
)

type rootFlags struct {
	configPath string
	dataDir    string
	debug      bool

	keywords  []string
	countries []string
	sources   []string
	dryRun    bool
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "engine",
		Short:         "Find visa-sponsored entry-level jobs and apply to them",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := f.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			sum := a.runner.RunOnce(ctx)
			fmt.Fprint(cmd.OutOrStdout(), sum.Render())
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "config file (default <data-dir>/config.yml)")
	pf.StringVar(&f.dataDir, "data-dir", "", "data directory (default $VISAHUNT_DATA_DIR or the user config dir)")
	pf.BoolVar(&f.debug, "debug", false, "enable debug logging")
	pf.StringSliceVar(&f.keywords, "keywords", nil, "search keywords, comma separated")
	pf.StringSliceVar(&f.countries, "countries", nil, "countries to search, comma separated")
	pf.StringSliceVar(&f.sources, "sources", nil, "only query these source IDs")
	pf.BoolVar(&f.dryRun, "dry-run", false, "collect and store, but do not apply")

	cmd.AddCommand(newScheduleCmd(f), newStatusCmd(f), newSecretCmd())
	cmd.SetContext(context.Background())
	return cmd
}

// loadConfig resolves the effective configuration and a logger for it.
func (f *rootFlags) loadConfig() (config.Config, logger.Logger, error) {
	dataDir := f.dataDir
	if dataDir == "" {
		dataDir = os.Getenv("VISAHUNT_DATA_DIR")
	}
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}

	cfg, v, err := config.Resolve(dataDir, f.configPath)
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.App.LogLevel
	if f.debug {
		level = "debug"
	}
	log, err := logger.New(logger.Config{Level: level})
	if err != nil {
		return cfg, nil, fmt.Errorf("init logger: %w", err)
	}
	for _, w := range v.Warnings {
		log.Warn("config", logger.String("warning", w))
	}

	cfg, unknown := cfg.WithOverrides(config.Overrides{
		Keywords:  f.keywords,
		Countries: f.countries,
		Sources:   f.sources,
		DryRun:    f.dryRun,
	})
	if len(unknown) > 0 {
		log.Warn("unknown sources ignored", logger.Strings("sources", unknown))
	}
	return cfg, log, nil
}
