// Package cli implements the mushtrack command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mushtrack/internal/config"
)

type app struct {
	verbose bool
	envFile string
	logger  *zap.Logger
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "mushtrack",
		Short: "Smart Mushroom Growth Tracker",
		Long: `MushTrack logs mushroom cultivation observations (temperature, humidity,
growth stage, notes and photos), warns when conditions leave the configured
thresholds, and charts and exports the log.

Run "mushtrack serve" to start the dashboard and JSON API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			if a.verbose {
				cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := cfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			zap.ReplaceGlobals(logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose (debug) logging")
	rootCmd.PersistentFlags().StringVar(&a.envFile, "env-file", "", "Load environment variables from this file instead of ./.env")

	rootCmd.AddCommand(newServeCommand(a), newSensorCommand(a), newReportCommand(a))
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

func (a *app) loadConfig() (config.Config, error) {
	if a.envFile != "" {
		return config.LoadConfig(a.envFile)
	}
	return config.LoadConfig()
}
