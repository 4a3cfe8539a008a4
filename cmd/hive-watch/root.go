package main

import (
	"os"

	"github.com/chadibenrejeb/hive-watch/pkg/config"
	"github.com/chadibenrejeb/hive-watch/pkg/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string

	cfg    config.Config
	logger *logging.Logrus
)

var rootCmd = &cobra.Command{
	Use:           "hive-watch",
	Short:         "Live apiary telemetry and alerting",
	Long:          `hive-watch subscribes to the beehouse sensor topics, keeps the latest readings and a short history, and raises alerts when thresholds are crossed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.Logging.Level = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.Logging.Format = logFormat
		}
		logger = logging.NewLogrus(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or /etc/hive-watch/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
}
