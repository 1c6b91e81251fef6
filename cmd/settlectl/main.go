package main

import (
	"fmt"
	"os"

	"settlement-core/config"
	"settlement-core/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var Version = "dev"

var (
	configPath string
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "settlectl",
		Short:         "settlectl - operator tooling for the settlement core",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level written to stderr")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(walletCmd)
	rootCmd.AddCommand(ordersCmd)
	rootCmd.AddCommand(tokenCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads configuration and builds a stderr logger so command
// output on stdout stays machine readable.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, logger.NewWithWriter(logLevel, os.Stderr), nil
}
