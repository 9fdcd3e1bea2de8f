package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/wirecache/internal/logger"
	"github.com/marmos91/wirecache/pkg/config"
)

// Version information set by main at startup.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "wirecached",
	Short: "Namespaced in-memory key-value cache server",
	Long: `wirecached serves in-memory key-value namespaces over TCP using a
compact length-free binary protocol. Each namespace is an independent
cache addressed by a one-byte id; namespaces can optionally persist
their contents through file or badger snapshots.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to configuration file")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

// initLogger configures the process logger from the loaded configuration.
func initLogger(cfg *config.Config) error {
	return logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}
