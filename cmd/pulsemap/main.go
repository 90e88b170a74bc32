package main

import (
	"github.com/spf13/cobra"

	"github.com/mr1hm/pulsemap/internal/logging"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	useMemory bool
	logLevel  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pulsemap",
		Short: "Aggregates public disaster feeds into one event store",
		Long: `PulseMap pulls earthquakes, tsunami alerts, volcanic eruptions, wildfire
detections and flood alerts from public feeds, normalizes them into a single
event schema and serves them over a small REST API with an admin surface.

Configuration is read from the environment and an optional .env file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&useMemory, "memory", false, "Use the in-memory store instead of the configured database")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")

	rootCmd.AddCommand(newServeCmd(), newRefreshCmd(), newSweepCmd())

	if err := rootCmd.Execute(); err != nil {
		logging.Fatalf("command failed: %v", err)
	}
}
