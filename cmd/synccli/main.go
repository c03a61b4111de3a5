// Command synccli drives the delta-sync core from the command line: it can
// summarize a channel's cache, simulate a sync-request, or serve the
// WebSocket control-plane endpoint peers connect to. Grounded in the
// Prismer SDK's cobra-based CLI layout (root.go/init.go/status.go): a single
// rootCmd with subcommands registered from each file's own init().
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/deltasync/peersync/internal/config"
	"github.com/deltasync/peersync/internal/observability"
)

var rootCmd = &cobra.Command{
	Use:   "synccli",
	Short: "Delta-sync control-plane CLI",
	Long:  "Inspect channel caches, simulate sync handshakes, and serve the peersync control plane.",
}

var cfg *config.Config

func main() {
	cfg = config.LoadConfig()
	level := slog.LevelInfo
	if cfg.LogLevel == "debug" {
		level = slog.LevelDebug
	}
	observability.InitLogger(level)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("synccli: command failed", "error", err)
		os.Exit(1)
	}
}
