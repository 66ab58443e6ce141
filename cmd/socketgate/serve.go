package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/socketgate/bootstrap"
	"github.com/artpar/socketgate/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the realtime gateway",
	Long: `Start the socketgate server.

The server will:
  - Load configuration from socketgate.yaml (or --config)
  - Or configure itself from environment variables alone
  - Serve WebSocket upgrades at /realtime/{namespace}
  - Track room presence and broadcast occupancy changes
  - Throttle event bursts per user, per room, and per user-in-room

Environment variables:
  REALTIME_PORT / PORT                      - Listen port (default: 8082)
  REALTIME_BRIDGE_ENABLED                   - Bridge master enable
  REALTIME_BRIDGE_DISABLED                  - Bridge kill switch
  REALTIME_BRIDGE_WINDOW_MS                 - Limiter window in milliseconds
  REALTIME_BRIDGE_MAX_EVENTS_PER_USER      - Per-user budget (default: 60)
  REALTIME_BRIDGE_MAX_EVENTS_PER_ROOM      - Per-room budget (default: 200)
  REALTIME_BRIDGE_MAX_EVENTS_PER_USER_ROOM - Per-user-in-room budget (default: 40)
  REALTIME_BRIDGE_TRACKED_EVENTS            - Comma-separated allow list
  REALTIME_BRIDGE_EXCLUDED_EVENTS           - Comma-separated deny list
  REALTIME_BRIDGE_FLAG_FILE                 - JSON flag file watched at runtime
  SOCKETGATE_LOG_LEVEL                      - debug, info, warn, error

Examples:
  socketgate serve
  socketgate serve --config /etc/socketgate/config.yaml

  # Env vars only:
  REALTIME_PORT=9000 socketgate serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	var cfg *config.Config

	if _, err := os.Stat(cfgFile); err == nil {
		loaded, loadErr := config.Load(cfgFile)
		if loadErr != nil {
			return fmt.Errorf("error loading config: %w", loadErr)
		}
		cfg = loaded
	} else {
		fmt.Println("Running with environment variables (no config file)")
		cfg = config.FromEnv()
	}

	app, err := bootstrap.New(cfg)
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
