package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "socketgate",
	Short: "Realtime presence gateway with per-user and per-room burst limiting",
	Long: `Socketgate serves isolated WebSocket namespaces with room presence
tracking and a runtime-togglable event admission bridge.

Every inbound event passes through a fixed-window burst limiter scoped
per user, per room, and per user-in-room. Room membership changes are
broadcast to room members as presence updates.

Quick start:
  socketgate serve     # Start the gateway
  socketgate validate  # Validate configuration`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "socketgate.yaml", "config file path")
}
