package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/socketgate/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the socketgate configuration.

Checks:
  - YAML syntax is valid
  - Port and limiter window are sane
  - Shows the bridge controls after env overrides are applied

Examples:
  socketgate validate
  socketgate validate --config /etc/socketgate/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	var cfg *config.Config

	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Printf("No config file at %s, validating environment configuration.\n\n", cfgFile)
		cfg = config.FromEnv()
	} else {
		fmt.Printf("Validating %s...\n\n", cfgFile)
		loaded, loadErr := config.Load(cfgFile)
		if loadErr != nil {
			fmt.Printf("  %s Config valid\n", crossMark)
			return fmt.Errorf("config error: %w", loadErr)
		}
		cfg = loaded
		fmt.Printf("  %s Config syntax valid\n", checkMark)
	}

	fmt.Printf("  %s Listen: %s:%d\n", checkMark, cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  %s Bridge enabled: %t\n", checkMark, cfg.Bridge.Enabled)
	fmt.Printf("  %s Window: %s\n", checkMark, cfg.Bridge.Window)
	fmt.Printf("  %s Budgets: user=%d room=%d user-in-room=%d\n",
		checkMark, cfg.Bridge.PerUser, cfg.Bridge.PerRoom, cfg.Bridge.PerUserInRoom)
	if len(cfg.Bridge.TrackedEvents) > 0 {
		fmt.Printf("  %s Tracked events: %s\n", checkMark, strings.Join(cfg.Bridge.TrackedEvents, ", "))
	}
	if len(cfg.Bridge.ExcludedEvents) > 0 {
		fmt.Printf("  %s Excluded events: %s\n", checkMark, strings.Join(cfg.Bridge.ExcludedEvents, ", "))
	}
	if cfg.Bridge.FlagFile != "" {
		fmt.Printf("  %s Flag file: %s\n", checkMark, cfg.Bridge.FlagFile)
	}

	fmt.Println()
	fmt.Println("Configuration is valid.")
	return nil
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
