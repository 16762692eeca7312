// Package cli implements the weather-client commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/i474232898/weather-client/internal/config"
)

var configPath string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "weather-client",
	Short: "Multi-day forecast for the current location",
	Long: "Shows a multi-day forecast for the device location, serving cached data " +
		"while it is fresh and falling back to it when the network is gone.",
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default: $WEATHER_CLIENT_CONFIG)")
}

func loadConfig() (*config.AppConfig, error) {
	if configPath != "" {
		if err := os.Setenv("WEATHER_CLIENT_CONFIG", configPath); err != nil {
			return nil, err
		}
	}
	return config.Load()
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
