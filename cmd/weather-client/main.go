package main

import (
	"os"

	"github.com/i474232898/weather-client/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
