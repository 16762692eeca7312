package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/i474232898/weather-client/internal/logging"
	"github.com/i474232898/weather-client/internal/render"
	"github.com/i474232898/weather-client/internal/session"
	"github.com/i474232898/weather-client/internal/weather"
)

func init() {
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Run a single fetch cycle for a coordinate",
		Run:   runForecast,
	}

	cmd.Flags().Float64("lat", 0, "Latitude (required)")
	cmd.Flags().Float64("lon", 0, "Longitude (required)")
	cmd.Flags().Bool("force", false, "Bypass the freshness threshold")
	cmd.Flags().Bool("offline", false, "Treat the network as unavailable")
	cmd.Flags().StringP("format", "f", "text", "Output format: text or json")

	cmd.MarkFlagRequired("lat")
	cmd.MarkFlagRequired("lon")

	RootCmd.AddCommand(cmd)
}

func runForecast(cmd *cobra.Command, args []string) {
	lat, _ := cmd.Flags().GetFloat64("lat")
	lon, _ := cmd.Flags().GetFloat64("lon")
	force, _ := cmd.Flags().GetBool("force")
	offline, _ := cmd.Flags().GetBool("offline")
	format, _ := cmd.Flags().GetString("format")

	coord := weather.Coordinate{Lat: lat, Lon: lon}
	if err := validator.New().Struct(coord); err != nil {
		exitErr("invalid coordinate", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	comps, err := buildComponents(cfg, logging.New(cfg.LogLevel), nil)
	if err != nil {
		exitErr("build components", err)
	}
	defer comps.Close()

	plan, out := comps.service.Cycle(cmd.Context(), coord, !offline, force)

	state := session.Failure(out.Err)
	if out.Err == nil {
		state = session.Success(out.Record, out.Source)
	}

	switch format {
	case "json":
		b, _ := json.MarshalIndent(struct {
			City     string            `json:"city"`
			Decision string            `json:"decision"`
			Reason   string            `json:"reason"`
			View     session.ViewState `json:"view"`
		}{plan.City, plan.Decision.Action.String(), plan.Decision.Reason, state}, "", "  ")
		fmt.Println(string(b))
	default:
		fmt.Println(render.View(state, cfg.Forecast.Units, time.Now()))
	}
}
