// Package render draws session view states for a terminal.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/i474232898/weather-client/internal/session"
	"github.com/i474232898/weather-client/internal/weather"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))
	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
	dayStyle = lipgloss.NewStyle().
			PaddingLeft(2)
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("241")).
			Padding(0, 1)
)

var conditionIcons = map[weather.Condition]string{
	weather.ConditionClear:  "☀",
	weather.ConditionCloudy: "☁",
	weather.ConditionRain:   "☂",
	weather.ConditionSnow:   "❄",
	weather.ConditionStorm:  "⚡",
	weather.ConditionMist:   "≋",
}

// View renders v as of now. units picks the temperature suffix.
func View(v session.ViewState, units string, now time.Time) string {
	switch v.Kind {
	case session.KindLoading:
		return dimStyle.Render("Loading forecast…")
	case session.KindNoLocation:
		return warnStyle.Render("Location unavailable. Enable location services to see the forecast.")
	case session.KindError:
		return errorStyle.Render(v.Message) + "\n" + dimStyle.Render("Retry to try again.")
	case session.KindSuccess:
		if v.Forecast == nil {
			return ""
		}
		return boxStyle.Render(forecast(*v.Forecast, v.Source, units, now))
	default:
		return ""
	}
}

func forecast(rec weather.ForecastRecord, src weather.Source, units string, now time.Time) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(rec.City))
	b.WriteString("\n")

	updated := "updated " + humanize.RelTime(rec.FetchedAt, now, "ago", "from now")
	if src == weather.FromStaleCache {
		updated = warnStyle.Render(updated + ", offline copy")
	} else {
		updated = dimStyle.Render(updated)
	}
	b.WriteString(updated)
	b.WriteString("\n")

	suffix := unitSuffix(units)
	for _, d := range rec.Days {
		icon, ok := conditionIcons[d.Condition]
		if !ok {
			icon = "?"
		}
		line := fmt.Sprintf("%s %s  %s / %s  %s",
			d.Date.Format("Mon Jan 2"),
			icon,
			humanize.FtoaWithDigits(d.TempMax, 1)+suffix,
			humanize.FtoaWithDigits(d.TempMin, 1)+suffix,
			d.Description,
		)
		b.WriteString(dayStyle.Render(strings.TrimRight(line, " ")))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func unitSuffix(units string) string {
	switch units {
	case "imperial":
		return "°F"
	case "standard":
		return "K"
	default:
		return "°C"
	}
}
