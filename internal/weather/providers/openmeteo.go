package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-client/internal/weather"
)

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
// Open-Meteo needs no key and returns no place name, so the record city is
// left empty and filled in from the geocoded key by the caller.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(cfg HTTPClientConfig) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		httpCfg: cfg,
		circuit: newBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) FetchForecast(ctx context.Context, req weather.FetchRequest) (weather.ForecastRecord, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(req.Coordinate.Lat, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(req.Coordinate.Lon, 'f', -1, 64))
		values.Set("daily", "weathercode,temperature_2m_max,temperature_2m_min")
		values.Set("forecast_days", strconv.Itoa(req.Days))
		values.Set("timezone", "auto")
		if req.Units == "imperial" {
			values.Set("temperature_unit", "fahrenheit")
		}

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.ForecastRecord{}, classifyRequestErr(p.name, err)
	}

	var payload struct {
		Daily struct {
			Time        []string  `json:"time"`
			WeatherCode []int     `json:"weathercode"`
			TempMax     []float64 `json:"temperature_2m_max"`
			TempMin     []float64 `json:"temperature_2m_min"`
		} `json:"daily"`
	}
	if err := decodeJSON(p.name, resp, &payload); err != nil {
		return weather.ForecastRecord{}, err
	}

	d := payload.Daily
	if len(d.Time) == 0 {
		return weather.ForecastRecord{}, fmt.Errorf("%s: %w", p.name, weather.ErrNoData)
	}
	if len(d.TempMax) != len(d.Time) || len(d.TempMin) != len(d.Time) || len(d.WeatherCode) != len(d.Time) {
		return weather.ForecastRecord{}, fmt.Errorf("%s: %w: daily arrays differ in length", p.name, weather.ErrMalformed)
	}

	var rec weather.ForecastRecord
	for i, raw := range d.Time {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return weather.ForecastRecord{}, fmt.Errorf("%s: %w: %v", p.name, weather.ErrMalformed, err)
		}
		cond, desc := mapOpenMeteoCondition(d.WeatherCode[i])
		rec.Days = append(rec.Days, weather.DayEntry{
			Date:        date,
			TempMin:     d.TempMin[i],
			TempMax:     d.TempMax[i],
			Description: desc,
			Condition:   cond,
		})
	}
	return rec, nil
}

func mapOpenMeteoCondition(code int) (weather.Condition, string) {
	// WMO weather interpretation codes, simplified.
	switch {
	case code == 0:
		return weather.ConditionClear, "clear sky"
	case code >= 1 && code <= 3:
		return weather.ConditionCloudy, "partly cloudy"
	case code == 45 || code == 48:
		return weather.ConditionMist, "fog"
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return weather.ConditionRain, "rain"
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return weather.ConditionSnow, "snow"
	case code >= 95:
		return weather.ConditionStorm, "thunderstorm"
	default:
		return weather.ConditionUnknown, ""
	}
}
