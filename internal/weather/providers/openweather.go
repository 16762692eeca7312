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

// OpenWeatherProvider implements the weather.Provider interface for the
// OpenWeatherMap daily forecast endpoint.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(cfg HTTPClientConfig, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5/forecast/daily",
		httpCfg: cfg,
		circuit: newBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

type owmWeather struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
}

type owmDaily struct {
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"city"`
	Cnt  int `json:"cnt"`
	List []struct {
		Dt   int64 `json:"dt"`
		Temp struct {
			Min float64 `json:"min"`
			Max float64 `json:"max"`
		} `json:"temp"`
		Weather []owmWeather `json:"weather"`
	} `json:"list"`
}

func (p *OpenWeatherProvider) FetchForecast(ctx context.Context, req weather.FetchRequest) (weather.ForecastRecord, error) {
	if p.apiKey == "" {
		return weather.ForecastRecord{}, fmt.Errorf("openweather: %w: api key is not configured", weather.ErrUnauthorized)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", strconv.FormatFloat(req.Coordinate.Lat, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(req.Coordinate.Lon, 'f', -1, 64))
		values.Set("cnt", strconv.Itoa(req.Days))
		values.Set("appid", p.apiKey)
		values.Set("mode", "json")
		values.Set("units", req.Units)
		values.Set("lang", req.Lang)

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.ForecastRecord{}, classifyRequestErr(p.name, err)
	}

	var payload owmDaily
	if err := decodeJSON(p.name, resp, &payload); err != nil {
		return weather.ForecastRecord{}, err
	}
	if len(payload.List) == 0 {
		return weather.ForecastRecord{}, fmt.Errorf("%s: %w", p.name, weather.ErrNoData)
	}

	rec := weather.ForecastRecord{City: payload.City.Name}
	for _, item := range payload.List {
		day := weather.DayEntry{
			Date:      dayStart(time.Unix(item.Dt, 0)),
			TempMin:   item.Temp.Min,
			TempMax:   item.Temp.Max,
			Condition: mapOpenWeatherCondition(item.Weather),
		}
		if len(item.Weather) > 0 {
			day.Description = item.Weather[0].Description
		}
		rec.Days = append(rec.Days, day)
	}
	return rec, nil
}

func mapOpenWeatherCondition(items []owmWeather) weather.Condition {
	if len(items) == 0 {
		return weather.ConditionUnknown
	}
	switch items[0].Main {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionCloudy
	case "Rain", "Drizzle":
		return weather.ConditionRain
	case "Snow":
		return weather.ConditionSnow
	case "Thunderstorm":
		return weather.ConditionStorm
	case "Mist", "Fog", "Haze", "Smoke", "Dust":
		return weather.ConditionMist
	default:
		return weather.ConditionUnknown
	}
}
