package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-client/internal/common"
	"github.com/i474232898/weather-client/internal/weather"
)

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(cfg HTTPClientConfig, apiKey string) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1/forecast.json",
		httpCfg: cfg,
		circuit: newBreaker("weatherapi"),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) FetchForecast(ctx context.Context, req weather.FetchRequest) (weather.ForecastRecord, error) {
	if p.apiKey == "" {
		return weather.ForecastRecord{}, fmt.Errorf("weatherapi: %w: api key is not configured", weather.ErrUnauthorized)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		values.Set("q", fmt.Sprintf("%f,%f", req.Coordinate.Lat, req.Coordinate.Lon))
		values.Set("days", strconv.Itoa(req.Days))
		values.Set("lang", req.Lang)

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.ForecastRecord{}, classifyRequestErr(p.name, err)
	}

	var payload struct {
		Location struct {
			Name string `json:"name"`
		} `json:"location"`
		Forecast struct {
			ForecastDay []struct {
				Date string `json:"date"`
				Day  struct {
					MaxTempC  float64 `json:"maxtemp_c"`
					MinTempC  float64 `json:"mintemp_c"`
					MaxTempF  float64 `json:"maxtemp_f"`
					MinTempF  float64 `json:"mintemp_f"`
					Condition struct {
						Text string `json:"text"`
					} `json:"condition"`
				} `json:"day"`
			} `json:"forecastday"`
		} `json:"forecast"`
	}
	if err := decodeJSON(p.name, resp, &payload); err != nil {
		return weather.ForecastRecord{}, err
	}
	if len(payload.Forecast.ForecastDay) == 0 {
		return weather.ForecastRecord{}, fmt.Errorf("%s: %w", p.name, weather.ErrNoData)
	}

	rec := weather.ForecastRecord{City: payload.Location.Name}
	for _, fd := range payload.Forecast.ForecastDay {
		date, err := time.Parse("2006-01-02", fd.Date)
		if err != nil {
			return weather.ForecastRecord{}, fmt.Errorf("%s: %w: %v", p.name, weather.ErrMalformed, err)
		}
		day := weather.DayEntry{
			Date:        date,
			TempMin:     fd.Day.MinTempC,
			TempMax:     fd.Day.MaxTempC,
			Description: fd.Day.Condition.Text,
			Condition:   mapWeatherAPICondition(fd.Day.Condition.Text),
		}
		if req.Units == "imperial" {
			day.TempMin, day.TempMax = fd.Day.MinTempF, fd.Day.MaxTempF
		}
		rec.Days = append(rec.Days, day)
	}
	return rec, nil
}

func mapWeatherAPICondition(text string) weather.Condition {
	switch {
	case text == "":
		return weather.ConditionUnknown
	case common.ContainsAnyFold(text, "thunder", "storm"):
		return weather.ConditionStorm
	case common.ContainsAnyFold(text, "rain", "shower", "drizzle"):
		return weather.ConditionRain
	case common.ContainsAnyFold(text, "snow", "sleet", "blizzard"):
		return weather.ConditionSnow
	case common.ContainsAnyFold(text, "mist", "fog"):
		return weather.ConditionMist
	case common.ContainsAnyFold(text, "cloud", "overcast"):
		return weather.ConditionCloudy
	case common.ContainsAnyFold(text, "sunny", "clear"):
		return weather.ConditionClear
	default:
		return weather.ConditionUnknown
	}
}
