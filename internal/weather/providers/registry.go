package providers

import (
	"fmt"

	"github.com/i474232898/weather-client/internal/weather"
)

// Keys carries the credentials of the keyed providers.
type Keys struct {
	OpenWeather string
	WeatherAPI  string
}

// New builds the provider registered under name.
func New(name string, cfg HTTPClientConfig, keys Keys) (weather.Provider, error) {
	switch name {
	case "openweather", "openweathermap":
		return NewOpenWeatherProvider(cfg, keys.OpenWeather), nil
	case "openmeteo":
		return NewOpenMeteoProvider(cfg), nil
	case "weatherapi":
		return NewWeatherAPIProvider(cfg, keys.WeatherAPI), nil
	default:
		return nil, fmt.Errorf("unknown weather provider %q", name)
	}
}
