package weather

import (
	"fmt"
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Coordinate is a WGS84 position reported by the device.
type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" yaml:"lon" validate:"gte=-180,lte=180"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lon)
}

// DayEntry is a single day of a forecast.
type DayEntry struct {
	Date        time.Time `json:"date"` // midnight UTC of the forecast day
	TempMin     float64   `json:"tempMin"`
	TempMax     float64   `json:"tempMax"`
	Description string    `json:"description"`
	Condition   Condition `json:"condition"`
}

// ForecastRecord is a multi-day forecast for one city.
// Every entry shares FetchedAt; records are always replaced as a whole.
type ForecastRecord struct {
	City      string     `json:"city"`
	Days      []DayEntry `json:"days"`
	FetchedAt time.Time  `json:"fetchedAt"`
}

// Age returns how old the record is relative to now.
func (r ForecastRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.FetchedAt)
}

// Clone returns a deep copy so callers can't alias a stored slice.
func (r ForecastRecord) Clone() ForecastRecord {
	out := r
	if r.Days != nil {
		out.Days = make([]DayEntry, len(r.Days))
		copy(out.Days, r.Days)
	}
	return out
}

// FetchRequest describes a single forecast request against a provider.
type FetchRequest struct {
	Coordinate Coordinate
	Days       int
	Units      string // metric, imperial or standard
	Lang       string
}
