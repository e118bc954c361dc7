package owm

import (
	"encoding/json"
	"time"
)

// Forecast is the payload of the daily forecast endpoint.
type Forecast struct {
	City    City            `json:"city"`
	Cod     string          `json:"cod"`
	Message float64         `json:"message"`
	Cnt     int             `json:"cnt"`
	List    []ForecastEntry `json:"list"`
}

func (f *Forecast) UnmarshalJSON(data []byte) error {
	if err := requireFields(data, "forecast", "city", "cod", "message", "cnt", "list"); err != nil {
		return err
	}
	type plain Forecast
	return json.Unmarshal(data, (*plain)(f))
}

// City describes the forecast location.
type City struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Coord      Coord  `json:"coord"`
	Country    string `json:"country"`
	Population int64  `json:"population"`
	Timezone   int    `json:"timezone"`
}

func (c *City) UnmarshalJSON(data []byte) error {
	if err := requireFields(data, "city", "id", "name", "coord", "country", "population", "timezone"); err != nil {
		return err
	}
	type plain City
	return json.Unmarshal(data, (*plain)(c))
}

// ForecastEntry is one day of a forecast.
type ForecastEntry struct {
	Dt        int64       `json:"dt"`
	Sunrise   int64       `json:"sunrise"`
	Sunset    int64       `json:"sunset"`
	Temp      Temp        `json:"temp"`
	FeelsLike FeelsLike   `json:"feels_like"`
	Pressure  float64     `json:"pressure"`
	Humidity  float64     `json:"humidity"`
	Weather   []Condition `json:"weather"`
	Speed     float64     `json:"speed"`
	Deg       float64     `json:"deg"`
	Gust      *float64    `json:"gust,omitempty"`
	Clouds    float64     `json:"clouds"`
	Pop       float64     `json:"pop"`
	Rain      *float64    `json:"rain,omitempty"`
	Snow      *float64    `json:"snow,omitempty"`
}

func (e *ForecastEntry) UnmarshalJSON(data []byte) error {
	err := requireFields(data, "list",
		"dt", "sunrise", "sunset", "temp", "feels_like", "pressure", "humidity",
		"weather", "speed", "deg", "clouds", "pop")
	if err != nil {
		return err
	}
	type plain ForecastEntry
	return json.Unmarshal(data, (*plain)(e))
}

// Time returns the forecast period start in UTC.
func (e ForecastEntry) Time() time.Time {
	return time.Unix(e.Dt, 0).UTC()
}

// Temp holds the daily temperatures of a forecast entry.
type Temp struct {
	Day   float64 `json:"day"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Night float64 `json:"night"`
	Eve   float64 `json:"eve"`
	Morn  float64 `json:"morn"`
}

func (t *Temp) UnmarshalJSON(data []byte) error {
	if err := requireFields(data, "temp", "day", "min", "max", "night", "eve", "morn"); err != nil {
		return err
	}
	type plain Temp
	return json.Unmarshal(data, (*plain)(t))
}

// FeelsLike holds the perceived daily temperatures.
type FeelsLike struct {
	Day   float64 `json:"day"`
	Night float64 `json:"night"`
	Eve   float64 `json:"eve"`
	Morn  float64 `json:"morn"`
}

func (f *FeelsLike) UnmarshalJSON(data []byte) error {
	if err := requireFields(data, "feels_like", "day", "night", "eve", "morn"); err != nil {
		return err
	}
	type plain FeelsLike
	return json.Unmarshal(data, (*plain)(f))
}
