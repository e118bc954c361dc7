package owm

import (
	"encoding/json"
	"fmt"
	"time"
)

// Measurements (temperatures, pressure, humidity, wind, cloud cover, precipitation)
// are float64 because the API emits fractional values for them whenever the station
// reports one. Identifiers, counts, offsets and Unix timestamps are integers.

// Coord is a geographic position.
type Coord struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

func (c *Coord) UnmarshalJSON(data []byte) error {
	if err := requireFields(data, "coord", "lon", "lat"); err != nil {
		return err
	}
	type plain Coord
	return json.Unmarshal(data, (*plain)(c))
}

// Condition is one weather condition entry, shared by current weather and forecasts.
type Condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

func (c *Condition) UnmarshalJSON(data []byte) error {
	if err := requireFields(data, "weather", "id", "main", "description", "icon"); err != nil {
		return err
	}
	type plain Condition
	return json.Unmarshal(data, (*plain)(c))
}

// Main holds the core atmospheric readings.
type Main struct {
	Temp      float64  `json:"temp"`
	FeelsLike float64  `json:"feels_like"`
	Pressure  float64  `json:"pressure"`
	Humidity  float64  `json:"humidity"`
	TempMin   float64  `json:"temp_min"`
	TempMax   float64  `json:"temp_max"`
	SeaLevel  *float64 `json:"sea_level,omitempty"`
	GrndLevel *float64 `json:"grnd_level,omitempty"`
}

func (m *Main) UnmarshalJSON(data []byte) error {
	if err := requireFields(data, "main", "temp", "feels_like", "pressure", "humidity", "temp_min", "temp_max"); err != nil {
		return err
	}
	type plain Main
	return json.Unmarshal(data, (*plain)(m))
}

// Wind holds speed and direction in degrees.
type Wind struct {
	Speed float64  `json:"speed"`
	Deg   float64  `json:"deg"`
	Gust  *float64 `json:"gust,omitempty"`
}

func (w *Wind) UnmarshalJSON(data []byte) error {
	if err := requireFields(data, "wind", "speed", "deg"); err != nil {
		return err
	}
	type plain Wind
	return json.Unmarshal(data, (*plain)(w))
}

// Clouds is cloud cover in percent.
type Clouds struct {
	All float64 `json:"all"`
}

func (c *Clouds) UnmarshalJSON(data []byte) error {
	if err := requireFields(data, "clouds", "all"); err != nil {
		return err
	}
	type plain Clouds
	return json.Unmarshal(data, (*plain)(c))
}

// Volume is a precipitation accumulation in mm. The API usually sends only one bucket.
type Volume struct {
	H1 *float64 `json:"1h,omitempty"`
	H3 *float64 `json:"3h,omitempty"`
}

// Sys carries the country and sunrise/sunset times.
type Sys struct {
	Type    *int     `json:"type,omitempty"`
	ID      *int64   `json:"id,omitempty"`
	Message *float64 `json:"message,omitempty"`
	Country string   `json:"country"`
	Sunrise int64    `json:"sunrise"`
	Sunset  int64    `json:"sunset"`
}

func (s *Sys) UnmarshalJSON(data []byte) error {
	if err := requireFields(data, "sys", "country", "sunrise", "sunset"); err != nil {
		return err
	}
	type plain Sys
	return json.Unmarshal(data, (*plain)(s))
}

// CurrentWeather is the payload of the current weather endpoint.
type CurrentWeather struct {
	Coord      Coord       `json:"coord"`
	Weather    []Condition `json:"weather"`
	Base       string      `json:"base"`
	Main       Main        `json:"main"`
	Visibility int         `json:"visibility"`
	Wind       Wind        `json:"wind"`
	Clouds     Clouds      `json:"clouds"`
	Rain       *Volume     `json:"rain,omitempty"`
	Snow       *Volume     `json:"snow,omitempty"`
	Dt         int64       `json:"dt"`
	Sys        Sys         `json:"sys"`
	Timezone   int         `json:"timezone"`
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Cod        int         `json:"cod"`
}

func (c *CurrentWeather) UnmarshalJSON(data []byte) error {
	err := requireFields(data, "current weather",
		"coord", "weather", "base", "main", "visibility", "wind", "clouds",
		"dt", "sys", "timezone", "id", "name", "cod")
	if err != nil {
		return err
	}
	type plain CurrentWeather
	return json.Unmarshal(data, (*plain)(c))
}

// Observed returns the observation time in UTC.
func (c CurrentWeather) Observed() time.Time {
	return time.Unix(c.Dt, 0).UTC()
}

// Primary returns the first reported condition, if any.
func (c CurrentWeather) Primary() (Condition, bool) {
	if len(c.Weather) == 0 {
		return Condition{}, false
	}
	return c.Weather[0], true
}

// requireFields fails when any of keys is absent from the JSON object or null.
func requireFields(data []byte, object string, keys ...string) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%s: %w", object, err)
	}
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok || string(raw) == "null" {
			return fmt.Errorf("%s: missing field %q", object, key)
		}
	}
	return nil
}
