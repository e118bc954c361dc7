package owm

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultBaseURL is the OpenWeatherMap 2.5 API root.
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

var (
	coordsPattern = regexp.MustCompile(`^\s*(-?\d+\.\d+)\s*,\s*(-?\d+\.\d+)\s*$`)
	appidPattern  = regexp.MustCompile(`appid=[^&]*`)

	validate = validator.New()
)

// LocationKind selects which query parameter addresses the location.
type LocationKind int

const (
	// LocationName sends the text verbatim as q.
	LocationName LocationKind = iota
	// LocationID sends a numeric city id as id.
	LocationID
	// LocationCoords sends a latitude and longitude pair as lat and lon.
	LocationCoords
)

func (k LocationKind) String() string {
	switch k {
	case LocationID:
		return "id"
	case LocationCoords:
		return "coords"
	default:
		return "name"
	}
}

// Location is a resolved location. Only the fields matching Kind are set,
// and they hold the caller's text exactly as given.
type Location struct {
	Kind LocationKind
	ID   string
	Lat  string
	Lon  string
	Name string
}

// ResolveLocation classifies s as a numeric city id, a "lat, lon" pair or a free-text name,
// in that order of priority.
func ResolveLocation(s string) Location {
	if _, err := strconv.ParseUint(s, 10, 64); err == nil {
		return Location{Kind: LocationID, ID: s}
	}
	if m := coordsPattern.FindStringSubmatch(s); m != nil {
		return Location{Kind: LocationCoords, Lat: m[1], Lon: m[2]}
	}
	return Location{Kind: LocationName, Name: s}
}

func (l Location) query() string {
	switch l.Kind {
	case LocationID:
		return "id=" + url.QueryEscape(l.ID)
	case LocationCoords:
		return "lat=" + url.QueryEscape(l.Lat) + "&lon=" + url.QueryEscape(l.Lon)
	default:
		return "q=" + url.QueryEscape(l.Name)
	}
}

// Endpoint is the API resource a Poller requests.
type Endpoint int

const (
	EndpointCurrent Endpoint = iota
	EndpointForecast
)

func (e Endpoint) path() string {
	if e == EndpointForecast {
		return "forecast/daily"
	}
	return "weather"
}

func (e Endpoint) String() string {
	if e == EndpointForecast {
		return "forecast"
	}
	return "current"
}

// ParseEndpoint maps "current" or "forecast" to an Endpoint.
func ParseEndpoint(s string) (Endpoint, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "current", "weather":
		return EndpointCurrent, nil
	case "forecast", "daily":
		return EndpointForecast, nil
	default:
		return EndpointCurrent, fmt.Errorf("unknown endpoint %q", s)
	}
}

// Query holds the request parameters captured when a Poller starts.
type Query struct {
	Location string `validate:"required"`
	Units    string `validate:"omitempty,oneof=standard metric imperial"`
	Lang     string
	APIKey   string `validate:"required"`
}

// Validate reports missing or malformed parameters.
func (q Query) Validate() error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("invalid query: %w", err)
	}
	return nil
}

func (q Query) withDefaults() Query {
	if q.Units == "" {
		q.Units = "standard"
	}
	if q.Lang == "" {
		q.Lang = "en"
	}
	return q
}

// BuildURL returns the request URL for ep. days adds a cnt parameter to forecast
// requests when positive.
func BuildURL(baseURL string, ep Endpoint, loc Location, q Query, days int) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(baseURL, "/"))
	b.WriteByte('/')
	b.WriteString(ep.path())
	b.WriteByte('?')
	b.WriteString(loc.query())
	fmt.Fprintf(&b, "&units=%s&lang=%s&appid=%s",
		url.QueryEscape(q.Units), url.QueryEscape(q.Lang), url.QueryEscape(q.APIKey))
	if ep == EndpointForecast && days > 0 {
		fmt.Fprintf(&b, "&cnt=%d", days)
	}
	return b.String()
}

func redact(u string) string {
	return appidPattern.ReplaceAllString(u, "appid=***")
}
