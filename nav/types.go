package nav

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/nwah/vagvisare/directions"
	"github.com/nwah/vagvisare/i18n"
)

// NavConfig holds navigation-specific configuration
type NavConfig struct {
	NominatimURL     string         `toml:"nominatim_url"`
	OSRMURL          string         `toml:"osrm_url"`
	UserAgent        string         `toml:"user_agent"`
	TimeoutSeconds   int            `toml:"timeout_seconds"`
	GeocodeRateLimit float64        `toml:"geocode_rate_limit"` // requests per second
	ResRobot         ResRobotConfig `toml:"resrobot"`
}

// ResRobotConfig configures the transit trip planner
type ResRobotConfig struct {
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
	Products int    `toml:"products"`
}

// GeocodeResponse represents the response from the geocoding endpoint
type GeocodeResponse struct {
	Name       string  `json:"name"`    // display name, used as the marker label
	Address    string  `json:"address"` // short address (street, postal code, city)
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Importance float64 `json:"importance"`
	Country    string  `json:"country"` // two-letter ISO country code
}

// RouteRequest represents the parameters for a routing request
type RouteRequest struct {
	FromLat  float64       `json:"fromLat"`
	FromLng  float64       `json:"fromLng"`
	ToLat    float64       `json:"toLat"`
	ToLng    float64       `json:"toLng"`
	FromDesc string        `json:"fromDesc,omitempty"`
	ToDesc   string        `json:"toDesc,omitempty"`
	Mode     TransportMode `json:"mode"`
	Language i18n.Language `json:"language"`

	// Transit only; zero values fall back to configuration
	TransitProducts string `json:"transitProducts,omitempty"`
	TransitMaxWalk  int    `json:"transitMaxWalk,omitempty"`
}

// PathPoint represents a normalized point on the route path
type PathPoint [2]int // [x, y] normalized to 0-NormalizedGridSize

// Path represents the complete path with metadata
type Path struct {
	Points []PathPoint `json:"points"`
	Length int         `json:"length"`
	Width  int         `json:"width"`
	Height int         `json:"height"`
}

// Location represents a point with description and coordinates
type Location struct {
	Desc string  `json:"desc"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Bounds is the box a client fits its view to
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// RouteResponse represents the response from the routing endpoint
type RouteResponse struct {
	Duration float64           `json:"duration"` // seconds
	Distance float64           `json:"distance"` // meters
	Mode     TransportMode     `json:"mode"`
	Language i18n.Language     `json:"language"`
	Source   string            `json:"source"` // osrm or resrobot
	Steps    []directions.Step `json:"steps"`
	Line     orb.LineString    `json:"-"`
	Geometry *geojson.Geometry `json:"geometry,omitempty"`
	Bounds   *Bounds           `json:"bounds,omitempty"`
	Path     Path              `json:"path"`
	From     Location          `json:"from"`
	To       Location          `json:"to"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// setGeometry fills every geometry derived field from line
func (r *RouteResponse) setGeometry(line orb.LineString) {
	r.Line = line
	if len(line) == 0 {
		r.Path = Path{Points: []PathPoint{}, Width: NormalizedGridSize, Height: NormalizedGridSize}
		return
	}
	r.Geometry = geojson.NewGeometry(line)
	b := line.Bound()
	r.Bounds = &Bounds{
		South: b.Min.Lat(),
		West:  b.Min.Lon(),
		North: b.Max.Lat(),
		East:  b.Max.Lon(),
	}
	points := normalizePath(line)
	r.Path = Path{
		Points: points,
		Length: len(points),
		Width:  NormalizedGridSize,
		Height: NormalizedGridSize,
	}
}
