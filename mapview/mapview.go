// Package mapview decides what the client map shows: the active tile layer,
// the initial view and how the camera follows the user.
package mapview

import (
	"github.com/paulmach/orb"

	"github.com/nwah/vagvisare/settings"
)

const (
	defaultLightTiles  = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	defaultDarkTiles   = "https://{s}.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}{r}.png"
	defaultAttribution = "&copy; OpenStreetMap contributors"

	// DefaultZoom is the zoom of the initial overview
	DefaultZoom = 13
	// FollowZoom is used when the map snaps to the user
	FollowZoom = 15
)

// DefaultCenter is central Stockholm
var DefaultCenter = orb.Point{18.0686, 59.3293}

// Config holds the tile URL templates
type Config struct {
	Light       string `toml:"light" json:"light"`
	Dark        string `toml:"dark" json:"dark"`
	Attribution string `toml:"attribution" json:"attribution"`
}

// WithDefaults fills empty fields with the OpenStreetMap and Carto layers
func (c Config) WithDefaults() Config {
	if c.Light == "" {
		c.Light = defaultLightTiles
	}
	if c.Dark == "" {
		c.Dark = defaultDarkTiles
	}
	if c.Attribution == "" {
		c.Attribution = defaultAttribution
	}
	return c
}

// TileLayer is a raster layer the client adds to its map
type TileLayer struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
}

// Layer returns the single active layer for theme
func (c Config) Layer(theme settings.Theme) TileLayer {
	c = c.WithDefaults()
	if theme == settings.ThemeDark {
		return TileLayer{Name: "dark", URL: c.Dark, Attribution: c.Attribution}
	}
	return TileLayer{Name: "light", URL: c.Light, Attribution: c.Attribution}
}

// View is the initial map state
type View struct {
	Center      [2]float64 `json:"center"` // [lat, lon]
	Zoom        int        `json:"zoom"`
	Layer       TileLayer  `json:"layer"`
	BodyClasses []string   `json:"body_classes"`
	Language    string     `json:"language"`
}

// View describes the map for a client. A nil position, or follow turned
// off, gives the Stockholm overview.
func (c Config) View(s settings.Settings, position *orb.Point) View {
	center, zoom := DefaultCenter, DefaultZoom
	if position != nil && s.Follow {
		center, zoom = *position, FollowZoom
	}

	classes := []string{}
	if s.Theme == settings.ThemeDark {
		classes = append(classes, "dark")
	}
	if s.Mobile {
		classes = append(classes, "mobile")
	}

	return View{
		Center:      [2]float64{center.Lat(), center.Lon()},
		Zoom:        zoom,
		Layer:       c.Layer(s.Theme),
		BodyClasses: classes,
		Language:    string(s.Language),
	}
}

// CameraAction tells the client how to move the map after a position fix
type CameraAction string

const (
	CameraNone    CameraAction = "none"
	CameraSetView CameraAction = "set_view"
	CameraPan     CameraAction = "pan"
)

// Camera is the instruction sent with a position update
type Camera struct {
	Action CameraAction `json:"action"`
	Center [2]float64   `json:"center"` // [lat, lon]
	Zoom   int          `json:"zoom,omitempty"`
}

// Follow returns the camera move for a new position. The first fix snaps to
// FollowZoom, later ones pan without changing the zoom.
func Follow(first, follow bool, pos orb.Point) Camera {
	if !follow {
		return Camera{Action: CameraNone}
	}
	center := [2]float64{pos.Lat(), pos.Lon()}
	if first {
		return Camera{Action: CameraSetView, Center: center, Zoom: FollowZoom}
	}
	return Camera{Action: CameraPan, Center: center}
}

// Recenter moves the map to pos and keeps the client's zoom
func Recenter(pos orb.Point) Camera {
	return Camera{Action: CameraSetView, Center: [2]float64{pos.Lat(), pos.Lon()}}
}
