package feeds

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/nwah/vagvisare/i18n"
)

// WeatherFeed lists SMHI weather warnings affecting the user
type WeatherFeed struct {
	cfg  WeatherConfig
	http *http.Client
}

// localized is SMHI's {"sv": ..., "en": ...} text object
type localized struct {
	SV   string `json:"sv"`
	EN   string `json:"en"`
	Code string `json:"code"`
}

func (l localized) in(lang i18n.Language) string {
	if lang == i18n.English && l.EN != "" {
		return l.EN
	}
	if l.SV != "" {
		return l.SV
	}
	return l.EN
}

type smhiArea struct {
	ID               int             `json:"id"`
	AreaName         localized       `json:"areaName"`
	WarningLevel     localized       `json:"warningLevel"`
	EventDescription localized       `json:"eventDescription"`
	Area             json.RawMessage `json:"area"`
}

type smhiWarning struct {
	ID           int        `json:"id"`
	Event        localized  `json:"event"`
	WarningAreas []smhiArea `json:"warningAreas"`
}

// Name implements Feed
func (f *WeatherFeed) Name() string { return FeedWeather }

// areaGeometries reads the GeoJSON area of a warning, which SMHI sends as
// a feature collection, a feature or a bare geometry.
func areaGeometries(raw json.RawMessage) []orb.Geometry {
	var head struct {
		Type string `json:"type"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &head) != nil {
		return nil
	}

	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(raw)
		if err != nil {
			return nil
		}
		var geoms []orb.Geometry
		for _, feature := range fc.Features {
			if feature.Geometry != nil {
				geoms = append(geoms, feature.Geometry)
			}
		}
		return geoms
	case "Feature":
		feature, err := geojson.UnmarshalFeature(raw)
		if err != nil || feature.Geometry == nil {
			return nil
		}
		return []orb.Geometry{feature.Geometry}
	case "":
		return nil
	default:
		geom, err := geojson.UnmarshalGeometry(raw)
		if err != nil || geom.Coordinates == nil {
			return nil
		}
		return []orb.Geometry{geom.Geometry()}
	}
}

// covers reports whether p lies inside g. Only polygons have an inside;
// other geometries fall back to their bound.
func covers(g orb.Geometry, p orb.Point) bool {
	switch g := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, p)
	case orb.Collection:
		for _, c := range g {
			if covers(c, p) {
				return true
			}
		}
		return false
	case nil:
		return false
	default:
		return g.Bound().Contains(p)
	}
}

// appliesTo reports whether an area made of geoms covers p. An area
// without geometry covers everything.
func appliesTo(geoms []orb.Geometry, p orb.Point) bool {
	if len(geoms) == 0 {
		return true
	}
	return slices.ContainsFunc(geoms, func(g orb.Geometry) bool {
		return covers(g, p)
	})
}

// Nearby implements Feed. Warnings whose area does not cover center are
// skipped; warnings without an area are always included. Areas are regions,
// so the POIs carry no position.
func (f *WeatherFeed) Nearby(ctx context.Context, center orb.Point, _ float64, lang i18n.Language) ([]POI, error) {
	var warnings []smhiWarning
	if err := getJSON(ctx, f.http, f.cfg.APIURL, FeedWeather, &warnings); err != nil {
		return nil, err
	}

	pois := []POI{}
	for _, w := range warnings {
		for _, area := range w.WarningAreas {
			poi := POI{
				Feed:   FeedWeather,
				ID:     strconv.Itoa(w.ID) + "-" + strconv.Itoa(area.ID),
				Title:  strings.TrimSpace(area.WarningLevel.in(lang) + " " + w.Event.in(lang)),
				Detail: joinNonEmpty(": ", area.AreaName.in(lang), area.EventDescription.in(lang)),
			}
			if !appliesTo(areaGeometries(area.Area), center) {
				continue
			}
			pois = append(pois, poi)
		}
	}
	return pois, nil
}

func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
