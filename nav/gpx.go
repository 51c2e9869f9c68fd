package nav

import (
	"fmt"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/nwah/vagvisare/directions"
)

// ToGPX renders route as a GPX 1.1 document: the geometry as a single track
// and one waypoint per step that has a location.
func ToGPX(route *RouteResponse) ([]byte, error) {
	if route == nil {
		return nil, fmt.Errorf("no route to export")
	}

	doc := gpx.GPX{
		Version: "1.1",
		Creator: defaultUserAgent,
		Name:    routeName(route),
	}

	segment := gpx.GPXTrackSegment{}
	for _, p := range route.Line {
		segment.Points = append(segment.Points, gpx.GPXPoint{
			Point: gpx.Point{Latitude: p.Lat(), Longitude: p.Lon()},
		})
	}
	doc.Tracks = append(doc.Tracks, gpx.GPXTrack{
		Name:     routeName(route),
		Type:     string(route.Mode),
		Segments: []gpx.GPXTrackSegment{segment},
	})

	for _, step := range route.Steps {
		if step.Lat == 0 && step.Lon == 0 {
			continue
		}
		doc.Waypoints = append(doc.Waypoints, gpx.GPXPoint{
			Point:  gpx.Point{Latitude: step.Lat, Longitude: step.Lon},
			Name:   directions.FormatStep(step, route.Language),
			Symbol: step.Icon,
		})
	}

	data, err := doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return nil, fmt.Errorf("error encoding gpx: %w", err)
	}
	return data, nil
}

func routeName(route *RouteResponse) string {
	from, to := route.From.Desc, route.To.Desc
	if from == "" {
		from = fmt.Sprintf("%.5f,%.5f", route.From.Lat, route.From.Lng)
	}
	if to == "" {
		to = fmt.Sprintf("%.5f,%.5f", route.To.Lat, route.To.Lng)
	}
	return from + " → " + to
}
