package nav

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/nwah/vagvisare/directions"
	"github.com/nwah/vagvisare/i18n"
)

type osrmManeuver struct {
	Type        string     `json:"type"`
	Modifier    string     `json:"modifier"`
	Instruction string     `json:"instruction"`
	Location    [2]float64 `json:"location"` // [lon, lat]
}

type osrmStep struct {
	Distance float64      `json:"distance"`
	Duration float64      `json:"duration"`
	Name     string       `json:"name"`
	Mode     string       `json:"mode"`
	Maneuver osrmManeuver `json:"maneuver"`
}

type osrmLeg struct {
	Distance float64    `json:"distance"`
	Duration float64    `json:"duration"`
	Summary  string     `json:"summary"`
	Steps    []osrmStep `json:"steps"`
}

type osrmRoute struct {
	Distance float64           `json:"distance"`
	Duration float64           `json:"duration"`
	Geometry *geojson.Geometry `json:"geometry"`
	Legs     []osrmLeg         `json:"legs"`
}

type osrmResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Routes  []osrmRoute `json:"routes"`
}

// osrmLanguage narrows the UI language to what the demo server supports
func osrmLanguage(lang i18n.Language) string {
	if lang == i18n.Swedish {
		return "sv"
	}
	return "en"
}

func osrmRouteURL(base string, req RouteRequest) (string, error) {
	coords := fmt.Sprintf("%f,%f;%f,%f", req.FromLng, req.FromLat, req.ToLng, req.ToLat)
	apiURL := fmt.Sprintf("%s/route/v1/%s/%s", strings.TrimRight(base, "/"), req.Mode.OSRMProfile(), coords)
	return withQuery(apiURL, url.Values{
		"overview":    {"full"},
		"geometries":  {"geojson"},
		"steps":       {"true"},
		"annotations": {"true"},
		"language":    {osrmLanguage(req.Language)},
	})
}

// getStepIcon determines the icon for an OSRM maneuver
func getStepIcon(maneuverType, modifier string, mode TransportMode) string {
	switch maneuverType {
	case "depart":
		switch mode {
		case ModeCycling:
			return "Cycle"
		case ModeWalking:
			return "Walk"
		default:
			return "Drive"
		}
	case "arrive":
		return "Arrive"
	case "merge":
		return "Merge"
	case "on ramp", "off ramp", "fork":
		return "Exit"
	case "roundabout", "rotary", "exit roundabout", "exit rotary":
		return "Roundabout"
	}

	switch modifier {
	case "right", "sharp right":
		return "Right"
	case "left", "sharp left":
		return "Left"
	case "slight right":
		return "right"
	case "slight left":
		return "left"
	case "uturn":
		return "UTurn"
	case "straight":
		return "Straight"
	default:
		return ""
	}
}

func (c *Client) routeOSRM(ctx context.Context, req RouteRequest) (*RouteResponse, error) {
	apiURL, err := osrmRouteURL(c.cfg.OSRMURL, req)
	if err != nil {
		return nil, err
	}

	var oResp osrmResponse
	if err := c.getJSON(ctx, "osrm", apiURL, &oResp); err != nil {
		var upErr *upstreamError
		if errors.As(err, &upErr) {
			// OSRM explains failures in the body, e.g. {"code":"NoRoute"}
			var osrmError osrmResponse
			if json.Unmarshal([]byte(upErr.Body), &osrmError) == nil {
				switch osrmError.Code {
				case "NoRoute", "NoSegment":
					return nil, ErrNoRoute
				case "":
				default:
					return nil, fmt.Errorf("routing error: %s: %s", osrmError.Code, osrmError.Message)
				}
			}
		}
		return nil, err
	}

	if len(oResp.Routes) == 0 {
		return nil, ErrNoRoute
	}

	route := oResp.Routes[0]
	result := &RouteResponse{
		Duration: route.Duration,
		Distance: route.Distance,
		Mode:     req.Mode,
		Language: req.Language,
		Source:   "osrm",
		Steps:    []directions.Step{},
		From: Location{
			Desc: req.FromDesc,
			Lat:  req.FromLat,
			Lng:  req.FromLng,
		},
		To: Location{
			Desc: req.ToDesc,
			Lat:  req.ToLat,
			Lng:  req.ToLng,
		},
	}

	// flatten legs -> steps
	for _, leg := range route.Legs {
		for _, s := range leg.Steps {
			result.Steps = append(result.Steps, directions.Step{
				Type:        s.Maneuver.Type,
				Modifier:    s.Maneuver.Modifier,
				Instruction: s.Maneuver.Instruction,
				Name:        s.Name,
				Distance:    s.Distance,
				Duration:    s.Duration,
				Icon:        getStepIcon(s.Maneuver.Type, s.Maneuver.Modifier, req.Mode),
				Lat:         s.Maneuver.Location[1],
				Lon:         s.Maneuver.Location[0],
			})
		}
	}

	var line orb.LineString
	if route.Geometry != nil {
		if ls, ok := route.Geometry.Coordinates.(orb.LineString); ok {
			line = ls
		}
	}
	result.setGeometry(line)

	c.logger.Debug("osrm route",
		zap.String("profile", req.Mode.OSRMProfile()),
		zap.Int("steps", len(result.Steps)),
		zap.Float64("distance", result.Distance),
	)
	return result, nil
}
