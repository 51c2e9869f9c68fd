package nav

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/nwah/vagvisare/directions"
	"github.com/nwah/vagvisare/i18n"
)

const (
	defaultResRobotURL     = "https://api.resrobot.se/v2.1/trip"
	defaultTransitMaxWalk  = 200
	defaultTransitProducts = "511"
)

// flexFloat accepts both JSON numbers and numeric strings
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", data, err)
	}
	*f = flexFloat(v)
	return nil
}

// oneOrMany decodes either a single JSON object or an array of them
type oneOrMany[T any] []T

func (o *oneOrMany[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*o = nil
		return nil
	}
	if data[0] == '[' {
		var many []T
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*o = many
		return nil
	}
	var one T
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*o = []T{one}
	return nil
}

type resrobotStop struct {
	Name string    `json:"name"`
	Lat  flexFloat `json:"lat"`
	Lon  flexFloat `json:"lon"`
}

type resrobotProduct struct {
	Name   string `json:"name"`
	CatOut string `json:"catOut"`
}

type resrobotLeg struct {
	Type        string                     `json:"type"`
	Name        string                     `json:"name"`
	Dist        flexFloat                  `json:"dist"`
	Distance    flexFloat                  `json:"distance"`
	Duration    string                     `json:"duration"`
	Origin      *resrobotStop              `json:"Origin"`
	Destination *resrobotStop              `json:"Destination"`
	Product     oneOrMany[resrobotProduct] `json:"Product"`
}

type resrobotTrip struct {
	Duration string                 `json:"duration"`
	Leg      oneOrMany[resrobotLeg] `json:"Leg"`
	LegList  struct {
		Leg oneOrMany[resrobotLeg] `json:"Leg"`
	} `json:"LegList"`
}

type resrobotResponse struct {
	Trip []resrobotTrip `json:"Trip"`
}

// legs returns the trip's legs whichever envelope the API used
func (t resrobotTrip) legs() []resrobotLeg {
	if len(t.Leg) > 0 {
		return t.Leg
	}
	return t.LegList.Leg
}

func (l resrobotLeg) distance() float64 {
	if l.Dist != 0 {
		return float64(l.Dist)
	}
	return float64(l.Distance)
}

func (l resrobotLeg) isWalk() bool {
	return strings.Contains(strings.ToUpper(l.Type), "WALK")
}

func (l resrobotLeg) vehicleName(lang i18n.Language) string {
	if l.Name != "" {
		return l.Name
	}
	for _, p := range l.Product {
		if p.Name != "" {
			return p.Name
		}
	}
	if l.Type != "" {
		return l.Type
	}
	return i18n.T(lang, "vehicle", nil)
}

// generateTransitWalkText describes a walking leg
func generateTransitWalkText(leg resrobotLeg, lang i18n.Language) string {
	if d := math.Round(leg.distance()); d > 0 {
		return i18n.T(lang, "walk_distance", i18n.Vars{"dist": strconv.Itoa(int(d))})
	}
	return i18n.T(lang, "walk", nil)
}

// getTransitIcon picks an icon from the leg type and product category
func getTransitIcon(leg resrobotLeg) string {
	if leg.isWalk() {
		return "Walk"
	}
	for _, p := range leg.Product {
		switch strings.ToUpper(p.CatOut) {
		case "BUS", "BLT", "BXB":
			return "Bus"
		case "FERRY", "FLT", "BAT":
			return "Ferry"
		}
	}
	return "Train"
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?T?(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// parseISODuration parses the PT1H5M style durations ResRobot reports
func parseISODuration(s string) time.Duration {
	m := isoDuration.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, u := range units {
		if m[i+1] == "" {
			continue
		}
		n, _ := strconv.Atoi(m[i+1])
		d += time.Duration(n) * u
	}
	return d
}

func (c *Client) transitURL(req RouteRequest) (string, error) {
	base := c.cfg.ResRobot.BaseURL
	if base == "" {
		base = defaultResRobotURL
	}

	products := req.TransitProducts
	if products == "" && c.cfg.ResRobot.Products > 0 {
		products = strconv.Itoa(c.cfg.ResRobot.Products)
	}
	if products == "" {
		products = defaultTransitProducts
	}
	maxWalk := req.TransitMaxWalk
	if maxWalk <= 0 {
		maxWalk = defaultTransitMaxWalk
	}

	// accessId is the documented name; some deployments still want key
	return withQuery(base, url.Values{
		"originCoordLat":  {strconv.FormatFloat(req.FromLat, 'f', -1, 64)},
		"originCoordLong": {strconv.FormatFloat(req.FromLng, 'f', -1, 64)},
		"destCoordLat":    {strconv.FormatFloat(req.ToLat, 'f', -1, 64)},
		"destCoordLong":   {strconv.FormatFloat(req.ToLng, 'f', -1, 64)},
		"products":        {products},
		"maxWalkDist":     {strconv.Itoa(maxWalk)},
		"format":          {"json"},
		"accessId":        {c.cfg.ResRobot.APIKey},
		"key":             {c.cfg.ResRobot.APIKey},
	})
}

func (c *Client) routeTransit(ctx context.Context, req RouteRequest) (*RouteResponse, error) {
	if c.cfg.ResRobot.APIKey == "" {
		return nil, ErrMissingKey
	}

	apiURL, err := c.transitURL(req)
	if err != nil {
		return nil, err
	}

	var rResp resrobotResponse
	if err := c.getJSON(ctx, "resrobot", apiURL, &rResp); err != nil {
		return nil, err
	}

	if len(rResp.Trip) == 0 {
		return nil, ErrNoRoute
	}

	trip := rResp.Trip[0]
	legs := trip.legs()
	result := &RouteResponse{
		Duration: parseISODuration(trip.Duration).Seconds(),
		Mode:     req.Mode,
		Language: req.Language,
		Source:   "resrobot",
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

	var line orb.LineString
	for _, leg := range legs {
		var instruction string
		if leg.isWalk() {
			instruction = generateTransitWalkText(leg, req.Language)
		} else {
			var origin, dest string
			if leg.Origin != nil {
				origin = leg.Origin.Name
			}
			if leg.Destination != nil {
				dest = leg.Destination.Name
			}
			instruction = i18n.T(req.Language, "transit_leg", i18n.Vars{
				"name":   leg.vehicleName(req.Language),
				"origin": origin,
				"dest":   dest,
			})
		}

		step := directions.Step{
			Instruction: instruction,
			Distance:    leg.distance(),
			Duration:    parseISODuration(leg.Duration).Seconds(),
			Icon:        getTransitIcon(leg),
		}
		if leg.Origin != nil {
			step.Lat, step.Lon = float64(leg.Origin.Lat), float64(leg.Origin.Lon)
		}
		result.Steps = append(result.Steps, step)
		result.Distance += leg.distance()

		// simple polyline through the stops
		for _, stop := range []*resrobotStop{leg.Origin, leg.Destination} {
			if stop != nil && stop.Lat != 0 && stop.Lon != 0 {
				line = append(line, orb.Point{float64(stop.Lon), float64(stop.Lat)})
			}
		}
	}
	result.setGeometry(line)

	c.logger.Debug("resrobot trip",
		zap.Int("legs", len(legs)),
		zap.Float64("duration", result.Duration),
	)
	return result, nil
}
