package feeds

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"

	"github.com/nwah/vagvisare/i18n"
)

const situationSchemaVersion = "1.5"

// TrafficFeed reports road works, accidents and other situations from
// Trafikverket's open API
type TrafficFeed struct {
	cfg  TrafikverketConfig
	http *http.Client
}

type tvRequest struct {
	XMLName xml.Name `xml:"REQUEST"`
	Login   tvLogin  `xml:"LOGIN"`
	Query   tvQuery  `xml:"QUERY"`
}

type tvLogin struct {
	AuthenticationKey string `xml:"authenticationkey,attr"`
}

type tvQuery struct {
	ObjectType    string   `xml:"objecttype,attr"`
	SchemaVersion string   `xml:"schemaversion,attr"`
	Limit         int      `xml:"limit,attr"`
	Filter        tvFilter `xml:"FILTER"`
}

type tvFilter struct {
	Near tvNear `xml:"NEAR"`
}

type tvNear struct {
	Name        string `xml:"name,attr"`
	Value       string `xml:"value,attr"`
	MinDistance int    `xml:"mindistance,attr"`
	MaxDistance int    `xml:"maxdistance,attr"`
}

type tvDeviation struct {
	ID                 string `json:"Id"`
	Header             string `json:"Header"`
	Message            string `json:"Message"`
	MessageType        string `json:"MessageType"`
	LocationDescriptor string `json:"LocationDescriptor"`
	Geometry           struct {
		WGS84 string `json:"WGS84"`
	} `json:"Geometry"`
}

type tvSituation struct {
	ID        string        `json:"Id"`
	Deviation []tvDeviation `json:"Deviation"`
}

type tvResponse struct {
	Response struct {
		Result []struct {
			Situation []tvSituation `json:"Situation"`
			Error     *struct {
				Source  string `json:"SOURCE"`
				Message string `json:"MESSAGE"`
			} `json:"ERROR"`
		} `json:"RESULT"`
	} `json:"RESPONSE"`
}

// Name implements Feed
func (f *TrafficFeed) Name() string { return FeedTraffic }

func situationQuery(key string, center orb.Point, radius float64) ([]byte, error) {
	body, err := xml.Marshal(tvRequest{
		Login: tvLogin{AuthenticationKey: key},
		Query: tvQuery{
			ObjectType:    "Situation",
			SchemaVersion: situationSchemaVersion,
			Limit:         50,
			Filter: tvFilter{Near: tvNear{
				Name:        "Deviation.Geometry.WGS84",
				Value:       strconv.FormatFloat(center.Lon(), 'f', 6, 64) + " " + strconv.FormatFloat(center.Lat(), 'f', 6, 64),
				MaxDistance: int(radius),
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error encoding trafikverket query: %w", err)
	}
	return body, nil
}

// deviationPoint reads the WKT geometry of a deviation. Lines and polygons
// are reduced to the centre of their bounds.
func deviationPoint(raw string) (orb.Point, bool) {
	if strings.TrimSpace(raw) == "" {
		return orb.Point{}, false
	}
	geom, err := wkt.Unmarshal(raw)
	if err != nil {
		return orb.Point{}, false
	}
	if p, ok := geom.(orb.Point); ok {
		return p, true
	}
	return geom.Bound().Center(), true
}

// Nearby implements Feed
func (f *TrafficFeed) Nearby(ctx context.Context, center orb.Point, radius float64, _ i18n.Language) ([]POI, error) {
	body, err := situationQuery(f.cfg.APIKey, center, radius)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating trafikverket request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml")

	var resp tvResponse
	if err := doJSON(f.http, req, FeedTraffic, &resp); err != nil {
		return nil, err
	}

	pois := []POI{}
	for _, result := range resp.Response.Result {
		if result.Error != nil {
			return nil, fmt.Errorf("trafikverket error: %s", result.Error.Message)
		}
		for _, situation := range result.Situation {
			for _, dev := range situation.Deviation {
				p, ok := deviationPoint(dev.Geometry.WGS84)
				if !ok {
					continue
				}
				title := dev.Header
				if title == "" {
					title = dev.MessageType
				}
				id := dev.ID
				if id == "" {
					id = situation.ID
				}
				pois = append(pois, POI{
					Feed:   FeedTraffic,
					ID:     id,
					Title:  title,
					Detail: strings.TrimSpace(dev.LocationDescriptor + " " + dev.Message),
					Lat:    p.Lat(),
					Lon:    p.Lon(),
				})
			}
		}
	}
	return pois, nil
}
