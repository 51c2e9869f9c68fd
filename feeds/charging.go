package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/nwah/vagvisare/i18n"
)

const defaultChargingResults = 20

// ChargingFeed lists charging stations from OpenChargeMap
type ChargingFeed struct {
	cfg  ChargingConfig
	http *http.Client
}

type ocmPOI struct {
	ID          int `json:"ID"`
	AddressInfo struct {
		Title        string  `json:"Title"`
		AddressLine1 string  `json:"AddressLine1"`
		Town         string  `json:"Town"`
		Latitude     float64 `json:"Latitude"`
		Longitude    float64 `json:"Longitude"`
	} `json:"AddressInfo"`
	NumberOfPoints int `json:"NumberOfPoints"`
	Connections    []struct {
		PowerKW float64 `json:"PowerKW"`
	} `json:"Connections"`
}

// Name implements Feed
func (f *ChargingFeed) Name() string { return FeedCharging }

func (f *ChargingFeed) url(center orb.Point, radius float64) (string, error) {
	u, err := url.Parse(f.cfg.APIURL)
	if err != nil {
		return "", fmt.Errorf("invalid charging url: %w", err)
	}
	maxResults := f.cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultChargingResults
	}
	q := u.Query()
	q.Set("output", "json")
	q.Set("latitude", strconv.FormatFloat(center.Lat(), 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(center.Lon(), 'f', -1, 64))
	q.Set("distance", strconv.FormatFloat(radius/1000, 'f', -1, 64))
	q.Set("distanceunit", "KM")
	q.Set("maxresults", strconv.Itoa(maxResults))
	if f.cfg.APIKey != "" {
		q.Set("key", f.cfg.APIKey)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Nearby implements Feed
func (f *ChargingFeed) Nearby(ctx context.Context, center orb.Point, radius float64, _ i18n.Language) ([]POI, error) {
	apiURL, err := f.url(center, radius)
	if err != nil {
		return nil, err
	}

	var stations []ocmPOI
	if err := getJSON(ctx, f.http, apiURL, FeedCharging, &stations); err != nil {
		return nil, err
	}

	pois := make([]POI, 0, len(stations))
	for _, s := range stations {
		var maxKW float64
		for _, c := range s.Connections {
			maxKW = max(maxKW, c.PowerKW)
		}
		var detail []string
		if addr := strings.TrimSpace(s.AddressInfo.AddressLine1 + " " + s.AddressInfo.Town); addr != "" {
			detail = append(detail, addr)
		}
		if s.NumberOfPoints > 0 {
			detail = append(detail, fmt.Sprintf("%d points", s.NumberOfPoints))
		}
		if maxKW > 0 {
			detail = append(detail, fmt.Sprintf("%.0f kW", maxKW))
		}
		pois = append(pois, POI{
			Feed:   FeedCharging,
			ID:     strconv.Itoa(s.ID),
			Title:  s.AddressInfo.Title,
			Detail: strings.Join(detail, ", "),
			Lat:    s.AddressInfo.Latitude,
			Lon:    s.AddressInfo.Longitude,
		})
	}
	return pois, nil
}
