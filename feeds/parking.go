package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/paulmach/orb"

	"github.com/nwah/vagvisare/i18n"
)

// ParkingFeed lists parking facilities
type ParkingFeed struct {
	cfg  ParkingConfig
	http *http.Client
}

type parkingFacility struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Capacity   int     `json:"capacity"`
	FreeSpaces *int    `json:"free_spaces"`
}

// Name implements Feed
func (f *ParkingFeed) Name() string { return FeedParking }

// Nearby implements Feed. Facilities outside radius are dropped even if
// the service returned them.
func (f *ParkingFeed) Nearby(ctx context.Context, center orb.Point, radius float64, _ i18n.Language) ([]POI, error) {
	u, err := url.Parse(f.cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("invalid parking url: %w", err)
	}
	q := u.Query()
	q.Set("lat", strconv.FormatFloat(center.Lat(), 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(center.Lon(), 'f', -1, 64))
	q.Set("radius", strconv.Itoa(int(radius)))
	u.RawQuery = q.Encode()

	var facilities []parkingFacility
	if err := getJSON(ctx, f.http, u.String(), FeedParking, &facilities); err != nil {
		return nil, err
	}

	pois := make([]POI, 0, len(facilities))
	for _, p := range facilities {
		if !within(center, orb.Point{p.Lon, p.Lat}, radius) {
			continue
		}
		var detail string
		switch {
		case p.FreeSpaces != nil && p.Capacity > 0:
			detail = fmt.Sprintf("%d/%d", *p.FreeSpaces, p.Capacity)
		case p.Capacity > 0:
			detail = strconv.Itoa(p.Capacity)
		}
		pois = append(pois, POI{
			Feed:   FeedParking,
			ID:     p.ID,
			Title:  p.Name,
			Detail: detail,
			Lat:    p.Lat,
			Lon:    p.Lon,
		})
	}
	return pois, nil
}
