// Package feeds looks up points of interest near the user in the traffic,
// charging, parking and weather services.
package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nwah/vagvisare/i18n"
)

// Feed names
const (
	FeedTraffic  = "traffic"
	FeedCharging = "charging"
	FeedParking  = "parking"
	FeedWeather  = "weather"
)

const defaultTimeout = 10 * time.Second

// Config holds the endpoints of every feed. A feed without a URL is off.
type Config struct {
	Trafikverket   TrafikverketConfig `toml:"trafikverket"`
	Charging       ChargingConfig     `toml:"charging"`
	Parking        ParkingConfig      `toml:"parking"`
	Weather        WeatherConfig      `toml:"weather"`
	TimeoutSeconds int                `toml:"timeout_seconds"`
}

// TrafikverketConfig configures the traffic situation feed
type TrafikverketConfig struct {
	APIURL string `toml:"api_url"`
	APIKey string `toml:"api_key"`
}

// ChargingConfig configures the OpenChargeMap feed
type ChargingConfig struct {
	APIURL     string `toml:"api_url"`
	APIKey     string `toml:"api_key"`
	MaxResults int    `toml:"max_results"`
}

// ParkingConfig configures the parking feed
type ParkingConfig struct {
	APIURL string `toml:"api_url"`
}

// WeatherConfig configures the SMHI warnings feed
type WeatherConfig struct {
	APIURL string `toml:"api_url"`
}

// POI is a point of interest from one of the feeds
type POI struct {
	Feed     string  `json:"feed"`
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Detail   string  `json:"detail,omitempty"`
	Lat      float64 `json:"lat,omitempty"`
	Lon      float64 `json:"lon,omitempty"`
	Distance float64 `json:"distance,omitempty"` // meters from the query point
}

// Feed is one source of points of interest
type Feed interface {
	Name() string
	Nearby(ctx context.Context, center orb.Point, radius float64, lang i18n.Language) ([]POI, error)
}

// Result combines every feed's answer. A failing feed is listed in Errors
// and does not affect the others.
type Result struct {
	POIs   []POI             `json:"pois"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Aggregator queries all configured feeds concurrently
type Aggregator struct {
	feeds  []Feed
	logger *zap.Logger
}

// NewAggregator creates an Aggregator with every feed enabled in cfg
func NewAggregator(cfg Config, httpClient *http.Client, logger *zap.Logger) *Aggregator {
	if httpClient == nil {
		timeout := defaultTimeout
		if cfg.TimeoutSeconds > 0 {
			timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var feeds []Feed
	if cfg.Trafikverket.APIURL != "" && cfg.Trafikverket.APIKey != "" {
		feeds = append(feeds, &TrafficFeed{cfg: cfg.Trafikverket, http: httpClient})
	}
	if cfg.Charging.APIURL != "" {
		feeds = append(feeds, &ChargingFeed{cfg: cfg.Charging, http: httpClient})
	}
	if cfg.Parking.APIURL != "" {
		feeds = append(feeds, &ParkingFeed{cfg: cfg.Parking, http: httpClient})
	}
	if cfg.Weather.APIURL != "" {
		feeds = append(feeds, &WeatherFeed{cfg: cfg.Weather, http: httpClient})
	}
	return NewAggregatorWith(logger, feeds...)
}

// NewAggregatorWith creates an Aggregator over the given feeds
func NewAggregatorWith(logger *zap.Logger, feeds ...Feed) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{feeds: feeds, logger: logger}
}

// Feeds returns the names of the enabled feeds
func (a *Aggregator) Feeds() []string {
	names := make([]string, 0, len(a.feeds))
	for _, f := range a.feeds {
		names = append(names, f.Name())
	}
	return names
}

// Nearby asks every feed for points within radius meters of center. POIs
// are sorted by distance; those without a position come last.
func (a *Aggregator) Nearby(ctx context.Context, center orb.Point, radius float64, lang i18n.Language) Result {
	var (
		mu     sync.Mutex
		result = Result{POIs: []POI{}}
		g      errgroup.Group
	)

	for _, f := range a.feeds {
		g.Go(func() error {
			pois, err := f.Nearby(ctx, center, radius, lang)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				a.logger.Warn("feed failed", zap.String("feed", f.Name()), zap.Error(err))
				if result.Errors == nil {
					result.Errors = make(map[string]string)
				}
				result.Errors[f.Name()] = err.Error()
				return nil
			}
			result.POIs = append(result.POIs, pois...)
			return nil
		})
	}
	g.Wait()

	for i := range result.POIs {
		p := &result.POIs[i]
		if p.Lat != 0 || p.Lon != 0 {
			p.Distance = geo.Distance(center, orb.Point{p.Lon, p.Lat})
		}
	}
	sort.SliceStable(result.POIs, func(i, j int) bool {
		pi, pj := result.POIs[i], result.POIs[j]
		hasI, hasJ := pi.Lat != 0 || pi.Lon != 0, pj.Lat != 0 || pj.Lon != 0
		if hasI != hasJ {
			return hasI
		}
		return pi.Distance < pj.Distance
	})
	return result
}

// within reports whether p lies inside radius meters of center
func within(center orb.Point, p orb.Point, radius float64) bool {
	return geo.Distance(center, p) <= radius
}

// doJSON performs req and decodes a 200 response into out
func doJSON(client *http.Client, req *http.Request, feed string, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error making request to %s: %w", feed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading %s response body: %w", feed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d: %s", feed, resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("error decoding %s response: %w", feed, err)
	}
	return nil
}

func getJSON(ctx context.Context, client *http.Client, apiURL, feed string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("error creating %s request: %w", feed, err)
	}
	return doJSON(client, req, feed, out)
}
