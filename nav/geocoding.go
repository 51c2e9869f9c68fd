package nav

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/nwah/vagvisare/i18n"
)

type nominatimAddress struct {
	HouseNumber  string `json:"house_number"`
	Road         string `json:"road"`
	Suburb       string `json:"suburb"`
	City         string `json:"city"`
	Town         string `json:"town"`
	Village      string `json:"village"`
	Municipality string `json:"municipality"`
	County       string `json:"county"`
	State        string `json:"state"`
	PostCode     string `json:"postcode"`
	Country      string `json:"country"`
	CountryCode  string `json:"country_code"` // Two-letter ISO country code
}

type nominatimResponse struct {
	DisplayName string           `json:"display_name"`
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	Address     nominatimAddress `json:"address"`
	Importance  float64          `json:"importance"`
}

// city returns the most specific settlement name available
func (a nominatimAddress) city() string {
	for _, c := range []string{a.City, a.Town, a.Village, a.Suburb, a.Municipality, a.County} {
		if c != "" {
			return c
		}
	}
	return ""
}

// components lists the non-empty address parts from most to least specific
func (a nominatimAddress) components() []string {
	var parts []string
	for _, p := range []string{a.Road, a.HouseNumber, a.Suburb, a.city(), a.State, a.PostCode, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// formatAddress builds a Swedish style short address: "Road 12, 111 22 City"
func formatAddress(addr nominatimAddress) string {
	street := strings.TrimSpace(addr.Road + " " + addr.HouseNumber)

	var cityParts []string
	if addr.PostCode != "" {
		cityParts = append(cityParts, addr.PostCode)
	}
	if city := addr.city(); city != "" {
		cityParts = append(cityParts, city)
	}

	var parts []string
	if street != "" {
		parts = append(parts, street)
	}
	if len(cityParts) > 0 {
		parts = append(parts, strings.Join(cityParts, " "))
	}
	return strings.Join(parts, ", ")
}

// displayName prefers Nominatim's display_name and falls back to the first
// three address components
func displayName(r nominatimResponse) string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	parts := r.Address.components()
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return strings.Join(parts, ", ")
}

// searchURL accepts a base with or without the /search path
func searchURL(base string) string {
	if strings.Contains(base, "/search") {
		return base
	}
	return strings.TrimRight(base, "/") + "/search"
}

// Geocode looks query up in Nominatim and returns up to five candidates,
// best first.
func (c *Client) Geocode(ctx context.Context, query string, lang i18n.Language) ([]GeocodeResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	params := url.Values{
		"q":               {query},
		"format":          {"json"},
		"limit":           {"5"},
		"addressdetails":  {"1"},
		"accept-language": {string(lang)},
	}
	apiURL, err := withQuery(searchURL(c.cfg.NominatimURL), params)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for nominatim rate limit: %w", err)
	}

	var nominatimResults []nominatimResponse
	if err := c.getJSON(ctx, "nominatim", apiURL, &nominatimResults); err != nil {
		return nil, err
	}

	if len(nominatimResults) == 0 {
		return nil, &ErrNoResults{Query: query}
	}

	results := make([]GeocodeResponse, 0, len(nominatimResults))
	for _, result := range nominatimResults {
		lat, err := strconv.ParseFloat(result.Lat, 64)
		if err != nil {
			return nil, fmt.Errorf("error parsing latitude: %w", err)
		}
		lng, err := strconv.ParseFloat(result.Lon, 64)
		if err != nil {
			return nil, fmt.Errorf("error parsing longitude: %w", err)
		}

		results = append(results, GeocodeResponse{
			Name:       displayName(result),
			Address:    formatAddress(result.Address),
			Lat:        lat,
			Lng:        lng,
			Importance: result.Importance,
			Country:    strings.ToLower(result.Address.CountryCode),
		})
	}

	c.logger.Debug("geocode results",
		zap.String("query", query),
		zap.Int("count", len(results)),
	)
	return results, nil
}
