package nav

import (
	"errors"
	"net/http"
)

// GeocodeErrorKey maps a Geocode error to a status code and the i18n key of
// the message shown to the user.
func GeocodeErrorKey(err error) (int, string) {
	var noResults *ErrNoResults
	if errors.As(err, &noResults) {
		return http.StatusNotFound, "no_place"
	}
	return http.StatusBadGateway, "search_error"
}

// RouteErrorKey maps a Route error to a status code and i18n key
func RouteErrorKey(err error, mode TransportMode) (int, string) {
	switch {
	case errors.Is(err, ErrNoRoute):
		return http.StatusNotFound, "no_route"
	case errors.Is(err, ErrMissingKey):
		return http.StatusServiceUnavailable, "resrobot_error"
	case mode.IsTransit():
		return http.StatusBadGateway, "resrobot_error"
	default:
		return http.StatusBadGateway, "routing_error"
	}
}
