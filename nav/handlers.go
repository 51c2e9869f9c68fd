package nav

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nwah/vagvisare/directions"
	"github.com/nwah/vagvisare/i18n"
)

// Service is the part of Client the HTTP layer depends on
type Service interface {
	Geocode(ctx context.Context, query string, lang i18n.Language) ([]GeocodeResponse, error)
	Route(ctx context.Context, req RouteRequest) (*RouteResponse, error)
}

// Handler serves the stateless /nav endpoints
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new Handler
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers handlers under /nav
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.HandleFunc("/nav/geocode", h.HandleGeocode)
	r.HandleFunc("/nav/route", h.HandleRoute)
	r.Get("/nav/route.gpx", h.HandleRouteGPX)
}

// Helper functions for formatting
func formatDuration(seconds float64) string {
	hours := int(seconds / 3600)
	minutes := int((seconds - float64(hours*3600)) / 60)

	if hours > 0 {
		if minutes > 0 {
			return fmt.Sprintf("%dhr %dmin", hours, minutes)
		}
		return fmt.Sprintf("%dhr", hours)
	}
	return fmt.Sprintf("%dmin", minutes)
}

func formatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0fm", meters)
	}
	return fmt.Sprintf("%.1fkm", meters/1000)
}

func writePlainTextRoute(w http.ResponseWriter, result *RouteResponse) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	fmt.Fprintf(w, "%s\n", formatDuration(result.Duration))
	fmt.Fprintf(w, "%s\n", formatDistance(result.Distance))
	fmt.Fprintf(w, "%d\n", len(result.Steps))

	for _, step := range result.Steps {
		fmt.Fprintf(w, "%s\n", step.Icon)
		fmt.Fprintf(w, "%s\n", directions.FormatStep(step, result.Language))
	}
}

func writePlainTextError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "\n\n0\n%s\n", message)
}

func writeError(w http.ResponseWriter, code int, key string, lang i18n.Language) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{Error: key, Message: i18n.T(lang, key, nil)})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

// ParseLatLng parses "lat,lng"
func ParseLatLng(s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid lat,lng format")
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude: %w", err)
	}

	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude: %w", err)
	}

	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, fmt.Errorf("coordinates out of range")
	}

	return lat, lng, nil
}

// HandleGeocode handles the /nav/geocode endpoint
func (h *Handler) HandleGeocode(w http.ResponseWriter, r *http.Request) {
	lang := i18n.ParseLanguage(r.URL.Query().Get("lang"))

	switch r.Method {
	case http.MethodGet:
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			writeError(w, http.StatusBadRequest, "bad_request", lang)
			return
		}

		h.logger.Debug("geocode query", zap.String("query", query))

		results, err := h.service.Geocode(r.Context(), query, lang)
		if err != nil {
			h.logger.Warn("geocode failed", zap.String("query", query), zap.Error(err))
			code, key := GeocodeErrorKey(err)
			writeError(w, code, key, lang)
			return
		}

		writeJSON(w, results)

	case http.MethodPost:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", lang)
			return
		}
		defer r.Body.Close()

		query := strings.TrimSpace(string(body))
		if query == "" {
			writeError(w, http.StatusBadRequest, "bad_request", lang)
			return
		}

		results, err := h.service.Geocode(r.Context(), query, lang)
		if err != nil {
			code, key := GeocodeErrorKey(err)
			http.Error(w, i18n.T(lang, key, nil), code)
			return
		}

		// Plain text: a count line, then 4 lines per result
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "%d\n", len(results))
		for _, result := range results {
			fmt.Fprintf(w, "%.4f,%.4f\n%s\n%s\n%s\n", result.Lat, result.Lng, result.Name, result.Address, result.Country)
		}

	default:
		writeError(w, http.StatusMethodNotAllowed, "bad_request", lang)
	}
}

// parseRouteQuery reads a RouteRequest from GET parameters
func parseRouteQuery(r *http.Request) (RouteRequest, error) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		return RouteRequest{}, fmt.Errorf("both 'from' and 'to' parameters are required")
	}

	mode, ok := ParseMode(q.Get("mode"))
	if !ok {
		return RouteRequest{}, fmt.Errorf("invalid mode. Must be one of: %s, %s, %s, %s",
			ModeDriving, ModeCycling, ModeWalking, ModePublicTransport)
	}

	fromLat, fromLng, err := ParseLatLng(from)
	if err != nil {
		return RouteRequest{}, fmt.Errorf("invalid 'from' parameter: %w", err)
	}
	toLat, toLng, err := ParseLatLng(to)
	if err != nil {
		return RouteRequest{}, fmt.Errorf("invalid 'to' parameter: %w", err)
	}

	maxWalk, _ := strconv.Atoi(q.Get("maxWalk"))

	return RouteRequest{
		FromLat:         fromLat,
		FromLng:         fromLng,
		ToLat:           toLat,
		ToLng:           toLng,
		FromDesc:        q.Get("fromDesc"),
		ToDesc:          q.Get("toDesc"),
		Mode:            mode,
		Language:        i18n.ParseLanguage(q.Get("lang")),
		TransitProducts: q.Get("products"),
		TransitMaxWalk:  maxWalk,
	}, nil
}

// parseRouteBody reads a RouteRequest from the line based POST format:
// mode, language, from, to and optionally fromDesc and toDesc.
func parseRouteBody(body string) (RouteRequest, error) {
	lines := strings.Split(strings.TrimSpace(body), "\n")
	if len(lines) < 4 {
		return RouteRequest{}, fmt.Errorf("request must contain at least 4 lines")
	}
	for i := range lines {
		lines[i] = strings.TrimSpace(strings.TrimRight(lines[i], "\r"))
	}

	// unknown modes fall back to the default like the GET form's empty value
	mode, _ := ParseMode(lines[0])

	fromLat, fromLng, err := ParseLatLng(lines[2])
	if err != nil {
		return RouteRequest{}, fmt.Errorf("invalid 'from' coordinates")
	}
	toLat, toLng, err := ParseLatLng(lines[3])
	if err != nil {
		return RouteRequest{}, fmt.Errorf("invalid 'to' coordinates")
	}

	req := RouteRequest{
		FromLat:  fromLat,
		FromLng:  fromLng,
		ToLat:    toLat,
		ToLng:    toLng,
		Mode:     mode,
		Language: i18n.ParseLanguage(lines[1]),
	}
	if len(lines) > 4 {
		req.FromDesc = lines[4]
	}
	if len(lines) > 5 {
		req.ToDesc = lines[5]
	}
	return req, nil
}

// HandleRoute handles the /nav/route endpoint
func (h *Handler) HandleRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		req, err := parseRouteQuery(r)
		if err != nil {
			lang := i18n.ParseLanguage(r.URL.Query().Get("lang"))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "bad_request", Message: i18n.T(lang, "bad_request", nil) + " " + err.Error()})
			return
		}

		h.logger.Debug("route parameters",
			zap.String("mode", string(req.Mode)),
			zap.Float64("from_lat", req.FromLat),
			zap.Float64("from_lng", req.FromLng),
			zap.Float64("to_lat", req.ToLat),
			zap.Float64("to_lng", req.ToLng),
		)

		result, err := h.service.Route(r.Context(), req)
		if err != nil {
			h.logger.Warn("route failed", zap.Error(err))
			code, key := RouteErrorKey(err, req.Mode)
			writeError(w, code, key, req.Language)
			return
		}
		writeJSON(w, result)

	case http.MethodPost:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writePlainTextError(w, "failed to read request body")
			return
		}
		defer r.Body.Close()

		req, err := parseRouteBody(string(body))
		if err != nil {
			writePlainTextError(w, err.Error())
			return
		}

		result, err := h.service.Route(r.Context(), req)
		if err != nil {
			_, key := RouteErrorKey(err, req.Mode)
			writePlainTextError(w, i18n.T(req.Language, key, nil))
			return
		}

		writePlainTextRoute(w, result)

	default:
		writeError(w, http.StatusMethodNotAllowed, "bad_request", i18n.DefaultLanguage)
	}
}

// HandleRouteGPX plans a route like GET /nav/route and returns it as GPX
func (h *Handler) HandleRouteGPX(w http.ResponseWriter, r *http.Request) {
	req, err := parseRouteQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", i18n.ParseLanguage(r.URL.Query().Get("lang")))
		return
	}

	result, err := h.service.Route(r.Context(), req)
	if err != nil {
		code, key := RouteErrorKey(err, req.Mode)
		writeError(w, code, key, req.Language)
		return
	}

	data, err := ToGPX(result)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "routing_error", req.Language)
		return
	}
	w.Header().Set("Content-Type", "application/gpx+xml")
	w.Header().Set("Content-Disposition", `attachment; filename="route.gpx"`)
	w.Write(data)
}
