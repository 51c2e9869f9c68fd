package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/nwah/vagvisare/feeds"
	"github.com/nwah/vagvisare/i18n"
	"github.com/nwah/vagvisare/mapview"
	"github.com/nwah/vagvisare/settings"
)

const (
	defaultFeedRadius = 2000
	maxFeedRadius     = 50000
)

type settingsResponse struct {
	Settings settings.Settings `json:"settings"`
	Message  string            `json:"message,omitempty"`
	Camera   *mapview.Camera   `json:"camera,omitempty"`
}

// queryPoint reads lat and lon query parameters
func queryPoint(r *http.Request) (orb.Point, bool) {
	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		return orb.Point{}, false
	}
	lon, err := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		return orb.Point{}, false
	}
	return orb.Point{lon, lat}, true
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	st := settings.Defaults()
	if client := r.URL.Query().Get("client"); client != "" {
		loaded, err := s.store.Load(r.Context(), client)
		if err != nil {
			s.logger.Error("loading settings", zap.String("client", client), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "bad_request", language(r, st))
			return
		}
		st = loaded
	}

	var position *orb.Point
	if p, ok := queryPoint(r); ok {
		position = &p
	}
	writeJSON(w, http.StatusOK, s.mapCfg.View(st, position))
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	client := chi.URLParam(r, "client")
	st, err := s.store.Load(r.Context(), client)
	if err != nil {
		s.logger.Error("loading settings", zap.String("client", client), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "bad_request", language(r, settings.Defaults()))
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{Settings: st})
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	client := chi.URLParam(r, "client")

	var u settings.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", language(r, settings.Defaults()))
		return
	}

	st, err := s.store.Update(r.Context(), client, u)
	if err != nil {
		status, key, ok := stateErrorKey(err)
		if !ok {
			s.logger.Error("saving settings", zap.String("client", client), zap.Error(err))
			status, key = http.StatusInternalServerError, "bad_request"
		}
		writeError(w, status, key, language(r, settings.Defaults()))
		return
	}

	s.logger.Info("settings saved", zap.String("client", client))
	writeJSON(w, http.StatusOK, settingsResponse{
		Settings: st,
		Message:  i18n.T(st.Language, "saved_settings", nil),
		Camera:   s.followCamera(client, r.URL.Query().Get("session"), st),
	})
}

// followCamera centres the client's map on the session position when follow
// is on. It is nil without a session of this client or a known position.
func (s *Server) followCamera(client, sessionID string, st settings.Settings) *mapview.Camera {
	if sessionID == "" || !st.Follow {
		return nil
	}
	if owner, err := s.sessions.ClientID(sessionID); err != nil || owner != client {
		return nil
	}
	camera, err := s.sessions.Recenter(sessionID)
	if err != nil {
		return nil
	}
	return &camera
}

func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	lang := i18n.ParseLanguage(r.URL.Query().Get("lang"))

	center, ok := queryPoint(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "location_error", lang)
		return
	}

	radius := float64(defaultFeedRadius)
	if v := r.URL.Query().Get("radius"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", lang)
			return
		}
		radius = min(n, maxFeedRadius)
	}

	if s.feeds == nil {
		writeJSON(w, http.StatusOK, feeds.Result{POIs: []feeds.POI{}})
		return
	}
	writeJSON(w, http.StatusOK, s.feeds.Nearby(r.Context(), center, radius, lang))
}
