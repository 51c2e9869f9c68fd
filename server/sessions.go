package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nwah/vagvisare/i18n"
	"github.com/nwah/vagvisare/nav"
	"github.com/nwah/vagvisare/session"
	"github.com/nwah/vagvisare/settings"
)

type createSessionRequest struct {
	ClientID string `json:"client_id"`
}

// positionRequest is one fix. Lat and Lon are pointers so a fix without
// coordinates is told apart from 0,0.
type positionRequest struct {
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
	Speed float64  `json:"speed"`
}

func (p positionRequest) valid() bool {
	if p.Lat == nil || p.Lon == nil {
		return false
	}
	return *p.Lat >= -90 && *p.Lat <= 90 && *p.Lon >= -180 && *p.Lon <= 180
}

type searchRequest struct {
	Query string `json:"query"`
}

type searchResponse struct {
	Destination *nav.GeocodeResponse `json:"destination"`
}

// language picks ?lang when given, otherwise the stored preference
func language(r *http.Request, st settings.Settings) i18n.Language {
	if v := r.URL.Query().Get("lang"); v != "" {
		return i18n.ParseLanguage(v)
	}
	return st.Language
}

// sessionSettings loads the settings of the client owning the session in
// the URL. On failure the error response has been written.
func (s *Server) sessionSettings(w http.ResponseWriter, r *http.Request) (string, settings.Settings, bool) {
	id := chi.URLParam(r, "id")
	clientID, err := s.sessions.ClientID(id)
	if err != nil {
		status, key := errorKey(err, nil)
		writeError(w, status, key, language(r, settings.Defaults()))
		return "", settings.Settings{}, false
	}
	st, err := s.store.Load(r.Context(), clientID)
	if err != nil {
		s.logger.Error("loading settings", zap.String("client", clientID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "bad_request", language(r, settings.Defaults()))
		return "", settings.Settings{}, false
	}
	st.Language = language(r, st)
	return id, st, true
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	// the body is optional
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", language(r, settings.Defaults()))
		return
	}
	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" {
		clientID = uuid.NewString()
	}
	writeJSON(w, http.StatusCreated, s.sessions.Create(clientID))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, st, ok := s.sessionSettings(w, r)
	if !ok {
		return
	}
	state, err := s.sessions.Get(id, st.Language)
	if err != nil {
		status, key := errorKey(err, nil)
		writeError(w, status, key, st.Language)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(chi.URLParam(r, "id")); err != nil {
		status, key := errorKey(err, nil)
		writeError(w, status, key, language(r, settings.Defaults()))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	id, st, ok := s.sessionSettings(w, r)
	if !ok {
		return
	}

	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.valid() {
		writeError(w, http.StatusBadRequest, "location_error", st.Language)
		return
	}

	camera, err := s.sessions.UpdatePosition(id, *req.Lat, *req.Lon, req.Speed, st.Follow)
	if err != nil {
		status, key := errorKey(err, nil)
		writeError(w, status, key, st.Language)
		return
	}
	writeJSON(w, http.StatusOK, camera)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	id, st, ok := s.sessionSettings(w, r)
	if !ok {
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", st.Language)
		return
	}

	dest, err := s.sessions.Search(r.Context(), id, req.Query, st)
	if err != nil {
		s.logger.Warn("search failed", zap.String("session", id), zap.Error(err))
		status, key := errorKey(err, nav.GeocodeErrorKey)
		writeError(w, status, key, st.Language)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Destination: dest})
}

func (s *Server) handleStartRoute(w http.ResponseWriter, r *http.Request) {
	id, st, ok := s.sessionSettings(w, r)
	if !ok {
		return
	}

	g, err := s.sessions.StartRoute(r.Context(), id, st)
	if err != nil {
		s.logger.Warn("route failed", zap.String("session", id), zap.Error(err))
		status, key := errorKey(err, func(err error) (int, string) {
			return nav.RouteErrorKey(err, st.Mode)
		})
		writeError(w, status, key, st.Language)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleCancelRoute(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Cancel(chi.URLParam(r, "id")); err != nil {
		status, key := errorKey(err, nil)
		writeError(w, status, key, language(r, settings.Defaults()))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRouteGPX(w http.ResponseWriter, r *http.Request) {
	id, st, ok := s.sessionSettings(w, r)
	if !ok {
		return
	}

	route, err := s.sessions.Route(id)
	if err != nil {
		status, key := errorKey(err, nil)
		writeError(w, status, key, st.Language)
		return
	}
	data, err := nav.ToGPX(route)
	if err != nil {
		s.logger.Error("gpx export", zap.String("session", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "routing_error", st.Language)
		return
	}
	w.Header().Set("Content-Type", "application/gpx+xml")
	w.Header().Set("Content-Disposition", `attachment; filename="route.gpx"`)
	w.Write(data)
}

type pageFunc func(id string, lang i18n.Language) (*session.Guidance, error)

func (s *Server) handlePage(move pageFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, st, ok := s.sessionSettings(w, r)
		if !ok {
			return
		}
		g, err := move(id, st.Language)
		if err != nil {
			status, key := errorKey(err, nil)
			writeError(w, status, key, st.Language)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

func (s *Server) handleDirections(w http.ResponseWriter, r *http.Request) {
	s.handlePage(s.sessions.Directions)(w, r)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.handlePage(s.sessions.Next)(w, r)
}

func (s *Server) handlePrev(w http.ResponseWriter, r *http.Request) {
	s.handlePage(s.sessions.Prev)(w, r)
}
