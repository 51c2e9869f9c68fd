package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nwah/vagvisare/i18n"
	"github.com/nwah/vagvisare/mapview"
	"github.com/nwah/vagvisare/settings"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// trackMessage is the outgoing message for each position received
type trackMessage struct {
	Camera  *mapview.Camera `json:"camera,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

func sendTrackError(conn *websocket.Conn, key string, lang i18n.Language) error {
	return conn.WriteJSON(trackMessage{Error: key, Message: i18n.T(lang, key, nil)})
}

// currentSettings reloads the settings of the session's client, keeping
// prev when they can't be read.
func (s *Server) currentSettings(r *http.Request, id string, prev settings.Settings) settings.Settings {
	clientID, err := s.sessions.ClientID(id)
	if err != nil {
		return prev
	}
	st, err := s.store.Load(r.Context(), clientID)
	if err != nil {
		s.logger.Warn("reloading settings", zap.String("session", id), zap.Error(err))
		return prev
	}
	st.Language = language(r, st)
	return st
}

// handleTrack streams position fixes from the client over a WebSocket and
// answers each with the camera move.
func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	id, st, ok := s.sessionSettings(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", zap.String("session", id), zap.Error(err))
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read", zap.String("session", id), zap.Error(err))
			}
			return
		}

		var pos positionRequest
		if err := json.Unmarshal(msg, &pos); err != nil || !pos.valid() {
			if sendTrackError(conn, "location_error", st.Language) != nil {
				return
			}
			continue
		}

		// settings may change while the stream is open
		st = s.currentSettings(r, id, st)

		camera, err := s.sessions.UpdatePosition(id, *pos.Lat, *pos.Lon, pos.Speed, st.Follow)
		if err != nil {
			status, key := errorKey(err, nil)
			sendTrackError(conn, key, st.Language)
			if status == http.StatusNotFound {
				return
			}
			continue
		}
		if err := conn.WriteJSON(trackMessage{Camera: &camera}); err != nil {
			return
		}
	}
}
