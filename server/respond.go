package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nwah/vagvisare/i18n"
	"github.com/nwah/vagvisare/nav"
	"github.com/nwah/vagvisare/session"
	"github.com/nwah/vagvisare/settings"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError renders the localized message for key
func writeError(w http.ResponseWriter, status int, key string, lang i18n.Language) {
	writeJSON(w, status, nav.ErrorResponse{Error: key, Message: i18n.T(lang, key, nil)})
}

// stateErrorKey maps the errors of the session and settings packages
func stateErrorKey(err error) (int, string, bool) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "not_found", true
	case errors.Is(err, session.ErrNoPosition):
		return http.StatusConflict, "location_error", true
	case errors.Is(err, session.ErrNoDestination):
		return http.StatusConflict, "no_place", true
	case errors.Is(err, session.ErrNoRoute):
		return http.StatusNotFound, "no_route", true
	case errors.Is(err, session.ErrSuperseded):
		return http.StatusConflict, "superseded", true
	case errors.Is(err, settings.ErrInvalid):
		return http.StatusBadRequest, "bad_request", true
	}
	return 0, "", false
}

// errorKey maps err to a status and message key. Errors the domain
// packages don't know are handed to upstream, if given.
func errorKey(err error, upstream func(error) (int, string)) (int, string) {
	if status, key, ok := stateErrorKey(err); ok {
		return status, key
	}
	if upstream != nil {
		return upstream(err)
	}
	return http.StatusInternalServerError, "bad_request"
}
