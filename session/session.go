// Package session keeps the navigation state of each connected client: its
// position, the chosen destination and the active route.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/paulmach/orb"

	"github.com/nwah/vagvisare/directions"
	"github.com/nwah/vagvisare/i18n"
	"github.com/nwah/vagvisare/nav"
)

var (
	// ErrNotFound is returned for an unknown or pruned session id
	ErrNotFound = errors.New("session not found")
	// ErrNoPosition is returned when routing before the first position fix
	ErrNoPosition = errors.New("no position known")
	// ErrNoDestination is returned when routing before a search
	ErrNoDestination = errors.New("no destination selected")
	// ErrNoRoute is returned by the direction calls when no route is active
	ErrNoRoute = errors.New("no active route")
	// ErrSuperseded is returned when a newer search, route or cancel
	// replaced the request before it completed
	ErrSuperseded = errors.New("request superseded")
)

// Position is the last fix reported by the client
type Position struct {
	Lat   float64   `json:"lat"`
	Lon   float64   `json:"lon"`
	Speed float64   `json:"speed"` // m/s
	At    time.Time `json:"at"`
}

// Point returns the position as an orb point
func (p Position) Point() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// Session is one client's navigation state. At most one destination and one
// route exist at a time; a new one replaces the prior one.
type Session struct {
	ID          string
	ClientID    string
	Position    *Position
	Destination *nav.GeocodeResponse
	Route       *nav.RouteResponse

	window     *directions.Window
	generation uint64
	cancel     context.CancelFunc
	lastSeen   time.Time
}

// State is the client-facing snapshot of a session
type State struct {
	ID          string               `json:"id"`
	ClientID    string               `json:"client_id"`
	Position    *Position            `json:"position,omitempty"`
	Destination *nav.GeocodeResponse `json:"destination,omitempty"`
	Route       *nav.RouteResponse   `json:"route,omitempty"`
	Directions  *directions.Page     `json:"directions,omitempty"`
}

// Guidance is a page of directions plus what should be spoken for it
type Guidance struct {
	Page      directions.Page       `json:"page"`
	Utterance *directions.Utterance `json:"utterance,omitempty"`
}

func (s *Session) state(lang i18n.Language) State {
	st := State{
		ID:          s.ID,
		ClientID:    s.ClientID,
		Position:    s.Position,
		Destination: s.Destination,
		Route:       s.Route,
	}
	if s.window != nil {
		page := s.window.Page(lang)
		st.Directions = &page
	}
	return st
}

func (s *Session) guidance(lang i18n.Language) (*Guidance, error) {
	if s.window == nil || s.window.Len() == 0 {
		return nil, ErrNoRoute
	}
	return &Guidance{
		Page:      s.window.Page(lang),
		Utterance: directions.Narrate(s.window, lang),
	}, nil
}

// clearRoute drops the route and its window
func (s *Session) clearRoute() {
	s.Route = nil
	s.window = nil
}

// supersede starts a new generation, cancelling whatever was in flight
func (s *Session) supersede() uint64 {
	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return s.generation
}
