package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nwah/vagvisare/directions"
	"github.com/nwah/vagvisare/i18n"
	"github.com/nwah/vagvisare/mapview"
	"github.com/nwah/vagvisare/nav"
	"github.com/nwah/vagvisare/settings"
)

// Manager owns every session. All methods are safe for concurrent use.
//
// Search, StartRoute and Cancel each start a new generation of the session
// and cancel the request of the previous one. A result is only committed if
// its generation is still current, so a slow response can never overwrite
// newer state.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	planner  nav.Service
	logger   *zap.Logger
	now      func() time.Time
}

// NewManager creates a Manager that plans with planner
func NewManager(planner nav.Service, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		planner:  planner,
		logger:   logger,
		now:      time.Now,
	}
}

// Create starts a new session for clientID
func (m *Manager) Create(clientID string) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &Session{
		ID:       uuid.NewString(),
		ClientID: clientID,
		lastSeen: m.now(),
	}
	m.sessions[s.ID] = s
	m.logger.Info("session created", zap.String("session", s.ID), zap.String("client", clientID))
	return s.state(i18n.DefaultLanguage)
}

// lookup returns the session and marks it as used. m.mu must be held.
func (m *Manager) lookup(id string) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.lastSeen = m.now()
	return s, nil
}

// Get returns a snapshot of the session with directions rendered in lang
func (m *Manager) Get(id string, lang i18n.Language) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id)
	if err != nil {
		return State{}, err
	}
	return s.state(lang), nil
}

// ClientID returns the client that owns the session
func (m *Manager) ClientID(id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id)
	if err != nil {
		return "", err
	}
	return s.ClientID, nil
}

// Delete removes the session and cancels its in-flight request
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.supersede()
	delete(m.sessions, id)
	return nil
}

// Prune removes sessions idle for longer than maxIdle and returns how many
// were removed.
func (m *Manager) Prune(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxIdle)
	removed := 0
	for id, s := range m.sessions {
		if s.lastSeen.Before(cutoff) {
			s.supersede()
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info("pruned idle sessions", zap.Int("removed", removed), zap.Int("remaining", len(m.sessions)))
	}
	return removed
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// UpdatePosition records a position fix and returns how the client map
// should move.
func (m *Manager) UpdatePosition(id string, lat, lon, speed float64, follow bool) (mapview.Camera, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id)
	if err != nil {
		return mapview.Camera{}, err
	}
	first := s.Position == nil
	s.Position = &Position{Lat: lat, Lon: lon, Speed: speed, At: m.now()}
	return mapview.Follow(first, follow, s.Position.Point()), nil
}

// Recenter returns the camera move onto the last known position
func (m *Manager) Recenter(id string) (mapview.Camera, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id)
	if err != nil {
		return mapview.Camera{}, err
	}
	if s.Position == nil {
		return mapview.Camera{}, ErrNoPosition
	}
	return mapview.Recenter(s.Position.Point()), nil
}

// begin runs check and starts a new generation for the session. The
// returned context is cancelled once a newer generation starts.
func (m *Manager) begin(ctx context.Context, id string, check func(*Session) error) (context.Context, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id)
	if err != nil {
		return nil, 0, err
	}
	if check != nil {
		if err := check(s); err != nil {
			return nil, 0, err
		}
	}
	gen := s.supersede()
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	return ctx, gen, nil
}

// finish applies the result of generation gen, or reports why it can't.
// A nil apply only releases the generation's context.
func (m *Manager) finish(id string, gen uint64, apply func(*Session)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if s.generation != gen {
		return ErrSuperseded
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if apply != nil {
		apply(s)
	}
	return nil
}

// Search geocodes query and makes the best match the session's destination.
// The previous destination and any active route are discarded.
func (m *Manager) Search(ctx context.Context, id, query string, st settings.Settings) (*nav.GeocodeResponse, error) {
	ctx, gen, err := m.begin(ctx, id, nil)
	if err != nil {
		return nil, err
	}

	results, err := m.planner.Geocode(ctx, query, st.Language)
	if err == nil && len(results) == 0 {
		err = &nav.ErrNoResults{Query: query}
	}
	if err != nil {
		if ferr := m.finish(id, gen, nil); ferr != nil {
			return nil, ferr
		}
		return nil, err
	}

	dest := results[0]
	err = m.finish(id, gen, func(s *Session) {
		s.Destination = &dest
		s.clearRoute()
	})
	if err != nil {
		m.logger.Debug("discarding stale search", zap.String("session", id), zap.Error(err))
		return nil, err
	}
	return &dest, nil
}

// StartRoute plans a route from the current position to the destination
// and returns the first page of directions.
func (m *Manager) StartRoute(ctx context.Context, id string, st settings.Settings) (*Guidance, error) {
	var req nav.RouteRequest
	ctx, gen, err := m.begin(ctx, id, func(s *Session) error {
		if s.Position == nil {
			return ErrNoPosition
		}
		if s.Destination == nil {
			return ErrNoDestination
		}
		req = st.RouteRequest(nav.RouteRequest{
			FromLat:  s.Position.Lat,
			FromLng:  s.Position.Lon,
			ToLat:    s.Destination.Lat,
			ToLng:    s.Destination.Lng,
			FromDesc: i18n.T(st.Language, "you_are_here", nil),
			ToDesc:   s.Destination.Name,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	route, err := m.planner.Route(ctx, req)
	if err == nil && (route == nil || len(route.Steps) == 0) {
		// nothing to guide along
		err = nav.ErrNoRoute
	}
	if err != nil {
		if ferr := m.finish(id, gen, nil); ferr != nil {
			return nil, ferr
		}
		return nil, err
	}

	var g *Guidance
	err = m.finish(id, gen, func(s *Session) {
		s.Route = route
		s.window = directions.NewWindow(route.Steps)
		g = &Guidance{
			Page:      s.window.Page(st.Language),
			Utterance: directions.Narrate(s.window, st.Language),
		}
	})
	if err != nil {
		m.logger.Debug("discarding stale route", zap.String("session", id), zap.Error(err))
		return nil, err
	}

	m.logger.Info("route started",
		zap.String("session", id),
		zap.String("mode", string(req.Mode)),
		zap.Int("steps", len(route.Steps)),
	)
	return g, nil
}

// Cancel clears the destination and route and abandons in-flight requests
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id)
	if err != nil {
		return err
	}
	s.supersede()
	s.Destination = nil
	s.clearRoute()
	return nil
}

// Route returns the active route
func (m *Manager) Route(id string) (*nav.RouteResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	if s.Route == nil {
		return nil, ErrNoRoute
	}
	return s.Route, nil
}

// Directions returns the visible page without moving
func (m *Manager) Directions(id string, lang i18n.Language) (*Guidance, error) {
	return m.page(id, lang, nil)
}

// Next moves one window forward
func (m *Manager) Next(id string, lang i18n.Language) (*Guidance, error) {
	return m.page(id, lang, (*directions.Window).Next)
}

// Prev moves one window back
func (m *Manager) Prev(id string, lang i18n.Language) (*Guidance, error) {
	return m.page(id, lang, (*directions.Window).Prev)
}

func (m *Manager) page(id string, lang i18n.Language, move func(*directions.Window)) (*Guidance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	if s.window == nil {
		return nil, ErrNoRoute
	}
	if move != nil {
		move(s.window)
	}
	return s.guidance(lang)
}
