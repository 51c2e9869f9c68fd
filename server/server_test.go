package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkrajina/gpxgo/gpx"

	"github.com/nwah/vagvisare/directions"
	"github.com/nwah/vagvisare/feeds"
	"github.com/nwah/vagvisare/i18n"
	"github.com/nwah/vagvisare/mapview"
	"github.com/nwah/vagvisare/nav"
	"github.com/nwah/vagvisare/session"
	"github.com/nwah/vagvisare/settings"
)

type fakePlanner struct {
	places   []nav.GeocodeResponse
	routeErr error
}

func (f *fakePlanner) Geocode(context.Context, string, i18n.Language) ([]nav.GeocodeResponse, error) {
	if len(f.places) == 0 {
		return nil, &nav.ErrNoResults{Query: "x"}
	}
	return f.places, nil
}

func (f *fakePlanner) Route(_ context.Context, req nav.RouteRequest) (*nav.RouteResponse, error) {
	if f.routeErr != nil {
		return nil, f.routeErr
	}
	return &nav.RouteResponse{
		Mode:     req.Mode,
		Language: req.Language,
		Steps: []directions.Step{
			{Type: "depart", Distance: 50, Lat: req.FromLat, Lon: req.FromLng},
			{Type: "turn", Modifier: "left", Distance: 120},
			{Type: "turn", Modifier: "right", Distance: 300},
			{Type: "arrive", Lat: req.ToLat, Lon: req.ToLng},
		},
		Line: orb.LineString{{req.FromLng, req.FromLat}, {req.ToLng, req.ToLat}},
		From: nav.Location{Desc: req.FromDesc, Lat: req.FromLat, Lng: req.FromLng},
		To:   nav.Location{Desc: req.ToDesc, Lat: req.ToLat, Lng: req.ToLng},
	}, nil
}

type stubFeed struct{}

func (stubFeed) Name() string { return feeds.FeedParking }

func (stubFeed) Nearby(_ context.Context, center orb.Point, _ float64, _ i18n.Language) ([]feeds.POI, error) {
	return []feeds.POI{{Feed: feeds.FeedParking, ID: "p1", Title: "P-hus", Lat: center.Lat() + 0.001, Lon: center.Lon()}}, nil
}

type testEnv struct {
	srv     *Server
	planner *fakePlanner
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()

	store, err := settings.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	planner := &fakePlanner{places: []nav.GeocodeResponse{{Name: "Slussen", Lat: 59.3195, Lng: 18.0722}}}
	srv := New(Config{},
		planner,
		session.NewManager(planner, nil),
		store,
		feeds.NewAggregatorWith(nil, stubFeed{}),
		mapview.Config{},
		nil,
	)
	return &testEnv{srv: srv, planner: planner}
}

func (e *testEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *testEnv) createSession(t *testing.T, client string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/sessions", map[string]string{"client_id": client})
	require.Equal(t, http.StatusCreated, rec.Code)
	st := decode[session.State](t, rec)
	require.NotEmpty(t, st.ID)
	return st.ID
}

func TestHealthz(t *testing.T) {
	env := setupTest(t)
	rec := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSettingsEndpoints(t *testing.T) {
	env := setupTest(t)

	rec := env.do(t, http.MethodGet, "/api/clients/phone/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[settingsResponse](t, rec)
	assert.Equal(t, settings.Defaults(), got.Settings)

	rec = env.do(t, http.MethodPut, "/api/clients/phone/settings", map[string]any{
		"language": "en", "theme": "dark", "follow": true, "transit_maxwalk": "400",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode[settingsResponse](t, rec)
	assert.Equal(t, "Settings saved", got.Message)
	assert.Equal(t, settings.ThemeDark, got.Settings.Theme)
	assert.Equal(t, 400, got.Settings.TransitMaxWalk)

	rec = env.do(t, http.MethodGet, "/api/clients/phone/settings", nil)
	got = decode[settingsResponse](t, rec)
	assert.Equal(t, i18n.English, got.Settings.Language)
	assert.True(t, got.Settings.Follow)

	rec = env.do(t, http.MethodPut, "/api/clients/phone/settings", map[string]any{"theme": "sepia"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/clients/phone/settings", "not an object")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMapEndpoint(t *testing.T) {
	env := setupTest(t)

	rec := env.do(t, http.MethodGet, "/api/map", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[mapview.View](t, rec)
	assert.Equal(t, mapview.DefaultZoom, view.Zoom)
	assert.Equal(t, "light", view.Layer.Name)

	env.do(t, http.MethodPut, "/api/clients/c1/settings", map[string]any{"theme": "dark", "follow": true})
	rec = env.do(t, http.MethodGet, "/api/map?client=c1&lat=57.7&lon=11.97", nil)
	view = decode[mapview.View](t, rec)
	assert.Equal(t, "dark", view.Layer.Name)
	assert.Equal(t, mapview.FollowZoom, view.Zoom)
	assert.Equal(t, [2]float64{57.7, 11.97}, view.Center)
	assert.Equal(t, []string{"dark"}, view.BodyClasses)
}

func TestSessionLifecycle(t *testing.T) {
	env := setupTest(t)
	id := env.createSession(t, "c1")
	base := "/api/sessions/" + id

	rec := env.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "c1", decode[session.State](t, rec).ClientID)

	rec = env.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode[nav.ErrorResponse](t, rec)
	assert.Equal(t, "not_found", resp.Error)
	assert.Equal(t, "Hittades inte.", resp.Message)
}

func TestCreateSessionWithoutBody(t *testing.T) {
	env := setupTest(t)
	rec := env.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, decode[session.State](t, rec).ClientID)
}

func TestNavigationFlow(t *testing.T) {
	env := setupTest(t)
	id := env.createSession(t, "c1")
	base := "/api/sessions/" + id

	// routing needs a position first
	rec := env.do(t, http.MethodPost, base+"/route", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	resp := decode[nav.ErrorResponse](t, rec)
	assert.Equal(t, "location_error", resp.Error)
	assert.Equal(t, i18n.T(i18n.Swedish, "location_error", nil), resp.Message)

	rec = env.do(t, http.MethodPost, base+"/position", map[string]float64{"lat": 59.33, "lon": 18.06})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, mapview.CameraNone, decode[mapview.Camera](t, rec).Action)

	rec = env.do(t, http.MethodPost, base+"/route", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "no_place", decode[nav.ErrorResponse](t, rec).Error)

	rec = env.do(t, http.MethodPost, base+"/search", map[string]string{"query": "Slussen"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Slussen", decode[searchResponse](t, rec).Destination.Name)

	rec = env.do(t, http.MethodPost, base+"/route", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	g := decode[session.Guidance](t, rec)
	assert.Equal(t, 0, g.Page.Index)
	assert.Equal(t, 4, g.Page.Total)
	require.NotNil(t, g.Utterance)
	assert.Equal(t, "Depart om 50 meter. Sväng vänster om 120 meter", g.Utterance.Text)

	rec = env.do(t, http.MethodPost, base+"/directions/next?lang=en", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	g = decode[session.Guidance](t, rec)
	assert.Equal(t, 2, g.Page.Index)
	assert.Equal(t, []string{"Turn right in 300 meters", "Arrive"}, g.Page.Texts)
	assert.Equal(t, "en-US", g.Utterance.Lang)

	rec = env.do(t, http.MethodPost, base+"/directions/prev", nil)
	assert.Equal(t, 0, decode[session.Guidance](t, rec).Page.Index)

	rec = env.do(t, http.MethodGet, base+"/directions", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, base+"/route.gpx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc, err := gpx.ParseBytes(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, doc.Waypoints, 2)
	assert.Equal(t, "Du är här → Slussen", doc.Tracks[0].Name)

	rec = env.do(t, http.MethodDelete, base+"/route", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, base+"/directions?lang=en", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	resp = decode[nav.ErrorResponse](t, rec)
	assert.Equal(t, "no_route", resp.Error)
	assert.Equal(t, "No route found.", resp.Message)
}

func TestSearchAndRouteErrors(t *testing.T) {
	env := setupTest(t)
	id := env.createSession(t, "c1")
	base := "/api/sessions/" + id

	rec := env.do(t, http.MethodPost, base+"/search", map[string]string{"query": " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.planner.places = nil
	rec = env.do(t, http.MethodPost, base+"/search", map[string]string{"query": "nowhere"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no_place", decode[nav.ErrorResponse](t, rec).Error)

	env.planner.places = []nav.GeocodeResponse{{Name: "Slussen", Lat: 59.3195, Lng: 18.0722}}
	env.do(t, http.MethodPost, base+"/position", map[string]float64{"lat": 59.33, "lon": 18.06})
	env.do(t, http.MethodPost, base+"/search", map[string]string{"query": "Slussen"})
	env.do(t, http.MethodPut, "/api/clients/c1/settings", map[string]string{"mode": "public_transport"})

	env.planner.routeErr = nav.ErrMissingKey
	rec = env.do(t, http.MethodPost, base+"/route", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "resrobot_error", decode[nav.ErrorResponse](t, rec).Error)

	rec = env.do(t, http.MethodPost, base+"/position", map[string]float64{"lat": 91, "lon": 18})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNavRoutesMounted(t *testing.T) {
	env := setupTest(t)
	rec := env.do(t, http.MethodGet, "/nav/geocode?q=Slussen", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]nav.GeocodeResponse](t, rec), 1)
}

func TestNearby(t *testing.T) {
	env := setupTest(t)

	rec := env.do(t, http.MethodGet, "/api/feeds/nearby?lat=59.33", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/feeds/nearby?lat=59.33&lon=18.06&radius=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/feeds/nearby?lat=59.33&lon=18.06&radius=500", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[feeds.Result](t, rec)
	require.Len(t, res.POIs, 1)
	assert.Equal(t, "p1", res.POIs[0].ID)
	assert.Greater(t, res.POIs[0].Distance, 100.0)
}

func TestTrackWebSocket(t *testing.T) {
	env := setupTest(t)
	id := env.createSession(t, "walker")
	env.do(t, http.MethodPut, "/api/clients/walker/settings", map[string]any{"follow": true})

	server := httptest.NewServer(env.srv.Router())
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/sessions/" + id + "/track"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	var msg trackMessage
	require.NoError(t, conn.WriteJSON(map[string]float64{"lat": 59.33, "lon": 18.06, "speed": 1.2}))
	require.NoError(t, conn.ReadJSON(&msg))
	require.NotNil(t, msg.Camera)
	assert.Equal(t, mapview.CameraSetView, msg.Camera.Action)
	assert.Equal(t, mapview.FollowZoom, msg.Camera.Zoom)

	require.NoError(t, conn.WriteJSON(map[string]float64{"lat": 59.331, "lon": 18.061}))
	msg = trackMessage{}
	require.NoError(t, conn.ReadJSON(&msg))
	require.NotNil(t, msg.Camera)
	assert.Equal(t, mapview.CameraPan, msg.Camera.Action)

	for _, bad := range []string{"garbage", `{}`, `{"lat": 59.3}`} {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(bad)))
		msg = trackMessage{}
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "location_error", msg.Error, bad)
		assert.Nil(t, msg.Camera, bad)
	}

	st, err := env.srv.sessions.Get(id, i18n.Swedish)
	require.NoError(t, err)
	require.NotNil(t, st.Position)
	assert.Equal(t, 59.331, st.Position.Lat)
}

func dialTrack(t *testing.T, env *testEnv, id string) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(env.srv.Router())
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/sessions/" + id + "/track"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestTrackFollowsSettingsChange(t *testing.T) {
	env := setupTest(t)
	id := env.createSession(t, "walker")
	conn := dialTrack(t, env, id)

	var msg trackMessage
	require.NoError(t, conn.WriteJSON(map[string]float64{"lat": 59.33, "lon": 18.06}))
	require.NoError(t, conn.ReadJSON(&msg))
	require.NotNil(t, msg.Camera)
	assert.Equal(t, mapview.CameraNone, msg.Camera.Action)

	rec := env.do(t, http.MethodPut, "/api/clients/walker/settings", map[string]any{"follow": true})
	require.Equal(t, http.StatusOK, rec.Code)

	msg = trackMessage{}
	require.NoError(t, conn.WriteJSON(map[string]float64{"lat": 59.331, "lon": 18.061}))
	require.NoError(t, conn.ReadJSON(&msg))
	require.NotNil(t, msg.Camera)
	assert.Equal(t, mapview.CameraPan, msg.Camera.Action)
	assert.Equal(t, [2]float64{59.331, 18.061}, msg.Camera.Center)
}

func TestPositionRequiresCoordinates(t *testing.T) {
	env := setupTest(t)
	id := env.createSession(t, "c1")
	base := "/api/sessions/" + id

	for _, body := range []any{map[string]any{}, map[string]float64{"lon": 18.06}, map[string]float64{"speed": 3}} {
		rec := env.do(t, http.MethodPost, base+"/position", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "location_error", decode[nav.ErrorResponse](t, rec).Error)
	}

	rec := env.do(t, http.MethodGet, base, nil)
	assert.Nil(t, decode[session.State](t, rec).Position)

	// the equator and the prime meridian are valid when sent explicitly
	rec = env.do(t, http.MethodPost, base+"/position", map[string]float64{"lat": 0, "lon": 0})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPutSettingsRecentersFollowingMap(t *testing.T) {
	env := setupTest(t)
	id := env.createSession(t, "c1")
	other := env.createSession(t, "c2")

	// no position yet
	rec := env.do(t, http.MethodPut, "/api/clients/c1/settings?session="+id, map[string]any{"follow": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[settingsResponse](t, rec).Camera)

	env.do(t, http.MethodPost, "/api/sessions/"+id+"/position", map[string]float64{"lat": 59.33, "lon": 18.06})

	rec = env.do(t, http.MethodPut, "/api/clients/c1/settings?session="+id, map[string]any{"theme": "dark"})
	got := decode[settingsResponse](t, rec)
	require.NotNil(t, got.Camera)
	assert.Equal(t, mapview.CameraSetView, got.Camera.Action)
	assert.Equal(t, [2]float64{59.33, 18.06}, got.Camera.Center)

	rec = env.do(t, http.MethodPut, "/api/clients/c1/settings?session="+id, map[string]any{"follow": false})
	assert.Nil(t, decode[settingsResponse](t, rec).Camera)

	// a session of another client is ignored
	env.do(t, http.MethodPost, "/api/sessions/"+other+"/position", map[string]float64{"lat": 57.7, "lon": 11.97})
	rec = env.do(t, http.MethodPut, "/api/clients/c1/settings?session="+other, map[string]any{"follow": true})
	assert.Nil(t, decode[settingsResponse](t, rec).Camera)
}

func TestTrackUnknownSession(t *testing.T) {
	env := setupTest(t)
	server := httptest.NewServer(env.srv.Router())
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/sessions/missing/track"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
