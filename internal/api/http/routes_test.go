package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-client/internal/location"
	"github.com/i474232898/weather-client/internal/network"
	"github.com/i474232898/weather-client/internal/session"
	"github.com/i474232898/weather-client/internal/weather"
)

type fakeSession struct {
	screen  *session.Screen
	forces  []bool
	retries int
	err     error
}

func (f *fakeSession) Screen() *session.Screen { return f.screen }

func (f *fakeSession) Refresh(ctx context.Context, force bool) error {
	f.forces = append(f.forces, force)
	return f.err
}

func (f *fakeSession) Retry(ctx context.Context) error {
	f.retries++
	return f.err
}

func newTestApp() (*fiber.App, *fakeSession, *location.Feed, *network.Feed) {
	app := fiber.New()
	sess := &fakeSession{screen: session.NewScreen()}
	locs := location.NewFeed()
	nets := network.NewFeed()
	RegisterRoutes(app, Deps{Session: sess, Locations: locs, Network: nets, Units: "metric"})
	return app, sess, locs, nets
}

func do(t *testing.T, app *fiber.App, method, target, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestGetForecast(t *testing.T) {
	app, _, _, _ := newTestApp()

	resp := do(t, app, http.MethodGet, "/api/v1/forecast", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "loading", body["kind"])

	resp = do(t, app, http.MethodGet, "/api/v1/forecast?format=text", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "Loading")
}

func TestRefreshAndRetry(t *testing.T) {
	app, sess, _, _ := newTestApp()

	assert.Equal(t, http.StatusAccepted, do(t, app, http.MethodPost, "/api/v1/forecast/refresh", "").StatusCode)
	assert.Equal(t, http.StatusAccepted, do(t, app, http.MethodPost, "/api/v1/forecast/refresh", `{"force":true}`).StatusCode)
	assert.Equal(t, http.StatusAccepted, do(t, app, http.MethodPost, "/api/v1/forecast/refresh?force=true", "").StatusCode)
	assert.Equal(t, http.StatusBadRequest, do(t, app, http.MethodPost, "/api/v1/forecast/refresh?force=maybe", "").StatusCode)
	assert.Equal(t, []bool{false, true, true}, sess.forces)

	assert.Equal(t, http.StatusAccepted, do(t, app, http.MethodPost, "/api/v1/forecast/retry", "").StatusCode)
	assert.Equal(t, 1, sess.retries)

	sess.err = session.ErrStopped
	assert.Equal(t, http.StatusServiceUnavailable, do(t, app, http.MethodPost, "/api/v1/forecast/retry", "").StatusCode)
}

func TestPostLocation(t *testing.T) {
	app, _, locs, _ := newTestApp()

	resp := do(t, app, http.MethodPost, "/api/v1/location", `{"lat":48.8566,"lon":2.3522}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	got, err := locs.LastKnown(context.Background())
	require.NoError(t, err)
	assert.Equal(t, weather.Coordinate{Lat: 48.8566, Lon: 2.3522}, got)

	assert.Equal(t, http.StatusBadRequest, do(t, app, http.MethodPost, "/api/v1/location", `{"lat":91,"lon":0}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, do(t, app, http.MethodPost, "/api/v1/location", `{"lon":0}`).StatusCode)
}

func TestLocationPermission(t *testing.T) {
	app, _, locs, _ := newTestApp()

	resp := do(t, app, http.MethodPost, "/api/v1/location/permission", `{"granted":false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, locs.Enabled())

	_, err := locs.Subscribe(context.Background())
	assert.Error(t, err)

	do(t, app, http.MethodPost, "/api/v1/location/permission", `{"granted":true}`)
	assert.True(t, locs.Enabled())

	assert.Equal(t, http.StatusBadRequest, do(t, app, http.MethodPost, "/api/v1/location/permission", `{}`).StatusCode)
}

func TestPostNetwork(t *testing.T) {
	app, _, _, nets := newTestApp()

	assert.Equal(t, http.StatusAccepted, do(t, app, http.MethodPost, "/api/v1/network", `{"status":"losing"}`).StatusCode)
	got, err := nets.LastKnown(context.Background())
	require.NoError(t, err)
	assert.Equal(t, network.StatusLosing, got)

	assert.Equal(t, http.StatusBadRequest, do(t, app, http.MethodPost, "/api/v1/network", `{"status":"flaky"}`).StatusCode)
}

func TestBridgeEndpointsOptional(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app, Deps{Session: &fakeSession{screen: session.NewScreen()}})

	assert.Equal(t, http.StatusNotFound, do(t, app, http.MethodPost, "/api/v1/location", `{"lat":1,"lon":1}`).StatusCode)
	assert.Equal(t, http.StatusNotFound, do(t, app, http.MethodPost, "/api/v1/network", `{"status":"available"}`).StatusCode)
}
