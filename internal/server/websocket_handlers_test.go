package server

import (
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"earthhome/internal/notifications"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listen serves the test app on a loopback port and returns the feed URL.
func (e *testEnv) listen(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = e.app.Listener(ln) }()
	t.Cleanup(func() { _ = e.app.Shutdown() })
	return "ws://" + ln.Addr().String() + "/ws/listings"
}

func dialFeed(t *testing.T, url, token string) (*gorillaws.Conn, *http.Response, error) {
	t.Helper()
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	dialer := gorillaws.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, resp, err := dialer.Dial(url, header)
	if resp != nil && resp.Body != nil {
		t.Cleanup(func() { _ = resp.Body.Close() })
	}
	return conn, resp, err
}

func TestListingFeedRequiresUpgrade(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/ws/listings", nil, "")
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
	assert.Equal(t, "Websocket upgrade required", body["message"])
}

func TestListingFeedDeliversEvents(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.server.hub.StartWiring(t.Context()))
	url := env.listen(t)
	_, token := env.signUp(t, "Sam Kariuki", "sam@example.com")

	conn, _, err := dialFeed(t, url, "")
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	require.Eventually(t, func() bool { return env.server.hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, body := env.do(t, http.MethodPost, "/api/properties", listingBody("Hilltop Bungalow"), token)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	property := body["property"].(map[string]any)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event notifications.ListingEvent
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, notifications.PropertyCreated, event.Type)
	assert.Equal(t, property["id"], event.PropertyID)
	assert.Equal(t, property["slug"], event.Slug)
	assert.False(t, event.At.IsZero())
}

func TestListingFeedShutdownSendsGoingAway(t *testing.T) {
	env := newTestEnv(t)
	url := env.listen(t)

	conn, _, err := dialFeed(t, url, "")
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	require.Eventually(t, func() bool { return env.server.hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, env.server.hub.Shutdown(t.Context()))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, gorillaws.IsCloseError(err, gorillaws.CloseGoingAway), "got %v", err)
}

func TestListingFeedRejectsBadToken(t *testing.T) {
	env := newTestEnv(t)
	url := env.listen(t)

	_, resp, err := dialFeed(t, url, "garbage")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, env.server.hub.Count())
}

func TestListingFeedFlag(t *testing.T) {
	cfg := testConfig()
	cfg.FeatureFlags = "listing_feed=off"
	env := newTestEnvWithConfig(t, cfg)
	url := env.listen(t)

	_, resp, err := dialFeed(t, url, "")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetFeatureFlagsHandler(t *testing.T) {
	cfg := testConfig()
	cfg.FeatureFlags = "image_thumbnails=on,listing_feed=100%,beta_search=50%"
	env := newTestEnvWithConfig(t, cfg)

	resp, body := env.do(t, http.MethodGet, "/api/feature-flags", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw := body["raw"].(map[string]any)
	assert.Equal(t, "on", raw["image_thumbnails"])
	assert.Equal(t, "100%", raw["listing_feed"])

	evaluated := body["evaluated"].(map[string]any)
	assert.Equal(t, true, evaluated["image_thumbnails"])
	assert.Equal(t, true, evaluated["listing_feed"])
	assert.Equal(t, false, evaluated["beta_search"], "anonymous callers sit outside partial rollouts")
}
