package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohitmhatre32/MonadVelocity/go/internal/race"
	"github.com/Mohitmhatre32/MonadVelocity/go/internal/race/directory"
	"github.com/Mohitmhatre32/MonadVelocity/go/internal/race/events"
)

func newTestHTTPServer(t *testing.T, opts ...func(*Config)) (*httptest.Server, *Services) {
	t.Helper()

	cfg := loadConfig()
	cfg.NATS.URL = ""
	cfg.EventStats = true
	for _, opt := range opts {
		opt(&cfg)
	}

	services, err := setupServices(context.Background(), cfg, race.DefaultRules())
	require.NoError(t, err)
	t.Cleanup(services.Close)

	srv := httptest.NewServer(setupServer(cfg, services).Handler)
	t.Cleanup(srv.Close)
	return srv, services
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_Liveness(t *testing.T) {
	srv, _ := newTestHTTPServer(t)

	status, body := get(t, srv.URL+"/")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, runningMessage, body)

	status, body = get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", body)

	status, _ = get(t, srv.URL+"/nope")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServer_DirectoryMounted(t *testing.T) {
	srv, services := newTestHTTPServer(t)

	code, err := services.Store.CreateRoom(context.Background(), "conn-1", "Alice")
	require.NoError(t, err)

	client := directory.NewClient(srv.Client(), srv.URL)
	resp, err := client.ListRooms(context.Background(), &directory.ListRoomsRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Rooms, 1)
	assert.Equal(t, code, resp.Rooms[0].Code)
	assert.True(t, resp.Rooms[0].Open)
}

func TestServer_CORS(t *testing.T) {
	srv, _ := newTestHTTPServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://game.example")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_EventStats(t *testing.T) {
	srv, services := newTestHTTPServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go services.Relay.Start(ctx)

	_, err := services.Store.CreateRoom(context.Background(), "conn-1", "Alice")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return services.Events.Snapshot().Published == 1
	}, 2*time.Second, 10*time.Millisecond)

	status, body := get(t, srv.URL+"/events/stats")
	assert.Equal(t, http.StatusOK, status)

	var stats events.PublishStats
	require.NoError(t, json.Unmarshal([]byte(body), &stats))
	assert.Equal(t, uint64(1), stats.ByType[events.EventTypeRoomCreated])
}

func TestServer_EventStatsDisabled(t *testing.T) {
	srv, services := newTestHTTPServer(t, func(cfg *Config) { cfg.EventStats = false })
	assert.Nil(t, services.Events)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go services.Relay.Start(ctx)

	_, err := services.Store.CreateRoom(context.Background(), "conn-1", "Alice")
	require.NoError(t, err)

	status, _ := get(t, srv.URL+"/events/stats")
	assert.Equal(t, http.StatusNotFound, status)

	status, body := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", body)
}
