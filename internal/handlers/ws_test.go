package handlers_test

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monocle-dev/fleetwatch/internal/handlers"
	"github.com/monocle-dev/fleetwatch/internal/health"
)

func TestHubBroadcastsSweeps(t *testing.T) {
	hub := handlers.NewHub([]string{"http://localhost:5173"}, zerolog.Nop())

	r := gin.New()
	r.GET("/api/ws", hub.WebSocket)

	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var welcome map[string]interface{}
	require.NoError(t, conn.ReadJSON(&welcome))
	assert.Equal(t, "connected", welcome["type"])

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	hub.SweepCompleted(health.SweepSummary{ID: "sweep-7", Down: 2})

	var msg struct {
		Type    string              `json:"type"`
		Summary health.SweepSummary `json:"summary"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "sweep", msg.Type)
	assert.Equal(t, "sweep-7", msg.Summary.ID)
	assert.Equal(t, 2, msg.Summary.Down)
}

func TestHubConcurrentBroadcasts(t *testing.T) {
	hub := handlers.NewHub(nil, zerolog.Nop())

	r := gin.New()
	r.GET("/api/ws", hub.WebSocket)

	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var welcome map[string]interface{}
	require.NoError(t, conn.ReadJSON(&welcome))
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	const senders = 8

	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.SweepCompleted(health.SweepSummary{ID: fmt.Sprintf("sweep-%d", i)})
		}()
	}

	seen := make(map[string]bool)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for len(seen) < senders {
		var msg struct {
			Type    string              `json:"type"`
			Summary health.SweepSummary `json:"summary"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "sweep", msg.Type)
		seen[msg.Summary.ID] = true
	}

	wg.Wait()
	assert.Equal(t, 1, hub.Clients())
}

func TestHubRejectsUnknownOrigin(t *testing.T) {
	hub := handlers.NewHub([]string{"http://localhost:5173"}, zerolog.Nop())

	r := gin.New()
	r.GET("/api/ws", hub.WebSocket)

	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	header := map[string][]string{"Origin": {"http://evil.example.com"}}

	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)
	assert.Zero(t, hub.Clients())
}
