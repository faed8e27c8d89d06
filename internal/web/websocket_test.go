package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readUpdate(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func readUntil(t *testing.T, conn *websocket.Conn, typ string) map[string]interface{} {
	t.Helper()
	for {
		msg := readUpdate(t, conn)
		if msg["type"] == typ {
			return msg
		}
	}
}

func TestWebSocketReceivesMoves(t *testing.T) {
	env := newTestEnv(t)
	id := env.createMatch(t)

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?matchId=" + id
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readUpdate(t, conn)
	assert.Equal(t, "snapshot", first["type"])
	assert.Equal(t, id, first["matchId"])

	count := readUntil(t, conn, "spectator_count")
	assert.Equal(t, float64(1), count["data"])
	assert.Equal(t, 1, env.hub.SpectatorCount(id))

	require.Equal(t, http.StatusOK, env.move(t, id, "e2", "e4").Code)

	update := readUntil(t, conn, "move")
	data, ok := update["data"].(map[string]interface{})
	require.True(t, ok)
	snap, ok := data["snapshot"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "black", snap["turn"])
}

func TestWebSocketRequiresMatch(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(base, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"?matchId=missing", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
