package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"perfect-traders-go/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialPrices(t *testing.T, ts *httptest.Server) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/prices"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readSnapshot(t *testing.T, conn *websocket.Conn) []models.Symbol {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var snapshot []models.Symbol
	require.NoError(t, conn.ReadJSON(&snapshot))
	return snapshot
}

func TestPriceStream_SendsSnapshotOnConnect(t *testing.T) {
	ts, _ := setupServer(t)

	conn := dialPrices(t, ts)
	snapshot := readSnapshot(t, conn)

	assert.Len(t, snapshot, 3)
}

func TestPriceStream_ReceivesBroadcasts(t *testing.T) {
	ts, srv := setupServer(t)

	conn := dialPrices(t, ts)
	readSnapshot(t, conn) // initial snapshot

	srv.Hub().Broadcast()
	snapshot := readSnapshot(t, conn)

	names := make([]string, 0, len(snapshot))
	for _, s := range snapshot {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "EURUSD")
}

func TestPriceHub_CloseDisconnectsSubscribers(t *testing.T) {
	ts, srv := setupServer(t)

	conn := dialPrices(t, ts)
	readSnapshot(t, conn)

	srv.Hub().Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var snapshot []models.Symbol
	assert.Error(t, conn.ReadJSON(&snapshot))
}
