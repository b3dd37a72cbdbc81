package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexboumb/SuperSimpleStocks2/internal/contracts"
	"github.com/alexboumb/SuperSimpleStocks2/internal/ledger"
)

func newHubServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(nil)
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})

	return hub, server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func TestHub_PublishReachesClients(t *testing.T) {
	hub, server := newHubServer(t)

	first := dial(t, server)
	second := dial(t, server)

	require.Eventually(t, func() bool { return hub.Clients() == 2 }, time.Second, 10*time.Millisecond)

	ts := time.Date(2026, 1, 8, 9, 0, 0, 0, time.UTC)
	hub.Publish(ledger.Trade{
		ID:        "t-1",
		Symbol:    "TEA",
		Timestamp: ts,
		Quantity:  30,
		Price:     120,
		Direction: contracts.DirectionBuy,
	})

	for _, conn := range []*websocket.Conn{first, second} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

		var got TradeEvent
		require.NoError(t, conn.ReadJSON(&got))

		assert.Equal(t, "t-1", got.ID)
		assert.Equal(t, "TEA", got.Symbol)
		assert.Equal(t, 30, got.Quantity)
		assert.Equal(t, 120, got.Price)
		assert.Equal(t, contracts.DirectionBuy, got.Direction)
		assert.True(t, ts.Equal(got.Timestamp))
	}
}

func TestHub_ClientDisconnect(t *testing.T) {
	hub, server := newHubServer(t)

	conn := dial(t, server)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_Close(t *testing.T) {
	hub, server := newHubServer(t)

	conn := dial(t, server)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	hub.Close()
	assert.Equal(t, 0, hub.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	// new connections are refused after close
	late := dial(t, server)
	require.NoError(t, late.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = late.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, hub.Clients())
}

func TestHub_BroadcastWithoutClients(t *testing.T) {
	hub := NewHub(nil)

	assert.NotPanics(t, func() {
		hub.Broadcast(&TradeEvent{Symbol: "TEA"})
	})
}

func TestNewTradeEvent(t *testing.T) {
	ts := time.Date(2026, 1, 8, 9, 0, 0, 0, time.UTC)
	event := NewTradeEvent(ledger.Trade{
		ID:        "t-2",
		Symbol:    "GIN",
		Timestamp: ts,
		Quantity:  20,
		Price:     150,
		Direction: contracts.DirectionSell,
	})

	assert.Equal(t, "GIN", event.Symbol)
	assert.Equal(t, 150, event.Price)
	assert.Equal(t, contracts.DirectionSell, event.Direction)
	assert.Equal(t, ts, event.Timestamp)
	assert.False(t, event.IsStale)
}
