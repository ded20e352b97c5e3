package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/aristath/reportdesk/internal/events"
)

func dialEvents(t *testing.T, ctx context.Context, bus *events.Bus, query string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(NewEventsWSHandler(bus, testLogger()))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+query, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	// The handler subscribes before greeting, so events emitted after this are delivered.
	msg := readMessage(t, ctx, conn)
	require.Equal(t, "connected", msg.Type)
	return conn
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) wsMessage {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg wsMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestEventsWSHandler_ForwardsEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	bus := events.NewBus(testLogger())
	conn := dialEvents(t, ctx, bus, "")

	bus.Emit(events.KeyChanged, "kvstore", map[string]interface{}{
		"key":    "report.summary_cumulative.raw",
		"origin": "instance-a",
	})

	msg := readMessage(t, ctx, conn)
	assert.Equal(t, string(events.KeyChanged), msg.Type)
	assert.Equal(t, "kvstore", msg.Module)
	assert.Equal(t, "report.summary_cumulative.raw", msg.Data["key"])
	assert.Equal(t, "instance-a", msg.Data["origin"])
}

func TestEventsWSHandler_TypeFilter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	bus := events.NewBus(testLogger())
	conn := dialEvents(t, ctx, bus, "?types=SLOT_UPDATED")

	bus.Emit(events.KeyChanged, "kvstore", map[string]interface{}{"key": "ignored"})
	bus.Emit(events.SlotUpdated, "dashboard", map[string]interface{}{"kind": "employee_list"})

	msg := readMessage(t, ctx, conn)
	assert.Equal(t, string(events.SlotUpdated), msg.Type)
	assert.Equal(t, "employee_list", msg.Data["kind"])
}

func TestEventsWSHandler_UnsubscribesOnDisconnect(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	bus := events.NewBus(testLogger())
	conn := dialEvents(t, ctx, bus, "?types=KEY_CHANGED")
	require.Equal(t, 1, bus.SubscriberCount(events.KeyChanged))

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))

	assert.Eventually(t, func() bool {
		return bus.SubscriberCount(events.KeyChanged) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestParseTypesFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		want   []events.EventType
	}{
		{name: "empty means all", filter: "", want: nil},
		{name: "trims and dedupes", filter: " KEY_CHANGED,SLOT_UPDATED,KEY_CHANGED ", want: []events.EventType{events.KeyChanged, events.SlotUpdated}},
		{name: "only separators", filter: ",,", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseTypesFilter(tt.filter))
		})
	}
}
