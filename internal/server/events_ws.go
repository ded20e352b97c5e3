package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/aristath/reportdesk/internal/events"
)

const (
	wsWriteTimeout      = 10 * time.Second
	wsHeartbeatInterval = 30 * time.Second
	wsEventBuffer       = 100
)

// EventsWSHandler pushes bus events to websocket clients so open views can re-read changed keys.
type EventsWSHandler struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewEventsWSHandler creates a new websocket events handler.
func NewEventsWSHandler(bus *events.Bus, log zerolog.Logger) *EventsWSHandler {
	return &EventsWSHandler{
		bus: bus,
		log: log.With().Str("component", "events_ws").Logger(),
	}
}

// wsMessage is the JSON frame sent to clients.
type wsMessage struct {
	Type      string                 `json:"type"`
	Module    string                 `json:"module,omitempty"`
	Timestamp string                 `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// ServeHTTP handles GET /api/events/ws. The optional "types" query parameter
// restricts the stream to a comma-separated list of event types.
func (h *EventsWSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	allowedTypes := parseTypesFilter(r.URL.Query().Get("types"))

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// CORS middleware already admits every origin
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to accept websocket connection")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream ended")

	// Clients never send anything; CloseRead handles control frames and
	// cancels ctx when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	eventChan := make(chan *events.Event, wsEventBuffer)
	handler := func(event *events.Event) {
		// Non-blocking send (drop if channel full)
		select {
		case eventChan <- event:
		default:
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	}

	var unsubscribe func()
	if allowedTypes == nil {
		unsubscribe = h.bus.SubscribeAll(handler)
	} else {
		unsubscribers := make([]func(), 0, len(allowedTypes))
		for _, eventType := range allowedTypes {
			unsubscribers = append(unsubscribers, h.bus.Subscribe(eventType, handler))
		}
		unsubscribe = func() {
			for _, u := range unsubscribers {
				u()
			}
		}
	}
	defer unsubscribe()

	h.log.Info().Int("types", len(allowedTypes)).Msg("Client connected to event stream")

	if err := h.write(ctx, conn, wsMessage{
		Type:      "connected",
		Timestamp: time.Now().Format(time.RFC3339),
	}); err != nil {
		return
	}

	heartbeat := time.NewTicker(wsHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from event stream")
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case event := <-eventChan:
			if err := h.write(ctx, conn, wsMessage{
				Type:      string(event.Type),
				Module:    event.Module,
				Timestamp: event.Timestamp.Format(time.RFC3339),
				Data:      event.Data,
			}); err != nil {
				return
			}

		case <-heartbeat.C:
			pingCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("Websocket ping failed")
				return
			}
		}
	}
}

func (h *EventsWSHandler) write(ctx context.Context, conn *websocket.Conn, msg wsMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error().Err(err).Str("event_type", msg.Type).Msg("Failed to marshal event")
		return nil
	}

	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()

	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		h.log.Debug().Err(err).Msg("Failed to write to websocket")
		return err
	}
	return nil
}

// parseTypesFilter returns nil when every event type is wanted.
func parseTypesFilter(filter string) []events.EventType {
	if strings.TrimSpace(filter) == "" {
		return nil
	}
	seen := make(map[events.EventType]bool)
	var types []events.EventType
	for _, t := range strings.Split(filter, ",") {
		eventType := events.EventType(strings.TrimSpace(t))
		if eventType == "" || seen[eventType] {
			continue
		}
		seen[eventType] = true
		types = append(types, eventType)
	}
	return types
}
