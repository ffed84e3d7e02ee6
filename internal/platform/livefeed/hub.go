// Package livefeed pushes report lifecycle events to connected clients over
// WebSockets. Doctors subscribe to their own queue topic and patients to their
// own report topic; an event is the signal to re-fetch and re-group, not a
// data sync mechanism. The latest snapshot always comes from the store.
package livefeed

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/dermtriage/dermtriage/internal/platform/auth"
)

// Event types emitted by the report service.
const (
	EventReportCreated = "report.created"
	EventReportRouted  = "report.routed"
	EventReportDecided = "report.decided"
)

// DoctorTopic returns the feed topic for a doctor's queue.
func DoctorTopic(doctorID string) string { return "doctor/" + doctorID }

// PatientTopic returns the feed topic for a patient's own reports.
func PatientTopic(patientID string) string { return "patient/" + patientID }

// Event is a report lifecycle notification.
type Event struct {
	Type      string    `json:"type"`
	Topic     string    `json:"topic"`
	ReportID  string    `json:"report_id"`
	PatientID string    `json:"patient_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher is implemented by the hub and consumed by the report service.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards events; used when no feed is wired.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Client represents a single WebSocket connection and its allowed topics.
// Topics are fixed at connect time from the authenticated identity, so a
// client can never observe another user's feed.
type Client struct {
	ID     string
	Topics []string
	Send   chan []byte
}

// Hub tracks connected clients per topic. All operations are safe for
// concurrent use.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // topic -> set of clients
	all     map[*Client]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
	}
}

// Register adds a client to the hub and subscribes it to its topics.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.all[client] = struct{}{}
	for _, topic := range client.Topics {
		if h.clients[topic] == nil {
			h.clients[topic] = make(map[*Client]struct{})
		}
		h.clients[topic][client] = struct{}{}
	}
}

// Unregister removes a client from every topic and closes its Send channel.
// Safe to call more than once.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}

	for _, topic := range client.Topics {
		if subscribers, ok := h.clients[topic]; ok {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.clients, topic)
			}
		}
	}

	delete(h.all, client)
	close(client.Send)
}

// Publish broadcasts the event to every client on the event's topic. A client
// whose send buffer is full is skipped rather than blocking the publisher.
func (h *Hub) Publish(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[event.Topic] {
		select {
		case client.Send <- data:
		default:
		}
	}
	return nil
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

// TopicCount returns the number of clients subscribed to a topic.
func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

// ---------------------------------------------------------------------------
// HTTP handler
// ---------------------------------------------------------------------------

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS middleware gates browser origins upstream.
	},
}

// Handler upgrades HTTP connections and binds them to the hub.
type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/feed", h.Connect)
}

// TopicsFor derives the feed topics a user may listen on from their identity.
func TopicsFor(userID string, roles []string) []string {
	var topics []string
	if auth.HasRole(roles, "doctor") {
		topics = append(topics, DoctorTopic(userID))
	}
	if auth.HasRole(roles, "patient") {
		topics = append(topics, PatientTopic(userID))
	}
	return topics
}

// Connect upgrades the connection and pumps events until the client goes
// away. Unregistration runs on every exit path so a dropped connection never
// leaks a subscription.
func (h *Handler) Connect(c echo.Context) error {
	ctx := c.Request().Context()
	userID := auth.UserIDFromContext(ctx)
	topics := TopicsFor(userID, auth.RolesFromContext(ctx))
	if len(topics) == 0 {
		return echo.NewHTTPError(http.StatusForbidden, "no feed topics for this identity")
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		ID:     uuid.New().String(),
		Topics: topics,
		Send:   make(chan []byte, 256),
	}

	h.hub.Register(client)

	go h.writePump(client, ws)
	go h.readPump(client, ws)

	return nil
}

// readPump drains inbound frames so pings and close frames are processed;
// clients have nothing meaningful to send.
func (h *Handler) readPump(client *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		h.hub.Unregister(client)
		ws.Close()
	}()

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *Handler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	defer ws.Close()

	for message := range client.Send {
		if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			break
		}
	}
}
