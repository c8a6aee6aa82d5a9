package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/voterid/internal/service"
)

// Hub fans station events out to the dashboards watching that station
type Hub struct {
	clients    map[*Client]bool
	stations   map[uuid.UUID]map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		stations:   make(map[uuid.UUID]map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run serves the hub until ctx is done, then disconnects every client
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case event := <-h.broadcast:
			h.broadcastToStation(event)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	if h.stations[client.stationID] == nil {
		h.stations[client.stationID] = make(map[*Client]bool)
	}
	h.stations[client.stationID][client] = true
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(client)
}

// dropLocked is idempotent; the send channel is closed only once
func (h *Hub) dropLocked(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	delete(h.stations[client.stationID], client)
	if len(h.stations[client.stationID]) == 0 {
		delete(h.stations, client.stationID)
	}
	close(client.send)
}

func (h *Hub) broadcastToStation(event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.stations[event.StationID] {
		select {
		case client.send <- message:
		default:
			// slow dashboard
			h.dropLocked(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		h.dropLocked(client)
	}
}

// Publish queues an event for a station; it drops the event when the hub is saturated
func (h *Hub) Publish(stationID uuid.UUID, ev service.StationEvent) {
	ts := ev.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	select {
	case h.broadcast <- Event{StationID: stationID, Type: ev.Type, Data: ev, Timestamp: ts}:
	default:
	}
}

func (h *Hub) ConnectedClients(stationID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.stations[stationID])
}

var _ service.Notifier = (*Hub)(nil)
