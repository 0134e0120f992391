package server

import (
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event is one display update pushed to every connected surface.
type Event struct {
	Type       string              `json:"type"` // slide, table_page, row, empty, stopped
	Index      int                 `json:"index,omitempty"`
	Total      int                 `json:"total,omitempty"`
	Kind       string              `json:"kind,omitempty"`
	Record     map[string]string   `json:"record,omitempty"`
	Image      string              `json:"image,omitempty"`
	Page       int                 `json:"page,omitempty"`
	TotalPages int                 `json:"totalPages,omitempty"`
	Rows       []map[string]string `json:"rows,omitempty"`
	Row        int                 `json:"row"`
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan Event
}

// Hub fans display events out to the connected websocket surfaces.
type Hub struct {
	clients    map[string]*wsClient
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan Event
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*wsClient),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan Event, 64),
	}
}

// Run owns the client set; all registration and broadcast goes through its
// channels.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client.id] = client
			log.Info().Str("client", client.id).Int("connected", len(h.clients)).Msg("Display surface connected")
		case client := <-h.unregister:
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
				log.Info().Str("client", client.id).Int("connected", len(h.clients)).Msg("Display surface disconnected")
			}
		case event := <-h.broadcast:
			for id, client := range h.clients {
				select {
				case client.send <- event:
				default:
					// Slow consumer; drop it rather than stall the show.
					delete(h.clients, id)
					close(client.send)
					log.Warn().Str("client", id).Msg("Dropped slow display surface")
				}
			}
		}
	}
}

// Broadcast queues an event for every connected surface.
func (h *Hub) Broadcast(event Event) {
	select {
	case h.broadcast <- event:
	default:
		log.Warn().Str("type", event.Type).Msg("Broadcast queue full, dropping event")
	}
}

func (h *Hub) addClient(conn *websocket.Conn) *wsClient {
	client := &wsClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan Event, 32),
	}
	h.register <- client
	return client
}

func (c *wsClient) writePump() {
	defer c.conn.Close()
	for event := range c.send {
		if err := c.conn.WriteJSON(event); err != nil {
			log.Debug().Err(err).Str("client", c.id).Msg("Write to display surface failed")
			return
		}
	}
}

func (c *wsClient) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	// Surfaces only listen; reads exist to detect the close.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
