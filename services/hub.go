package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

// GameSessions is what the hub needs from the orchestrator.
type GameSessions interface {
	Snapshot(ctx context.Context, code string) (*GameState, error)
	HostDisconnect(code string)
	ParticipantDisconnect(code string, participantID uint)
}

// Message is the envelope written to and read from sockets.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outbound struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

type delivery struct {
	code string
	to   uint
	data []byte
}

type directDelivery struct {
	client *Client
	data   []byte
}

// Hub owns every socket in this process and delivers game events to them.
// All client bookkeeping happens on the Run goroutine.
type Hub struct {
	clients    map[string]map[*Client]bool
	broadcast  chan delivery
	direct     chan directDelivery
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	sessions   GameSessions
}

type Client struct {
	hub           *Hub
	id            string
	socket        *websocket.Conn
	send          chan []byte
	code          string
	participantID uint
	host          bool
}

func NewHub(sessions GameSessions) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan delivery, 1024),
		direct:     make(chan directDelivery, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		sessions:   sessions,
	}
}

// Run processes registrations and deliveries until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for _, clients := range h.clients {
				for client := range clients {
					close(client.send)
				}
			}
			h.clients = make(map[string]map[*Client]bool)
			return

		case client := <-h.register:
			if h.clients[client.code] == nil {
				h.clients[client.code] = make(map[*Client]bool)
			}
			h.clients[client.code][client] = true
			log.Printf("hub: client %s registered for %s (participant %d, host %t), %d in game",
				client.id, client.code, client.participantID, client.host, len(h.clients[client.code]))

		case client := <-h.unregister:
			h.remove(client)

		case d := <-h.broadcast:
			for client := range h.clients[d.code] {
				if d.to != 0 && (client.host || client.participantID != d.to) {
					continue
				}
				h.deliver(client, d.data)
			}

		case d := <-h.direct:
			if h.clients[d.client.code][d.client] {
				h.deliver(d.client, d.data)
			}
		}
	}
}

// Publish queues ev for every socket on code, or only the addressed
// participant's sockets when ev.To is set.
func (h *Hub) Publish(code string, ev Event) {
	data, err := json.Marshal(outbound{Type: ev.Type, Payload: ev.Payload})
	if err != nil {
		log.Printf("hub: failed to marshal %s for %s: %v", ev.Type, code, err)
		return
	}
	select {
	case h.broadcast <- delivery{code: code, to: ev.To, data: data}:
	case <-h.done:
	}
}

func (h *Hub) RegisterClient(conn *websocket.Conn, code string, participantID uint, host bool) *Client {
	client := &Client{
		hub:           h,
		id:            uuid.NewString(),
		socket:        conn,
		send:          make(chan []byte, sendBuffer),
		code:          code,
		participantID: participantID,
		host:          host,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return client
	}

	go client.writePump()
	go client.readPump()

	return client
}

func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		log.Printf("hub: client %s send buffer full, dropping connection", client.id)
		h.remove(client)
	}
}

func (h *Hub) remove(client *Client) {
	clients := h.clients[client.code]
	if !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	log.Printf("hub: client %s left %s (participant %d, host %t)", client.id, client.code, client.participantID, client.host)

	stillConnected := false
	for other := range clients {
		if other.host == client.host && other.participantID == client.participantID {
			stillConnected = true
			break
		}
	}
	if len(clients) == 0 {
		delete(h.clients, client.code)
	}
	if stillConnected || h.sessions == nil {
		return
	}

	// The orchestrator publishes back into the hub, so it must not run on this goroutine.
	if client.host {
		go h.sessions.HostDisconnect(client.code)
	} else {
		go h.sessions.ParticipantDisconnect(client.code, client.participantID)
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.socket.Close()
	}()

	c.socket.SetReadLimit(maxMessageSize)
	c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("hub: read error on client %s: %v", c.id, err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("hub: malformed message from client %s: %v", c.id, err)
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.socket.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg Message) {
	switch msg.Type {
	case "ping":
		c.reply("pong", "pong")

	case "request_game_state":
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		state, err := c.hub.sessions.Snapshot(ctx, c.code)
		if err != nil {
			log.Printf("hub: snapshot of %s for client %s failed: %v", c.code, c.id, err)
			c.reply("error", gameErrorPayload(err))
			return
		}
		c.reply(EventGameState, state)

	default:
		log.Printf("hub: unknown message type %q from client %s in %s", msg.Type, c.id, c.code)
	}
}

func (c *Client) reply(evType EventType, payload any) {
	data, err := json.Marshal(outbound{Type: evType, Payload: payload})
	if err != nil {
		log.Printf("hub: failed to marshal %s: %v", evType, err)
		return
	}
	select {
	case c.hub.direct <- directDelivery{client: c, data: data}:
	case <-c.hub.done:
	}
}

func gameErrorPayload(err error) map[string]string {
	if e, ok := AsError(err); ok {
		return map[string]string{"code": string(e.Code), "reason": e.Reason, "error": e.Message}
	}
	return map[string]string{"error": err.Error()}
}
