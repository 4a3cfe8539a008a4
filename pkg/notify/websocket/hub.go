// Package websocket pushes alerts and connection status to browser clients.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/chadibenrejeb/hive-watch/pkg/entities"
	gwebsocket "github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	TypeAlert    = "alert"
	TypeStatus   = "status"
	TypeSnapshot = "snapshot"

	broadcastBuffer = 64
	sendBuffer      = 256
)

var (
	ErrHubStopped = errors.New("websocket hub is stopped")
	ErrBacklog    = errors.New("websocket broadcast backlog is full")
)

var upgrader = gwebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Message is the envelope of everything written to a client.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hub maintains the set of active clients and broadcasts messages.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	log        *logrus.Entry
}

func NewHub(log *logrus.Entry) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return nil

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.WithField("remote", client.Conn.RemoteAddr()).Debugln("websocket client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.log.WithField("remote", client.Conn.RemoteAddr()).Debugln("websocket client unregistered")
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					h.log.WithField("remote", client.Conn.RemoteAddr()).Warnln("websocket client send buffer full, removing")
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Notify broadcasts an alert to every client.
func (h *Hub) Notify(alert entities.Alert) error {
	return h.publish(Message{Type: TypeAlert, Payload: alert})
}

func (h *Hub) BroadcastStatus(status entities.ConnectionStatus) {
	if err := h.publish(Message{Type: TypeStatus, Payload: status}); err != nil {
		h.log.WithError(err).Debugln("status not broadcast")
	}
}

// publish never blocks: a full backlog drops the message.
func (h *Hub) publish(message Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return errors.Wrap(err, "encode websocket message")
	}
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}
	select {
	case h.broadcast <- data:
		return nil
	default:
		return ErrBacklog
	}
}

// Serve upgrades the request, queues the initial messages for the new client
// and starts its pumps.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, initial ...Message) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warnln("websocket upgrade failed")
		return
	}
	client := &Client{Hub: h, Conn: conn, Send: make(chan []byte, sendBuffer), log: h.log}
	for _, message := range initial {
		data, err := json.Marshal(message)
		if err != nil {
			h.log.WithError(err).Warnln("failed to encode initial websocket message")
			continue
		}
		client.Send <- data
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}
	go client.WritePump()
	go client.ReadPump()
}
