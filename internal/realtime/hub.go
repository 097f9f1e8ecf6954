// Package realtime fans notification events out to users' open websocket
// connections.
package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// sendBuffer is how many events a slow client may lag before events are
	// dropped for it.
	sendBuffer = 16
)

// Event is the frame written to clients.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type subscriber struct {
	send chan []byte
}

type Hub struct {
	mu       sync.RWMutex
	subs     map[uint]map[*subscriber]struct{}
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewHub builds a hub accepting upgrades from the given origins. "*" allows
// any origin.
func NewHub(logger *slog.Logger, allowOrigins []string) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	allowed := map[string]bool{}
	for _, o := range allowOrigins {
		allowed[o] = true
	}
	return &Hub{
		subs: make(map[uint]map[*subscriber]struct{}),
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// Publish queues an event for every connection of userID. It never blocks;
// a full buffer drops the event for that connection.
func (h *Hub) Publish(userID uint, event string, data interface{}) {
	payload, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		h.log.Error("encoding realtime event", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[userID] {
		select {
		case sub.send <- payload:
		default:
			h.log.Warn("realtime buffer full, dropping event", "user_id", userID, "event", event)
		}
	}
}

// Subscribe registers a listener for userID. The returned cancel func
// unregisters it and closes the channel.
func (h *Hub) Subscribe(userID uint) (<-chan []byte, func()) {
	sub := &subscriber{send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*subscriber]struct{})
	}
	h.subs[userID][sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], sub)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(sub.send)
		})
	}
	return sub.send, cancel
}

// Subscribers reports how many connections userID has open.
func (h *Hub) Subscribers(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// ServeWS upgrades the request and streams userID's events until the client
// goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID uint) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	events, cancel := h.Subscribe(userID)
	h.log.Info("realtime client connected", "user_id", userID)

	done := make(chan struct{})
	go h.readPump(conn, done)
	h.writePump(conn, events, done)

	cancel()
	conn.Close()
	h.log.Info("realtime client disconnected", "user_id", userID)
	return nil
}

// readPump discards client frames and keeps the read deadline fresh so pongs
// are seen. It closes done when the connection breaks.
func (h *Hub) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, events <-chan []byte, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case msg, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
