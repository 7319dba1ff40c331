package fanout

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/events"
	"github.com/the-blue-alliance/the-blue-alliance-sub005/internal/telemetry"
)

const (
	clientSendBuf = 256
	writeDeadline = 5 * time.Second
	pongWait      = 30 * time.Second
	pingInterval  = 20 * time.Second

	// AllEvents subscribes a client to every event key.
	AllEvents = "*"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// Latest supplies the current events for a subscription so new clients do
// not wait for the next recompute.
type Latest interface {
	Latest(eventKey string) []events.Event
}

type subscriber struct {
	eventKey string
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
}

func (c *subscriber) wants(evt events.Event) bool {
	return c.eventKey == AllEvents || c.eventKey == evt.EventKey
}

// Server fans out bus events to connected WebSocket subscribers.
type Server struct {
	mu      sync.Mutex
	clients map[*subscriber]struct{}
	latest  Latest
}

// NewServer subscribes to the bus. latest may be nil.
func NewServer(bus *events.Bus, latest Latest) *Server {
	s := &Server{
		clients: make(map[*subscriber]struct{}),
		latest:  latest,
	}
	bus.SubscribeAll(s.forward)
	return s
}

// forward is called on the publisher's goroutine. It serializes the event
// and enqueues it to matching clients' send channels (non-blocking).
func (s *Server) forward(evt events.Event) error {
	data, err := MarshalEvent(evt)
	if err != nil {
		telemetry.Warnf("fanout: marshal error: %v", err)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		if !c.wants(evt) {
			continue
		}
		s.enqueue(c, data)
	}
	return nil
}

func (s *Server) enqueue(c *subscriber, data []byte) {
	select {
	case c.send <- data:
	default:
		telemetry.Metrics.FanoutDrops.Inc()
		telemetry.Warnf("fanout: dropping message for slow client event=%s", c.eventKey)
	}
}

// HandleWS is the HTTP handler for WebSocket upgrade requests.
// Clients connect with ?event=2017casj, or ?event=* for everything.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	eventKey := r.URL.Query().Get("event")
	if eventKey == "" {
		http.Error(w, "missing ?event= query param", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		telemetry.Warnf("fanout: upgrade failed: %v", err)
		return
	}

	c := &subscriber{
		eventKey: eventKey,
		conn:     conn,
		send:     make(chan []byte, clientSendBuf),
		done:     make(chan struct{}),
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	if s.latest != nil {
		for _, evt := range s.latest.Latest(eventKey) {
			if data, err := MarshalEvent(evt); err == nil {
				s.enqueue(c, data)
			}
		}
	}
	s.mu.Unlock()

	telemetry.Metrics.FanoutClients.Inc()
	telemetry.Plainf("Fanout: Client Connected [%s]", eventKey)

	go s.writePump(c)
	go s.readPump(c)
}

// writePump drains the client's send channel and writes to the WS connection.
// It owns the client lifecycle: on exit it removes the client from the map
// (so forward never sends to a stale channel) and closes the connection.
func (s *Server) writePump(c *subscriber) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.removeClient(c)
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				telemetry.Warnf("fanout: write error event=%s: %v", c.eventKey, err)
				return
			}
		case <-c.done:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump keeps the connection alive by reading pongs / close frames.
// No upstream messages are expected from subscribers.
// On exit it signals writePump via c.done (never closes c.send).
func (s *Server) readPump(c *subscriber) {
	defer close(c.done)

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
	}
}

func (s *Server) removeClient(c *subscriber) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	telemetry.Metrics.FanoutClients.Dec()
	telemetry.Plainf("Fanout: Client Disconnected [%s]", c.eventKey)
}

// Mux returns the fanout routes; callers may add more (e.g. /metrics).
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWS)
	return mux
}

// HTTPServer wraps mux (normally Mux() plus extra routes) in a server
// bound to port.
func HTTPServer(port int, mux http.Handler) *http.Server {
	return &http.Server{
		Addr:        fmt.Sprintf(":%d", port),
		Handler:     mux,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
}
