// Package monitor implements a small opt-in WebSocket server that
// broadcasts live DRTP transfer progress to any browser that connects.
// It is purely observational: it never participates in the Go-Back-N
// window or ACK logic, so a slow or absent client can never slow down
// the transfer it is watching.
package monitor

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	webSocketReadBufferSize  = 4096
	webSocketWriteBufferSize = 4096

	// clientBacklog bounds how many unsent frames a client can queue
	// before frames are dropped for it, mirroring the teacher's
	// "buffer full, drop packet" policy for its receive channel.
	clientBacklog = 16
)

// Frame is one JSON snapshot of sender/receiver progress, broadcast to
// every connected client.
type Frame struct {
	Event     string    `json:"event"`
	Seq       int       `json:"seq"`
	Total     int       `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}

// Broadcaster serves a WebSocket endpoint and fans out Frame values to
// every connected client. It implements drtp.Reporter, so a *Broadcaster
// can be passed directly as the sender/receiver's progress sink.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[chan Frame]struct{}
	server  *http.Server
}

// New builds a Broadcaster, not yet serving.
func New() *Broadcaster {
	return &Broadcaster{clients: make(map[chan Frame]struct{})}
}

// Report implements drtp.Reporter: it stamps the event with the current
// time and fans it out to every connected client without blocking.
func (b *Broadcaster) Report(event string, seq, total int) {
	b.broadcast(Frame{Event: event, Seq: seq, Total: total, Timestamp: time.Now()})
}

func (b *Broadcaster) broadcast(f Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.clients {
		select {
		case ch <- f:
		default:
			// Client too slow to keep up: drop this frame for it rather
			// than block the caller's transfer loop.
		}
	}
}

func (b *Broadcaster) addClient() chan Frame {
	ch := make(chan Frame, clientBacklog)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broadcaster) removeClient(ch chan Frame) {
	b.mu.Lock()
	_, present := b.clients[ch]
	delete(b.clients, ch)
	b.mu.Unlock()

	// Close may have already closed and evicted this channel; only close
	// it here if it was still registered.
	if present {
		close(ch)
	}
}

// ServeHTTP upgrades the request to a WebSocket and streams Frame values
// as JSON until the client disconnects.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  webSocketReadBufferSize,
		WriteBufferSize: webSocketWriteBufferSize,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(fmt.Errorf("monitor: upgrade websocket: %w", err))
		return
	}
	defer func() { _ = conn.Close() }()

	ch := b.addClient()
	defer b.removeClient(ch)

	// Drain client reads so a browser tab close is noticed promptly;
	// this endpoint never expects incoming messages.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for frame := range ch {
		data, err := json.Marshal(frame)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// ListenAndServe starts an HTTP server on addr serving the broadcaster at
// /ws. It blocks until the server stops; Close unblocks it cleanly.
func (b *Broadcaster) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", b)

	b.mu.Lock()
	b.server = &http.Server{Addr: addr, Handler: mux}
	server := b.server
	b.mu.Unlock()

	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close stops the server, if running, and disconnects every client.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	server := b.server
	clients := make([]chan Frame, 0, len(b.clients))
	for ch := range b.clients {
		clients = append(clients, ch)
	}
	b.clients = make(map[chan Frame]struct{})
	b.mu.Unlock()

	for _, ch := range clients {
		close(ch)
	}

	if server == nil {
		return nil
	}
	return server.Close()
}
