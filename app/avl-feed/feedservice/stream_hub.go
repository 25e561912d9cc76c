package feedservice

import (
	"encoding/json"
	logger "log"
	"net/http"
	"sync"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/gorilla/websocket"
	"github.com/iqskr/AVLSystem/business/data/feed"
)

// streamWriteWait bounds how long a write to one client may block a broadcast
const streamWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamMessage is sent to websocket clients for every feed message recorded
type StreamMessage struct {
	Kind feed.Kind       `json:"kind"`
	Feed json.RawMessage `json:"feed"`
}

// makeStreamMessage encodes message as a StreamMessage
func makeStreamMessage(kind feed.Kind, message *gtfsrt.FeedMessage) ([]byte, error) {
	feedJson, err := feed.MarshalJSON(message)
	if err != nil {
		return nil, err
	}
	return json.Marshal(StreamMessage{Kind: kind, Feed: feedJson})
}

// streamHub tracks connected websocket clients
type streamHub struct {
	log       *logger.Logger
	mu        sync.Mutex
	clients   map[*websocket.Conn]struct{}
	writeWait time.Duration
}

func makeStreamHub(log *logger.Logger) *streamHub {
	return &streamHub{
		log:       log,
		clients:   make(map[*websocket.Conn]struct{}),
		writeWait: streamWriteWait,
	}
}

// ServeHTTP upgrades the request to a websocket and adds it to the hub
func (h *streamHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Printf("websocket upgrade error:%v", err)
		return
	}
	h.add(conn)
	go h.readPump(conn)
}

func (h *streamHub) add(c *websocket.Conn) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *streamHub) remove(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *streamHub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast sends data to every client, dropping clients that can't be written to
func (h *streamHub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.SetWriteDeadline(time.Now().Add(h.writeWait))
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Printf("dropping websocket client %s. error:%v", c.RemoteAddr(), err)
			_ = c.Close()
			delete(h.clients, c)
		}
	}
}

// readPump discards anything clients send and removes them once the connection closes
func (h *streamHub) readPump(c *websocket.Conn) {
	defer func() {
		h.remove(c)
		_ = c.Close()
	}()
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

// closeAll disconnects every client
func (h *streamHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.Close()
		delete(h.clients, c)
	}
}
