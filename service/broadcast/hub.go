package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/khaledhikmat/vs-fire/service/lgr"
)

const (
	writeWait  = time.Second
	backlogLen = 16
)

type hubService struct {
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	mutex     sync.RWMutex
	broadcast chan []byte
}

func NewHub() IService {
	return &hubService{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, backlogLen),
	}
}

func (h *hubService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					lgr.Logger.Debug("websocket client dropped", lgr.Err(err))
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()
		}
	}
}

func (h *hubService) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			lgr.Logger.Warn("websocket upgrade failed", lgr.Err(err))
			return
		}

		h.mutex.Lock()
		h.clients[conn] = true
		count := len(h.clients)
		h.mutex.Unlock()
		lgr.Logger.Info("websocket client connected", slog.Int("clients", count))

		// Clients only listen; reading detects the close.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					break
				}
			}
			h.mutex.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()
		}()
	})
}

// Broadcast never blocks the caller; messages are dropped when the hub is behind.
func (h *hubService) Broadcast(payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		lgr.Logger.Error("websocket payload encoding failed", lgr.Err(err))
		return
	}

	select {
	case h.broadcast <- data:
	default:
		lgr.Logger.Debug("websocket backlog full, dropping message")
	}
}

func (h *hubService) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
