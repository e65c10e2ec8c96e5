package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	pkgtypes "github.com/tpq-digital/payment-service/pkg/types"
)

// Hub broadcasts payment confirmations to connected dashboard clients. It is
// the in-app notification channel.
type Hub struct {
	mu       sync.RWMutex
	conns    map[string]*websocket.Conn
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]*websocket.Conn),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Hub) Name() string { return "in-app" }

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.HandleWS(w, r)
}

func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	wsID := r.Header.Get("Sec-Websocket-Key")
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Errorf("ws upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.conns[wsID] = conn
	h.mu.Unlock()

	logrus.WithField("WS", wsID).Info("WS:CONNECTED")

	go h.readLoop(wsID, conn)
}

// readLoop drains control frames and unregisters the conn on close.
func (h *Hub) readLoop(wsID string, conn *websocket.Conn) {
	defer func() {
		h.mu.Lock()
		delete(h.conns, wsID)
		h.mu.Unlock()
		conn.Close()
		logrus.WithField("WS", wsID).Info("WS:DISCONNECTED")
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) Send(ctx context.Context, n *pkgtypes.PaymentNotification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}

	h.mu.RLock()
	conns := make(map[string]*websocket.Conn, len(h.conns))
	for id, c := range h.conns {
		conns[id] = c
	}
	h.mu.RUnlock()

	for id, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			logrus.WithField("WS", id).Warnf("ws write failed: %v", err)
			h.mu.Lock()
			delete(h.conns, id)
			h.mu.Unlock()
			conn.Close()
		}
	}
	return nil
}

func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
