package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/radieske/lottery-settlement-platform/pkg/contracts/events"
)

// ClientMsg é o que o cliente pode mandar pelo socket (só ping por enquanto)
type ClientMsg struct {
	Type string `json:"type"`
}

// ServerMsg envelopa o que o hub envia ao cliente
type ServerMsg struct {
	Type    string             `json:"type"` // bet_settled | pong
	Payload *events.BetSettled `json:"payload,omitempty"`
}

// client serializa escritas: gorilla/websocket aceita um único writer por conexão
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Hub mantém as conexões abertas por usuário
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	// userID -> conexões
	subs map[string]map[*client]struct{}
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*client]struct{}),
	}
}

// HandleWS atende GET /ws?userId=...; a conexão recebe as apostas liquidadas do usuário
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	c := &client{conn: conn}
	h.add(userID, c)
	defer h.remove(userID, c)

	pong, _ := json.Marshal(ServerMsg{Type: "pong"})
	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type == "ping" {
			_ = c.write(pong)
		}
	}
}

// Broadcast entrega o evento às conexões do dono da aposta
func (h *Hub) Broadcast(ev events.BetSettled) {
	h.mu.RLock()
	conns := make([]*client, 0, len(h.subs[ev.UserID]))
	for c := range h.subs[ev.UserID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	if len(conns) == 0 {
		return
	}

	b, _ := json.Marshal(ServerMsg{Type: "bet_settled", Payload: &ev})
	for _, c := range conns {
		_ = c.write(b)
	}
}

// Subscribers conta as conexões abertas de um usuário
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

func (h *Hub) add(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[userID]; !ok {
		h.subs[userID] = make(map[*client]struct{})
	}
	h.subs[userID][c] = struct{}{}
}

func (h *Hub) remove(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, userID)
		}
	}
}
