package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"studyhub-backend/internal/logger"
	"studyhub-backend/internal/models"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TokenParser resolves an access token to the profile it was issued for.
type TokenParser interface {
	ParseToken(token string) (uuid.UUID, error)
}

// Hub keeps the live connections per profile. With a Redis client, messages
// are published on a per-profile channel so every instance holding a
// connection for that profile delivers it; without one, delivery is local.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID][]*conn
	redisClient *redis.Client
	tokens      TokenParser
	log         *logger.Logger
	cancelFuncs map[uuid.UUID]context.CancelFunc
}

// conn serialises writes; gorilla connections allow one concurrent writer.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func NewHub(redisClient *redis.Client, tokens TokenParser, log *logger.Logger) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID][]*conn),
		redisClient: redisClient,
		tokens:      tokens,
		log:         logger.OrNop(log),
		cancelFuncs: make(map[uuid.UUID]context.CancelFunc),
	}
}

func channelFor(profileID uuid.UUID) string {
	return "studyhub:profile_updates:" + profileID.String()
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Authenticate via token query param
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	profileID, err := h.tokens.ParseToken(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &conn{ws: ws}
	h.registerConnection(profileID, c)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(profileID, c)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) registerConnection(profileID uuid.UUID, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[profileID] = append(h.connections[profileID], c)

	// Start pub/sub subscription if this is the first connection for this profile
	if h.redisClient != nil && len(h.connections[profileID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[profileID] = cancel
		go h.subscribeToPubSub(ctx, profileID)
	}

	h.log.Debug("websocket connected", "profile_id", profileID, "connections", len(h.connections[profileID]))
}

func (h *Hub) unregisterConnection(profileID uuid.UUID, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.ws.Close()

	conns := h.connections[profileID]
	for i, existing := range conns {
		if existing == c {
			h.connections[profileID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	// If no more connections, cancel pub/sub
	if len(h.connections[profileID]) == 0 {
		delete(h.connections, profileID)
		if cancel, ok := h.cancelFuncs[profileID]; ok {
			cancel()
			delete(h.cancelFuncs, profileID)
		}
	}

	h.log.Debug("websocket disconnected", "profile_id", profileID)
}

func (h *Hub) subscribeToPubSub(ctx context.Context, profileID uuid.UUID) {
	pubsub := h.redisClient.Subscribe(ctx, channelFor(profileID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(profileID, []byte(msg.Payload))
		}
	}
}

// broadcast writes data to the local connections and returns how many
// accepted it.
func (h *Hub) broadcast(profileID uuid.UUID, data []byte) int {
	h.mu.RLock()
	conns := append([]*conn(nil), h.connections[profileID]...)
	h.mu.RUnlock()

	sent := 0
	for _, c := range conns {
		if err := c.write(data); err != nil {
			h.log.Debug("websocket write failed", "profile_id", profileID, "error", err)
			continue
		}
		sent++
	}
	return sent
}

// Connected reports whether this instance holds a connection for the profile.
func (h *Hub) Connected(profileID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[profileID]) > 0
}

// Notify delivers msg to every connection of the profile and reports whether
// at least one receiver got it.
func (h *Hub) Notify(profileID uuid.UUID, msg models.WSMessage) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Warn("websocket message not serializable", "type", msg.Type, "error", err)
		return false
	}

	if h.redisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		receivers, err := h.redisClient.Publish(ctx, channelFor(profileID), data).Result()
		if err == nil {
			return receivers > 0
		}
		h.log.Warn("redis publish failed, delivering locally", "profile_id", profileID, "error", err)
	}
	return h.broadcast(profileID, data) > 0
}

// Close drops every connection and subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conns := range h.connections {
		for _, c := range conns {
			c.ws.Close()
		}
		if cancel, ok := h.cancelFuncs[id]; ok {
			cancel()
		}
	}
	h.connections = make(map[uuid.UUID][]*conn)
	h.cancelFuncs = make(map[uuid.UUID]context.CancelFunc)
}
