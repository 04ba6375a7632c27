package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"chatwave-backend/internal/chat"
	"chatwave-backend/internal/models"
	"chatwave-backend/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type messageStore interface {
	Insert(ctx context.Context, msg *models.Message) error
}

type jobStore interface {
	Create(ctx context.Context, job *models.AssistantJob) error
}

type userGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// eventPublisher and replyQueue are the slices of the redis API the relay
// uses, kept narrow like the stores above.
type eventPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type replyQueue interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// client is one live socket plus its presence metadata. gorilla conns allow a
// single concurrent writer, hence the write mutex.
type client struct {
	conn        *websocket.Conn
	writeMu     sync.Mutex
	remoteAddr  string
	connectedAt time.Time
}

func (c *client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub owns the presence directory and relays chat traffic. Each online user
// has one redis subscription fanning out to all of their connections, so
// delivery works across instances even though presence itself is per-process.
type Hub struct {
	mu          sync.RWMutex
	connections map[string][]*client
	cancelFuncs map[string]context.CancelFunc

	pubsub      *redis.Client
	publisher   eventPublisher
	queue       replyQueue
	messageRepo messageStore
	jobRepo     jobStore
	userRepo    userGetter
}

func NewHub(pubsubClient, queueClient *redis.Client, messageRepo messageStore, jobRepo jobStore, userRepo userGetter) *Hub {
	return &Hub{
		connections: make(map[string][]*client),
		cancelFuncs: make(map[string]context.CancelFunc),
		pubsub:      pubsubClient,
		publisher:   pubsubClient,
		queue:       queueClient,
		messageRepo: messageRepo,
		jobRepo:     jobRepo,
		userRepo:    userRepo,
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Identify via user_id query param. No authentication by design: the id
	// is the same public identifier the REST login hands out.
	userIDStr := r.URL.Query().Get("user_id")
	if userIDStr == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	if chat.IsAssistant(userIDStr) {
		http.Error(w, "reserved user id", http.StatusBadRequest)
		return
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}
	if _, err := h.userRepo.GetByID(r.Context(), userID); err != nil {
		http.Error(w, "unknown user", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{
		conn:        conn,
		remoteAddr:  r.RemoteAddr,
		connectedAt: time.Now(),
	}

	h.registerConnection(userIDStr, c)
	go h.readLoop(userIDStr, c)
}

func (h *Hub) registerConnection(userID string, c *client) {
	h.mu.Lock()
	h.connections[userID] = append(h.connections[userID], c)

	// First connection for this user: start their pub/sub relay
	if len(h.connections[userID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[userID] = cancel
		go h.subscribeUserEvents(ctx, userID)
	}
	total := len(h.connections[userID])
	h.mu.Unlock()

	log.Printf("WebSocket connected: user %s from %s (conns: %d)", userID, c.remoteAddr, total)
	h.broadcastPresence()
}

func (h *Hub) unregisterConnection(userID string, c *client) {
	h.mu.Lock()

	c.conn.Close()

	conns := h.connections[userID]
	for i, existing := range conns {
		if existing == c {
			h.connections[userID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	// Last connection gone: user goes offline, stop their relay
	if len(h.connections[userID]) == 0 {
		delete(h.connections, userID)
		if cancel, ok := h.cancelFuncs[userID]; ok {
			cancel()
			delete(h.cancelFuncs, userID)
		}
	}
	h.mu.Unlock()

	log.Printf("WebSocket disconnected: user %s", userID)
	h.broadcastPresence()
}

// readLoop is the socket's event dispatcher: message, typing, disconnect.
func (h *Hub) readLoop(userID string, c *client) {
	defer h.unregisterConnection(userID, c)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var envelope models.WSEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			h.sendError(c, "BAD_FRAME", "Frames must be JSON envelopes")
			continue
		}

		switch envelope.Type {
		case models.WSTypeMessage:
			h.handleChatMessage(userID, c, envelope.Payload)
		case models.WSTypeTyping:
			h.handleTyping(userID, envelope.Payload)
		default:
			h.sendError(c, "UNKNOWN_TYPE", "Unsupported event type: "+envelope.Type)
		}
	}
}

func (h *Hub) handleChatMessage(senderID string, c *client, payload json.RawMessage) {
	var event models.ChatMessageEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.sendError(c, "BAD_PAYLOAD", "Invalid message payload")
		return
	}
	if event.RecipientID == "" || event.Body == "" {
		h.sendError(c, "BAD_PAYLOAD", "recipient_id and body are required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := &models.Message{
		ChatID:      chat.ChatID(senderID, event.RecipientID),
		SenderID:    senderID,
		RecipientID: event.RecipientID,
		Body:        event.Body,
	}
	if err := h.messageRepo.Insert(ctx, msg); err != nil {
		log.Printf("Failed to persist message from %s: %v", senderID, err)
		h.sendError(c, "PERSIST_FAILED", "Message could not be saved")
		return
	}

	// Fan out the canonical persisted record to both sides. The sender echo
	// carries the server-assigned id and timestamp. A self-chat has one
	// channel, so publish once.
	h.publishEvent(ctx, event.RecipientID, models.WSEvent{Type: models.WSTypeMessage, Payload: msg})
	if event.RecipientID != senderID {
		h.publishEvent(ctx, senderID, models.WSEvent{Type: models.WSTypeMessage, Payload: msg})
	}

	if chat.IsAssistant(event.RecipientID) {
		h.enqueueAssistantReply(ctx, c, msg)
	}
}

func (h *Hub) handleTyping(senderID string, payload json.RawMessage) {
	var event models.TypingEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return
	}

	// Transient: relayed, never persisted. The chat id names the recipient's
	// room; the peer is whichever participant is not the sender.
	peer := peerOf(event.ChatID, senderID)
	if peer == "" || chat.IsAssistant(peer) {
		return
	}

	event.SenderID = senderID
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	h.publishEvent(ctx, peer, models.WSEvent{Type: models.WSTypeTyping, Payload: event})
}

func (h *Hub) enqueueAssistantReply(ctx context.Context, c *client, msg *models.Message) {
	job := &models.AssistantJob{
		ChatID:    msg.ChatID,
		UserID:    msg.SenderID,
		MessageID: msg.ID,
	}
	if err := h.jobRepo.Create(ctx, job); err != nil {
		log.Printf("Failed to create assistant job for chat %s: %v", msg.ChatID, err)
		h.sendError(c, "ASSISTANT_UNAVAILABLE", "The assistant could not take your message")
		return
	}

	data, _ := json.Marshal(job)
	if err := h.queue.LPush(ctx, services.QueueAssistantReplies, string(data)).Err(); err != nil {
		log.Printf("Failed to enqueue assistant job %s: %v", job.ID, err)
		h.sendError(c, "ASSISTANT_UNAVAILABLE", "The assistant could not take your message")
	}
}

// subscribeUserEvents relays a user's pub/sub channel into all of their live
// connections until the last one disconnects.
func (h *Hub) subscribeUserEvents(ctx context.Context, userID string) {
	pubsub := h.pubsub.Subscribe(ctx, services.UserEventsChannel(userID))
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
			h.deliverLocal(userID, []byte(msg.Payload))
		}
	}
}

func (h *Hub) deliverLocal(userID string, data []byte) {
	h.mu.RLock()
	conns := append([]*client(nil), h.connections[userID]...)
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.write(data); err != nil {
			log.Printf("Write to user %s failed: %v", userID, err)
		}
	}
}

func (h *Hub) publishEvent(ctx context.Context, userID string, event models.WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.publisher.Publish(ctx, services.UserEventsChannel(userID), string(data))
}

// broadcastPresence recomputes the full online list and pushes it to every
// local connection. The assistant is always listed online.
func (h *Hub) broadcastPresence() {
	snapshot := models.PresenceSnapshot{Online: h.Online()}
	data, err := json.Marshal(models.WSEvent{Type: models.WSTypePresence, Payload: snapshot})
	if err != nil {
		return
	}

	h.mu.RLock()
	all := make([]*client, 0, len(h.connections))
	for _, conns := range h.connections {
		all = append(all, conns...)
	}
	h.mu.RUnlock()

	for _, c := range all {
		c.write(data)
	}
}

// Online returns the sorted ids of everyone currently connected, plus the
// assistant, which never goes offline.
func (h *Hub) Online() []string {
	h.mu.RLock()
	ids := make([]string, 0, len(h.connections)+1)
	for id := range h.connections {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	ids = append(ids, chat.AssistantID)
	sort.Strings(ids)
	return ids
}

func (h *Hub) IsOnline(userID string) bool {
	if chat.IsAssistant(userID) {
		return true
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userID]) > 0
}

func (h *Hub) sendError(c *client, code, message string) {
	data, err := json.Marshal(models.WSEvent{
		Type:    models.WSTypeError,
		Payload: models.WSError{Code: code, Message: message},
	})
	if err != nil {
		return
	}
	c.write(data)
}

// peerOf extracts the other participant from a chat id. Returns "" when the
// sender is not part of the chat.
func peerOf(chatID, senderID string) string {
	a, b, ok := chat.SplitChatID(chatID)
	if !ok {
		return ""
	}
	switch senderID {
	case a:
		return b
	case b:
		return a
	default:
		return ""
	}
}
