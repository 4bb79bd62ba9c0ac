package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/cascade/internal/common"
	"github.com/ternarybob/cascade/internal/interfaces"
)

// Message types
const (
	MessageStatus   = "status"
	MessageProgress = "progress"
	MessageError    = "error"
	MessageClear    = "clear"
)

// defaultWriteWait bounds a single write to a client. A client that can't
// take a message within it is disconnected.
const defaultWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // progress viewer is served locally
	},
}

// Compile-time assertion
var _ interfaces.NotificationSink = (*WebSocketHandler)(nil)

// WSMessage is the envelope of every message sent to clients.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ProgressUpdate is the payload of progress and error messages.
type ProgressUpdate struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// StatusUpdate is sent to each client when it connects.
type StatusUpdate struct {
	ServerInstanceID string          `json:"serverInstanceId"`
	Clients          int             `json:"clients"`
	Last             *ProgressUpdate `json:"last,omitempty"`
}

// WebSocketHandler is a NotificationSink that broadcasts cascade progress
// to every connected WebSocket client.
type WebSocketHandler struct {
	logger            arbor.ILogger
	clients           map[*websocket.Conn]bool
	clientMutex       map[*websocket.Conn]*sync.Mutex
	mu                sync.RWMutex
	progressThrottler *rate.Limiter // nil = every progress message is sent
	excludePatterns   []string
	serverInstanceID  string // clients use it to detect a restart
	last              *ProgressUpdate
	writeWait         time.Duration
}

func NewWebSocketHandler(logger arbor.ILogger, config *common.WebSocketConfig) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		clients:          make(map[*websocket.Conn]bool),
		clientMutex:      make(map[*websocket.Conn]*sync.Mutex),
		serverInstanceID: uuid.New().String(),
		writeWait:        defaultWriteWait,
	}

	if config != nil {
		h.excludePatterns = config.ExcludePatterns

		// Errors and clears are never throttled
		if config.ThrottleInterval != "" {
			if interval, err := time.ParseDuration(config.ThrottleInterval); err == nil {
				h.progressThrottler = rate.NewLimiter(rate.Every(interval), 1)
			} else {
				logger.Warn().
					Err(err).
					Str("interval", config.ThrottleInterval).
					Msg("Failed to parse progress throttle interval - throttler disabled")
			}
		}
	}

	logger.Debug().Str("server_instance_id", h.serverInstanceID).Msg("WebSocket progress handler initialized")
	return h
}

// HandleWebSocket upgrades the connection and keeps it registered until the
// client goes away.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("clients", clientCount).Msg("WebSocket client connected")

	h.sendStatus(conn)

	defer h.drop(conn)

	// Clients don't send anything; reading detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			break
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Report broadcasts a progress message.
func (h *WebSocketHandler) Report(message string) {
	if h.excluded(message) {
		return
	}
	if h.progressThrottler != nil && !h.progressThrottler.Allow() {
		return
	}
	h.broadcast(MessageProgress, h.remember(message))
}

// ReportError broadcasts an error message.
func (h *WebSocketHandler) ReportError(message string) {
	h.broadcast(MessageError, h.remember(message))
}

// Clear tells clients to drop the messages they show.
func (h *WebSocketHandler) Clear() {
	h.mu.Lock()
	h.last = nil
	h.mu.Unlock()
	h.broadcast(MessageClear, nil)
}

func (h *WebSocketHandler) excluded(message string) bool {
	for _, pattern := range h.excludePatterns {
		if pattern != "" && strings.Contains(message, pattern) {
			return true
		}
	}
	return false
}

func (h *WebSocketHandler) remember(message string) *ProgressUpdate {
	update := &ProgressUpdate{
		Message:   message,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	h.mu.Lock()
	h.last = update
	h.mu.Unlock()
	return update
}

func (h *WebSocketHandler) sendStatus(conn *websocket.Conn) {
	h.mu.RLock()
	status := StatusUpdate{
		ServerInstanceID: h.serverInstanceID,
		Clients:          len(h.clients),
		Last:             h.last,
	}
	mutex := h.clientMutex[conn]
	h.mu.RUnlock()

	data, err := json.Marshal(WSMessage{Type: MessageStatus, Payload: status})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal initial status")
		return
	}

	if mutex != nil {
		if err := h.write(conn, mutex, data); err != nil {
			h.logger.Warn().Err(err).Msg("Failed to send initial status")
			h.drop(conn)
		}
	}
}

// write sends data under the connection's mutex with a write deadline, so
// a client that stopped reading can't block the caller indefinitely.
func (h *WebSocketHandler) write(conn *websocket.Conn, mutex *sync.Mutex, data []byte) error {
	mutex.Lock()
	defer mutex.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(h.writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// drop unregisters and closes a client. It is safe to call more than once.
func (h *WebSocketHandler) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	delete(h.clientMutex, conn)
	remaining := len(h.clients)
	h.mu.Unlock()

	conn.Close()
	if ok {
		h.logger.Debug().Int("clients", remaining).Msg("WebSocket client disconnected")
	}
}

// broadcast sends one message to every client. Writes to a single
// connection are serialized by its mutex; a failed write drops the client.
func (h *WebSocketHandler) broadcast(messageType string, payload interface{}) {
	data, err := json.Marshal(WSMessage{Type: messageType, Payload: payload})
	if err != nil {
		h.logger.Error().Err(err).Str("type", messageType).Msg("Failed to marshal WebSocket message")
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn := range h.clients {
		clients = append(clients, conn)
		mutexes = append(mutexes, h.clientMutex[conn])
	}
	h.mu.RUnlock()

	for i, conn := range clients {
		if err := h.write(conn, mutexes[i], data); err != nil {
			h.logger.Debug().Err(err).Str("type", messageType).Msg("Failed to send to WebSocket client")
			h.drop(conn)
		}
	}
}
