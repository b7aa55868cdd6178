package panel

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/jokebox/internal/display"
	"github.com/zhouzirui/jokebox/internal/model/keypad"
	"github.com/zhouzirui/jokebox/pkg/utils"
)

// KeyPresser 接收面板按键，返回是否被控制循环接受。
type KeyPresser interface {
	Press(key keypad.Key) bool
}

// Handler 虚拟设备面板：WebSocket 双向通道与 SSE 只读画面流。
type Handler struct {
	hub      *Hub
	keys     KeyPresser
	upgrader websocket.Upgrader
}

// New 创建面板处理器。
func New(hub *Hub, keys KeyPresser) *Handler {
	return &Handler{
		hub:  hub,
		keys: keys,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册 SSE 路由，挂在 /api 下。
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/display/stream", h.handleStream)
}

// RegisterWebSocketRoutes 注册 WebSocket 路由。
func (h *Handler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/panel", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// KeyMessage 面板按键消息。
type KeyMessage struct {
	Key string `json:"key"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// panelConn 串行化同一连接上的写操作。
type panelConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *panelConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(v)
}

func (c *panelConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
}

// handleWebSocket 先推送当前画面，然后转发显示帧并接收按键。
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[panel] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	pc := &panelConn{conn: conn}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	subID, frames, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()
	log.Printf("[panel] websocket connected subscriber=%s", subID)

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	h.send(pc, "screen", map[string]any{"lines": h.hub.Lines()})

	go h.forwardFrames(ctx, pc, frames)
	go h.pingLoop(ctx, pc)

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[panel] read error: %v", err)
			}
			log.Printf("[panel] websocket closed subscriber=%s", subID)
			return
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		h.handleMessage(pc, &msg)
	}
}

func (h *Handler) handleMessage(pc *panelConn, msg *inboundMessage) {
	switch msg.Type {
	case "key":
		var km KeyMessage
		if err := json.Unmarshal(msg.Data, &km); err != nil {
			h.sendError(pc, "invalid key payload")
			return
		}
		key, ok := keypad.Parse(km.Key)
		if !ok {
			h.sendError(pc, "unknown key: "+km.Key)
			return
		}
		accepted := h.keys != nil && h.keys.Press(key)
		h.send(pc, "key", map[string]any{"key": key.String(), "accepted": accepted})
	case "screen":
		h.send(pc, "screen", map[string]any{"lines": h.hub.Lines()})
	default:
		h.sendError(pc, "unsupported message type: "+msg.Type)
	}
}

func (h *Handler) forwardFrames(ctx context.Context, pc *panelConn, frames <-chan Frame) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := pc.writeJSON(outgoingMessage{Type: "frame", Data: frame, Timestamp: frame.Timestamp}); err != nil {
				log.Printf("[panel] write frame failed: %v", err)
				return
			}
		}
	}
}

func (h *Handler) send(pc *panelConn, msgType string, data interface{}) {
	msg := outgoingMessage{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := pc.writeJSON(msg); err != nil {
		log.Printf("[panel] write %s failed: %v", msgType, err)
	}
}

func (h *Handler) sendError(pc *panelConn, message string) {
	h.send(pc, "error", map[string]string{"message": message})
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, pc *panelConn) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := pc.ping(); err != nil {
				return
			}
		}
	}
}

// handleStream 以 SSE 推送当前画面和后续显示帧。
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)

	ctx := r.Context()
	subID, frames, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()
	log.Printf("[panel] sse stream opened subscriber=%s", subID)

	utils.SendSSEEvent(w, flusher, "screen", map[string]any{"lines": h.hub.Lines()})

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[panel] sse stream closed subscriber=%s", subID)
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			utils.SendSSEEvent(w, flusher, "frame", frame)
		case t := <-ticker.C:
			utils.SendSSEEvent(w, flusher, "heartbeat", map[string]any{
				"time": t.UTC().Format(time.RFC3339),
			})
		}
	}
}

var _ display.Display = (*Hub)(nil)
