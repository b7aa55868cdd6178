package panel

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/jokebox/internal/display"
)

// 画面操作类型。
const (
	OpClear   = "clear"
	OpPrint   = "print"
	OpPrintln = "println"
)

// Frame 一次显示操作，推送给网页面板。
type Frame struct {
	ID        string        `json:"id"`
	Op        string        `json:"op"`
	Color     display.Color `json:"color,omitempty"`
	Text      string        `json:"text,omitempty"`
	Timestamp int64         `json:"timestamp"`
}

const subscriberBuffer = 64

// Hub 实现 display.Display：维护当前画面并把每个操作广播给订阅者。
// 慢订阅者的帧会被丢弃，控制循环不会因此阻塞。
type Hub struct {
	screen *display.Screen

	mu   sync.Mutex
	subs map[string]chan Frame
}

// NewHub 创建空画面的 Hub。
func NewHub() *Hub {
	return &Hub{
		screen: display.NewScreen(),
		subs:   make(map[string]chan Frame),
	}
}

func (h *Hub) Clear() {
	h.screen.Clear()
	h.broadcast(Frame{Op: OpClear})
}

func (h *Hub) Print(color display.Color, text string) {
	h.screen.Print(color, text)
	h.broadcast(Frame{Op: OpPrint, Color: color, Text: text})
}

func (h *Hub) Println(color display.Color, text string) {
	h.screen.Println(color, text)
	h.broadcast(Frame{Op: OpPrintln, Color: color, Text: text})
}

// Lines 返回当前画面。
func (h *Hub) Lines() []display.Line {
	return h.screen.Lines()
}

// Subscribe 注册订阅者，返回的 cancel 必须调用。
func (h *Hub) Subscribe() (string, <-chan Frame, func()) {
	id := uuid.NewString()
	ch := make(chan Frame, subscriberBuffer)

	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if existing, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(existing)
		}
	}
	return id, ch, cancel
}

// Subscribers 当前订阅者数量。
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) broadcast(frame Frame) {
	frame.ID = uuid.NewString()
	frame.Timestamp = time.Now().UnixMilli()

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- frame:
		default:
		}
	}
}
