package device

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/jokebox/internal/model/joke"
	"github.com/zhouzirui/jokebox/internal/model/keypad"
	"github.com/zhouzirui/jokebox/internal/model/session"
	"github.com/zhouzirui/jokebox/pkg/utils"
)

// StateReader 读取控制器最近发布的会话快照。
type StateReader interface {
	Snapshot() session.Snapshot
}

// KeyPresser 把按键交给控制循环。
type KeyPresser interface {
	Press(key keypad.Key) bool
}

// Handler 设备状态、按键与分类的 HTTP 处理器。
type Handler struct {
	state   StateReader
	keys    KeyPresser
	catalog joke.Catalog
}

// New 创建设备处理器
func New(state StateReader, keys KeyPresser, catalog joke.Catalog) *Handler {
	return &Handler{
		state:   state,
		keys:    keys,
		catalog: catalog,
	}
}

// RegisterRoutes 注册设备相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/state", h.handleState)
	r.Post("/keys", h.handlePressKey)
	r.Get("/categories", h.handleListCategories)
}

type pressKeyRequest struct {
	Key string `json:"key"`
}

type pressKeyResponse struct {
	Key      string `json:"key"`
	Accepted bool   `json:"accepted"`
}

type categoryResponse struct {
	Key      string        `json:"key"`
	Category joke.Category `json:"category"`
	Label    string        `json:"label"`
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	if h.state == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "controller unavailable")
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.state.Snapshot())
}

// handlePressKey 控制循环忙碌时按键被丢弃，返回 409。
func (h *Handler) handlePressKey(w http.ResponseWriter, r *http.Request) {
	var req pressKeyRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	key, ok := keypad.Parse(req.Key)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "unknown key")
		return
	}

	if h.keys == nil || !h.keys.Press(key) {
		utils.RespondJSON(w, http.StatusConflict, pressKeyResponse{Key: key.String(), Accepted: false})
		return
	}
	utils.RespondJSON(w, http.StatusAccepted, pressKeyResponse{Key: key.String(), Accepted: true})
}

func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	entries := h.catalog.List()
	resp := make([]categoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, categoryResponse{
			Key:      string(entry.Key),
			Category: entry.Category,
			Label:    entry.Label,
		})
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}
