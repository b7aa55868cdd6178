package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/jokebox/internal/handler/device"
	"github.com/zhouzirui/jokebox/internal/handler/panel"
	"github.com/zhouzirui/jokebox/internal/metrics"
	middlewarePkg "github.com/zhouzirui/jokebox/internal/middleware"
	"github.com/zhouzirui/jokebox/internal/model/joke"
	"github.com/zhouzirui/jokebox/internal/model/keypad"
	"github.com/zhouzirui/jokebox/pkg/utils"
)

// Keypad 面板按键的去向，由控制循环消费。
type Keypad interface {
	Press(key keypad.Key) bool
}

// NewRouter wires the virtual device panel to the controller.
func NewRouter(state device.StateReader, keys Keypad, catalog joke.Catalog, hub *panel.Hub, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	deviceHandler := device.New(state, keys, catalog)
	panelHandler := panel.New(hub, keys)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api", func(api chi.Router) {
		deviceHandler.RegisterRoutes(api)
		panelHandler.RegisterRoutes(api)
	})

	panelHandler.RegisterWebSocketRoutes(r)

	return r
}
