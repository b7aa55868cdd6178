package handler

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zhouzirui/jokebox/internal/handler/panel"
	"github.com/zhouzirui/jokebox/internal/metrics"
	"github.com/zhouzirui/jokebox/internal/model/joke"
	"github.com/zhouzirui/jokebox/internal/model/keypad"
	"github.com/zhouzirui/jokebox/internal/model/session"
)

type idleState struct{}

func (idleState) Snapshot() session.Snapshot { return session.Snapshot{State: session.Idle} }

func newTestRouter(t *testing.T) (http.Handler, *keypad.ChannelSource, *metrics.Metrics) {
	t.Helper()
	keys := keypad.NewChannelSource()
	t.Cleanup(keys.Close)
	m := metrics.New()
	router := NewRouter(idleState{}, keys, joke.NewMemoryCatalog(joke.Seed()), panel.NewHub(), m)
	return router, keys, m
}

func TestRouterHealthz(t *testing.T) {
	router, _, _ := newTestRouter(t)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected CORS header")
	}
}

func TestRouterMetrics(t *testing.T) {
	router, _, m := newTestRouter(t)
	m.ObserveFetch(string(joke.Pun), "ok")

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "jokebox_fetch_total") {
		t.Fatalf("metrics output missing fetch counter")
	}
}

func TestRouterKeyDroppedWhenLoopBusy(t *testing.T) {
	router, _, _ := newTestRouter(t)

	// 没有控制循环在等待按键，按键被丢弃。
	req := httptest.NewRequest(http.MethodPost, "/api/keys", bytes.NewReader([]byte(`{"key":"4"}`)))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestRouterState(t *testing.T) {
	router, _, _ := newTestRouter(t)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/state", nil))

	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"state":"idle"`) {
		t.Fatalf("unexpected state response %d %s", resp.Code, resp.Body.String())
	}
}
