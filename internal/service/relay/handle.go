package relay

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Handle 单次尝试使用的传输句柄，用完即弃，不跨尝试复用。
type Handle interface {
	Connect(ctx context.Context, target *url.URL) error
	Post(ctx context.Context, body []byte) (status int, responseText string, err error)
	Close() error
}

// HandleFactory 每次尝试调用一次，返回全新的句柄。
type HandleFactory func() (Handle, error)

// HandleOptions 默认安全句柄的配置。
type HandleOptions struct {
	HandshakeTimeout time.Duration
	// TLSConfig 为空时使用系统根证书。
	TLSConfig *tls.Config
}

// maxResponseBytes 限制 webhook 响应体大小。
const maxResponseBytes = 64 << 10

var errHandleClosed = errors.New("transport handle closed")

// NewHandleFactory 返回创建 secureHandle 的工厂。
func NewHandleFactory(opts HandleOptions) HandleFactory {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 30 * time.Second
	}
	return func() (Handle, error) {
		return &secureHandle{opts: opts}, nil
	}
}

// secureHandle 先建立到 webhook 的连接（https 时完成 TLS 握手），再在同一连接上发出请求。
// 重定向等需要新连接的情况仍然由本句柄拨号，Close 时一并释放。
type secureHandle struct {
	opts HandleOptions

	mu        sync.Mutex
	target    *url.URL
	conn      net.Conn
	transport *http.Transport
	closed    bool
}

func (h *secureHandle) Connect(ctx context.Context, target *url.URL) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errHandleClosed
	}

	conn, err := h.dial(ctx, target.Scheme, hostPort(target))
	if err != nil {
		return err
	}

	h.target = target
	h.conn = conn
	h.transport = &http.Transport{
		DialContext: func(ctx context.Context, _, addr string) (net.Conn, error) {
			return h.takeOrDial(ctx, "http", addr)
		},
		DialTLSContext: func(ctx context.Context, _, addr string) (net.Conn, error) {
			return h.takeOrDial(ctx, "https", addr)
		},
		DisableKeepAlives:     true,
		ResponseHeaderTimeout: h.opts.HandshakeTimeout,
	}
	return nil
}

func (h *secureHandle) Post(ctx context.Context, body []byte) (int, string, error) {
	h.mu.Lock()
	target, transport, closed := h.target, h.transport, h.closed
	h.mu.Unlock()

	if closed {
		return 0, "", errHandleClosed
	}
	if transport == nil {
		return 0, "", errors.New("transport handle not connected")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Relay-Request-Id", uuid.NewString())

	client := &http.Client{Transport: transport}
	resp, err := client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, string(data), nil
}

// Close 释放句柄持有的所有连接，可重复调用。
func (h *secureHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	var err error
	if h.conn != nil {
		err = h.conn.Close()
		h.conn = nil
	}
	if h.transport != nil {
		h.transport.CloseIdleConnections()
	}
	return err
}

// takeOrDial 第一次交出 Connect 时建立的连接，之后按需拨号。
func (h *secureHandle) takeOrDial(ctx context.Context, scheme, addr string) (net.Conn, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, errHandleClosed
	}
	if conn := h.conn; conn != nil && addr == hostPort(h.target) {
		h.conn = nil
		h.mu.Unlock()
		return conn, nil
	}
	h.mu.Unlock()

	return h.dial(ctx, scheme, addr)
}

func (h *secureHandle) dial(ctx context.Context, scheme, addr string) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, h.opts.HandshakeTimeout)
	defer cancel()

	netDialer := &net.Dialer{Timeout: h.opts.HandshakeTimeout}
	if scheme != "https" {
		return netDialer.DialContext(dialCtx, "tcp", addr)
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if h.opts.TLSConfig != nil {
		cfg = h.opts.TLSConfig.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	cfg.NextProtos = []string{"http/1.1"}

	dialer := &tls.Dialer{NetDialer: netDialer, Config: cfg}
	return dialer.DialContext(dialCtx, "tcp", addr)
}

func hostPort(u *url.URL) string {
	if u == nil {
		return ""
	}
	if port := u.Port(); port != "" {
		return u.Host
	}
	if u.Scheme == "https" {
		return net.JoinHostPort(u.Hostname(), "443")
	}
	return net.JoinHostPort(u.Hostname(), "80")
}
