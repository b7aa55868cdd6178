package link

import (
	"context"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Link 网络连接状态（设备上对应 Wi-Fi 关联）。
type Link interface {
	Connected() bool
}

type staticLink bool

func (s staticLink) Connected() bool { return bool(s) }

// Static 返回固定状态的 Link，用于测试或已知始终在线的环境。
func Static(connected bool) Link {
	return staticLink(connected)
}

// DefaultProbeAddr 用于判断是否联网的 TCP 地址。
const DefaultProbeAddr = "1.1.1.1:53"

// Options 连接监视器配置。
type Options struct {
	ProbeAddr    string
	Interval     time.Duration // Run 的探测周期
	WaitInterval time.Duration // WaitConnected 两次探测之间的间隔
	DialTimeout  time.Duration
}

// Monitor 周期性地拨号探测地址，缓存最近一次结果。
type Monitor struct {
	opts   Options
	dialer *net.Dialer

	connected atomic.Bool
	mu        sync.RWMutex
	localIP   string
}

// NewMonitor 创建连接监视器，初始状态为未连接。
func NewMonitor(opts Options) *Monitor {
	if opts.ProbeAddr == "" {
		opts.ProbeAddr = DefaultProbeAddr
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.WaitInterval <= 0 {
		opts.WaitInterval = 500 * time.Millisecond
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 2 * time.Second
	}

	return &Monitor{
		opts:   opts,
		dialer: &net.Dialer{Timeout: opts.DialTimeout},
	}
}

// Connected implements Link.
func (m *Monitor) Connected() bool {
	return m.connected.Load()
}

// LocalIP 最近一次成功探测时使用的本地地址。
func (m *Monitor) LocalIP() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.localIP
}

// Probe 立即探测一次并更新缓存状态。
func (m *Monitor) Probe(ctx context.Context) bool {
	conn, err := m.dialer.DialContext(ctx, "tcp", m.opts.ProbeAddr)
	if err != nil {
		if m.connected.Swap(false) {
			log.Printf("[link] connection lost: %v", err)
		}
		return false
	}
	defer conn.Close()

	if addr, ok := conn.LocalAddr().(*net.TCPAddr); ok {
		m.mu.Lock()
		m.localIP = addr.IP.String()
		m.mu.Unlock()
	}
	if !m.connected.Swap(true) {
		log.Printf("[link] connected via %s", m.LocalIP())
	}
	return true
}

// Run 按周期探测直到 ctx 结束。
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	m.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}

// WaitConnected 阻塞直到探测成功；每次失败调用一次 tick（启动画面用它打点）。
func (m *Monitor) WaitConnected(ctx context.Context, tick func()) error {
	for {
		if m.Probe(ctx) {
			return nil
		}
		if tick != nil {
			tick()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.opts.WaitInterval):
		}
	}
}
