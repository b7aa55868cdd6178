package keypad

import (
	"context"
	"sync"
)

// ChannelSource 由外部推送按键的输入源（网页面板、测试）。
// 控制循环忙碌时到达的按键会被丢弃，和硬件键盘在网络请求期间不扫描一致。
type ChannelSource struct {
	keys chan Key

	mu     sync.Mutex
	closed bool
}

// NewChannelSource 创建输入源。
func NewChannelSource() *ChannelSource {
	return &ChannelSource{keys: make(chan Key)}
}

// Press 投递一个按键；只有控制循环正在等待输入时才会被接收。
func (s *ChannelSource) Press(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}

	select {
	case s.keys <- key:
		return true
	default:
		return false
	}
}

// NextKey implements Source.
func (s *ChannelSource) NextKey(ctx context.Context) (Key, error) {
	select {
	case <-ctx.Done():
		return None, ctx.Err()
	case key, ok := <-s.keys:
		if !ok {
			return None, ErrClosed
		}
		return key, nil
	}
}

// Close 关闭输入源，之后的 NextKey 返回 ErrClosed。
func (s *ChannelSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.keys)
}
