package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/zhouzirui/jokebox/internal/metrics"
	"github.com/zhouzirui/jokebox/internal/model/joke"
	relaymodel "github.com/zhouzirui/jokebox/internal/model/relay"
	"github.com/zhouzirui/jokebox/internal/service/link"
)

var (
	ErrDisabled         = errors.New("relay webhook not configured")
	ErrLinkUnavailable  = errors.New("network link unavailable")
	ErrHandleAllocation = errors.New("transport handle allocation failed")
	ErrExhausted        = errors.New("relay attempts exhausted")
	ErrInvalidRating    = errors.New("rating must be between 1 and 5")
)

// Options relay 客户端配置。
type Options struct {
	WebhookURL       string
	MaxAttempts      int
	RetryDelay       time.Duration
	HandshakeTimeout time.Duration
	Metrics          *metrics.Metrics
	// Sleep 两次尝试之间的等待，测试中可替换。
	Sleep func(ctx context.Context, d time.Duration) error
}

// Client 向固定 webhook 发送转换请求与评分，带有有限次重试。
// 每次尝试都分配新的传输句柄，并在进入下一次尝试或返回之前释放它。
type Client struct {
	target    *url.URL
	opts      Options
	link      link.Link
	newHandle HandleFactory
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewClient 创建 relay 客户端。WebhookURL 为空时客户端处于禁用状态。
// factory 为 nil 时使用 NewHandleFactory 的默认安全句柄。
func NewClient(opts Options, ln link.Link, factory HandleFactory) (*Client, error) {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 30 * time.Second
	}
	if ln == nil {
		ln = link.Static(true)
	}

	var target *url.URL
	if raw := strings.TrimSpace(opts.WebhookURL); raw != "" {
		parsed, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid relay webhook url: %w", err)
		}
		if parsed.Scheme != "https" && parsed.Scheme != "http" {
			return nil, fmt.Errorf("invalid relay webhook url scheme %q", parsed.Scheme)
		}
		if parsed.Host == "" {
			return nil, fmt.Errorf("relay webhook url %q has no host", raw)
		}
		target = parsed
	}

	if factory == nil {
		factory = NewHandleFactory(HandleOptions{HandshakeTimeout: opts.HandshakeTimeout})
	}

	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	return &Client{
		target:    target,
		opts:      opts,
		link:      ln,
		newHandle: factory,
		sleep:     sleep,
	}, nil
}

// Enabled 是否配置了 webhook。
func (c *Client) Enabled() bool {
	return c != nil && c.target != nil
}

// Relay 以给定模式向 webhook 发送 {category, joke, rating}。
// Transform 模式在线上固定发送 rating=0；Rate 模式要求 1-5。
// 该调用不会返回 error：失败信息体现在 Outcome.ResponseText（可渲染）与 Outcome.Err（供日志/指标）。
func (c *Client) Relay(ctx context.Context, mode relaymodel.Mode, category joke.Category, content string, rating int) relaymodel.Outcome {
	outcome := c.relay(ctx, mode, category, content, rating)
	c.opts.Metrics.ObserveRelayOutcome(string(mode), outcome.Succeeded)
	if !outcome.Succeeded {
		log.Printf("[relay] mode=%s category=%s failed after %d attempt(s): %v", mode, category, outcome.Attempts, outcome.Err)
	}
	return outcome
}

func (c *Client) relay(ctx context.Context, mode relaymodel.Mode, category joke.Category, content string, rating int) relaymodel.Outcome {
	switch mode {
	case relaymodel.Transform:
		rating = 0
	case relaymodel.Rate:
		if rating < 1 || rating > 5 {
			return relaymodel.Outcome{ResponseText: "Invalid Rating", Err: ErrInvalidRating}
		}
	default:
		return relaymodel.Outcome{ResponseText: "Invalid Mode", Err: fmt.Errorf("unknown relay mode %q", mode)}
	}

	if !c.Enabled() {
		return relaymodel.Outcome{ResponseText: relaymodel.TextDisabled, Err: ErrDisabled}
	}

	// 没有网络时重试只是浪费时间。
	if !c.link.Connected() {
		return relaymodel.Outcome{ResponseText: relaymodel.TextLinkUnavailable, Err: ErrLinkUnavailable}
	}

	body, err := json.Marshal(relaymodel.Payload{
		Category: string(category),
		Joke:     content,
		Rating:   rating,
	})
	if err != nil {
		return relaymodel.Outcome{ResponseText: relaymodel.TextRequestFailed, Err: fmt.Errorf("marshal relay payload: %w", err)}
	}

	var (
		lastText string
		lastErr  error
		attempts int
	)
	for attempts < c.opts.MaxAttempts {
		attempts++

		text, attemptErr := c.attempt(ctx, mode, body)
		if attemptErr == nil {
			return relaymodel.Outcome{Succeeded: true, ResponseText: text, Attempts: attempts}
		}

		lastText, lastErr = text, attemptErr
		log.Printf("[relay] mode=%s attempt %d/%d failed: %v", mode, attempts, c.opts.MaxAttempts, attemptErr)

		if attempts == c.opts.MaxAttempts {
			break
		}
		if err := c.sleep(ctx, c.opts.RetryDelay); err != nil {
			lastErr = fmt.Errorf("%v; retry aborted: %w", lastErr, err)
			break
		}
	}

	return relaymodel.Outcome{
		ResponseText: lastText,
		Attempts:     attempts,
		Err:          fmt.Errorf("%w after %d attempt(s): %v", ErrExhausted, attempts, lastErr),
	}
}

// attempt 执行一次完整尝试：分配句柄 → 连接 → 发送。无论成功与否，返回前都会释放本次分配的句柄。
func (c *Client) attempt(ctx context.Context, mode relaymodel.Mode, body []byte) (string, error) {
	handle, err := c.newHandle()
	if err != nil || handle == nil {
		if err == nil {
			err = errors.New("factory returned nil handle")
		}
		c.opts.Metrics.ObserveRelayAttempt(string(mode), "alloc_failed")
		return relaymodel.TextAllocFailed, fmt.Errorf("%w: %v", ErrHandleAllocation, err)
	}
	defer func() {
		if closeErr := handle.Close(); closeErr != nil {
			log.Printf("[relay] release handle: %v", closeErr)
		}
	}()

	if err := handle.Connect(ctx, c.target); err != nil {
		c.opts.Metrics.ObserveRelayAttempt(string(mode), "connect_failed")
		return relaymodel.TextConnectFailed, fmt.Errorf("connect %s: %w", c.target.Host, err)
	}

	status, responseText, err := handle.Post(ctx, body)
	if err != nil {
		c.opts.Metrics.ObserveRelayAttempt(string(mode), "request_failed")
		return relaymodel.TextRequestFailed, fmt.Errorf("post: %w", err)
	}

	if status < 200 || status >= 300 {
		c.opts.Metrics.ObserveRelayAttempt(string(mode), "http_error")
		return fmt.Sprintf("HTTP Error: %d", status), fmt.Errorf("unexpected status %d", status)
	}

	c.opts.Metrics.ObserveRelayAttempt(string(mode), "ok")
	return responseText, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
