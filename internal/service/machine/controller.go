package machine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/zhouzirui/jokebox/internal/analysis/reaction"
	"github.com/zhouzirui/jokebox/internal/display"
	"github.com/zhouzirui/jokebox/internal/metrics"
	"github.com/zhouzirui/jokebox/internal/model/joke"
	"github.com/zhouzirui/jokebox/internal/model/keypad"
	relaymodel "github.com/zhouzirui/jokebox/internal/model/relay"
	"github.com/zhouzirui/jokebox/internal/model/session"
)

// Fetcher 内容服务。
type Fetcher interface {
	Fetch(ctx context.Context, category joke.Category) (joke.Item, error)
}

// Relayer relay 服务。
type Relayer interface {
	Relay(ctx context.Context, mode relaymodel.Mode, category joke.Category, content string, rating int) relaymodel.Outcome
}

// Translator 可选的翻译兜底。
type Translator interface {
	Translate(ctx context.Context, category joke.Category, content string) (string, error)
}

// LinkWaiter 启动时等待联网。
type LinkWaiter interface {
	WaitConnected(ctx context.Context, tick func()) error
	LocalIP() string
}

// Deps 控制器依赖的协作者。
type Deps struct {
	Catalog    joke.Catalog
	Fetcher    Fetcher
	Relay      Relayer
	Display    display.Display
	Translator Translator
	Metrics    *metrics.Metrics
}

// Options 控制器的时间参数。
type Options struct {
	AckPause  time.Duration
	BootPause time.Duration
	// Sleep 画面停留使用的等待函数，测试中可替换。
	Sleep func(ctx context.Context, d time.Duration) error
}

// Controller 会话状态机。HandleKey 与 Run 只能由同一个控制循环调用；
// Snapshot 可以被任意 goroutine 读取。
type Controller struct {
	deps    Deps
	opts    Options
	session *session.Session

	mu       sync.RWMutex
	snapshot session.Snapshot
}

// NewController 创建处于 Idle 的控制器。
func NewController(deps Deps, opts Options) *Controller {
	if deps.Catalog == nil {
		deps.Catalog = joke.NewMemoryCatalog(joke.Seed())
	}
	if deps.Display == nil {
		deps.Display = display.NewScreen()
	}
	if opts.AckPause < 0 {
		opts.AckPause = 0
	}
	if opts.BootPause < 0 {
		opts.BootPause = 0
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}

	c := &Controller{
		deps:    deps,
		opts:    opts,
		session: session.New(),
	}
	c.publish()
	return c
}

// Snapshot 返回最近一次迁移后的会话副本。
func (c *Controller) Snapshot() session.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Boot 显示联网过程，联网后进入菜单。
func (c *Controller) Boot(ctx context.Context, waiter LinkWaiter) error {
	d := c.deps.Display
	d.Clear()
	d.Print(display.White, "Connecting to WiFi")

	if waiter != nil {
		if err := waiter.WaitConnected(ctx, func() { d.Print(display.White, ".") }); err != nil {
			d.Println(display.White, "")
			return err
		}
	}
	d.Println(display.White, "")

	ip := "-"
	if waiter != nil && waiter.LocalIP() != "" {
		ip = waiter.LocalIP()
	}
	d.Clear()
	d.Println(display.White, "OK! IP="+ip)
	log.Printf("[machine] online ip=%s", ip)

	if err := c.opts.Sleep(ctx, c.opts.BootPause); err != nil {
		return err
	}
	c.ShowMenu()
	return nil
}

// Run 控制循环：取一个按键，同步执行完整迁移，再取下一个。
// 输入源关闭或 ctx 结束时返回 nil。
func (c *Controller) Run(ctx context.Context, src keypad.Source) error {
	for {
		key, err := src.NextKey(ctx)
		if err != nil {
			if errors.Is(err, keypad.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read key: %w", err)
		}
		c.HandleKey(ctx, key)
	}
}

// HandleKey 处理一个按键，返回是否触发了迁移。无关按键不改变状态。
func (c *Controller) HandleKey(ctx context.Context, key keypad.Key) bool {
	from := c.session.State
	handled := c.transition(ctx, c.session, key)
	if !handled {
		return false
	}

	c.deps.Metrics.ObserveTransition(string(from), string(c.session.State))
	log.Printf("[machine] key=%s %s -> %s", key, from, c.session.State)
	c.publish()
	return true
}

// transition 状态机迁移函数，会话以独占引用传入。
func (c *Controller) transition(ctx context.Context, s *session.Session, key keypad.Key) bool {
	switch s.State {
	case session.Idle:
		category, ok := c.deps.Catalog.ForKey(rune(key))
		if !ok {
			return false
		}
		c.selectCategory(ctx, s, category)
		return true

	case session.AwaitingRating:
		switch {
		case key.IsRating():
			c.rate(ctx, s, key.Rating())
			return true
		case key == keypad.Skip:
			c.skip(s)
			return true
		}
	}
	return false
}

func (c *Controller) selectCategory(ctx context.Context, s *session.Session, category joke.Category) {
	d := c.deps.Display
	s.Begin(category)

	d.Clear()
	d.Println(display.Yellow, "Selected: "+string(category))
	d.Println(display.White, "")
	d.Println(display.White, "Loading joke...")

	item, err := c.fetch(ctx, category)
	if err != nil {
		// 获取失败：渲染兜底标记，保持 Idle。
		log.Printf("[machine] fetch category=%s failed, staying idle: %v", category, err)
		d.Println(display.Red, item.Body)
		d.Println(display.White, "")
		d.Println(display.Yellow, "Select another category (1-7)")
		return
	}

	d.Println(display.Green, item.Body)
	transformed := c.transform(ctx, category, item.Body)
	s.Loaded(item.Body, transformed)

	d.Println(display.White, "")
	d.Println(display.Magenta, "Rate this joke (1-5)")
	d.Println(display.Magenta, "or press '*' to skip")
}

func (c *Controller) fetch(ctx context.Context, category joke.Category) (joke.Item, error) {
	if c.deps.Fetcher == nil {
		return joke.Fallback(category), errors.New("no content service configured")
	}
	item, err := c.deps.Fetcher.Fetch(ctx, category)
	if err == nil && strings.TrimSpace(item.Body) == "" {
		err = errors.New("empty joke body")
	}
	if err != nil && strings.TrimSpace(item.Body) == "" {
		item = joke.Fallback(category)
	}
	return item, err
}

// transform 请求 relay 翻译；失败时尝试翻译兜底，都失败则返回空串。
func (c *Controller) transform(ctx context.Context, category joke.Category, content string) string {
	d := c.deps.Display

	diagnostic := relaymodel.TextDisabled
	if c.deps.Relay != nil {
		outcome := c.deps.Relay.Relay(ctx, relaymodel.Transform, category, content, 0)
		text := strings.TrimSpace(outcome.ResponseText)
		if outcome.Succeeded && text != "" {
			d.Println(display.Cyan, text)
			return text
		}
		diagnostic = outcome.ResponseText
		if outcome.Succeeded {
			diagnostic = "empty response"
		}
	}

	if c.deps.Translator != nil {
		text, err := c.deps.Translator.Translate(ctx, category, content)
		if err == nil {
			d.Println(display.Cyan, text+" (AI)")
			return text
		}
		log.Printf("[machine] translate fallback failed: %v", err)
	}

	d.Println(display.Red, "(translation unavailable: "+diagnostic+")")
	return ""
}

func (c *Controller) rate(ctx context.Context, s *session.Session, rating int) {
	d := c.deps.Display

	var outcome relaymodel.Outcome
	switch {
	case strings.TrimSpace(s.Content) == "":
		// 没有成功获取的内容时不提交评分。
		log.Printf("[machine] rating %d dropped: no content for category=%s", rating, s.Category)
		outcome = relaymodel.Outcome{ResponseText: "No Content"}
	case c.deps.Relay == nil:
		outcome = relaymodel.Outcome{ResponseText: relaymodel.TextDisabled}
	default:
		outcome = c.deps.Relay.Relay(ctx, relaymodel.Rate, s.Category, s.Content, rating)
	}
	if !outcome.Succeeded {
		log.Printf("[machine] rating submission failed session=%s: %s", s.ID, outcome.ResponseText)
	}

	s.Rated(rating)

	r := reaction.Analyze(rating)
	d.Println(display.White, "")
	d.Println(display.Cyan, fmt.Sprintf("Rating: %d/5", rating))
	d.Println(display.Cyan, "Thank you!")
	d.Println(r.Color, r.Message)
	if !outcome.Succeeded {
		d.Println(display.Red, "(not sent: "+outcome.ResponseText+")")
	}

	if err := c.opts.Sleep(ctx, c.opts.AckPause); err != nil {
		log.Printf("[machine] acknowledgment pause interrupted: %v", err)
	}
	c.ShowMenu()
}

func (c *Controller) skip(s *session.Session) {
	s.Skipped()
	c.ShowMenu()
}

// ShowMenu 渲染分类菜单。
func (c *Controller) ShowMenu() {
	d := c.deps.Display
	d.Clear()
	d.Println(display.Yellow, "Select Category:")
	for _, line := range menuLines(c.deps.Catalog.List()) {
		d.Println(display.Yellow, line)
	}
}

// menuLines 每行两个分类，例如 "1:Misc 2:Prog"。
func menuLines(entries []joke.Entry) []string {
	lines := make([]string, 0, (len(entries)+1)/2)
	for i := 0; i < len(entries); i += 2 {
		line := fmt.Sprintf("%c:%s", entries[i].Key, entries[i].Label)
		if i+1 < len(entries) {
			line += fmt.Sprintf(" %c:%s", entries[i+1].Key, entries[i+1].Label)
		}
		lines = append(lines, line)
	}
	return lines
}

func (c *Controller) publish() {
	snap := c.session.Snapshot()
	c.mu.Lock()
	c.snapshot = snap
	c.mu.Unlock()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
