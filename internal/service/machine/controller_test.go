package machine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/zhouzirui/jokebox/internal/display"
	"github.com/zhouzirui/jokebox/internal/model/joke"
	"github.com/zhouzirui/jokebox/internal/model/keypad"
	relaymodel "github.com/zhouzirui/jokebox/internal/model/relay"
	"github.com/zhouzirui/jokebox/internal/model/session"
)

type fakeFetcher struct {
	item  joke.Item
	err   error
	calls []joke.Category
}

func (f *fakeFetcher) Fetch(_ context.Context, category joke.Category) (joke.Item, error) {
	f.calls = append(f.calls, category)
	if f.err != nil {
		return joke.Fallback(category), f.err
	}
	item := f.item
	item.Category = category
	return item, nil
}

type relayCall struct {
	mode     relaymodel.Mode
	category joke.Category
	content  string
	rating   int
}

type fakeRelay struct {
	transform relaymodel.Outcome
	rate      relaymodel.Outcome
	calls     []relayCall
}

func (f *fakeRelay) Relay(_ context.Context, mode relaymodel.Mode, category joke.Category, content string, rating int) relaymodel.Outcome {
	f.calls = append(f.calls, relayCall{mode: mode, category: category, content: content, rating: rating})
	if mode == relaymodel.Transform {
		return f.transform
	}
	return f.rate
}

func (f *fakeRelay) count(mode relaymodel.Mode) int {
	n := 0
	for _, call := range f.calls {
		if call.mode == mode {
			n++
		}
	}
	return n
}

type fakeTranslator struct {
	text string
	err  error
}

func (f fakeTranslator) Translate(context.Context, joke.Category, string) (string, error) {
	return f.text, f.err
}

type fakeWaiter struct {
	ticks int
	ip    string
	err   error
}

func (w fakeWaiter) WaitConnected(_ context.Context, tick func()) error {
	for i := 0; i < w.ticks; i++ {
		tick()
	}
	return w.err
}

func (w fakeWaiter) LocalIP() string { return w.ip }

type harness struct {
	controller *Controller
	fetcher    *fakeFetcher
	relay      *fakeRelay
	screen     *display.Screen
	pauses     []time.Duration
}

func newHarness(t *testing.T, translator Translator) *harness {
	t.Helper()
	h := &harness{
		fetcher: &fakeFetcher{item: joke.NewSingle(joke.Pun, "X")},
		relay: &fakeRelay{
			transform: relaymodel.Outcome{Succeeded: true, ResponseText: "번역", Attempts: 1},
			rate:      relaymodel.Outcome{Succeeded: true, ResponseText: "ok", Attempts: 1},
		},
		screen: display.NewScreen(),
	}
	h.controller = NewController(Deps{
		Catalog:    joke.NewMemoryCatalog(joke.Seed()),
		Fetcher:    h.fetcher,
		Relay:      h.relay,
		Display:    h.screen,
		Translator: translator,
	}, Options{
		AckPause:  2 * time.Second,
		BootPause: time.Second,
		Sleep: func(_ context.Context, d time.Duration) error {
			h.pauses = append(h.pauses, d)
			return nil
		},
	})
	return h
}

func screenHas(screen *display.Screen, text string) bool {
	for _, line := range screen.Texts() {
		if strings.Contains(line, text) {
			return true
		}
	}
	return false
}

func TestSelectPunRendersContentAndTranslation(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	if !h.controller.HandleKey(ctx, '4') {
		t.Fatalf("expected key 4 to be handled")
	}

	snap := h.controller.Snapshot()
	if snap.State != session.AwaitingRating {
		t.Fatalf("expected awaiting_rating, got %s", snap.State)
	}
	if snap.Category != joke.Pun || snap.Content != "X" || snap.TransformedContent != "번역" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if len(h.fetcher.calls) != 1 || h.fetcher.calls[0] != joke.Pun {
		t.Fatalf("expected one Pun fetch, got %v", h.fetcher.calls)
	}
	if len(h.relay.calls) != 1 {
		t.Fatalf("expected one relay call, got %d", len(h.relay.calls))
	}
	call := h.relay.calls[0]
	if call.mode != relaymodel.Transform || call.rating != 0 || call.content != "X" {
		t.Fatalf("unexpected transform call: %+v", call)
	}
	for _, want := range []string{"Selected: Pun", "X", "번역", "Rate this joke (1-5)", "or press '*' to skip"} {
		if !screenHas(h.screen, want) {
			t.Fatalf("screen missing %q: %v", want, h.screen.Texts())
		}
	}
}

func TestRatingSubmittedAndAcknowledgedEvenOnFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.relay.rate = relaymodel.Outcome{ResponseText: relaymodel.TextConnectFailed, Attempts: 3}
	ctx := context.Background()

	h.controller.HandleKey(ctx, '4')
	if !h.controller.HandleKey(ctx, '3') {
		t.Fatalf("expected rating key to be handled")
	}

	snap := h.controller.Snapshot()
	if snap.State != session.Idle || snap.Rating != 3 {
		t.Fatalf("expected idle with rating 3, got %+v", snap)
	}
	if h.relay.count(relaymodel.Rate) != 1 {
		t.Fatalf("expected one rating relay, got %d", h.relay.count(relaymodel.Rate))
	}
	call := h.relay.calls[len(h.relay.calls)-1]
	if call.rating != 3 || call.content != "X" || call.category != joke.Pun {
		t.Fatalf("unexpected rate call: %+v", call)
	}
	if len(h.pauses) != 1 || h.pauses[0] != 2*time.Second {
		t.Fatalf("expected a single 2s acknowledgment pause, got %v", h.pauses)
	}
	// 停留之后回到菜单。
	if !screenHas(h.screen, "Select Category:") {
		t.Fatalf("expected menu after acknowledgment: %v", h.screen.Texts())
	}
}

func TestAcknowledgmentShownBeforeMenu(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	var seen []string
	h.controller.opts.Sleep = func(context.Context, time.Duration) error {
		seen = h.screen.Texts()
		return nil
	}

	h.controller.HandleKey(ctx, '1')
	h.controller.HandleKey(ctx, '5')

	joined := strings.Join(seen, "\n")
	for _, want := range []string{"Rating: 5/5", "Thank you!", "Comedy gold!"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("acknowledgment missing %q: %v", want, seen)
		}
	}
}

func TestIdleIgnoresNonCategoryKeys(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	for _, row := range keypad.Layout {
		for _, key := range row {
			if key >= '1' && key <= '7' {
				continue
			}
			if h.controller.HandleKey(ctx, key) {
				t.Fatalf("key %s should be ignored in idle", key)
			}
		}
	}
	if len(h.fetcher.calls) != 0 || len(h.relay.calls) != 0 {
		t.Fatalf("expected no side effects, fetch=%d relay=%d", len(h.fetcher.calls), len(h.relay.calls))
	}
	if h.controller.Snapshot().State != session.Idle {
		t.Fatalf("expected idle")
	}
}

func TestAwaitingRatingIgnoresOtherKeys(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.controller.HandleKey(ctx, '2')

	for _, key := range []keypad.Key{'6', '7', '8', '9', '0', '#', 'A', 'B', 'C', 'D'} {
		if h.controller.HandleKey(ctx, key) {
			t.Fatalf("key %s should be ignored while awaiting rating", key)
		}
	}
	if h.controller.Snapshot().State != session.AwaitingRating {
		t.Fatalf("expected awaiting_rating")
	}
	if h.relay.count(relaymodel.Rate) != 0 || len(h.fetcher.calls) != 1 {
		t.Fatalf("unexpected side effects: relay=%v fetch=%v", h.relay.calls, h.fetcher.calls)
	}
}

func TestSkipReturnsToIdleWithoutRelay(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.controller.HandleKey(ctx, '6')

	if !h.controller.HandleKey(ctx, keypad.Skip) {
		t.Fatalf("expected skip to be handled")
	}
	snap := h.controller.Snapshot()
	if snap.State != session.Idle || snap.Rating != 0 {
		t.Fatalf("unexpected snapshot after skip: %+v", snap)
	}
	if h.relay.count(relaymodel.Rate) != 0 {
		t.Fatalf("skip must not submit a rating")
	}
	if len(h.pauses) != 0 {
		t.Fatalf("skip should not pause, got %v", h.pauses)
	}
}

func TestFetchFailureStaysIdle(t *testing.T) {
	h := newHarness(t, nil)
	h.fetcher.err = errors.New("network down")
	ctx := context.Background()

	h.controller.HandleKey(ctx, '3')

	if h.controller.Snapshot().State != session.Idle {
		t.Fatalf("expected idle after failed fetch")
	}
	if len(h.relay.calls) != 0 {
		t.Fatalf("no relay expected after failed fetch, got %v", h.relay.calls)
	}
	if !screenHas(h.screen, joke.FallbackMarker) {
		t.Fatalf("expected fallback marker on screen: %v", h.screen.Texts())
	}
	// 评分键在 Idle 中只是分类键，不会提交评分。
	h.controller.HandleKey(ctx, '3')
	if h.relay.count(relaymodel.Rate) != 0 {
		t.Fatalf("rating relay must never happen without content")
	}
}

func TestTransformFailureUsesTranslator(t *testing.T) {
	h := newHarness(t, fakeTranslator{text: "농담"})
	h.relay.transform = relaymodel.Outcome{ResponseText: "HTTP Error: 500", Attempts: 3}

	h.controller.HandleKey(context.Background(), '1')

	snap := h.controller.Snapshot()
	if snap.TransformedContent != "농담" || snap.State != session.AwaitingRating {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if !screenHas(h.screen, "농담 (AI)") {
		t.Fatalf("expected AI marker: %v", h.screen.Texts())
	}
}

func TestTransformFailureWithoutFallback(t *testing.T) {
	h := newHarness(t, fakeTranslator{err: errors.New("model down")})
	h.relay.transform = relaymodel.Outcome{ResponseText: relaymodel.TextLinkUnavailable}

	h.controller.HandleKey(context.Background(), '1')

	snap := h.controller.Snapshot()
	if snap.TransformedContent != "" || snap.State != session.AwaitingRating {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if !screenHas(h.screen, "(translation unavailable: WiFi Error)") {
		t.Fatalf("expected diagnostic on screen: %v", h.screen.Texts())
	}
}

func TestRunProcessesScriptedKeys(t *testing.T) {
	h := newHarness(t, nil)

	if err := h.controller.Run(context.Background(), keypad.NewScriptSource("9A4*72")); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(h.fetcher.calls) != 2 || h.fetcher.calls[0] != joke.Pun || h.fetcher.calls[1] != joke.Any {
		t.Fatalf("unexpected fetches: %v", h.fetcher.calls)
	}
	snap := h.controller.Snapshot()
	if snap.State != session.Idle || snap.Rating != 2 {
		t.Fatalf("unexpected final snapshot: %+v", snap)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	src := keypad.NewChannelSource()

	done := make(chan error, 1)
	go func() { done <- h.controller.Run(ctx, src) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil on cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop")
	}
}

func TestBootShowsProgressAndMenu(t *testing.T) {
	h := newHarness(t, nil)
	var beforeMenu []string
	h.controller.opts.Sleep = func(_ context.Context, d time.Duration) error {
		beforeMenu = h.screen.Texts()
		h.pauses = append(h.pauses, d)
		return nil
	}

	if err := h.controller.Boot(context.Background(), fakeWaiter{ticks: 3, ip: "10.0.0.7"}); err != nil {
		t.Fatalf("boot: %v", err)
	}

	if len(beforeMenu) != 1 || beforeMenu[0] != "OK! IP=10.0.0.7" {
		t.Fatalf("unexpected boot screen: %v", beforeMenu)
	}
	if len(h.pauses) != 1 || h.pauses[0] != time.Second {
		t.Fatalf("expected 1s boot pause, got %v", h.pauses)
	}
	want := []string{"Select Category:", "1:Misc 2:Prog", "3:Dark 4:Pun", "5:Spooky 6:X-mas", "7:Any"}
	got := h.screen.Texts()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected menu: %v", got)
	}
}

func TestBootReturnsWaitError(t *testing.T) {
	h := newHarness(t, nil)
	err := h.controller.Boot(context.Background(), fakeWaiter{ticks: 2, err: context.Canceled})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !screenHas(h.screen, "Connecting to WiFi..") {
		t.Fatalf("expected progress dots: %v", h.screen.Texts())
	}
}
