package keypad

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestKeyClassification(t *testing.T) {
	for r := '1'; r <= '5'; r++ {
		key := Key(r)
		if !key.IsRating() || key.Rating() != int(r-'0') {
			t.Fatalf("key %s should be rating %d", key, r-'0')
		}
	}
	for _, key := range []Key{'0', '6', '7', '*', '#', 'A'} {
		if key.IsRating() || key.Rating() != 0 {
			t.Fatalf("key %s should not be a rating", key)
		}
	}
	if Key('E').Valid() || !Key('D').Valid() {
		t.Fatalf("unexpected Valid result")
	}
}

func TestParse(t *testing.T) {
	if key, ok := Parse("c"); !ok || key != 'C' {
		t.Fatalf("expected C, got %s %v", key, ok)
	}
	if key, ok := Parse("*"); !ok || key != Skip {
		t.Fatalf("expected skip, got %s %v", key, ok)
	}
	for _, raw := range []string{"", "12", "x", " "} {
		if _, ok := Parse(raw); ok {
			t.Fatalf("Parse(%q) should fail", raw)
		}
	}
}

func TestChannelSourceDropsWhenNobodyWaits(t *testing.T) {
	src := NewChannelSource()
	defer src.Close()

	if src.Press('4') {
		t.Fatalf("press without a waiting reader should be dropped")
	}
}

func TestChannelSourceDeliversToWaiter(t *testing.T) {
	src := NewChannelSource()
	defer src.Close()

	got := make(chan Key, 1)
	go func() {
		key, err := src.NextKey(context.Background())
		if err == nil {
			got <- key
		}
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !src.Press('7') {
		if time.Now().After(deadline) {
			t.Fatalf("reader never became ready")
		}
		time.Sleep(time.Millisecond)
	}

	select {
	case key := <-got:
		if key != '7' {
			t.Fatalf("expected 7, got %s", key)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("key not delivered")
	}
}

func TestChannelSourceClose(t *testing.T) {
	src := NewChannelSource()
	src.Close()
	src.Close()

	if _, err := src.NextKey(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if src.Press('1') {
		t.Fatalf("press after close should fail")
	}
}

func TestScriptSource(t *testing.T) {
	src := NewScriptSource("4*")
	ctx := context.Background()

	for _, want := range []Key{'4', Skip} {
		key, err := src.NextKey(ctx)
		if err != nil || key != want {
			t.Fatalf("expected %s, got %s %v", want, key, err)
		}
	}
	if _, err := src.NextKey(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
