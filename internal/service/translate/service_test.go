package translate

import (
	"context"
	"errors"
	"testing"

	"github.com/zhouzirui/jokebox/internal/model/joke"
)

func TestNewServiceWithoutModelIsDisabled(t *testing.T) {
	svc, err := NewService(context.Background(), nil, Config{Enabled: true})
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}
	if svc.Enabled() {
		t.Fatal("expected disabled service without chat model")
	}
	if svc.target != "Korean" {
		t.Fatalf("unexpected default target %q", svc.target)
	}

	if _, err := svc.Translate(context.Background(), joke.Pun, "X"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestNilServiceIsDisabled(t *testing.T) {
	var svc *Service
	if svc.Enabled() {
		t.Fatal("nil service must be disabled")
	}
}

func TestCleanOutput(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "  번역  ", want: "번역"},
		{in: "\"번역\"", want: "번역"},
		{in: "Translation: 번역", want: "번역"},
		{in: "```\n번역\n```", want: "번역"},
		{in: "", want: ""},
		{in: "'", want: "'"},
	}

	for _, tc := range cases {
		if got := cleanOutput(tc.in); got != tc.want {
			t.Errorf("cleanOutput(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
