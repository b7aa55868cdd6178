package reaction

import "testing"

func TestAnalyzeScalesWithScore(t *testing.T) {
	prev := float32(-1)
	for score := 1; score <= 5; score++ {
		r := Analyze(score)
		if r.Message == "" {
			t.Fatalf("score %d: empty message", score)
		}
		if r.Intensity <= prev {
			t.Fatalf("score %d: intensity %f not above %f", score, r.Intensity, prev)
		}
		prev = r.Intensity
	}
}

func TestAnalyzeOutOfRange(t *testing.T) {
	for _, score := range []int{0, 6, -3} {
		if r := Analyze(score); r.Mood != Neutral {
			t.Fatalf("score %d: expected neutral, got %s", score, r.Mood)
		}
	}
}

func TestAnalyzeTopScore(t *testing.T) {
	if r := Analyze(5); r.Mood != Roar {
		t.Fatalf("expected roar for 5, got %s", r.Mood)
	}
}
