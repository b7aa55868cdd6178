package keypad

import "context"

// ScriptSource replays a fixed key sequence, then reports ErrClosed.
type ScriptSource struct {
	keys []Key
	pos  int
}

// NewScriptSource 从字符串构造按键序列，例如 "4*73"。
func NewScriptSource(sequence string) *ScriptSource {
	keys := make([]Key, 0, len(sequence))
	for _, r := range sequence {
		keys = append(keys, Key(r))
	}
	return &ScriptSource{keys: keys}
}

// NextKey implements Source.
func (s *ScriptSource) NextKey(ctx context.Context) (Key, error) {
	if err := ctx.Err(); err != nil {
		return None, err
	}
	if s.pos >= len(s.keys) {
		return None, ErrClosed
	}
	key := s.keys[s.pos]
	s.pos++
	return key, nil
}
