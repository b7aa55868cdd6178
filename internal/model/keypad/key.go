package keypad

import (
	"context"
	"errors"
)

// Key 键盘上的一个符号。
type Key rune

// None 表示没有按键。
const None Key = 0

// Skip 跳过评分。
const Skip Key = '*'

// Layout 4x4 键盘布局，与设备面板一致。
var Layout = [4][4]Key{
	{'1', '2', '3', 'A'},
	{'4', '5', '6', 'B'},
	{'7', '8', '9', 'C'},
	{'*', '0', '#', 'D'},
}

// ErrClosed 输入源已关闭。
var ErrClosed = errors.New("keypad closed")

// Source 输入协作者：阻塞直到下一个按键到达。
type Source interface {
	NextKey(ctx context.Context) (Key, error)
}

// Valid reports whether k is printed on the keypad.
func (k Key) Valid() bool {
	for _, row := range Layout {
		for _, cell := range row {
			if cell == k {
				return true
			}
		}
	}
	return false
}

// IsRating 判断是否为 1-5 的评分键。
func (k Key) IsRating() bool {
	return k >= '1' && k <= '5'
}

// Rating 返回评分值，非评分键返回 0。
func (k Key) Rating() int {
	if !k.IsRating() {
		return 0
	}
	return int(k - '0')
}

func (k Key) String() string {
	if k == None {
		return ""
	}
	return string(rune(k))
}

// Parse 将单个字符解析为按键。
func Parse(raw string) (Key, bool) {
	runes := []rune(raw)
	if len(runes) != 1 {
		return None, false
	}
	key := Key(runes[0])
	if key >= 'a' && key <= 'd' {
		key -= 'a' - 'A'
	}
	if !key.Valid() {
		return None, false
	}
	return key, true
}
