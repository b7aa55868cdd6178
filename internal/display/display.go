package display

import "sync"

// Color 前景色标签，与设备屏幕的调色板对应。
type Color string

const (
	White   Color = "white"
	Yellow  Color = "yellow"
	Green   Color = "green"
	Cyan    Color = "cyan"
	Magenta Color = "magenta"
	Red     Color = "red"
)

// Display 显示协作者：带颜色的文本行与清屏。
type Display interface {
	Clear()
	Print(color Color, text string)
	Println(color Color, text string)
}

// Line 屏幕上的一行。
type Line struct {
	Color Color  `json:"color"`
	Text  string `json:"text"`
}

// Screen 在内存中维护当前屏幕内容，Print 续写最后一行，Println 结束当前行。
// 网页面板与测试都通过它得到可比较的画面。
type Screen struct {
	mu      sync.Mutex
	lines   []Line
	pending bool
}

// NewScreen 创建空屏幕。
func NewScreen() *Screen {
	return &Screen{}
}

func (s *Screen) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	s.pending = false
}

func (s *Screen) Print(color Color, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.write(color, text, false)
}

func (s *Screen) Println(color Color, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.write(color, text, true)
}

// Lines 返回当前画面的副本。
func (s *Screen) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Line(nil), s.lines...)
}

// Texts 只返回文本，便于断言。
func (s *Screen) Texts() []string {
	lines := s.Lines()
	texts := make([]string, 0, len(lines))
	for _, line := range lines {
		texts = append(texts, line.Text)
	}
	return texts
}

func (s *Screen) write(color Color, text string, newline bool) {
	if s.pending && len(s.lines) > 0 {
		last := &s.lines[len(s.lines)-1]
		last.Text += text
		if color != "" {
			last.Color = color
		}
	} else {
		s.lines = append(s.lines, Line{Color: color, Text: text})
	}
	s.pending = !newline
}

// Multi 将同一画面同时写入多个显示器。
type Multi []Display

func (m Multi) Clear() {
	for _, d := range m {
		d.Clear()
	}
}

func (m Multi) Print(color Color, text string) {
	for _, d := range m {
		d.Print(color, text)
	}
}

func (m Multi) Println(color Color, text string) {
	for _, d := range m {
		d.Println(color, text)
	}
}
