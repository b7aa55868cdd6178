package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var terminalPalette = map[Color]lipgloss.Color{
	White:   lipgloss.Color("15"),
	Yellow:  lipgloss.Color("11"),
	Green:   lipgloss.Color("10"),
	Cyan:    lipgloss.Color("14"),
	Magenta: lipgloss.Color("13"),
	Red:     lipgloss.Color("9"),
}

// Terminal 在终端上模拟设备屏幕，输出不是 tty 时不带颜色与清屏控制符。
type Terminal struct {
	mu     sync.Mutex
	out    io.Writer
	color  bool
	styles map[Color]lipgloss.Style
	// raw 终端处于 raw 模式时需要 \r\n 换行。
	raw bool
}

// NewTerminal 创建终端显示器。
func NewTerminal(out io.Writer) *Terminal {
	t := &Terminal{out: out, styles: make(map[Color]lipgloss.Style, len(terminalPalette))}
	if f, ok := out.(*os.File); ok {
		fd := f.Fd()
		t.color = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
	for name, c := range terminalPalette {
		t.styles[name] = lipgloss.NewStyle().Foreground(c).Bold(true)
	}
	return t
}

// SetRaw 切换换行方式，配合 raw 模式的键盘使用。
func (t *Terminal) SetRaw(raw bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.raw = raw
}

func (t *Terminal) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.color {
		fmt.Fprint(t.out, "\x1b[2J\x1b[H")
		return
	}
	fmt.Fprint(t.out, t.newline()+"----------------"+t.newline())
}

func (t *Terminal) Print(color Color, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprint(t.out, t.render(color, text))
}

func (t *Terminal) Println(color Color, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprint(t.out, t.render(color, text)+t.newline())
}

func (t *Terminal) render(color Color, text string) string {
	if t.raw {
		text = strings.ReplaceAll(text, "\n", "\r\n")
	}
	if !t.color {
		return text
	}
	style, ok := t.styles[color]
	if !ok {
		return text
	}
	return style.Render(text)
}

func (t *Terminal) newline() string {
	if t.raw {
		return "\r\n"
	}
	return "\n"
}
