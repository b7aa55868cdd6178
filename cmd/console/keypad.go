package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"

	"golang.org/x/term"

	"github.com/zhouzirui/jokebox/internal/model/keypad"
)

// ctrlC raw 模式下 Ctrl+C 不再产生信号，按退出处理。
const ctrlC = 0x03

// terminalKeypad 从标准输入逐字节读取按键。
// 读取在独立 goroutine 中进行，只有控制循环等待时按键才会被接收。
type terminalKeypad struct {
	fd       int
	oldState *term.State
	source   *keypad.ChannelSource
}

func openTerminalKeypad(in *os.File) (*terminalKeypad, error) {
	k := &terminalKeypad{fd: int(in.Fd()), source: keypad.NewChannelSource()}

	if term.IsTerminal(k.fd) {
		state, err := term.MakeRaw(k.fd)
		if err != nil {
			return nil, err
		}
		k.oldState = state
	} else {
		log.Println("[console] stdin is not a terminal, reading keys line-buffered")
	}

	go k.readLoop(in)
	return k, nil
}

// Raw 是否已切换到 raw 模式。
func (k *terminalKeypad) Raw() bool {
	return k.oldState != nil
}

func (k *terminalKeypad) readLoop(in io.Reader) {
	defer k.source.Close()

	buf := make([]byte, 1)
	for {
		n, err := in.Read(buf)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("[console] read stdin failed: %v", err)
			}
			return
		}
		if n == 0 {
			continue
		}
		if buf[0] == ctrlC || buf[0] == 'q' {
			return
		}
		key, ok := keypad.Parse(string(buf[0]))
		if !ok {
			continue
		}
		if !k.source.Press(key) {
			log.Printf("[console] key %s dropped while busy", key)
		}
	}
}

// NextKey implements keypad.Source.
func (k *terminalKeypad) NextKey(ctx context.Context) (keypad.Key, error) {
	return k.source.NextKey(ctx)
}

// Close 恢复终端状态。
func (k *terminalKeypad) Close() error {
	if k.oldState == nil {
		return nil
	}
	err := term.Restore(k.fd, k.oldState)
	k.oldState = nil
	return err
}
