package link

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestStatic(t *testing.T) {
	if !Static(true).Connected() {
		t.Fatal("expected static link to be connected")
	}
	if Static(false).Connected() {
		t.Fatal("expected static link to be disconnected")
	}
}

func TestProbeReachableAddress(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen err: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	m := NewMonitor(Options{ProbeAddr: ln.Addr().String()})
	if m.Connected() {
		t.Fatal("monitor should start disconnected")
	}
	if !m.Probe(context.Background()) {
		t.Fatal("expected probe to succeed")
	}
	if !m.Connected() {
		t.Fatal("expected monitor connected after probe")
	}
	if m.LocalIP() != "127.0.0.1" {
		t.Fatalf("unexpected local ip %q", m.LocalIP())
	}
}

func TestProbeUnreachableAddress(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen err: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	m := NewMonitor(Options{ProbeAddr: addr, DialTimeout: 200 * time.Millisecond})
	if m.Probe(context.Background()) {
		t.Fatal("expected probe to fail")
	}
	if m.Connected() {
		t.Fatal("expected monitor disconnected")
	}
}

func TestWaitConnectedTicksUntilCancelled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen err: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	m := NewMonitor(Options{ProbeAddr: addr, WaitInterval: 10 * time.Millisecond, DialTimeout: 100 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	ticks := 0
	err = m.WaitConnected(ctx, func() {
		ticks++
		if ticks == 3 {
			cancel()
		}
	})
	if err == nil {
		t.Fatal("expected context error")
	}
	if ticks != 3 {
		t.Fatalf("expected 3 ticks, got %d", ticks)
	}
}
