package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/jokebox/internal/app"
	"github.com/zhouzirui/jokebox/internal/config"
	"github.com/zhouzirui/jokebox/internal/display"
	"github.com/zhouzirui/jokebox/internal/metrics"
	"github.com/zhouzirui/jokebox/internal/model/keypad"
)

func main() {
	script := flag.String("keys", "", "按顺序回放的按键序列，例如 4*73；留空则从终端读取")
	skipBoot := flag.Bool("skip-boot", false, "跳过联网等待，直接显示菜单")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	services, err := app.NewServices(ctx, cfg, metrics.New())
	if err != nil {
		log.Fatalf("failed to initialize services: %v", err)
	}

	screen := display.NewTerminal(os.Stdout)
	controller := services.NewController(screen, cfg.Machine)

	var source keypad.Source
	restore := func() {}
	if *script != "" {
		source = keypad.NewScriptSource(*script)
	} else {
		terminalKeys, err := openTerminalKeypad(os.Stdin)
		if err != nil {
			log.Fatalf("failed to open keypad: %v", err)
		}
		restore = func() {
			if err := terminalKeys.Close(); err != nil {
				log.Printf("[console] restore terminal failed: %v", err)
			}
		}
		screen.SetRaw(terminalKeys.Raw())
		source = terminalKeys
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return services.Link.Run(gctx)
	})
	g.Go(func() error {
		defer stop()
		if *skipBoot {
			controller.ShowMenu()
		} else if err := controller.Boot(gctx, services.Link); err != nil {
			if gctx.Err() != nil {
				return nil
			}
			return err
		}
		return controller.Run(gctx, source)
	})

	err = g.Wait()
	restore()
	if err != nil {
		log.Fatalf("[console] stopped: %v", err)
	}
}
