package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/jokebox/internal/app"
	"github.com/zhouzirui/jokebox/internal/config"
	"github.com/zhouzirui/jokebox/internal/handler"
	"github.com/zhouzirui/jokebox/internal/handler/panel"
	"github.com/zhouzirui/jokebox/internal/metrics"
	"github.com/zhouzirui/jokebox/internal/model/keypad"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	m := metrics.New()
	services, err := app.NewServices(ctx, cfg, m)
	if err != nil {
		log.Fatalf("failed to initialize services: %v", err)
	}

	hub := panel.NewHub()
	keys := keypad.NewChannelSource()
	controller := services.NewController(hub, cfg.Machine)

	router := handler.NewRouter(controller, keys, services.Catalog, hub, m)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("JokeBox panel listening on %s", srv.Addr)
		return runServer(gctx, srv)
	})
	g.Go(func() error {
		return services.Link.Run(gctx)
	})
	g.Go(func() error {
		if err := controller.Boot(gctx, services.Link); err != nil {
			if gctx.Err() != nil {
				return nil
			}
			return err
		}
		return controller.Run(gctx, keys)
	})
	g.Go(func() error {
		<-gctx.Done()
		keys.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("jokebox stopped: %v", err)
	}
	log.Println("jokebox stopped")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
