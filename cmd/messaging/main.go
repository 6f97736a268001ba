package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/LeventeLantos/rental-messaging/internal/api"
	"github.com/LeventeLantos/rental-messaging/internal/app"
	"github.com/LeventeLantos/rental-messaging/internal/config"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadAll()
	if err != nil {
		log.Fatal(err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startup, cancel := context.WithTimeout(ctx, 15*time.Second)
	a, err := app.Build(startup, cfg)
	cancel()
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	a.Scheduler.Start()

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           requestIDMiddleware(loggingMiddleware(api.Router(a.Handler))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("rental messaging listening (addr=%s, store=%s, gateway=%s, redis=%v, cron=%q)",
			cfg.Server.Address,
			cfg.Store.Driver,
			cfg.Gateway.Provider,
			cfg.Redis.Enabled,
			cfg.Reminders.Cron,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Print("shutting down")

	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		log.Printf("http shutdown: %v", err)
	}
}
