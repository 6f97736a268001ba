// Command reminders runs the reminder job once and prints its report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/LeventeLantos/rental-messaging/internal/app"
	"github.com/LeventeLantos/rental-messaging/internal/config"
	"github.com/LeventeLantos/rental-messaging/internal/reminder"
)

func main() {
	enforce := flag.Bool("working-hours", false, "skip the run outside configured working hours")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadAll()
	if err != nil {
		log.Fatal(err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	rep, runErr := a.Reminders.Run(ctx, reminder.RunOptions{EnforceWorkingHours: *enforce})

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		log.Printf("encode report: %v", err)
	}

	if runErr != nil {
		log.Printf("reminder run failed: %v", runErr)
		a.Close()
		os.Exit(1)
	}
}
