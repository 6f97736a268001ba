// Package app wires configuration into the running messaging subsystem.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LeventeLantos/rental-messaging/internal/api"
	"github.com/LeventeLantos/rental-messaging/internal/cache"
	"github.com/LeventeLantos/rental-messaging/internal/config"
	"github.com/LeventeLantos/rental-messaging/internal/conversation"
	"github.com/LeventeLantos/rental-messaging/internal/customer"
	"github.com/LeventeLantos/rental-messaging/internal/delivery"
	"github.com/LeventeLantos/rental-messaging/internal/gateway"
	"github.com/LeventeLantos/rental-messaging/internal/memstore"
	"github.com/LeventeLantos/rental-messaging/internal/phone"
	"github.com/LeventeLantos/rental-messaging/internal/reminder"
	"github.com/LeventeLantos/rental-messaging/internal/repo"
	"github.com/LeventeLantos/rental-messaging/internal/scheduler"
	"github.com/LeventeLantos/rental-messaging/internal/settings"
)

const sweepInterval = time.Minute

type App struct {
	Config    *config.Config
	Store     repo.Store
	KV        cache.Store
	Gateway   gateway.Gateway
	Settings  *settings.Service
	Reminders *reminder.Job
	Machine   *conversation.Machine
	Scheduler *scheduler.Scheduler
	Handler   *api.Handler

	db     *sql.DB
	rdb    *redis.Client
	cancel context.CancelFunc
}

// Build opens the configured backends and assembles every component. The
// caller owns the result and must call Close.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	bg, cancel := context.WithCancel(context.Background())
	a := &App{Config: cfg, cancel: cancel}

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openCache(ctx, bg); err != nil {
		a.Close()
		return nil, err
	}

	normalizer, err := phone.NewNormalizer(cfg.Reminders.DefaultCountry)
	if err != nil {
		a.Close()
		return nil, err
	}

	var signature api.SignatureChecker
	switch cfg.Gateway.Provider {
	case "twilio":
		a.Gateway = gateway.NewTwilioClient(
			cfg.Gateway.TwilioAccountSID,
			cfg.Gateway.TwilioAuthToken,
			cfg.Gateway.TwilioFrom,
			cfg.Gateway.TwilioContentSIDs,
		)
		if cfg.Gateway.TwilioWebhookURL != "" {
			signature = gateway.NewTwilioSignature(cfg.Gateway.TwilioAuthToken, cfg.Gateway.TwilioWebhookURL)
		}
	default:
		a.Gateway = gateway.NewWhatsAppClient(
			cfg.Gateway.WhatsAppURL,
			cfg.Gateway.WhatsAppPhoneNumberID,
			cfg.Gateway.WhatsAppToken,
		)
	}

	loc := cfg.Reminders.Location
	a.Settings = settings.NewService(a.Store.Settings, cfg.Office)
	engine := delivery.NewEngine(a.Gateway, a.Store.Deliveries)

	a.Reminders = reminder.NewJob(
		a.Settings,
		reminder.NewFinder(a.Store.Payments, a.Store.Contracts, loc),
		reminder.NewDedupGuard(a.Store.Deliveries, loc),
		reminder.NewComposer(loc),
		engine,
		normalizer,
		loc,
	)

	sessions := conversation.NewSessionStore(a.KV, cfg.Conversation.SessionTTL)
	resolver := customer.NewResolver(a.Store.Customers, normalizer, a.Store.Deliveries, sessions)
	a.Machine = conversation.NewMachine(
		sessions,
		conversation.NewIdempotencyFilter(a.KV, cfg.Conversation.DedupTTL),
		resolver,
		a.Store.ServiceRequests,
		a.Settings,
		a.Gateway,
		normalizer,
	)

	enforce := cfg.Reminders.EnforceWorkingHours
	a.Scheduler, err = scheduler.New(cfg.Reminders.Cron, loc, func(ctx context.Context) {
		rep, err := a.Reminders.Run(ctx, reminder.RunOptions{EnforceWorkingHours: enforce})
		if err != nil {
			slog.Error("scheduled reminder run failed", "err", err, "candidates", rep.Candidates)
			return
		}
		slog.Info("scheduled reminder run finished", "candidates", rep.Candidates, "skipped", rep.Skipped)
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Handler = api.NewHandler(api.Deps{
		Scheduler:       a.Scheduler,
		Reminders:       a.Reminders,
		Inbound:         a.Machine,
		Deliveries:      a.Store.Deliveries,
		Settings:        a.Settings,
		Normalizer:      normalizer,
		VerifyToken:     cfg.Conversation.VerifyToken,
		TwilioSignature: signature,
	})

	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	if a.Config.Store.Driver == "memory" {
		slog.Warn("using in-memory store; data is lost on restart")
		a.Store = memstore.New().Repos()
		return nil
	}

	db, err := repo.OpenPostgres(ctx, a.Config.Store.PostgresURL)
	if err != nil {
		return err
	}
	a.db = db
	if err := repo.Migrate(ctx, db); err != nil {
		return err
	}
	a.Store = repo.NewPostgresStore(db)
	return nil
}

func (a *App) openCache(ctx, bg context.Context) error {
	if !a.Config.Redis.Enabled {
		mc := cache.NewMemoryCache()
		go sweep(bg, mc)
		a.KV = mc
		return nil
	}

	r := a.Config.Redis
	rdb, err := cache.DialRedis(ctx, r.Address, r.Password, r.DB)
	if err != nil {
		return err
	}
	a.rdb = rdb
	a.KV = cache.NewRedisCache(rdb, "messaging:")
	return nil
}

func sweep(ctx context.Context, mc *cache.MemoryCache) {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := mc.Sweep(); n > 0 {
				slog.Debug("expired cache entries removed", "count", n)
			}
		}
	}
}

// Close stops the scheduler and releases backend connections.
func (a *App) Close() error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.cancel != nil {
		a.cancel()
	}
	var errs []error
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close postgres: %w", err))
		}
	}
	return errors.Join(errs...)
}
