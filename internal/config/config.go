package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"

	"github.com/LeventeLantos/rental-messaging/internal/gateway"
	"github.com/LeventeLantos/rental-messaging/internal/model"
	"github.com/LeventeLantos/rental-messaging/internal/phone"
)

type Config struct {
	Server       ServerConfig
	Store        StoreConfig
	Redis        RedisConfig
	Conversation ConversationConfig
	Gateway      GatewayConfig
	Reminders    ReminderConfig
	Office       model.ContactSettings
	LogLevel     slog.Level
}

type ServerConfig struct {
	Address string
}

type StoreConfig struct {
	// Driver is "postgres" or "memory".
	Driver      string
	PostgresURL string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
}

type ConversationConfig struct {
	SessionTTL  time.Duration
	DedupTTL    time.Duration
	VerifyToken string
}

type GatewayConfig struct {
	// Provider is "whatsapp" or "twilio".
	Provider string

	WhatsAppURL           string
	WhatsAppPhoneNumberID string
	WhatsAppToken         string

	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioFrom        string
	TwilioContentSIDs map[string]string
	// TwilioWebhookURL is the public callback URL; when set, callbacks
	// must carry a valid signature.
	TwilioWebhookURL string
}

type ReminderConfig struct {
	Cron                string
	EnforceWorkingHours bool
	Location            *time.Location
	DefaultCountry      string
}

// LoadAll reads the environment. Every missing or malformed variable is
// reported in the returned error.
func LoadAll() (*Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	require := func(key string) string {
		v, err := requireEnv(key)
		collect(err)
		return v
	}
	intVar := func(key string, def int) int {
		v, err := getEnvInt(key, def)
		collect(err)
		return v
	}
	boolVar := func(key string, def bool) bool {
		v, err := getEnvBool(key, def)
		collect(err)
		return v
	}

	cfg := &Config{
		Server: ServerConfig{
			Address: getEnv("SERVER_ADDRESS", ":8080"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getEnv("STORE_DRIVER", "postgres")),
		},
		Conversation: ConversationConfig{
			SessionTTL:  time.Duration(intVar("SESSION_TTL_SECONDS", 86400)) * time.Second,
			DedupTTL:    time.Duration(intVar("WEBHOOK_DEDUP_TTL_SECONDS", 86400)) * time.Second,
			VerifyToken: require("WEBHOOK_VERIFY_TOKEN"),
		},
		Gateway: GatewayConfig{
			Provider: strings.ToLower(getEnv("GATEWAY_PROVIDER", "whatsapp")),
		},
		Reminders: ReminderConfig{
			Cron:                getEnv("REMINDER_CRON", "0 9 * * *"),
			EnforceWorkingHours: boolVar("REMINDER_ENFORCE_WORKING_HOURS", true),
			DefaultCountry:      strings.ToUpper(getEnv("DEFAULT_COUNTRY", "SA")),
		},
		Office: model.ContactSettings{
			OfficeName:  getEnv("OFFICE_NAME", ""),
			OfficePhone: getEnv("OFFICE_PHONE", ""),
			OfficeEmail: getEnv("OFFICE_EMAIL", ""),
		},
	}

	switch cfg.Store.Driver {
	case "postgres":
		cfg.Store.PostgresURL = require("POSTGRES_URL")
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be postgres or memory, got %q", cfg.Store.Driver))
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis = RedisConfig{
			Enabled:  true,
			Address:  addr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       intVar("REDIS_DB", 0),
		}
	}

	g := &cfg.Gateway
	switch g.Provider {
	case "whatsapp":
		g.WhatsAppURL = getEnv("WHATSAPP_API_URL", "https://graph.facebook.com/v19.0")
		g.WhatsAppPhoneNumberID = require("WHATSAPP_PHONE_NUMBER_ID")
		g.WhatsAppToken = require("WHATSAPP_ACCESS_TOKEN")
	case "twilio":
		g.TwilioAccountSID = require("TWILIO_ACCOUNT_SID")
		g.TwilioAuthToken = require("TWILIO_AUTH_TOKEN")
		g.TwilioFrom = require("TWILIO_FROM")
		g.TwilioWebhookURL = os.Getenv("TWILIO_WEBHOOK_URL")
		sids, err := gateway.ParseContentSIDs(os.Getenv("TWILIO_CONTENT_SIDS"))
		if err != nil {
			errs = append(errs, fmt.Errorf("TWILIO_CONTENT_SIDS: %w", err))
		}
		g.TwilioContentSIDs = sids
	default:
		errs = append(errs, fmt.Errorf("GATEWAY_PROVIDER must be whatsapp or twilio, got %q", g.Provider))
	}

	tz := getEnv("BUSINESS_TIMEZONE", "Asia/Riyadh")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		errs = append(errs, fmt.Errorf("BUSINESS_TIMEZONE %q: %w", tz, err))
	}
	cfg.Reminders.Location = loc

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	errs = append(errs, validate(cfg)...)
	if err := joinErrors(errs); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) []error {
	var errs []error
	if cfg.Conversation.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL_SECONDS must be > 0"))
	}
	if cfg.Conversation.DedupTTL <= 0 {
		errs = append(errs, errors.New("WEBHOOK_DEDUP_TTL_SECONDS must be > 0"))
	}
	if _, err := cron.ParseStandard(cfg.Reminders.Cron); err != nil {
		errs = append(errs, fmt.Errorf("REMINDER_CRON %q: %w", cfg.Reminders.Cron, err))
	}
	if _, ok := phone.LookupCountry(cfg.Reminders.DefaultCountry); !ok {
		errs = append(errs, fmt.Errorf("DEFAULT_COUNTRY %q is not supported", cfg.Reminders.DefaultCountry))
	}
	return errs
}

func requireEnv(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("missing required env var: %s", key)
	}
	return val, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("invalid int for env %s: %s", key, v)
	}
	return i, nil
}

func getEnvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("invalid bool for env %s: %s", key, v)
	}
	return b, nil
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
