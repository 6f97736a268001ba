// Package settings loads and updates the reminder and office contact settings.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/LeventeLantos/rental-messaging/internal/model"
	"github.com/LeventeLantos/rental-messaging/internal/repo"
)

type Service struct {
	repo     repo.SettingsRepository
	validate *validator.Validate
	group    singleflight.Group

	// fallbackContact is used when no contact settings row exists.
	fallbackContact model.ContactSettings
}

func NewService(r repo.SettingsRepository, fallbackContact model.ContactSettings) *Service {
	return &Service{
		repo:            r,
		validate:        validator.New(validator.WithRequiredStructEnabled()),
		fallbackContact: fallbackContact,
	}
}

// Reminder returns the stored settings, creating the defaults on first access.
func (s *Service) Reminder(ctx context.Context) (model.ReminderSettings, error) {
	v, err, _ := s.group.Do("reminder", func() (any, error) {
		rs, err := s.repo.LoadReminderSettings(ctx)
		if err == nil {
			return normalize(rs), nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("load reminder settings: %w", err)
		}

		rs = model.DefaultReminderSettings()
		if err := s.repo.CreateReminderSettings(ctx, rs); err != nil {
			return nil, fmt.Errorf("create default reminder settings: %w", err)
		}
		slog.Info("created default reminder settings")

		// Re-read so a row created concurrently by another process wins.
		stored, err := s.repo.LoadReminderSettings(ctx)
		if err != nil {
			return nil, fmt.Errorf("reload reminder settings: %w", err)
		}
		return normalize(stored), nil
	})
	if err != nil {
		return model.ReminderSettings{}, err
	}
	return v.(model.ReminderSettings), nil
}

// UpdateReminder validates and stores rs, keeping the previous value in history.
func (s *Service) UpdateReminder(ctx context.Context, rs model.ReminderSettings, changedBy string) (model.ReminderSettings, error) {
	rs = normalize(rs)
	if err := s.Validate(rs); err != nil {
		return model.ReminderSettings{}, err
	}
	if err := s.repo.UpdateReminderSettings(ctx, rs, changedBy); err != nil {
		return model.ReminderSettings{}, fmt.Errorf("update reminder settings: %w", err)
	}
	slog.Info("reminder settings updated", "changed_by", changedBy, "enabled", rs.Enabled)
	return rs, nil
}

func (s *Service) Validate(rs model.ReminderSettings) error {
	if err := s.validate.Struct(rs); err != nil {
		return fmt.Errorf("invalid reminder settings: %w", err)
	}
	return nil
}

// Contact returns the office contact settings, or the configured fallback
// when none are stored.
func (s *Service) Contact(ctx context.Context) (model.ContactSettings, error) {
	c, err := s.repo.LoadContactSettings(ctx)
	if errors.Is(err, repo.ErrNotFound) {
		return s.fallbackContact, nil
	}
	if err != nil {
		return model.ContactSettings{}, fmt.Errorf("load contact settings: %w", err)
	}
	if c.OfficePhone == "" {
		c.OfficePhone = s.fallbackContact.OfficePhone
	}
	if c.OfficeName == "" {
		c.OfficeName = s.fallbackContact.OfficeName
	}
	return c, nil
}

// normalize sorts thresholds descending and drops duplicates so scans run
// in a stable order.
func normalize(rs model.ReminderSettings) model.ReminderSettings {
	rs.PaymentThresholds = sortedUnique(rs.PaymentThresholds)
	rs.ContractThresholds = sortedUnique(rs.ContractThresholds)
	if rs.DefaultLanguage == "" {
		rs.DefaultLanguage = model.PrimaryLanguage
	}
	return rs
}

func sortedUnique(in []int) []int {
	out := slices.Clone(in)
	slices.Sort(out)
	out = slices.Compact(out)
	slices.Reverse(out)
	return out
}
