package memstore

import (
	"context"
	"slices"
	"time"

	"github.com/LeventeLantos/rental-messaging/internal/model"
	"github.com/LeventeLantos/rental-messaging/internal/repo"
)

func cloneSettings(s model.ReminderSettings) model.ReminderSettings {
	s.PaymentThresholds = slices.Clone(s.PaymentThresholds)
	s.ContractThresholds = slices.Clone(s.ContractThresholds)
	s.WorkingDays = slices.Clone(s.WorkingDays)
	return s
}

func (s *Store) LoadReminderSettings(ctx context.Context) (model.ReminderSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail != nil {
		return model.ReminderSettings{}, s.Fail
	}
	if s.reminder == nil {
		return model.ReminderSettings{}, repo.ErrNotFound
	}
	return cloneSettings(*s.reminder), nil
}

func (s *Store) CreateReminderSettings(ctx context.Context, rs model.ReminderSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail != nil {
		return s.Fail
	}
	s.createSettings++
	if s.reminder != nil {
		return nil
	}
	rs = cloneSettings(rs)
	rs.UpdatedAt = time.Now().UTC()
	s.reminder = &rs
	return nil
}

func (s *Store) UpdateReminderSettings(ctx context.Context, rs model.ReminderSettings, changedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail != nil {
		return s.Fail
	}
	if s.reminder != nil {
		s.settingsLog = append(s.settingsLog, *s.reminder)
	}
	rs = cloneSettings(rs)
	rs.UpdatedAt = time.Now().UTC()
	s.reminder = &rs
	return nil
}

func (s *Store) LoadContactSettings(ctx context.Context) (model.ContactSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail != nil {
		return model.ContactSettings{}, s.Fail
	}
	if s.contact == nil {
		return model.ContactSettings{}, repo.ErrNotFound
	}
	return *s.contact, nil
}
