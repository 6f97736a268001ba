package memstore

import (
	"context"
	"slices"
	"time"

	"github.com/LeventeLantos/rental-messaging/internal/model"
	"github.com/LeventeLantos/rental-messaging/internal/repo"
)

type deliveryRepo struct{ s *Store }

func (d deliveryRepo) Create(ctx context.Context, e model.DeliveryLogEntry) (model.DeliveryLogEntry, error) {
	s := d.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail != nil {
		return model.DeliveryLogEntry{}, s.Fail
	}
	e.ID = s.id()
	if e.SentAt.IsZero() {
		e.SentAt = time.Now().UTC()
	}
	s.logs = append(s.logs, e)
	return e, nil
}

func (d deliveryRepo) Exists(ctx context.Context, recipient string, types []string, statuses []model.DeliveryStatus, from, to time.Time) (bool, error) {
	s := d.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail != nil {
		return false, s.Fail
	}
	for _, e := range s.logs {
		if e.RecipientPhone != recipient {
			continue
		}
		if !slices.Contains(types, e.MessageType) || !slices.Contains(statuses, e.Status) {
			continue
		}
		if !e.SentAt.Before(from) && e.SentAt.Before(to) {
			return true, nil
		}
	}
	return false, nil
}

func (d deliveryRepo) UpdateStatus(ctx context.Context, channelMessageID string, status model.DeliveryStatus) error {
	s := d.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail != nil {
		return s.Fail
	}
	found := false
	for i := range s.logs {
		if s.logs[i].ChannelMessageID != channelMessageID {
			continue
		}
		found = true
		if s.logs[i].Status.CanAdvance(status) {
			s.logs[i].Status = status
		}
	}
	if !found {
		return repo.ErrNotFound
	}
	return nil
}

func (d deliveryRepo) LinkCustomer(ctx context.Context, phones []string, customerID int64) error {
	s := d.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail != nil {
		return s.Fail
	}
	for i := range s.logs {
		if s.logs[i].CustomerID == nil && slices.Contains(phones, s.logs[i].RecipientPhone) {
			id := customerID
			s.logs[i].CustomerID = &id
		}
	}
	return nil
}

func (d deliveryRepo) List(ctx context.Context, recipient string, limit, offset int) ([]model.DeliveryLogEntry, error) {
	s := d.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail != nil {
		return nil, s.Fail
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var out []model.DeliveryLogEntry
	for i := len(s.logs) - 1; i >= 0; i-- {
		if recipient == "" || s.logs[i].RecipientPhone == recipient {
			out = append(out, s.logs[i])
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
