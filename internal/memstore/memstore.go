// Package memstore is an in-process record store used for local runs and tests.
package memstore

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/LeventeLantos/rental-messaging/internal/model"
	"github.com/LeventeLantos/rental-messaging/internal/repo"
)

type paymentRow struct {
	ID         int64
	ContractID int64
	DueDate    time.Time
	Amount     float64
	Status     model.PaymentStatus
}

type Store struct {
	mu sync.Mutex

	nextID int64

	customers map[int64]model.Customer
	contracts map[int64]model.Contract
	payments  []paymentRow
	requests  []model.ServiceRequest
	logs      []model.DeliveryLogEntry

	reminder       *model.ReminderSettings
	settingsLog    []model.ReminderSettings
	contact        *model.ContactSettings
	createSettings int

	// Fail, when set, is returned by every read and write.
	Fail error
	// FailRequests, when set, is returned by service request creation only.
	FailRequests error
}

var (
	_ repo.CustomerRepository       = (*Store)(nil)
	_ repo.PaymentRepository        = (*Store)(nil)
	_ repo.ContractRepository       = (*Store)(nil)
	_ repo.ServiceRequestRepository = requestRepo{}
	_ repo.DeliveryLogRepository    = deliveryRepo{}
	_ repo.SettingsRepository       = (*Store)(nil)
)

func New() *Store {
	return &Store{
		customers: make(map[int64]model.Customer),
		contracts: make(map[int64]model.Contract),
	}
}

// Repos exposes s as a repo.Store.
func (s *Store) Repos() repo.Store {
	return repo.Store{
		Customers:       s,
		Payments:        s,
		Contracts:       s,
		ServiceRequests: requestRepo{s},
		Deliveries:      deliveryRepo{s},
		Settings:        s,
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) AddCustomer(c model.Customer) model.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == 0 {
		c.ID = s.id()
	}
	s.customers[c.ID] = c
	return c
}

func (s *Store) AddContract(c model.Contract) model.Contract {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == 0 {
		c.ID = s.id()
	}
	if c.Status == "" {
		c.Status = model.ContractActive
	}
	s.contracts[c.ID] = c
	return c
}

func (s *Store) AddPayment(p model.Payment) model.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == 0 {
		p.ID = s.id()
	}
	if p.Status == "" {
		p.Status = model.PaymentPending
	}
	s.payments = append(s.payments, paymentRow{
		ID:         p.ID,
		ContractID: p.ContractID,
		DueDate:    p.DueDate,
		Amount:     p.Amount,
		Status:     p.Status,
	})
	return p
}

func (s *Store) SetContactSettings(c model.ContactSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contact = &c
}

func (s *Store) Requests() []model.ServiceRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

func (s *Store) Deliveries() []model.DeliveryLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.logs)
}

// SettingsCreated counts CreateReminderSettings calls.
func (s *Store) SettingsCreated() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createSettings
}

func (s *Store) SettingsHistory() []model.ReminderSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.settingsLog)
}

func (s *Store) GetByID(ctx context.Context, id int64) (model.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail != nil {
		return model.Customer{}, s.Fail
	}
	c, ok := s.customers[id]
	if !ok {
		return model.Customer{}, repo.ErrNotFound
	}
	return c, nil
}

func (s *Store) FindByPhones(ctx context.Context, phones []string) (model.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail != nil {
		return model.Customer{}, s.Fail
	}
	ids := make([]int64, 0, len(s.customers))
	for id := range s.customers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		c := s.customers[id]
		if c.Phone != "" && slices.Contains(phones, c.Phone) {
			return c, nil
		}
	}
	return model.Customer{}, repo.ErrNotFound
}

func (s *Store) joinPayment(p paymentRow) model.Payment {
	c := s.contracts[p.ContractID]
	return model.Payment{
		ID:             p.ID,
		ContractID:     p.ContractID,
		ContractNumber: c.Number,
		DueDate:        p.DueDate,
		Amount:         p.Amount,
		Status:         p.Status,
		Customer:       s.customers[c.RenterID],
	}
}

func (s *Store) ListOverdue(ctx context.Context, asOf time.Time, limit int) ([]model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail != nil {
		return nil, s.Fail
	}
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	var out []model.Payment
	for _, p := range s.payments {
		if (p.Status == model.PaymentPending || p.Status == model.PaymentOverdue) && p.DueDate.Before(asOf) {
			out = append(out, s.joinPayment(p))
		}
	}
	sortPayments(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListPendingDueBetween(ctx context.Context, from, to time.Time) ([]model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail != nil {
		return nil, s.Fail
	}

	var out []model.Payment
	for _, p := range s.payments {
		if p.Status == model.PaymentPending && !p.DueDate.Before(from) && p.DueDate.Before(to) {
			out = append(out, s.joinPayment(p))
		}
	}
	sortPayments(out)
	return out, nil
}

func sortPayments(ps []model.Payment) {
	sort.SliceStable(ps, func(i, j int) bool {
		if !ps[i].DueDate.Equal(ps[j].DueDate) {
			return ps[i].DueDate.Before(ps[j].DueDate)
		}
		return ps[i].ID < ps[j].ID
	})
}

func (s *Store) ListActiveEndingBetween(ctx context.Context, from, to time.Time) ([]model.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail != nil {
		return nil, s.Fail
	}

	var out []model.Contract
	for _, c := range s.contracts {
		if c.Status == model.ContractActive && !c.EndDate.Before(from) && c.EndDate.Before(to) {
			c.Renter = s.customers[c.RenterID]
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EndDate.Equal(out[j].EndDate) {
			return out[i].EndDate.Before(out[j].EndDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
