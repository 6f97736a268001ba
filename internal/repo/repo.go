package repo

import (
	"context"
	"errors"
	"time"

	"github.com/LeventeLantos/rental-messaging/internal/model"
)

var ErrNotFound = errors.New("not found")

type CustomerRepository interface {
	GetByID(ctx context.Context, id int64) (model.Customer, error)
	// FindByPhones returns the first customer whose stored phone equals any of phones.
	FindByPhones(ctx context.Context, phones []string) (model.Customer, error)
}

type PaymentRepository interface {
	// ListOverdue returns pending/overdue payments due before asOf, oldest first.
	ListOverdue(ctx context.Context, asOf time.Time, limit int) ([]model.Payment, error)
	// ListPendingDueBetween returns pending payments with from <= due_date < to.
	ListPendingDueBetween(ctx context.Context, from, to time.Time) ([]model.Payment, error)
}

type ContractRepository interface {
	// ListActiveEndingBetween returns active contracts with from <= end_date < to.
	ListActiveEndingBetween(ctx context.Context, from, to time.Time) ([]model.Contract, error)
}

type ServiceRequestRepository interface {
	Create(ctx context.Context, req model.ServiceRequest) (model.ServiceRequest, error)
	// ListOpen returns open and in-progress requests of the given kinds for a
	// customer id, or for a phone when the customer is a placeholder.
	ListOpen(ctx context.Context, customerID int64, phone string, kinds []model.RequestKind) ([]model.ServiceRequest, error)
}

type DeliveryLogRepository interface {
	Create(ctx context.Context, entry model.DeliveryLogEntry) (model.DeliveryLogEntry, error)
	// Exists reports whether an entry exists for recipient with one of
	// types and statuses and from <= sent_at < to.
	Exists(ctx context.Context, recipient string, types []string, statuses []model.DeliveryStatus, from, to time.Time) (bool, error)
	// UpdateStatus only moves a status forward; stale callbacks are ignored.
	UpdateStatus(ctx context.Context, channelMessageID string, status model.DeliveryStatus) error
	// LinkCustomer sets customer_id on entries for any of phones that have none.
	LinkCustomer(ctx context.Context, phones []string, customerID int64) error
	List(ctx context.Context, recipient string, limit, offset int) ([]model.DeliveryLogEntry, error)
}

type SettingsRepository interface {
	// LoadReminderSettings returns ErrNotFound when no settings row exists.
	LoadReminderSettings(ctx context.Context) (model.ReminderSettings, error)
	CreateReminderSettings(ctx context.Context, s model.ReminderSettings) error
	// UpdateReminderSettings replaces the settings and records the previous
	// value in the history table.
	UpdateReminderSettings(ctx context.Context, s model.ReminderSettings, changedBy string) error
	LoadContactSettings(ctx context.Context) (model.ContactSettings, error)
}

// Store bundles every repository the messaging subsystem consumes.
type Store struct {
	Customers       CustomerRepository
	Payments        PaymentRepository
	Contracts       ContractRepository
	ServiceRequests ServiceRequestRepository
	Deliveries      DeliveryLogRepository
	Settings        SettingsRepository
}
