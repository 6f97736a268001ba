// Package reminder finds payments and contracts that need a notification
// and delivers one deduplicated, retried reminder per recipient and type.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/LeventeLantos/rental-messaging/internal/model"
	"github.com/LeventeLantos/rental-messaging/internal/repo"
)

type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyNormal   Urgency = "normal"
)

// Message types, and the labels older deliveries were logged under.
const (
	TypePaymentReminder = "payment_reminder"
	TypePaymentOverdue  = "payment_overdue"
	TypeContractExpiry  = "contract_expiry"
)

var legacyTypes = map[string]string{
	TypePaymentReminder: "payment_due",
	TypePaymentOverdue:  "overdue_payment",
	TypeContractExpiry:  "contract_expiring",
}

// EquivalentTypes returns t together with its legacy label, if any.
func EquivalentTypes(t string) []string {
	if legacy, ok := legacyTypes[t]; ok {
		return []string{t, legacy}
	}
	return []string{t}
}

const (
	criticalOverdueDays = 30
	paymentHighWithin   = 3
	contractHighWithin  = 14
)

type Candidate struct {
	SubjectType model.SubjectType
	// DaysUntilDue is negative for overdue payments.
	DaysUntilDue int
	Urgency      Urgency

	Payment  *model.Payment
	Contract *model.Contract
}

func (c Candidate) Type() string {
	switch {
	case c.SubjectType == model.SubjectContract:
		return TypeContractExpiry
	case c.DaysUntilDue < 0:
		return TypePaymentOverdue
	}
	return TypePaymentReminder
}

func (c Candidate) Customer() model.Customer {
	if c.Contract != nil {
		return c.Contract.Renter
	}
	if c.Payment != nil {
		return c.Payment.Customer
	}
	return model.Customer{}
}

func (c Candidate) Subject() model.SubjectDetail {
	if c.Contract != nil {
		return model.ContractDetail{
			ContractID:     c.Contract.ID,
			ContractNumber: c.Contract.Number,
			EndDate:        c.Contract.EndDate,
			TotalValue:     c.Contract.TotalValue,
			DaysUntilDue:   c.DaysUntilDue,
		}
	}
	if c.Payment != nil {
		return model.PaymentDetail{
			PaymentID:      c.Payment.ID,
			ContractID:     c.Payment.ContractID,
			ContractNumber: c.Payment.ContractNumber,
			Amount:         c.Payment.Amount,
			DueDate:        c.Payment.DueDate,
			DaysUntilDue:   c.DaysUntilDue,
		}
	}
	return nil
}

func (c Candidate) String() string {
	if c.Contract != nil {
		return fmt.Sprintf("contract:%d", c.Contract.ID)
	}
	if c.Payment != nil {
		return fmt.Sprintf("payment:%d", c.Payment.ID)
	}
	return "unknown"
}

type Finder struct {
	payments  repo.PaymentRepository
	contracts repo.ContractRepository
	loc       *time.Location
	now       func() time.Time
}

func NewFinder(payments repo.PaymentRepository, contracts repo.ContractRepository, loc *time.Location) *Finder {
	return &Finder{payments: payments, contracts: contracts, loc: loc, now: time.Now}
}

func (f *Finder) WithClock(now func() time.Time) *Finder {
	f.now = now
	return f
}

// Find returns overdue payments, then upcoming payments per threshold, then
// expiring contracts per threshold. On a store error the candidates gathered
// so far are returned with the error.
func (f *Finder) Find(ctx context.Context, s model.ReminderSettings) ([]Candidate, error) {
	if !s.Enabled {
		return nil, nil
	}

	today := startOfDay(f.now(), f.loc)
	seen := make(map[int64]struct{})
	var out []Candidate

	overdue, err := f.payments.ListOverdue(ctx, today, s.OverduePageSize)
	if err != nil {
		return out, fmt.Errorf("list overdue payments: %w", err)
	}
	for i := range overdue {
		p := overdue[i]
		days := daysBetween(startOfDay(p.DueDate, f.loc), today)
		if days <= 0 {
			continue
		}
		urgency := UrgencyHigh
		if days > criticalOverdueDays {
			urgency = UrgencyCritical
		}
		seen[p.ID] = struct{}{}
		out = append(out, Candidate{
			SubjectType:  model.SubjectPayment,
			DaysUntilDue: -days,
			Urgency:      urgency,
			Payment:      &p,
		})
	}

	for _, n := range s.PaymentThresholds {
		from := today.AddDate(0, 0, n)
		due, err := f.payments.ListPendingDueBetween(ctx, from, from.AddDate(0, 0, 1))
		if err != nil {
			return out, fmt.Errorf("list payments due in %d days: %w", n, err)
		}
		for i := range due {
			p := due[i]
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			out = append(out, Candidate{
				SubjectType:  model.SubjectPayment,
				DaysUntilDue: n,
				Urgency:      upcomingUrgency(n, paymentHighWithin),
				Payment:      &p,
			})
		}
	}

	seenContracts := make(map[int64]struct{})
	for _, n := range s.ContractThresholds {
		from := today.AddDate(0, 0, n)
		ending, err := f.contracts.ListActiveEndingBetween(ctx, from, from.AddDate(0, 0, 1))
		if err != nil {
			return out, fmt.Errorf("list contracts ending in %d days: %w", n, err)
		}
		for i := range ending {
			c := ending[i]
			if _, dup := seenContracts[c.ID]; dup {
				continue
			}
			seenContracts[c.ID] = struct{}{}
			out = append(out, Candidate{
				SubjectType:  model.SubjectContract,
				DaysUntilDue: n,
				Urgency:      upcomingUrgency(n, contractHighWithin),
				Contract:     &c,
			})
		}
	}

	return out, nil
}

func upcomingUrgency(days, highWithin int) Urgency {
	if days <= highWithin {
		return UrgencyHigh
	}
	return UrgencyNormal
}

// startOfDay is midnight of t's calendar day in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// daysBetween counts calendar days from a to b, both midnights in the same zone.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
