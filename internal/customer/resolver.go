// Package customer maps inbound phone numbers to customer identities.
package customer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/LeventeLantos/rental-messaging/internal/model"
	"github.com/LeventeLantos/rental-messaging/internal/phone"
	"github.com/LeventeLantos/rental-messaging/internal/repo"
)

// Backfiller records a resolved customer id against the phone's variants.
type Backfiller interface {
	LinkCustomer(ctx context.Context, phones []string, customerID int64) error
}

type Resolver struct {
	customers  repo.CustomerRepository
	normalizer *phone.Normalizer
	backfill   []Backfiller
}

func NewResolver(customers repo.CustomerRepository, normalizer *phone.Normalizer, backfill ...Backfiller) *Resolver {
	return &Resolver{customers: customers, normalizer: normalizer, backfill: backfill}
}

// Resolve returns the customer owning rawPhone. A known id is trusted when it
// exists. An unmatched phone yields a placeholder identity, never an error;
// only record-store failures are returned.
func (r *Resolver) Resolve(ctx context.Context, rawPhone string, knownID int64) (model.Customer, error) {
	if knownID != 0 {
		c, err := r.customers.GetByID(ctx, knownID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return model.Customer{}, fmt.Errorf("get customer %d: %w", knownID, err)
		}
		slog.Warn("known customer id not found, falling back to phone lookup", "customer_id", knownID)
	}

	variants, err := r.normalizer.Variants(rawPhone)
	if err != nil {
		slog.Warn("cannot normalize phone for customer lookup", "phone", rawPhone, "err", err)
		variants = []string{strings.TrimSpace(rawPhone)}
	}

	c, err := r.customers.FindByPhones(ctx, variants)
	if errors.Is(err, repo.ErrNotFound) {
		return Placeholder(rawPhone), nil
	}
	if err != nil {
		return model.Customer{}, fmt.Errorf("find customer by phone: %w", err)
	}

	for _, b := range r.backfill {
		if err := b.LinkCustomer(ctx, variants, c.ID); err != nil {
			slog.Warn("customer back-fill failed", "phone", variants[0], "customer_id", c.ID, "err", err)
		}
	}
	return c, nil
}

// Placeholder is the identity used for phones that match no customer.
func Placeholder(rawPhone string) model.Customer {
	p := strings.TrimSpace(rawPhone)
	name := p
	if !strings.HasPrefix(name, "+") && name != "" {
		name = "+" + name
	}
	return model.Customer{
		Name:        name,
		Phone:       p,
		Language:    model.PrimaryLanguage,
		Placeholder: true,
	}
}
