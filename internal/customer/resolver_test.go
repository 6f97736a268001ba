package customer

import (
	"context"
	"errors"
	"testing"

	"github.com/LeventeLantos/rental-messaging/internal/memstore"
	"github.com/LeventeLantos/rental-messaging/internal/model"
	"github.com/LeventeLantos/rental-messaging/internal/phone"
)

type recordingBackfill struct {
	phones []string
	id     int64
	calls  int
	err    error
}

func (b *recordingBackfill) LinkCustomer(ctx context.Context, phones []string, customerID int64) error {
	b.calls++
	b.phones = phones
	b.id = customerID
	return b.err
}

func newNormalizer(t *testing.T) *phone.Normalizer {
	t.Helper()
	n, err := phone.NewNormalizer("SA")
	if err != nil {
		t.Fatalf("NewNormalizer error: %v", err)
	}
	return n
}

func TestResolve_MatchesStoredVariant(t *testing.T) {
	t.Parallel()

	st := memstore.New()
	// Stored in local format, looked up in international format.
	want := st.AddCustomer(model.Customer{Name: "Sara", Phone: "0501234567", Language: model.English})
	bf := &recordingBackfill{}

	r := NewResolver(st, newNormalizer(t), bf)
	got, err := r.Resolve(context.Background(), "+966501234567", 0)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if got.ID != want.ID || got.Placeholder {
		t.Fatalf("expected customer %d, got %+v", want.ID, got)
	}

	if bf.calls != 1 || bf.id != want.ID {
		t.Fatalf("expected back-fill with id %d, got calls=%d id=%d", want.ID, bf.calls, bf.id)
	}
	if bf.phones[0] != "966501234567" {
		t.Fatalf("expected canonical phone first, got %v", bf.phones)
	}

	again, err := r.Resolve(context.Background(), "0501234567", 0)
	if err != nil || again.ID != want.ID {
		t.Fatalf("expected repeated resolve to converge, got %+v err=%v", again, err)
	}
}

func TestResolve_KnownIDIsTrusted(t *testing.T) {
	t.Parallel()

	st := memstore.New()
	c := st.AddCustomer(model.Customer{Name: "Omar", Phone: "971501234567"})

	r := NewResolver(st, newNormalizer(t))
	got, err := r.Resolve(context.Background(), "966509999999", c.ID)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if got.ID != c.ID {
		t.Fatalf("expected known id %d, got %+v", c.ID, got)
	}
}

func TestResolve_NoMatchReturnsPlaceholder(t *testing.T) {
	t.Parallel()

	r := NewResolver(memstore.New(), newNormalizer(t))
	got, err := r.Resolve(context.Background(), "966501234567", 0)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if !got.Placeholder || got.ID != 0 {
		t.Fatalf("expected placeholder, got %+v", got)
	}
	if got.Name != "+966501234567" {
		t.Fatalf("expected display name from phone, got %q", got.Name)
	}
}

func TestResolve_InvalidPhoneStillReturnsPlaceholder(t *testing.T) {
	t.Parallel()

	r := NewResolver(memstore.New(), newNormalizer(t))
	got, err := r.Resolve(context.Background(), "12ab", 0)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if !got.Placeholder {
		t.Fatalf("expected placeholder, got %+v", got)
	}
}

func TestResolve_BackfillFailureIsNotRaised(t *testing.T) {
	t.Parallel()

	st := memstore.New()
	c := st.AddCustomer(model.Customer{Name: "Sara", Phone: "966501234567"})
	bf := &recordingBackfill{err: errors.New("write failed")}

	r := NewResolver(st, newNormalizer(t), bf)
	got, err := r.Resolve(context.Background(), "0501234567", 0)
	if err != nil {
		t.Fatalf("expected back-fill failure to be swallowed, got %v", err)
	}
	if got.ID != c.ID {
		t.Fatalf("expected customer %d, got %+v", c.ID, got)
	}
}

func TestResolve_StoreFailureIsReturned(t *testing.T) {
	t.Parallel()

	st := memstore.New()
	st.Fail = errors.New("connection refused")

	r := NewResolver(st, newNormalizer(t))
	if _, err := r.Resolve(context.Background(), "966501234567", 0); err == nil {
		t.Fatalf("expected store error, got nil")
	}
}
