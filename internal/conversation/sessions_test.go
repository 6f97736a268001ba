package conversation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/LeventeLantos/rental-messaging/internal/cache"
	"github.com/LeventeLantos/rental-messaging/internal/model"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestSessionStore_CreateGetUpdate(t *testing.T) {
	t.Parallel()

	clk := &testClock{now: time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC)}
	s := NewSessionStore(cache.NewMemoryCache().WithClock(clk.Now), time.Hour).WithClock(clk.Now)
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "966501234567"); err != nil || ok {
		t.Fatalf("expected no session, got ok=%v err=%v", ok, err)
	}

	created, err := s.Create(ctx, "966501234567", model.Arabic)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if created.Step != model.StepGreeting {
		t.Fatalf("expected greeting step, got %s", created.Step)
	}

	clk.Advance(time.Minute)
	menu := model.StepMainMenu
	updated, err := s.Update(ctx, "966501234567", model.SessionPatch{Step: &menu})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if updated.Step != model.StepMainMenu || updated.Language != model.Arabic {
		t.Fatalf("expected merged session, got %+v", updated)
	}
	if !updated.LastTouched.After(created.LastTouched) || !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("expected refreshed lastTouched only, got %+v", updated)
	}

	got, ok, err := s.Get(ctx, "966501234567")
	if err != nil || !ok || got.Step != model.StepMainMenu {
		t.Fatalf("expected stored update, got %+v ok=%v err=%v", got, ok, err)
	}
}

func TestSessionStore_UpdateCreatesWhenAbsent(t *testing.T) {
	t.Parallel()

	s := NewSessionStore(cache.NewMemoryCache(), 0)
	lang := model.English
	got, err := s.Update(context.Background(), "971501234567", model.SessionPatch{Language: &lang})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if got.Step != model.StepGreeting || got.Language != model.English || got.Phone != "971501234567" {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestSessionStore_Expires(t *testing.T) {
	t.Parallel()

	clk := &testClock{now: time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC)}
	s := NewSessionStore(cache.NewMemoryCache().WithClock(clk.Now), time.Hour).WithClock(clk.Now)
	ctx := context.Background()

	if _, err := s.Create(ctx, "966501234567", model.Arabic); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	clk.Advance(2 * time.Hour)
	if _, ok, _ := s.Get(ctx, "966501234567"); ok {
		t.Fatalf("expected session to expire")
	}
}

func TestSessionStore_LinkCustomer(t *testing.T) {
	t.Parallel()

	s := NewSessionStore(cache.NewMemoryCache(), 0)
	ctx := context.Background()
	if _, err := s.Create(ctx, "966501234567", model.Arabic); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if err := s.LinkCustomer(ctx, []string{"unknown", "966501234567"}, 42); err != nil {
		t.Fatalf("LinkCustomer error: %v", err)
	}
	got, _, _ := s.Get(ctx, "966501234567")
	if got.CustomerID != 42 {
		t.Fatalf("expected customer 42, got %d", got.CustomerID)
	}

	if err := s.LinkCustomer(ctx, []string{"966501234567"}, 7); err != nil {
		t.Fatalf("LinkCustomer error: %v", err)
	}
	got, _, _ = s.Get(ctx, "966501234567")
	if got.CustomerID != 42 {
		t.Fatalf("expected existing link kept, got %d", got.CustomerID)
	}
}
