package reminder_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/LeventeLantos/rental-messaging/internal/delivery"
	"github.com/LeventeLantos/rental-messaging/internal/gateway"
	"github.com/LeventeLantos/rental-messaging/internal/gateway/gatewaytest"
	"github.com/LeventeLantos/rental-messaging/internal/memstore"
	"github.com/LeventeLantos/rental-messaging/internal/model"
	"github.com/LeventeLantos/rental-messaging/internal/phone"
	"github.com/LeventeLantos/rental-messaging/internal/reminder"
	"github.com/LeventeLantos/rental-messaging/internal/settings"
)

// countingSender wraps the engine and records every delivery request.
type countingSender struct {
	*delivery.Engine

	mu       sync.Mutex
	requests []delivery.Request
}

func (s *countingSender) SendWithRetry(ctx context.Context, req delivery.Request, p delivery.RetryPolicy) (delivery.Result, int) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return s.Engine.SendWithRetry(ctx, req, p)
}

var _ reminder.Sender = (*countingSender)(nil)

type harness struct {
	st       *memstore.Store
	gw       *gatewaytest.Fake
	sender   *countingSender
	settings *settings.Service
	job      *reminder.Job
	slept    []time.Duration
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{st: memstore.New(), gw: &gatewaytest.Fake{}}
	repos := h.st.Repos()

	n, err := phone.NewNormalizer("SA")
	if err != nil {
		t.Fatalf("NewNormalizer error: %v", err)
	}
	h.settings = settings.NewService(repos.Settings, office)
	h.sender = &countingSender{Engine: delivery.NewEngine(h.gw, repos.Deliveries).WithClock(clock)}
	h.job = reminder.NewJob(
		h.settings,
		reminder.NewFinder(repos.Payments, repos.Contracts, riyadh).WithClock(clock),
		reminder.NewDedupGuard(repos.Deliveries, riyadh).WithClock(clock),
		reminder.NewComposer(riyadh),
		h.sender,
		n,
		riyadh,
	).WithClock(clock).WithSleep(func(ctx context.Context, d time.Duration) error {
		h.slept = append(h.slept, d)
		return nil
	})
	return h
}

func (h *harness) customerWithPayment(name, phoneNumber string, dueOffset int) model.Customer {
	c := h.st.AddCustomer(model.Customer{Name: name, Phone: phoneNumber})
	ct := h.st.AddContract(model.Contract{Number: "C-" + name, RenterID: c.ID, EndDate: day(300)})
	h.st.AddPayment(model.Payment{ContractID: ct.ID, DueDate: day(dueOffset), Amount: 2500})
	return c
}

func (h *harness) run(t *testing.T, opts reminder.RunOptions) reminder.Report {
	t.Helper()
	rep, err := h.job.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	return rep
}

func TestRun_FirstRunCreatesDefaultSettings(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.customerWithPayment("Sara", "0501234567", 7)

	rep := h.run(t, reminder.RunOptions{})

	if h.st.SettingsCreated() != 1 {
		t.Fatalf("expected defaults created once, got %d", h.st.SettingsCreated())
	}
	s, err := h.settings.Reminder(context.Background())
	if err != nil {
		t.Fatalf("Reminder error: %v", err)
	}
	if !s.Enabled || len(s.PaymentThresholds) != 5 {
		t.Fatalf("expected enabled defaults, got %+v", s)
	}
	if got := rep.PerType[reminder.TypePaymentReminder].Sent; got != 1 {
		t.Fatalf("expected 1 sent reminder, got %d (report %+v)", got, rep)
	}

	sent := h.gw.Sent()
	if len(sent) != 1 || sent[0].Kind != "template" || sent[0].To != "966501234567" {
		t.Fatalf("expected one template to canonical phone, got %+v", sent)
	}
	if sent[0].Template.Name != "payment_reminder" {
		t.Fatalf("expected primary-locale template, got %q", sent[0].Template.Name)
	}
}

func TestRun_SkipsCandidatesAlreadyNotifiedToday(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.customerWithPayment("Sara", "0501234567", 7)
	logEntry(t, h.st, "payment_due", model.DeliverySent, day(0).Add(time.Hour))

	rep := h.run(t, reminder.RunOptions{})

	if len(h.sender.requests) != 0 {
		t.Fatalf("expected no delivery, got %+v", h.sender.requests)
	}
	if got := rep.PerType[reminder.TypePaymentReminder].Skipped; got != 1 {
		t.Fatalf("expected 1 skipped, got %d", got)
	}
}

func TestRun_SecondRunSameDaySendsNothing(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.customerWithPayment("Sara", "0501234567", 3)

	h.run(t, reminder.RunOptions{})
	h.run(t, reminder.RunOptions{})

	if n := len(h.gw.Sent()); n != 1 {
		t.Fatalf("expected 1 send over two runs, got %d", n)
	}
}

func TestRun_CandidateFailuresAreIsolated(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.customerWithPayment("Bad", "12345", 7)
	h.customerWithPayment("NoPhone", "", 7)
	h.customerWithPayment("Omar", "+971501234567", 7)

	rep := h.run(t, reminder.RunOptions{})

	c := rep.PerType[reminder.TypePaymentReminder]
	if c.Sent != 1 || c.Failed != 1 || c.Skipped != 1 {
		t.Fatalf("expected sent=1 failed=1 skipped=1, got %+v", c)
	}
	if len(rep.Errors) != 1 {
		t.Fatalf("expected one error, got %v", rep.Errors)
	}
	if sent := h.gw.Sent(); len(sent) != 1 || sent[0].To != "971501234567" {
		t.Fatalf("expected the valid recipient only, got %+v", sent)
	}
}

func TestRun_ExhaustedRetriesRecordFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.gw.TemplateErr = gatewaytest.Always(&gateway.Error{Kind: gateway.KindGeneric, Status: 503})
	h.customerWithPayment("Sara", "0501234567", 7)

	rep := h.run(t, reminder.RunOptions{})

	if tpl, _, _ := h.gw.Calls(); tpl != 3 {
		t.Fatalf("expected 3 template attempts, got %d", tpl)
	}
	if got := rep.PerType[reminder.TypePaymentReminder].Failed; got != 1 {
		t.Fatalf("expected 1 failed, got %d", got)
	}
	logs := h.st.Deliveries()
	if len(logs) != 1 || logs[0].Status != model.DeliveryFailed {
		t.Fatalf("expected one failed log entry, got %+v", logs)
	}

	// A failed entry does not block the next run.
	h.gw.TemplateErr = nil
	rep = h.run(t, reminder.RunOptions{})
	if got := rep.PerType[reminder.TypePaymentReminder].Sent; got != 1 {
		t.Fatalf("expected retry on next run to send, got %+v", rep)
	}
}

func TestRun_AuthFailureAbortsRun(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.gw.TemplateErr = gatewaytest.Always(&gateway.Error{Kind: gateway.KindAuth, Status: 401})
	h.customerWithPayment("Sara", "0501234567", 7)
	h.customerWithPayment("Omar", "0551234567", 7)

	rep, err := h.job.Run(context.Background(), reminder.RunOptions{})
	if !errors.Is(err, gateway.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if tpl, _, _ := h.gw.Calls(); tpl != 1 {
		t.Fatalf("expected a single attempt, got %d", tpl)
	}
	if got := rep.PerType[reminder.TypePaymentReminder].Failed; got != 1 {
		t.Fatalf("expected partial report with 1 failure, got %+v", rep)
	}
}

func TestRun_SettingsFailureAborts(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.st.Fail = errors.New("db down")

	if _, err := h.job.Run(context.Background(), reminder.RunOptions{}); err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestRun_DisabledSendsNothing(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.customerWithPayment("Sara", "0501234567", 7)
	s := model.DefaultReminderSettings()
	s.Enabled = false
	if _, err := h.settings.Reminder(context.Background()); err != nil {
		t.Fatalf("Reminder error: %v", err)
	}
	if _, err := h.settings.UpdateReminder(context.Background(), s, "test"); err != nil {
		t.Fatalf("UpdateReminder error: %v", err)
	}

	rep := h.run(t, reminder.RunOptions{})
	if rep.Skipped != "disabled" || len(h.gw.Sent()) != 0 {
		t.Fatalf("expected disabled run, got %+v", rep)
	}
}

func TestRun_WorkingHoursEnforcedOnlyWhenAsked(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.customerWithPayment("Sara", "0501234567", 7)
	friday := time.Date(2026, 3, 13, 10, 0, 0, 0, riyadh)
	h.job.WithClock(func() time.Time { return friday })

	rep := h.run(t, reminder.RunOptions{EnforceWorkingHours: true})
	if rep.Skipped != "outside_working_hours" || len(h.gw.Sent()) != 0 {
		t.Fatalf("expected skipped run, got %+v", rep)
	}
}

func TestRun_DelaysBetweenSends(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.customerWithPayment("Sara", "0501234567", 7)
	h.customerWithPayment("Omar", "0551234567", 14)
	h.customerWithPayment("Lina", "0561234567", 1)

	rep := h.run(t, reminder.RunOptions{})
	if got := rep.PerType[reminder.TypePaymentReminder].Sent; got != 3 {
		t.Fatalf("expected 3 sent, got %d", got)
	}
	if len(h.slept) != 2 || h.slept[0] != 2*time.Second {
		t.Fatalf("expected 2 delays of 2s, got %v", h.slept)
	}
}
