package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LeventeLantos/rental-messaging/internal/delivery"
	"github.com/LeventeLantos/rental-messaging/internal/gateway"
	"github.com/LeventeLantos/rental-messaging/internal/model"
	"github.com/LeventeLantos/rental-messaging/internal/phone"
)

type SettingsSource interface {
	Reminder(ctx context.Context) (model.ReminderSettings, error)
	Contact(ctx context.Context) (model.ContactSettings, error)
}

type Sender interface {
	SendWithRetry(ctx context.Context, req delivery.Request, p delivery.RetryPolicy) (delivery.Result, int)
	RecordFailure(ctx context.Context, req delivery.Request, cause error) error
}

type Counts struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

type Report struct {
	StartedAt  time.Time         `json:"startedAt"`
	FinishedAt time.Time         `json:"finishedAt"`
	Candidates int               `json:"candidates"`
	PerType    map[string]Counts `json:"perType"`
	Errors     []string          `json:"errors"`
	// Skipped explains a run that sent nothing by choice ("disabled",
	// "outside_working_hours").
	Skipped string `json:"skipped,omitempty"`
}

func (r *Report) add(messageType string, f func(c *Counts)) {
	c := r.PerType[messageType]
	f(&c)
	r.PerType[messageType] = c
}

func (r *Report) fail(messageType string, cand Candidate, err error) {
	r.add(messageType, func(c *Counts) { c.Failed++ })
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", cand, err))
}

type RunOptions struct {
	// EnforceWorkingHours makes the run a no-op outside working days/hours.
	EnforceWorkingHours bool
}

// Job is one reminder pass over every candidate, run sequentially.
type Job struct {
	settings   SettingsSource
	finder     *Finder
	dedup      *DedupGuard
	composer   *Composer
	sender     Sender
	normalizer *phone.Normalizer
	loc        *time.Location

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewJob(
	settings SettingsSource,
	finder *Finder,
	dedup *DedupGuard,
	composer *Composer,
	sender Sender,
	normalizer *phone.Normalizer,
	loc *time.Location,
) *Job {
	return &Job{
		settings:   settings,
		finder:     finder,
		dedup:      dedup,
		composer:   composer,
		sender:     sender,
		normalizer: normalizer,
		loc:        loc,
		now:        time.Now,
		sleep:      delivery.Sleep,
	}
}

func (j *Job) WithClock(now func() time.Time) *Job {
	j.now = now
	return j
}

func (j *Job) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Job {
	j.sleep = sleep
	return j
}

// Run delivers every pending reminder. Per-candidate failures are recorded
// in the report; a returned error means the run itself was aborted and the
// report holds what happened before that.
func (j *Job) Run(ctx context.Context, opts RunOptions) (Report, error) {
	rep := Report{StartedAt: j.now(), PerType: map[string]Counts{}, Errors: []string{}}

	settings, err := j.settings.Reminder(ctx)
	if err != nil {
		return j.finish(rep), fmt.Errorf("load reminder settings: %w", err)
	}
	contact, err := j.settings.Contact(ctx)
	if err != nil {
		return j.finish(rep), fmt.Errorf("load contact settings: %w", err)
	}

	if !settings.Enabled {
		rep.Skipped = "disabled"
		return j.finish(rep), nil
	}
	if opts.EnforceWorkingHours && !NewWorkingWindow(settings, j.loc).Open(j.now()) {
		slog.Info("reminder run outside working hours, skipping")
		rep.Skipped = "outside_working_hours"
		return j.finish(rep), nil
	}

	candidates, err := j.finder.Find(ctx, settings)
	rep.Candidates = len(candidates)
	if err != nil {
		return j.finish(rep), fmt.Errorf("find candidates: %w", err)
	}
	slog.Info("reminder run started", "candidates", len(candidates))

	policy := delivery.RetryPolicy{Attempts: settings.MaxRetries, Delay: settings.MessageDelay, Sleep: j.sleep}
	sentBefore := false
	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return j.finish(rep), err
		}

		typ := cand.Type()
		cust := cand.Customer()
		if cust.Phone == "" {
			slog.Info("candidate has no phone, skipping", "candidate", cand.String(), "type", typ)
			rep.add(typ, func(c *Counts) { c.Skipped++ })
			continue
		}

		to, err := j.normalizer.Normalize(cust.Phone)
		if err != nil {
			slog.Warn("candidate phone rejected", "candidate", cand.String(), "type", typ, "err", err)
			rep.fail(typ, cand, err)
			continue
		}

		already, err := j.dedup.AlreadySentToday(ctx, to, typ)
		if err != nil {
			// Sending twice is preferred over not sending at all.
			slog.Warn("dedup check failed, sending anyway", "phone", to, "type", typ, "err", err)
		}
		if already {
			slog.Debug("already notified today", "phone", to, "type", typ)
			rep.add(typ, func(c *Counts) { c.Skipped++ })
			continue
		}

		if sentBefore {
			if err := j.sleep(ctx, settings.MessageDelay); err != nil {
				return j.finish(rep), err
			}
		}
		sentBefore = true

		lang := cust.Language
		if _, ok := model.ParseLanguage(string(lang)); !ok {
			lang = settings.DefaultLanguage
		}
		req := delivery.Request{
			To:      to,
			Message: j.composer.Compose(cand, contact, lang, settings.UseTemplates),
			Type:    typ,
			Subject: cand.Subject(),
		}
		if cust.ID != 0 {
			id := cust.ID
			req.CustomerID = &id
		}

		res, attempts := j.sender.SendWithRetry(ctx, req, policy)
		if res.Success {
			slog.Info("reminder sent", "phone", to, "type", typ, "candidate", cand.String(),
				"message_id", res.MessageID, "attempt", attempts, "fallback", res.UsedFallback)
			rep.add(typ, func(c *Counts) { c.Sent++ })
			continue
		}

		slog.Error("reminder failed", "phone", to, "type", typ, "candidate", cand.String(), "attempt", attempts, "err", res.Err)
		rep.fail(typ, cand, res.Err)
		if err := j.sender.RecordFailure(ctx, req, res.Err); err != nil {
			slog.Error("record failed delivery", "phone", to, "type", typ, "err", err)
		}
		if errors.Is(res.Err, gateway.ErrAuth) {
			return j.finish(rep), fmt.Errorf("gateway rejected credentials: %w", res.Err)
		}
	}

	slog.Info("reminder run finished", "candidates", len(candidates), "errors", len(rep.Errors))
	return j.finish(rep), nil
}

func (j *Job) finish(rep Report) Report {
	rep.FinishedAt = j.now()
	return rep
}
