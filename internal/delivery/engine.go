// Package delivery sends one outbound message and records the outcome.
package delivery

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/LeventeLantos/rental-messaging/internal/gateway"
	"github.com/LeventeLantos/rental-messaging/internal/model"
	"github.com/LeventeLantos/rental-messaging/internal/repo"
)

// MaxBodyRunes is the provider's limit for a free-text body.
const MaxBodyRunes = 4096

var ErrBodyTooLong = errors.New("message body too long")

// Message is either template-mode (Template set) or free-text. Body is the
// plain rendering and is what a template failure falls back to.
type Message struct {
	Template *gateway.TemplateRef
	Body     string
}

type Request struct {
	To         string
	Message    Message
	Type       string
	CustomerID *int64
	Subject    model.SubjectDetail
}

type Result struct {
	Success      bool
	MessageID    string
	UsedFallback bool
	Err          error
}

type Engine struct {
	gw   gateway.Gateway
	logs repo.DeliveryLogRepository
	now  func() time.Time
}

func NewEngine(gw gateway.Gateway, logs repo.DeliveryLogRepository) *Engine {
	return &Engine{gw: gw, logs: logs, now: time.Now}
}

// WithClock replaces the clock used for sent_at.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Send makes one delivery attempt. A template rejected by the provider is
// retried exactly once as free text. Success is persisted as a "sent" entry.
func (e *Engine) Send(ctx context.Context, req Request) Result {
	if utf8.RuneCountInString(req.Message.Body) > MaxBodyRunes {
		return Result{Err: ErrBodyTooLong}
	}

	var (
		id       string
		err      error
		fallback bool
	)
	if tpl := req.Message.Template; tpl != nil {
		id, err = e.gw.SendTemplate(ctx, req.To, *tpl)
		if errors.Is(err, gateway.ErrTemplate) {
			slog.Warn("template rejected, falling back to text",
				"phone", req.To, "type", req.Type, "template", tpl.Name, "err", err)
			fallback = true
			id, err = e.gw.SendText(ctx, req.To, req.Message.Body)
		}
	} else {
		id, err = e.gw.SendText(ctx, req.To, req.Message.Body)
	}
	if err != nil {
		return Result{UsedFallback: fallback, Err: err}
	}

	entry := e.entry(req, model.DeliverySent, fallback)
	entry.ChannelMessageID = id
	if _, lerr := e.logs.Create(ctx, entry); lerr != nil {
		// The message went out; only the dedup record is missing.
		slog.Error("persist delivery log", "phone", req.To, "type", req.Type, "message_id", id, "err", lerr)
	}
	return Result{Success: true, MessageID: id, UsedFallback: fallback}
}

// RecordFailure persists one "failed" entry for a delivery that ran out of attempts.
func (e *Engine) RecordFailure(ctx context.Context, req Request, cause error) error {
	entry := e.entry(req, model.DeliveryFailed, false)
	if cause != nil {
		entry.Error = cause.Error()
	}
	_, err := e.logs.Create(ctx, entry)
	return err
}

func (e *Engine) entry(req Request, status model.DeliveryStatus, fallback bool) model.DeliveryLogEntry {
	entry := model.DeliveryLogEntry{
		RecipientPhone: req.To,
		CustomerID:     req.CustomerID,
		MessageType:    req.Type,
		Status:         status,
		SentAt:         e.now().UTC(),
		Subject:        req.Subject,
	}
	if tpl := req.Message.Template; tpl != nil {
		entry.LanguageCode = tpl.Language
		if !fallback {
			entry.TemplateName = tpl.Name
		}
	}
	return entry
}
