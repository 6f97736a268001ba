package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/LeventeLantos/rental-messaging/internal/model"
	"github.com/LeventeLantos/rental-messaging/internal/phone"
	"github.com/LeventeLantos/rental-messaging/internal/reminder"
	"github.com/LeventeLantos/rental-messaging/internal/repo"
	"github.com/LeventeLantos/rental-messaging/internal/scheduler"
)

type ReminderRunner interface {
	Run(ctx context.Context, opts reminder.RunOptions) (reminder.Report, error)
}

type InboundHandler interface {
	Handle(ctx context.Context, in model.Inbound) error
}

type SettingsService interface {
	Reminder(ctx context.Context) (model.ReminderSettings, error)
	UpdateReminder(ctx context.Context, rs model.ReminderSettings, changedBy string) (model.ReminderSettings, error)
}

// SignatureChecker validates a form-encoded provider callback.
type SignatureChecker interface {
	Valid(form url.Values, signature string) bool
}

type Deps struct {
	Scheduler   *scheduler.Scheduler
	Reminders   ReminderRunner
	Inbound     InboundHandler
	Deliveries  repo.DeliveryLogRepository
	Settings    SettingsService
	Normalizer  *phone.Normalizer
	VerifyToken string
	// TwilioSignature is optional; when nil Twilio callbacks are not verified.
	TwilioSignature SignatureChecker
}

type Handler struct {
	Deps
}

func NewHandler(d Deps) *Handler {
	return &Handler{Deps: d}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) schedulerState() map[string]any {
	out := map[string]any{"running": h.Scheduler.IsRunning(), "spec": h.Scheduler.Spec()}
	if next := h.Scheduler.Next(); !next.IsZero() {
		out["next"] = next
	}
	return out
}

func (h *Handler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.schedulerState())
}

func (h *Handler) SchedulerStart(w http.ResponseWriter, r *http.Request) {
	h.Scheduler.Start()
	writeJSON(w, http.StatusOK, h.schedulerState())
}

func (h *Handler) SchedulerStop(w http.ResponseWriter, r *http.Request) {
	h.Scheduler.Stop()
	writeJSON(w, http.StatusOK, h.schedulerState())
}

// RunReminders runs the job now, ignoring working hours. The run is not
// canceled when the client disconnects.
func (h *Handler) RunReminders(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Reminders.Run(context.WithoutCancel(r.Context()), reminder.RunOptions{})
	if err != nil {
		slog.Error("manual reminder run failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error(), "report": rep})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

type deliveryView struct {
	ID               int64               `json:"id"`
	RecipientPhone   string              `json:"recipientPhone"`
	CustomerID       *int64              `json:"customerId,omitempty"`
	MessageType      string              `json:"messageType"`
	TemplateName     string              `json:"templateName,omitempty"`
	LanguageCode     string              `json:"languageCode,omitempty"`
	Status           string              `json:"status"`
	ChannelMessageID string              `json:"channelMessageId,omitempty"`
	Error            string              `json:"error,omitempty"`
	SentAt           time.Time           `json:"sentAt"`
	Subject          model.SubjectDetail `json:"subject,omitempty"`
}

func (h *Handler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	offset := parseInt(r.URL.Query().Get("offset"), 0)

	recipient := r.URL.Query().Get("phone")
	if recipient != "" {
		p, err := h.Normalizer.Normalize(recipient)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		recipient = p
	}

	items, err := h.Deliveries.List(r.Context(), recipient, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]deliveryView, 0, len(items))
	for _, e := range items {
		out = append(out, deliveryView{
			ID:               e.ID,
			RecipientPhone:   e.RecipientPhone,
			CustomerID:       e.CustomerID,
			MessageType:      e.MessageType,
			TemplateName:     e.TemplateName,
			LanguageCode:     e.LanguageCode,
			Status:           string(e.Status),
			ChannelMessageID: e.ChannelMessageID,
			Error:            e.Error,
			SentAt:           e.SentAt,
			Subject:          e.Subject,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handler) GetReminderSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.Settings.Reminder(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// PutReminderSettings applies the body on top of the current settings, so
// omitted fields keep their values.
func (h *Handler) PutReminderSettings(w http.ResponseWriter, r *http.Request) {
	current, err := h.Settings.Reminder(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&current); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	changedBy := r.Header.Get("X-Changed-By")
	if changedBy == "" {
		changedBy = "api"
	}
	updated, err := h.Settings.UpdateReminder(r.Context(), current, changedBy)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func parseInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
