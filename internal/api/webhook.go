package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/LeventeLantos/rental-messaging/internal/gateway"
	"github.com/LeventeLantos/rental-messaging/internal/repo"
)

const maxWebhookBody = 1 << 20

// VerifyWebhook answers the WhatsApp subscription handshake.
func (h *Handler) VerifyWebhook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	challenge, ok := gateway.VerifyChallenge(q.Get("hub.mode"), q.Get("hub.verify_token"), q.Get("hub.challenge"), h.VerifyToken)
	if !ok {
		slog.Warn("webhook verification rejected", "mode", q.Get("hub.mode"))
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(challenge))
}

// ReceiveWebhook handles a WhatsApp Cloud API delivery. Once the body
// decodes the answer is always 200; failures are logged so the provider
// does not redeliver.
func (h *Handler) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "body too large", http.StatusRequestEntityTooLarge)
		return
	}
	batch, err := gateway.ParseWebhook(body)
	if err != nil {
		slog.Warn("malformed webhook", "err", err)
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "malformed payload"})
		return
	}

	h.process(context.WithoutCancel(r.Context()), batch)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// ReceiveTwilioWebhook handles Twilio inbound messages and status callbacks.
func (h *Handler) ReceiveTwilioWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}
	if h.TwilioSignature != nil && !h.TwilioSignature.Valid(r.PostForm, r.Header.Get("X-Twilio-Signature")) {
		slog.Warn("twilio webhook signature rejected")
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	h.process(context.WithoutCancel(r.Context()), gateway.ParseTwilioForm(r.PostForm))
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("<Response></Response>"))
}

func (h *Handler) process(ctx context.Context, batch gateway.WebhookBatch) {
	for _, s := range batch.Statuses {
		err := h.Deliveries.UpdateStatus(ctx, s.ChannelMessageID, s.Status)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			slog.Debug("status for unknown message", "message_id", s.ChannelMessageID, "status", s.Status)
		case err != nil:
			slog.Error("update delivery status", "message_id", s.ChannelMessageID, "status", s.Status, "err", err)
		}
	}
	for _, m := range batch.Messages {
		if err := h.Inbound.Handle(ctx, m); err != nil {
			slog.Error("handle inbound message", "phone", m.From, "message_id", m.ID, "err", err)
		}
	}
}
