package gateway

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/LeventeLantos/rental-messaging/internal/model"
)

type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Field string       `json:"field"`
			Value webhookValue `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type webhookValue struct {
	Messages []webhookMessage `json:"messages"`
	Statuses []webhookStatus  `json:"statuses"`
}

type webhookMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text"`
	Interactive *struct {
		Type        string   `json:"type"`
		ButtonReply *waReply `json:"button_reply"`
		ListReply   *waReply `json:"list_reply"`
	} `json:"interactive"`
	Button *struct {
		Payload string `json:"payload"`
		Text    string `json:"text"`
	} `json:"button"`
}

type webhookStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
}

// WebhookBatch is everything one webhook delivery carried.
type WebhookBatch struct {
	Messages []model.Inbound
	Statuses []model.StatusUpdate
}

// ParseWebhook decodes a WhatsApp Cloud API webhook body. Message types
// other than text and replies are surfaced as empty text so the
// conversation can still answer.
func ParseWebhook(body []byte) (WebhookBatch, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return WebhookBatch{}, fmt.Errorf("decode webhook: %w", err)
	}

	var out WebhookBatch
	for _, e := range p.Entry {
		for _, ch := range e.Changes {
			for _, m := range ch.Value.Messages {
				if m.ID == "" || m.From == "" {
					continue
				}
				out.Messages = append(out.Messages, model.Inbound{
					ID:        m.ID,
					From:      m.From,
					Timestamp: parseUnix(m.Timestamp),
					Reply:     replyOf(m),
				})
			}
			for _, s := range ch.Value.Statuses {
				st, ok := model.ParseDeliveryStatus(s.Status)
				if !ok || s.ID == "" {
					continue
				}
				out.Statuses = append(out.Statuses, model.StatusUpdate{
					ChannelMessageID: s.ID,
					Recipient:        s.RecipientID,
					Status:           st,
					Timestamp:        parseUnix(s.Timestamp),
				})
			}
		}
	}
	return out, nil
}

func replyOf(m webhookMessage) model.Reply {
	switch m.Type {
	case "text":
		if m.Text != nil {
			return model.TextReply{Body: m.Text.Body}
		}
	case "interactive":
		if m.Interactive == nil {
			break
		}
		if r := m.Interactive.ButtonReply; r != nil {
			return model.ButtonReply{ID: r.ID, Title: r.Title}
		}
		if r := m.Interactive.ListReply; r != nil {
			return model.ListReply{ID: r.ID, Title: r.Title}
		}
	case "button":
		if m.Button != nil {
			return model.ButtonReply{ID: m.Button.Payload, Title: m.Button.Text}
		}
	}
	return model.TextReply{}
}

func parseUnix(raw string) time.Time {
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// VerifyChallenge answers the subscription handshake. The challenge is
// returned only for mode "subscribe" with the configured token.
func VerifyChallenge(mode, token, challenge, secret string) (string, bool) {
	if mode != "subscribe" || secret == "" {
		return "", false
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		return "", false
	}
	return challenge, true
}
