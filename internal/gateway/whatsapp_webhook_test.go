package gateway

import (
	"testing"

	"github.com/LeventeLantos/rental-messaging/internal/model"
)

const sampleWebhook = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "1",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "messages": [
          {"from": "966501234567", "id": "wamid.1", "timestamp": "1760000000", "type": "text", "text": {"body": "hello"}},
          {"from": "966501234567", "id": "wamid.2", "timestamp": "1760000001", "type": "interactive",
           "interactive": {"type": "button_reply", "button_reply": {"id": "lang_ar", "title": "العربية"}}},
          {"from": "966501234567", "id": "wamid.3", "timestamp": "1760000002", "type": "interactive",
           "interactive": {"type": "list_reply", "list_reply": {"id": "maintenance", "title": "Maintenance"}}},
          {"from": "966501234567", "id": "wamid.4", "timestamp": "1760000003", "type": "image", "image": {"id": "x"}}
        ],
        "statuses": [
          {"id": "wamid.out", "status": "delivered", "timestamp": "1760000004", "recipient_id": "966501234567"},
          {"id": "wamid.out2", "status": "weird", "timestamp": "1760000004", "recipient_id": "966501234567"}
        ]
      }
    }]
  }]
}`

func TestParseWebhook(t *testing.T) {
	t.Parallel()

	b, err := ParseWebhook([]byte(sampleWebhook))
	if err != nil {
		t.Fatalf("ParseWebhook error: %v", err)
	}

	if len(b.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(b.Messages))
	}

	if r, ok := b.Messages[0].Reply.(model.TextReply); !ok || r.Body != "hello" {
		t.Fatalf("expected text reply, got %#v", b.Messages[0].Reply)
	}
	if r, ok := b.Messages[1].Reply.(model.ButtonReply); !ok || r.ID != "lang_ar" {
		t.Fatalf("expected button reply, got %#v", b.Messages[1].Reply)
	}
	if r, ok := b.Messages[2].Reply.(model.ListReply); !ok || r.ID != "maintenance" {
		t.Fatalf("expected list reply, got %#v", b.Messages[2].Reply)
	}
	if r, ok := b.Messages[3].Reply.(model.TextReply); !ok || r.Body != "" {
		t.Fatalf("expected empty text for unsupported type, got %#v", b.Messages[3].Reply)
	}
	if b.Messages[0].Timestamp.Unix() != 1760000000 {
		t.Fatalf("unexpected timestamp %v", b.Messages[0].Timestamp)
	}

	if len(b.Statuses) != 1 {
		t.Fatalf("expected 1 recognized status, got %d", len(b.Statuses))
	}
	if b.Statuses[0].ChannelMessageID != "wamid.out" || b.Statuses[0].Status != model.DeliveryDelivered {
		t.Fatalf("unexpected status %+v", b.Statuses[0])
	}
}

func TestParseWebhook_InvalidJSON(t *testing.T) {
	t.Parallel()

	if _, err := ParseWebhook([]byte("nope")); err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestVerifyChallenge(t *testing.T) {
	t.Parallel()

	if got, ok := VerifyChallenge("subscribe", "secret", "123", "secret"); !ok || got != "123" {
		t.Fatalf("expected challenge echoed, got %q ok=%v", got, ok)
	}
	if _, ok := VerifyChallenge("subscribe", "wrong", "123", "secret"); ok {
		t.Fatalf("expected mismatch to be rejected")
	}
	if _, ok := VerifyChallenge("unsubscribe", "secret", "123", "secret"); ok {
		t.Fatalf("expected wrong mode to be rejected")
	}
	if _, ok := VerifyChallenge("subscribe", "", "123", ""); ok {
		t.Fatalf("expected empty secret to be rejected")
	}
}
