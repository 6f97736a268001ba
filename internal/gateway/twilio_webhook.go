package gateway

import (
	"net/url"
	"strings"
	"time"

	twilioclient "github.com/twilio/twilio-go/client"

	"github.com/LeventeLantos/rental-messaging/internal/model"
)

var twilioStatuses = map[string]model.DeliveryStatus{
	"accepted":    model.DeliveryPending,
	"queued":      model.DeliveryPending,
	"sending":     model.DeliveryPending,
	"sent":        model.DeliverySent,
	"delivered":   model.DeliveryDelivered,
	"read":        model.DeliveryRead,
	"failed":      model.DeliveryFailed,
	"undelivered": model.DeliveryFailed,
}

// ParseTwilioForm decodes a Twilio messaging webhook. Inbound messages carry
// a Body or ButtonPayload; status callbacks carry MessageStatus.
func ParseTwilioForm(form url.Values) WebhookBatch {
	var out WebhookBatch
	sid := form.Get("MessageSid")
	if sid == "" {
		return out
	}

	if status := form.Get("MessageStatus"); status != "" && form.Get("Body") == "" && form.Get("ButtonPayload") == "" {
		if st, ok := twilioStatuses[strings.ToLower(status)]; ok {
			out.Statuses = append(out.Statuses, model.StatusUpdate{
				ChannelMessageID: sid,
				Recipient:        stripChannel(form.Get("To")),
				Status:           st,
				Timestamp:        time.Now().UTC(),
			})
		}
		return out
	}

	from := stripChannel(form.Get("From"))
	if from == "" {
		return out
	}
	var reply model.Reply = model.TextReply{Body: form.Get("Body")}
	if p := form.Get("ButtonPayload"); p != "" {
		reply = model.ButtonReply{ID: p, Title: form.Get("ButtonText")}
	}
	out.Messages = append(out.Messages, model.Inbound{
		ID:        sid,
		From:      from,
		Timestamp: time.Now().UTC(),
		Reply:     reply,
	})
	return out
}

func stripChannel(addr string) string {
	return strings.TrimPrefix(strings.TrimPrefix(addr, "whatsapp:"), "+")
}

// TwilioSignature checks X-Twilio-Signature against the public webhook URL.
type TwilioSignature struct {
	validator twilioclient.RequestValidator
	url       string
}

func NewTwilioSignature(authToken, publicURL string) *TwilioSignature {
	return &TwilioSignature{validator: twilioclient.NewRequestValidator(authToken), url: publicURL}
}

func (s *TwilioSignature) Valid(form url.Values, signature string) bool {
	params := make(map[string]string, len(form))
	for k := range form {
		params[k] = form.Get(k)
	}
	return s.validator.Validate(s.url, params, signature)
}
