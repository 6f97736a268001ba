package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	twilio "github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// MessageCreator is the part of the Twilio REST API the client uses.
type MessageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioClient sends WhatsApp messages through Twilio. Templates are
// Twilio Content resources looked up by "name:language".
type TwilioClient struct {
	api         MessageCreator
	from        string
	contentSIDs map[string]string
}

func NewTwilioClient(accountSID, authToken, from string, contentSIDs map[string]string) *TwilioClient {
	rc := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return NewTwilioClientWithAPI(rc.Api, from, contentSIDs)
}

func NewTwilioClientWithAPI(api MessageCreator, from string, contentSIDs map[string]string) *TwilioClient {
	if !strings.HasPrefix(from, "whatsapp:") {
		from = "whatsapp:" + from
	}
	return &TwilioClient{api: api, from: from, contentSIDs: contentSIDs}
}

// ParseContentSIDs parses "name:lang=HX...,name2:lang=HX..." into a lookup map.
func ParseContentSIDs(raw string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" || v == "" || !strings.Contains(k, ":") {
			return nil, fmt.Errorf("invalid content sid mapping %q", pair)
		}
		out[k] = v
	}
	return out, nil
}

func (c *TwilioClient) to(phone string) string {
	return "whatsapp:+" + strings.TrimPrefix(phone, "+")
}

func (c *TwilioClient) SendText(ctx context.Context, to, body string) (string, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(c.to(to))
	params.SetFrom(c.from)
	params.SetBody(body)
	return c.create(ctx, params)
}

func (c *TwilioClient) SendTemplate(ctx context.Context, to string, tpl TemplateRef) (string, error) {
	sid, ok := c.contentSIDs[tpl.Name+":"+tpl.Language]
	if !ok {
		return "", &Error{
			Kind:    KindTemplate,
			Message: fmt.Sprintf("no content sid configured for %s:%s", tpl.Name, tpl.Language),
		}
	}

	vars := make(map[string]string, len(tpl.Params))
	for i, p := range tpl.Params {
		vars[strconv.Itoa(i+1)] = p
	}
	b, err := json.Marshal(vars)
	if err != nil {
		return "", err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(c.to(to))
	params.SetFrom(c.from)
	params.SetContentSid(sid)
	params.SetContentVariables(string(b))
	return c.create(ctx, params)
}

// SendInteractive degrades to numbered text; Twilio only supports
// interactive messages through pre-registered content.
func (c *TwilioClient) SendInteractive(ctx context.Context, to string, msg Interactive) (string, error) {
	return c.SendText(ctx, to, RenderInteractiveText(msg))
}

func (c *TwilioClient) create(ctx context.Context, params *twilioApi.CreateMessageParams) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	resp, err := c.api.CreateMessage(params)
	if err != nil {
		return "", classifyTwilio(err)
	}
	if resp == nil || resp.Sid == nil || *resp.Sid == "" {
		return "", errors.New("missing message sid in twilio response")
	}
	return *resp.Sid, nil
}

func classifyTwilio(err error) error {
	var restErr *twilioclient.TwilioRestError
	if !errors.As(err, &restErr) {
		return err
	}

	e := &Error{Status: restErr.Status, Code: restErr.Code, Message: restErr.Message}
	switch {
	case restErr.Status == http.StatusUnauthorized || restErr.Code == 20003:
		e.Kind = KindAuth
	case restErr.Status == http.StatusTooManyRequests || restErr.Code == 20429 || restErr.Code == 63018:
		e.Kind = KindRateLimit
	case restErr.Code == 21655 || restErr.Code == 21656 || restErr.Code == 63005:
		e.Kind = KindTemplate
	default:
		e.Kind = KindGeneric
	}
	return e
}
