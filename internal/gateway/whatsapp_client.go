package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// WhatsAppClient talks to the WhatsApp Cloud API.
type WhatsAppClient struct {
	url    string
	token  string
	client *http.Client
}

func NewWhatsAppClient(baseURL, phoneNumberID, token string) *WhatsAppClient {
	return &WhatsAppClient{
		url:   strings.TrimRight(baseURL, "/") + "/" + phoneNumberID + "/messages",
		token: token,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type waText struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type waParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type waComponent struct {
	Type       string        `json:"type"`
	Parameters []waParameter `json:"parameters"`
}

type waLanguage struct {
	Code string `json:"code"`
}

type waTemplate struct {
	Name       string        `json:"name"`
	Language   waLanguage    `json:"language"`
	Components []waComponent `json:"components,omitempty"`
}

type waReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type waButton struct {
	Type  string  `json:"type"`
	Reply waReply `json:"reply"`
}

type waRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type waSection struct {
	Title string  `json:"title,omitempty"`
	Rows  []waRow `json:"rows"`
}

type waAction struct {
	Button   string      `json:"button,omitempty"`
	Buttons  []waButton  `json:"buttons,omitempty"`
	Sections []waSection `json:"sections,omitempty"`
}

type waBody struct {
	Text string `json:"text"`
}

type waInteractive struct {
	Type   string   `json:"type"`
	Body   waBody   `json:"body"`
	Action waAction `json:"action"`
}

type sendRequest struct {
	MessagingProduct string         `json:"messaging_product"`
	RecipientType    string         `json:"recipient_type"`
	To               string         `json:"to"`
	Type             string         `json:"type"`
	Text             *waText        `json:"text,omitempty"`
	Template         *waTemplate    `json:"template,omitempty"`
	Interactive      *waInteractive `json:"interactive,omitempty"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type errorResponse struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
	} `json:"error"`
}

func newRequest(to, typ string) sendRequest {
	return sendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             typ,
	}
}

func (c *WhatsAppClient) SendText(ctx context.Context, to, body string) (string, error) {
	req := newRequest(to, "text")
	req.Text = &waText{Body: body}
	return c.send(ctx, req)
}

func (c *WhatsAppClient) SendTemplate(ctx context.Context, to string, tpl TemplateRef) (string, error) {
	t := &waTemplate{Name: tpl.Name, Language: waLanguage{Code: tpl.Language}}
	if len(tpl.Params) > 0 {
		params := make([]waParameter, 0, len(tpl.Params))
		for _, p := range tpl.Params {
			params = append(params, waParameter{Type: "text", Text: p})
		}
		t.Components = []waComponent{{Type: "body", Parameters: params}}
	}

	req := newRequest(to, "template")
	req.Template = t
	return c.send(ctx, req)
}

func (c *WhatsAppClient) SendInteractive(ctx context.Context, to string, msg Interactive) (string, error) {
	in := &waInteractive{Type: string(msg.Kind), Body: waBody{Text: msg.Body}}
	switch msg.Kind {
	case InteractiveButtons:
		for _, o := range msg.Options {
			in.Action.Buttons = append(in.Action.Buttons, waButton{
				Type:  "reply",
				Reply: waReply{ID: o.ID, Title: o.Title},
			})
		}
	case InteractiveList:
		rows := make([]waRow, 0, len(msg.Options))
		for _, o := range msg.Options {
			rows = append(rows, waRow{ID: o.ID, Title: o.Title, Description: o.Description})
		}
		in.Action.Button = msg.ButtonText
		in.Action.Sections = []waSection{{Rows: rows}}
	default:
		return "", fmt.Errorf("unknown interactive kind %q", msg.Kind)
	}

	req := newRequest(to, "interactive")
	req.Interactive = in
	return c.send(ctx, req)
}

func (c *WhatsAppClient) send(ctx context.Context, payload sendRequest) (string, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", classifyWhatsApp(resp.StatusCode, body)
	}

	var sr sendResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return "", fmt.Errorf("failed to decode json: %w body=%q", err, string(body))
	}
	if len(sr.Messages) == 0 || sr.Messages[0].ID == "" {
		return "", fmt.Errorf("missing message id in response body=%q", string(body))
	}
	return sr.Messages[0].ID, nil
}

func classifyWhatsApp(status int, body []byte) error {
	var er errorResponse
	_ = json.Unmarshal(body, &er)

	e := &Error{
		Status:  status,
		Code:    er.Error.Code,
		Message: er.Error.Message,
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("unexpected status code: %d body=%q", status, string(body))
	}

	switch code := er.Error.Code; {
	case status == http.StatusUnauthorized || code == 190 || code == 10 || (code >= 200 && code < 300):
		e.Kind = KindAuth
	case status == http.StatusTooManyRequests || code == 4 || code == 80007 || code == 130429 || code == 131048 || code == 131056:
		e.Kind = KindRateLimit
	case code >= 132000 && code < 133000:
		e.Kind = KindTemplate
	default:
		e.Kind = KindGeneric
	}
	return e
}
