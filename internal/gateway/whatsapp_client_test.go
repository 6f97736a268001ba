package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type capturedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   sendRequest
}

func newCapturingServer(t *testing.T, status int, reply string) (*httptest.Server, *capturedRequest) {
	t.Helper()

	var captured capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Method = r.Method
		captured.Path = r.URL.Path
		captured.Auth = r.Header.Get("Authorization")

		b, _ := ioReadAll(r)
		if err := json.Unmarshal(b, &captured.Body); err != nil {
			t.Errorf("failed to decode request json: %v body=%q", err, string(b))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestWhatsAppClient_SendText_Success(t *testing.T) {
	t.Parallel()

	srv, captured := newCapturingServer(t, http.StatusOK, `{"messaging_product":"whatsapp","messages":[{"id":"wamid.abc"}]}`)
	c := NewWhatsAppClient(srv.URL+"/v19.0", "12345", "tok")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	id, err := c.SendText(ctx, "966501234567", "hello")
	if err != nil {
		t.Fatalf("SendText() error: %v", err)
	}
	if id != "wamid.abc" {
		t.Fatalf("expected message id %q, got %q", "wamid.abc", id)
	}

	if captured.Method != http.MethodPost {
		t.Fatalf("expected POST, got %q", captured.Method)
	}
	if captured.Path != "/v19.0/12345/messages" {
		t.Fatalf("unexpected path %q", captured.Path)
	}
	if captured.Auth != "Bearer tok" {
		t.Fatalf("unexpected Authorization header %q", captured.Auth)
	}
	if captured.Body.Type != "text" || captured.Body.Text == nil || captured.Body.Text.Body != "hello" {
		t.Fatalf("unexpected request body %+v", captured.Body)
	}
	if captured.Body.To != "966501234567" || captured.Body.MessagingProduct != "whatsapp" {
		t.Fatalf("unexpected recipient fields %+v", captured.Body)
	}
}

func TestWhatsAppClient_SendTemplate_Params(t *testing.T) {
	t.Parallel()

	srv, captured := newCapturingServer(t, http.StatusOK, `{"messages":[{"id":"wamid.t"}]}`)
	c := NewWhatsAppClient(srv.URL, "1", "tok")

	_, err := c.SendTemplate(context.Background(), "966501234567", TemplateRef{
		Name:     "payment_reminder_en",
		Language: "en",
		Params:   []string{"Sara", "1,500.00 SAR"},
	})
	if err != nil {
		t.Fatalf("SendTemplate() error: %v", err)
	}

	tpl := captured.Body.Template
	if tpl == nil {
		t.Fatalf("expected template payload, got %+v", captured.Body)
	}
	if tpl.Name != "payment_reminder_en" || tpl.Language.Code != "en" {
		t.Fatalf("unexpected template %+v", tpl)
	}
	if len(tpl.Components) != 1 || len(tpl.Components[0].Parameters) != 2 {
		t.Fatalf("expected one body component with 2 params, got %+v", tpl.Components)
	}
	if tpl.Components[0].Parameters[1].Text != "1,500.00 SAR" {
		t.Fatalf("unexpected param order %+v", tpl.Components[0].Parameters)
	}
}

func TestWhatsAppClient_SendInteractive_List(t *testing.T) {
	t.Parallel()

	srv, captured := newCapturingServer(t, http.StatusOK, `{"messages":[{"id":"wamid.l"}]}`)
	c := NewWhatsAppClient(srv.URL, "1", "tok")

	_, err := c.SendInteractive(context.Background(), "966501234567", Interactive{
		Kind:       InteractiveList,
		Body:       "Choose",
		ButtonText: "Menu",
		Options:    []Option{{ID: "maintenance", Title: "Maintenance"}, {ID: "status", Title: "Status"}},
	})
	if err != nil {
		t.Fatalf("SendInteractive() error: %v", err)
	}

	in := captured.Body.Interactive
	if in == nil || in.Type != "list" {
		t.Fatalf("expected list interactive, got %+v", captured.Body)
	}
	if in.Action.Button != "Menu" || len(in.Action.Sections) != 1 || len(in.Action.Sections[0].Rows) != 2 {
		t.Fatalf("unexpected list action %+v", in.Action)
	}
}

func TestWhatsAppClient_ClassifiesErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"expired token", http.StatusUnauthorized, `{"error":{"message":"Invalid OAuth access token","code":190}}`, ErrAuth},
		{"missing template", http.StatusBadRequest, `{"error":{"message":"Template name does not exist","code":132001}}`, ErrTemplate},
		{"throughput", http.StatusBadRequest, `{"error":{"message":"Rate limit hit","code":130429}}`, ErrRateLimit},
		{"too many requests", http.StatusTooManyRequests, `not json`, ErrRateLimit},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewWhatsAppClient(srv.URL, "1", "tok")
			_, err := c.SendText(context.Background(), "966501234567", "hi")
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestWhatsAppClient_ServerError_IsGenericAndRetryable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	c := NewWhatsAppClient(srv.URL, "1", "tok")
	_, err := c.SendText(context.Background(), "966501234567", "hi")
	if err == nil {
		t.Fatalf("expected error, got nil")
	}

	var ge *Error
	if !errors.As(err, &ge) || ge.Kind != KindGeneric || ge.Status != http.StatusBadGateway {
		t.Fatalf("expected generic gateway error with status 502, got %v", err)
	}
	if !strings.Contains(err.Error(), `body="upstream down"`) {
		t.Fatalf("expected error to include body, got: %v", err)
	}
	if !Retryable(err) {
		t.Fatalf("expected 502 to be retryable")
	}
}

func TestWhatsAppClient_InvalidRecipient_IsNotRetryable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Recipient phone number not in allowed list","code":131026}}`))
	}))
	defer srv.Close()

	c := NewWhatsAppClient(srv.URL, "1", "tok")
	_, err := c.SendText(context.Background(), "966501234567", "hi")

	var ge *Error
	if !errors.As(err, &ge) || ge.Kind != KindGeneric || ge.Code != 131026 {
		t.Fatalf("expected generic gateway error with code 131026, got %v", err)
	}
	if Retryable(err) {
		t.Fatalf("expected 400 rejection to be permanent")
	}
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transport", errors.New("connection reset"), true},
		{"canceled", context.Canceled, false},
		{"rate limit", &Error{Kind: KindRateLimit, Status: http.StatusTooManyRequests}, true},
		{"server error", &Error{Kind: KindGeneric, Status: http.StatusServiceUnavailable}, true},
		{"request timeout", &Error{Kind: KindGeneric, Status: http.StatusRequestTimeout}, true},
		{"bad request", &Error{Kind: KindGeneric, Status: http.StatusBadRequest, Code: 100}, false},
		{"not found", &Error{Kind: KindGeneric, Status: http.StatusNotFound}, false},
		{"auth", &Error{Kind: KindAuth, Status: http.StatusUnauthorized}, false},
		{"template", &Error{Kind: KindTemplate, Status: http.StatusBadRequest}, false},
	}

	for _, tt := range tests {
		if got := Retryable(tt.err); got != tt.want {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestWhatsAppClient_MissingMessageID_ReturnsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"messages":[]}`))
	}))
	defer srv.Close()

	c := NewWhatsAppClient(srv.URL, "1", "tok")

	_, err := c.SendText(context.Background(), "966501234567", "hi")
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "missing message id") {
		t.Fatalf("expected missing message id error, got: %v", err)
	}
}

func TestWhatsAppClient_ContextCanceled(t *testing.T) {
	t.Parallel()

	// Server that intentionally blocks longer than our context deadline.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"messages":[{"id":"x"}]}`))
	}))
	defer srv.Close()

	c := NewWhatsAppClient(srv.URL, "1", "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.SendText(ctx, "966501234567", "hi")
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "context") &&
		!strings.Contains(strings.ToLower(err.Error()), "deadline") {
		t.Fatalf("expected context/deadline error, got: %v", err)
	}
}

func ioReadAll(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}
