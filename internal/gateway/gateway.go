// Package gateway defines the outbound messaging contract and its providers.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// TemplateRef is a pre-approved template with ordered body parameters.
type TemplateRef struct {
	Name     string
	Language string
	Params   []string
}

type InteractiveKind string

const (
	InteractiveButtons InteractiveKind = "button"
	InteractiveList    InteractiveKind = "list"
)

type Option struct {
	ID          string
	Title       string
	Description string
}

// Interactive is a structured reply: up to three buttons, or a list opened
// with ButtonText.
type Interactive struct {
	Kind       InteractiveKind
	Body       string
	ButtonText string
	Options    []Option
}

type Gateway interface {
	SendTemplate(ctx context.Context, to string, tpl TemplateRef) (messageID string, err error)
	SendText(ctx context.Context, to, body string) (messageID string, err error)
	SendInteractive(ctx context.Context, to string, msg Interactive) (messageID string, err error)
}

type Kind int

const (
	KindGeneric Kind = iota
	KindAuth
	KindTemplate
	KindRateLimit
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindTemplate:
		return "template"
	case KindRateLimit:
		return "rate_limit"
	}
	return "generic"
}

var (
	ErrAuth      = errors.New("gateway auth failure")
	ErrTemplate  = errors.New("gateway template failure")
	ErrRateLimit = errors.New("gateway rate limited")
)

// Error is a failure reported by the provider.
type Error struct {
	Kind    Kind
	Status  int
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway %s error: status=%d code=%d: %s", e.Kind, e.Status, e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrAuth:
		return e.Kind == KindAuth
	case ErrTemplate:
		return e.Kind == KindTemplate
	case ErrRateLimit:
		return e.Kind == KindRateLimit
	}
	return false
}

// Retryable reports whether another attempt may succeed. Rate limits,
// timeouts and 5xx replies are transient, as are transport errors that are
// not provider replies. Other 4xx rejections are permanent.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var ge *Error
	if errors.As(err, &ge) {
		switch ge.Kind {
		case KindRateLimit:
			return true
		case KindGeneric:
			return ge.Status >= 500 || ge.Status == http.StatusRequestTimeout
		}
		return false
	}
	return true
}

// RenderInteractiveText is the plain-text form of msg, with options numbered
// from 1 so that numeric replies can be matched.
func RenderInteractiveText(msg Interactive) string {
	var b strings.Builder
	b.WriteString(msg.Body)
	for i, o := range msg.Options {
		fmt.Fprintf(&b, "\n%d. %s", i+1, o.Title)
	}
	return b.String()
}
