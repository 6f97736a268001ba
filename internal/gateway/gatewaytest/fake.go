// Package gatewaytest provides a recording gateway for tests.
package gatewaytest

import (
	"context"
	"fmt"
	"sync"

	"github.com/LeventeLantos/rental-messaging/internal/gateway"
)

type Sent struct {
	Kind        string // "template", "text" or "interactive"
	To          string
	Template    gateway.TemplateRef
	Body        string
	Interactive gateway.Interactive
}

// Fake records every send. The Err funcs, when set, decide per call whether
// a send fails; n counts calls of that kind starting at 1.
type Fake struct {
	mu   sync.Mutex
	sent []Sent
	seq  int

	TemplateErr    func(n int) error
	TextErr        func(n int) error
	InteractiveErr func(n int) error

	templateCalls    int
	textCalls        int
	interactiveCalls int
}

var _ gateway.Gateway = (*Fake)(nil)

func (f *Fake) SendTemplate(ctx context.Context, to string, tpl gateway.TemplateRef) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.templateCalls++
	if f.TemplateErr != nil {
		if err := f.TemplateErr(f.templateCalls); err != nil {
			return "", err
		}
	}
	f.sent = append(f.sent, Sent{Kind: "template", To: to, Template: tpl})
	return f.nextID(), nil
}

func (f *Fake) SendText(ctx context.Context, to, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.textCalls++
	if f.TextErr != nil {
		if err := f.TextErr(f.textCalls); err != nil {
			return "", err
		}
	}
	f.sent = append(f.sent, Sent{Kind: "text", To: to, Body: body})
	return f.nextID(), nil
}

func (f *Fake) SendInteractive(ctx context.Context, to string, msg gateway.Interactive) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.interactiveCalls++
	if f.InteractiveErr != nil {
		if err := f.InteractiveErr(f.interactiveCalls); err != nil {
			return "", err
		}
	}
	f.sent = append(f.sent, Sent{Kind: "interactive", To: to, Body: msg.Body, Interactive: msg})
	return f.nextID(), nil
}

func (f *Fake) nextID() string {
	f.seq++
	return fmt.Sprintf("wamid.%d", f.seq)
}

// Sent returns a copy of the successful sends in order.
func (f *Fake) Sent() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Sent, len(f.sent))
	copy(out, f.sent)
	return out
}

// Calls is the number of send attempts of every kind, failed ones included.
func (f *Fake) Calls() (template, text, interactive int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.templateCalls, f.textCalls, f.interactiveCalls
}

func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
	f.templateCalls, f.textCalls, f.interactiveCalls = 0, 0, 0
}

// Always returns an Err func failing every call with err.
func Always(err error) func(int) error {
	return func(int) error { return err }
}

// FirstN returns an Err func failing the first n calls with err.
func FirstN(n int, err error) func(int) error {
	return func(call int) error {
		if call <= n {
			return err
		}
		return nil
	}
}
