package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/LeventeLantos/rental-messaging/internal/gateway"
	"github.com/LeventeLantos/rental-messaging/internal/model"
	"github.com/LeventeLantos/rental-messaging/internal/phone"
	"github.com/LeventeLantos/rental-messaging/internal/repo"
)

// MaxCreateAttempts bounds how often a description is resubmitted after the
// record store failed to save it.
const MaxCreateAttempts = 3

type CustomerResolver interface {
	Resolve(ctx context.Context, rawPhone string, knownID int64) (model.Customer, error)
}

type ContactSource interface {
	Contact(ctx context.Context) (model.ContactSettings, error)
}

type Machine struct {
	sessions   *SessionStore
	seen       *IdempotencyFilter
	customers  CustomerResolver
	requests   repo.ServiceRequestRepository
	contact    ContactSource
	gw         gateway.Gateway
	normalizer *phone.Normalizer

	locks KeyedMutex
}

func NewMachine(
	sessions *SessionStore,
	seen *IdempotencyFilter,
	customers CustomerResolver,
	requests repo.ServiceRequestRepository,
	contact ContactSource,
	gw gateway.Gateway,
	normalizer *phone.Normalizer,
) *Machine {
	return &Machine{
		sessions:   sessions,
		seen:       seen,
		customers:  customers,
		requests:   requests,
		contact:    contact,
		gw:         gw,
		normalizer: normalizer,
	}
}

// turn is the outcome of one transition: the patch to store and what to send.
type turn struct {
	patch   model.SessionPatch
	replies []outbound
}

type outbound struct {
	text        string
	interactive *gateway.Interactive
}

func text(s string) outbound { return outbound{text: s} }

func interactive(m gateway.Interactive) outbound { return outbound{interactive: &m} }

func step(s model.Step) *model.Step { return &s }

// Handle processes one inbound event. Duplicates are dropped silently.
// Events for the same phone are handled one at a time.
func (m *Machine) Handle(ctx context.Context, in model.Inbound) error {
	from, err := m.normalizer.Normalize(in.From)
	if err != nil {
		slog.Warn("inbound sender not normalizable", "phone", in.From, "err", err)
		from = strings.TrimSpace(in.From)
	}

	dup, err := m.seen.Seen(ctx, in.ID, from)
	if err != nil {
		slog.Warn("idempotency check failed, processing anyway", "phone", from, "message_id", in.ID, "err", err)
	}
	if dup {
		slog.Debug("duplicate webhook event dropped", "phone", from, "message_id", in.ID)
		return nil
	}

	unlock := m.locks.Lock(from)
	defer unlock()

	sess, ok, err := m.sessions.Get(ctx, from)
	if err != nil {
		return err
	}
	if !ok {
		if sess, err = m.sessions.Create(ctx, from, model.PrimaryLanguage); err != nil {
			return err
		}
	}

	t := m.transition(ctx, sess, in.Reply)
	for _, r := range t.replies {
		m.send(ctx, from, r)
	}
	next, err := m.sessions.Update(ctx, from, t.patch)
	if err != nil {
		return err
	}
	slog.Info("conversation turn", "phone", from, "message_id", in.ID, "from_step", sess.Step, "step", next.Step)
	return nil
}

func (m *Machine) transition(ctx context.Context, sess model.Session, r model.Reply) turn {
	tx := textsFor(sess.Language)

	switch sess.Step {
	case model.StepGreeting:
		return turn{
			patch:   model.SessionPatch{Step: step(model.StepLanguageSelection)},
			replies: []outbound{interactive(languagePrompt)},
		}

	case model.StepLanguageSelection:
		id, ok := choice(r, languagePrompt.Options, languageKeywords)
		if !ok {
			return turn{replies: []outbound{interactive(languagePrompt)}}
		}
		lang := model.Arabic
		if id == OptionEnglish {
			lang = model.English
		}
		return turn{
			patch:   model.SessionPatch{Step: step(model.StepMainMenu), Language: &lang},
			replies: []outbound{interactive(textsFor(lang).mainMenu())},
		}

	case model.StepMainMenu:
		return m.mainMenu(ctx, sess, r, tx)

	case model.StepMaintenanceDescription:
		return m.describe(ctx, sess, r, tx, model.RequestMaintenance)

	case model.StepComplaintDescription:
		return m.describe(ctx, sess, r, tx, model.RequestComplaint)
	}

	slog.Warn("session in unknown step, resetting to menu", "phone", sess.Phone, "step", sess.Step)
	return toMenu(tx)
}

func toMenu(tx texts, before ...outbound) turn {
	return turn{
		patch:   model.SessionPatch{Step: step(model.StepMainMenu), Form: &model.Form{}},
		replies: append(before, interactive(tx.mainMenu())),
	}
}

func (m *Machine) mainMenu(ctx context.Context, sess model.Session, r model.Reply, tx texts) turn {
	id, ok := choice(r, tx.mainMenu().Options, menuKeywords)
	if !ok {
		return toMenu(tx)
	}

	switch id {
	case OptionMaintenance:
		return turn{
			patch:   model.SessionPatch{Step: step(model.StepMaintenanceDescription), Form: &model.Form{}},
			replies: []outbound{text(tx.describeMaint)},
		}
	case OptionComplaint:
		return turn{
			patch:   model.SessionPatch{Step: step(model.StepComplaintDescription), Form: &model.Form{}},
			replies: []outbound{text(tx.describeCompl)},
		}
	case OptionStatus:
		cust, err := m.customers.Resolve(ctx, sess.Phone, sess.CustomerID)
		if err != nil {
			slog.Error("resolve customer for status", "phone", sess.Phone, "err", err)
			return toMenu(tx, text(tx.contact(m.office(ctx))))
		}
		reqs, err := m.requests.ListOpen(ctx, cust.ID, sess.Phone, []model.RequestKind{model.RequestMaintenance, model.RequestComplaint})
		if err != nil {
			slog.Error("list open requests", "phone", sess.Phone, "err", err)
			return toMenu(tx, text(tx.contact(m.office(ctx))))
		}
		return toMenu(tx, text(tx.requestList(reqs)))
	case OptionSupport:
		cust, err := m.customers.Resolve(ctx, sess.Phone, sess.CustomerID)
		if err != nil {
			slog.Error("resolve customer for support", "phone", sess.Phone, "err", err)
			return toMenu(tx, text(tx.contact(m.office(ctx))))
		}
		req, err := m.createRequest(ctx, sess, cust, model.RequestSupport, tx.supportDesc)
		if err != nil {
			slog.Error("create support request", "phone", sess.Phone, "err", err)
			return toMenu(tx, text(tx.contact(m.office(ctx))))
		}
		return toMenu(tx, text(fmt.Sprintf(tx.supportCreated, req.ID)))
	}
	return toMenu(tx)
}

func (m *Machine) describe(ctx context.Context, sess model.Session, r model.Reply, tx texts, kind model.RequestKind) turn {
	tr, ok := r.(model.TextReply)
	body := strings.TrimSpace(tr.Body)
	if menuWords[strings.ToLower(body)] {
		return toMenu(tx)
	}
	if !ok || body == "" {
		return turn{replies: []outbound{text(tx.describeEmpty)}}
	}

	cust, err := m.customers.Resolve(ctx, sess.Phone, sess.CustomerID)
	if err != nil {
		slog.Error("resolve customer for request", "phone", sess.Phone, "kind", kind, "err", err)
		return toMenu(tx, text(tx.contact(m.office(ctx))))
	}

	req, err := m.createRequest(ctx, sess, cust, kind, body)
	if err == nil {
		return toMenu(tx, text(fmt.Sprintf(tx.created, tx.kindNames[kind], req.ID)))
	}

	attempts := sess.Form.Attempts + 1
	slog.Error("create service request", "phone", sess.Phone, "kind", kind, "attempt", attempts, "err", err)
	if attempts >= MaxCreateAttempts {
		return toMenu(tx, text(tx.contact(m.office(ctx))))
	}
	return turn{
		patch:   model.SessionPatch{Form: &model.Form{Description: body, Attempts: attempts}},
		replies: []outbound{text(tx.retryCreate)},
	}
}

func (m *Machine) createRequest(ctx context.Context, sess model.Session, cust model.Customer, kind model.RequestKind, description string) (model.ServiceRequest, error) {
	return m.requests.Create(ctx, model.ServiceRequest{
		Kind:         kind,
		CustomerID:   cust.ID,
		CustomerName: cust.Name,
		Phone:        sess.Phone,
		Description:  description,
		Status:       model.RequestOpen,
	})
}

func (m *Machine) office(ctx context.Context) model.ContactSettings {
	c, err := m.contact.Contact(ctx)
	if err != nil {
		slog.Warn("load contact settings", "err", err)
	}
	return c
}

// send delivers r, degrading an interactive message to numbered text.
func (m *Machine) send(ctx context.Context, to string, r outbound) {
	if r.interactive != nil {
		id, err := m.gw.SendInteractive(ctx, to, *r.interactive)
		if err == nil {
			slog.Debug("interactive reply sent", "phone", to, "message_id", id)
			return
		}
		slog.Warn("interactive reply failed, sending text", "phone", to, "err", err)
		r.text = gateway.RenderInteractiveText(*r.interactive)
	}
	if _, err := m.gw.SendText(ctx, to, r.text); err != nil {
		slog.Error("reply failed", "phone", to, "err", err)
	}
}
