package reminder

import (
	"fmt"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/LeventeLantos/rental-messaging/internal/delivery"
	"github.com/LeventeLantos/rental-messaging/internal/gateway"
	"github.com/LeventeLantos/rental-messaging/internal/model"
)

const dateLayout = "2006-01-02"

type locale struct {
	notSpecified string
	currency     string
	prefix       map[Urgency]string
	payment      string
	overdue      string
	contract     string
	contact      string
}

var locales = map[model.Language]locale{
	model.Arabic: {
		notSpecified: "غير محدد",
		currency:     "ر.س",
		prefix: map[Urgency]string{
			UrgencyCritical: "تنبيه عاجل",
			UrgencyHigh:     "تنبيه مهم",
			UrgencyNormal:   "تذكير",
		},
		payment:  "عزيزنا %s، نذكركم بموعد سداد دفعة بمبلغ %s بتاريخ %s (بعد %s يوم) للعقد رقم %s.",
		overdue:  "عزيزنا %s، الدفعة بمبلغ %s المستحقة بتاريخ %s متأخرة منذ %s يوم للعقد رقم %s. نرجو المبادرة بالسداد.",
		contract: "عزيزنا %s، ينتهي العقد رقم %s بتاريخ %s (بعد %s يوم). نرجو التواصل معنا للتجديد.",
		contact:  "للاستفسار: %s %s",
	},
	model.English: {
		notSpecified: "not specified",
		currency:     "SAR",
		prefix: map[Urgency]string{
			UrgencyCritical: "URGENT",
			UrgencyHigh:     "Important",
			UrgencyNormal:   "Reminder",
		},
		payment:  "Dear %s, a payment of %s is due on %s (in %s days) for contract %s.",
		overdue:  "Dear %s, the payment of %s due on %s is %s days overdue for contract %s. Please settle it as soon as possible.",
		contract: "Dear %s, contract %s ends on %s (in %s days). Please contact us to renew.",
		contact:  "Questions: %s %s",
	},
}

var numbers = message.NewPrinter(language.English)

// Composer renders reminders. Dates are shown in the business timezone.
type Composer struct {
	loc *time.Location
}

func NewComposer(loc *time.Location) *Composer {
	return &Composer{loc: loc}
}

// Compose always returns a plain body. When useTemplates is set it also
// returns the template reference the body is the fallback for.
func (c *Composer) Compose(cand Candidate, contact model.ContactSettings, lang model.Language, useTemplates bool) delivery.Message {
	if _, ok := locales[lang]; !ok {
		lang = model.PrimaryLanguage
	}
	l := locales[lang]

	name := orNotSpecified(cand.Customer().Name, l)
	days := strconv.Itoa(abs(cand.DaysUntilDue))
	p, ct := cand.Payment, cand.Contract
	if p == nil {
		p = &model.Payment{}
	}
	if ct == nil {
		ct = &model.Contract{}
	}

	var (
		params []string
		format string
	)
	switch cand.Type() {
	case TypeContractExpiry:
		params = []string{name, orNotSpecified(ct.Number, l), c.date(ct.EndDate, l), days}
		format = l.contract
	case TypePaymentOverdue:
		params = []string{name, money(p.Amount, l), c.date(p.DueDate, l), days, orNotSpecified(p.ContractNumber, l)}
		format = l.overdue
	default:
		params = []string{name, money(p.Amount, l), c.date(p.DueDate, l), days, orNotSpecified(p.ContractNumber, l)}
		format = l.payment
	}

	args := make([]any, len(params))
	for i, p := range params {
		args[i] = p
	}
	body := l.prefix[cand.Urgency] + ": " + fmt.Sprintf(format, args...)
	if contact.OfficeName != "" || contact.OfficePhone != "" {
		body += "\n" + fmt.Sprintf(l.contact, contact.OfficeName, contact.OfficePhone)
	}

	msg := delivery.Message{Body: body}
	if useTemplates {
		msg.Template = &gateway.TemplateRef{
			Name:     TemplateName(cand.Type(), lang),
			Language: string(lang),
			Params:   append(params, orNotSpecified(contact.OfficePhone, l)),
		}
	}
	return msg
}

// TemplateName is the approved template for a message type; the secondary
// locale uses a suffixed variant.
func TemplateName(messageType string, lang model.Language) string {
	if lang == model.PrimaryLanguage {
		return messageType
	}
	return messageType + "_" + string(lang)
}

func (c *Composer) date(t time.Time, l locale) string {
	if t.IsZero() {
		return l.notSpecified
	}
	return t.In(c.loc).Format(dateLayout)
}

func money(amount float64, l locale) string {
	if amount <= 0 {
		return l.notSpecified
	}
	return numbers.Sprintf("%.2f %s", amount, l.currency)
}

func orNotSpecified(s string, l locale) string {
	if s == "" {
		return l.notSpecified
	}
	return s
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
