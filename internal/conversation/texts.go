package conversation

import (
	"fmt"
	"strings"

	"github.com/LeventeLantos/rental-messaging/internal/gateway"
	"github.com/LeventeLantos/rental-messaging/internal/model"
)

// Reply ids used by the interactive messages.
const (
	OptionArabic  = "lang_ar"
	OptionEnglish = "lang_en"

	OptionMaintenance = "maintenance"
	OptionComplaint   = "complaint"
	OptionStatus      = "status"
	OptionSupport     = "support"
)

// Both languages, since the customer has not chosen yet.
var languagePrompt = gateway.Interactive{
	Kind: gateway.InteractiveButtons,
	Body: "مرحباً بك! يرجى اختيار اللغة\nWelcome! Please choose your language",
	Options: []gateway.Option{
		{ID: OptionArabic, Title: "العربية"},
		{ID: OptionEnglish, Title: "English"},
	},
}

var languageKeywords = map[string]string{
	"ar": OptionArabic, "arabic": OptionArabic, "عربي": OptionArabic, "عربى": OptionArabic,
	"en": OptionEnglish, "english": OptionEnglish, "انجليزي": OptionEnglish, "إنجليزي": OptionEnglish,
}

var menuKeywords = map[string]string{
	"صيانة": OptionMaintenance, "شكوى": OptionComplaint, "حالة": OptionStatus, "دعم": OptionSupport,
	"status": OptionStatus, "help": OptionSupport,
}

// Words that leave a description step without submitting.
var menuWords = map[string]bool{"0": true, "menu": true, "cancel": true, "القائمة": true, "الغاء": true, "إلغاء": true}

type texts struct {
	menuBody       string
	menuButton     string
	menuTitles     [4]string
	menuDescs      [4]string
	describeMaint  string
	describeCompl  string
	describeEmpty  string
	created        string
	retryCreate    string
	contactOffice  string
	noOpenRequests string
	openRequests   string
	supportCreated string
	kindNames      map[model.RequestKind]string
	statusNames    map[model.RequestStatus]string
	supportDesc    string
	officeFallback string
}

var locales = map[model.Language]texts{
	model.Arabic: {
		menuBody:       "كيف يمكننا مساعدتك؟",
		menuButton:     "القائمة",
		menuTitles:     [4]string{"طلب صيانة", "تقديم شكوى", "حالة الطلبات", "التواصل مع الدعم"},
		menuDescs:      [4]string{"الإبلاغ عن عطل في الوحدة", "شكوى أو ملاحظة", "طلباتك المفتوحة", "سيتواصل معك موظف"},
		describeMaint:  "يرجى وصف المشكلة التي تحتاج إلى صيانة.",
		describeCompl:  "يرجى كتابة تفاصيل الشكوى.",
		describeEmpty:  "يرجى إرسال الوصف كنص، أو أرسل 0 للعودة إلى القائمة.",
		created:        "تم تسجيل %s برقم #%d. سنتواصل معك قريباً.",
		retryCreate:    "تعذر حفظ طلبك. يرجى إعادة إرسال الوصف.",
		contactOffice:  "نعتذر، تعذر إتمام طلبك. يرجى التواصل مع %s على %s.",
		noOpenRequests: "لا توجد لديك طلبات مفتوحة حالياً.",
		openRequests:   "طلباتك المفتوحة:",
		supportCreated: "تم تسجيل طلب التواصل برقم #%d. سيتواصل معك فريق الدعم قريباً.",
		kindNames: map[model.RequestKind]string{
			model.RequestMaintenance: "طلب الصيانة",
			model.RequestComplaint:   "الشكوى",
			model.RequestSupport:     "طلب الدعم",
		},
		statusNames: map[model.RequestStatus]string{
			model.RequestOpen:       "مفتوح",
			model.RequestInProgress: "قيد التنفيذ",
			model.RequestClosed:     "مغلق",
		},
		supportDesc:    "طلب تواصل عبر واتساب",
		officeFallback: "المكتب",
	},
	model.English: {
		menuBody:       "How can we help you?",
		menuButton:     "Menu",
		menuTitles:     [4]string{"Maintenance request", "File a complaint", "Request status", "Contact support"},
		menuDescs:      [4]string{"Report a problem in your unit", "Complaint or feedback", "Your open requests", "A staff member will call you"},
		describeMaint:  "Please describe the problem that needs maintenance.",
		describeCompl:  "Please describe your complaint.",
		describeEmpty:  "Please send the description as text, or send 0 to go back to the menu.",
		created:        "Your %s has been registered as #%d. We will get back to you soon.",
		retryCreate:    "We could not save your request. Please send the description again.",
		contactOffice:  "Sorry, we could not complete your request. Please contact %s at %s.",
		noOpenRequests: "You have no open requests.",
		openRequests:   "Your open requests:",
		supportCreated: "Your support request #%d has been registered. Our team will contact you soon.",
		kindNames: map[model.RequestKind]string{
			model.RequestMaintenance: "maintenance request",
			model.RequestComplaint:   "complaint",
			model.RequestSupport:     "support request",
		},
		statusNames: map[model.RequestStatus]string{
			model.RequestOpen:       "open",
			model.RequestInProgress: "in progress",
			model.RequestClosed:     "closed",
		},
		supportDesc:    "Contact request via WhatsApp",
		officeFallback: "the office",
	},
}

func textsFor(lang model.Language) texts {
	if t, ok := locales[lang]; ok {
		return t
	}
	return locales[model.PrimaryLanguage]
}

func (t texts) mainMenu() gateway.Interactive {
	ids := [4]string{OptionMaintenance, OptionComplaint, OptionStatus, OptionSupport}
	opts := make([]gateway.Option, len(ids))
	for i, id := range ids {
		opts[i] = gateway.Option{ID: id, Title: t.menuTitles[i], Description: t.menuDescs[i]}
	}
	return gateway.Interactive{Kind: gateway.InteractiveList, Body: t.menuBody, ButtonText: t.menuButton, Options: opts}
}

func (t texts) contact(c model.ContactSettings) string {
	name := c.OfficeName
	if name == "" {
		name = t.officeFallback
	}
	reach := c.OfficePhone
	if reach == "" {
		reach = c.OfficeEmail
	}
	return fmt.Sprintf(t.contactOffice, name, reach)
}

func (t texts) requestList(reqs []model.ServiceRequest) string {
	if len(reqs) == 0 {
		return t.noOpenRequests
	}
	var b strings.Builder
	b.WriteString(t.openRequests)
	for _, r := range reqs {
		fmt.Fprintf(&b, "\n#%d %s (%s): %s", r.ID, t.kindNames[r.Kind], t.statusNames[r.Status], truncate(r.Description, 60))
	}
	return b.String()
}

var arabicDigits = strings.NewReplacer("٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4", "٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9")

// choice maps a reply to one of opts' ids: a tapped button or list row,
// a number counted from 1, an option title or a keyword.
func choice(r model.Reply, opts []gateway.Option, keywords map[string]string) (string, bool) {
	var id string
	switch v := r.(type) {
	case model.ButtonReply:
		id = v.ID
	case model.ListReply:
		id = v.ID
	case model.TextReply:
		s := strings.ToLower(strings.TrimSpace(arabicDigits.Replace(v.Body)))
		if n := parseIndex(s); n >= 1 && n <= len(opts) {
			return opts[n-1].ID, true
		}
		if k, ok := keywords[s]; ok {
			return k, true
		}
		for _, o := range opts {
			if s == o.ID || s == strings.ToLower(o.Title) {
				return o.ID, true
			}
		}
		return "", false
	default:
		return "", false
	}
	for _, o := range opts {
		if o.ID == id {
			return id, true
		}
	}
	return "", false
}

func parseIndex(s string) int {
	if len(s) != 1 || s[0] < '0' || s[0] > '9' {
		return 0
	}
	return int(s[0] - '0')
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
