// Package phone canonicalizes customer phone numbers and expands them into
// the representations they are commonly stored under.
package phone

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidPhoneFormat = errors.New("invalid phone format")

// MinDigits is the shortest digit string considered a phone number at all.
const MinDigits = 8

// Country describes the mobile numbering rule of one supported country.
type Country struct {
	ISO            string
	Code           string
	NationalLength int
	// LeadingDigits lists the digits a national mobile number may start with.
	LeadingDigits string
}

var countries = []Country{
	{ISO: "SA", Code: "966", NationalLength: 9, LeadingDigits: "5"},
	{ISO: "AE", Code: "971", NationalLength: 9, LeadingDigits: "5"},
	{ISO: "KW", Code: "965", NationalLength: 8, LeadingDigits: "569"},
	{ISO: "IN", Code: "91", NationalLength: 10, LeadingDigits: "6789"},
}

func (c Country) matchesNational(national string) bool {
	return len(national) == c.NationalLength && strings.ContainsRune(c.LeadingDigits, rune(national[0]))
}

func LookupCountry(iso string) (Country, bool) {
	for _, c := range countries {
		if strings.EqualFold(c.ISO, iso) {
			return c, true
		}
	}
	return Country{}, false
}

// Normalizer resolves numbers without a country code against a default country.
type Normalizer struct {
	def Country
}

func NewNormalizer(defaultCountry string) (*Normalizer, error) {
	c, ok := LookupCountry(defaultCountry)
	if !ok {
		return nil, fmt.Errorf("unsupported default country %q", defaultCountry)
	}
	return &Normalizer{def: c}, nil
}

var defaultNormalizer = &Normalizer{def: countries[0]}

// Normalize canonicalizes raw using Saudi Arabia as the default country.
func Normalize(raw string) (string, error) { return defaultNormalizer.Normalize(raw) }

// Variants expands raw using Saudi Arabia as the default country.
func Variants(raw string) ([]string, error) { return defaultNormalizer.Variants(raw) }

// Normalize returns the canonical country code + national number form,
// digits only. It never guesses: anything that does not match a supported
// country's length and leading-digit rule is rejected.
func (n *Normalizer) Normalize(raw string) (string, error) {
	c, national, err := n.parse(raw)
	if err != nil {
		return "", err
	}
	return c.Code + national, nil
}

// Variants returns the canonical form followed by every alternate
// representation the same number may be stored as.
func (n *Normalizer) Variants(raw string) ([]string, error) {
	c, national, err := n.parse(raw)
	if err != nil {
		return nil, err
	}
	canonical := c.Code + national
	return []string{
		canonical,
		"+" + canonical,
		"00" + canonical,
		"0" + national,
		national,
	}, nil
}

func (n *Normalizer) parse(raw string) (Country, string, error) {
	digits, plus, err := clean(raw)
	if err != nil {
		return Country{}, "", err
	}
	if len(digits) < MinDigits {
		return Country{}, "", fmt.Errorf("%w: %q has fewer than %d digits", ErrInvalidPhoneFormat, raw, MinDigits)
	}

	international := plus
	if !plus && strings.HasPrefix(digits, "00") {
		digits = digits[2:]
		international = true
	}

	if c, national, ok := matchInternational(digits); ok {
		return c, national, nil
	}
	if international {
		return Country{}, "", fmt.Errorf("%w: %q matches no supported country code and length", ErrInvalidPhoneFormat, raw)
	}

	if strings.HasPrefix(digits, "0") && n.def.matchesNational(digits[1:]) {
		return n.def, digits[1:], nil
	}
	if n.def.matchesNational(digits) {
		return n.def, digits, nil
	}
	return Country{}, "", fmt.Errorf("%w: %q is not a %s mobile number", ErrInvalidPhoneFormat, raw, n.def.ISO)
}

func matchInternational(digits string) (Country, string, bool) {
	for _, c := range countries {
		if !strings.HasPrefix(digits, c.Code) {
			continue
		}
		national := digits[len(c.Code):]
		// Some stores keep the trunk zero after the country code.
		if len(national) == c.NationalLength+1 && national[0] == '0' {
			national = national[1:]
		}
		if c.matchesNational(national) {
			return c, national, true
		}
	}
	return Country{}, "", false
}

func clean(raw string) (digits string, plus bool, err error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "whatsapp:")
	if strings.HasPrefix(s, "+") {
		plus = true
		s = s[1:]
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= '٠' && r <= '٩':
			b.WriteRune('0' + (r - '٠'))
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", false, fmt.Errorf("%w: %q contains %q", ErrInvalidPhoneFormat, raw, r)
		}
	}
	if b.Len() == 0 {
		return "", false, fmt.Errorf("%w: empty number", ErrInvalidPhoneFormat)
	}
	return b.String(), plus, nil
}
