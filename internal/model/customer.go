package model

type Language string

const (
	Arabic  Language = "ar"
	English Language = "en"
)

// PrimaryLanguage is used whenever a customer or session has no preference.
const PrimaryLanguage = Arabic

func ParseLanguage(raw string) (Language, bool) {
	switch Language(raw) {
	case Arabic, English:
		return Language(raw), true
	}
	return "", false
}

type Customer struct {
	ID       int64
	Name     string
	Phone    string
	Email    string
	Language Language

	// Placeholder is set for identities synthesized from an unknown phone.
	Placeholder bool
}
