package model

import "time"

type Step string

const (
	StepGreeting               Step = "greeting"
	StepLanguageSelection      Step = "language_selection"
	StepMainMenu               Step = "main_menu"
	StepMaintenanceDescription Step = "maintenance_description"
	StepComplaintDescription   Step = "complaint_description"
)

func (s Step) Valid() bool {
	switch s {
	case StepGreeting, StepLanguageSelection, StepMainMenu,
		StepMaintenanceDescription, StepComplaintDescription:
		return true
	}
	return false
}

type Session struct {
	Phone       string    `json:"phone"`
	Step        Step      `json:"step"`
	Language    Language  `json:"language"`
	CustomerID  int64     `json:"customerId,omitempty"`
	Form        Form      `json:"form"`
	CreatedAt   time.Time `json:"createdAt"`
	LastTouched time.Time `json:"lastTouched"`
}

// Form holds what the current step has collected so far.
type Form struct {
	Description string `json:"description,omitempty"`
	Attempts    int    `json:"attempts,omitempty"`
}

// SessionPatch is a partial update; nil fields are left unchanged.
type SessionPatch struct {
	Step       *Step
	Language   *Language
	CustomerID *int64
	Form       *Form
}
