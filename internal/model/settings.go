package model

import "time"

type ReminderSettings struct {
	Enabled            bool           `json:"enabled"`
	PaymentThresholds  []int          `json:"paymentThresholds" validate:"dive,min=1,max=365"`
	ContractThresholds []int          `json:"contractThresholds" validate:"dive,min=1,max=365"`
	OverduePageSize    int            `json:"overduePageSize" validate:"min=1,max=1000"`
	MaxRetries         int            `json:"maxRetries" validate:"min=1,max=10"`
	MessageDelay       time.Duration  `json:"messageDelay" validate:"min=0s,max=1m"`
	WorkStartHour      int            `json:"workStartHour" validate:"min=0,max=23"`
	WorkEndHour        int            `json:"workEndHour" validate:"min=1,max=24,gtfield=WorkStartHour"`
	WorkingDays        []time.Weekday `json:"workingDays" validate:"dive,min=0,max=6"`
	DefaultLanguage    Language       `json:"defaultLanguage" validate:"oneof=ar en"`
	UseTemplates       bool           `json:"useTemplates"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

// DefaultReminderSettings is what a first run persists when no settings row exists.
func DefaultReminderSettings() ReminderSettings {
	return ReminderSettings{
		Enabled:            true,
		PaymentThresholds:  []int{14, 7, 5, 3, 1},
		ContractThresholds: []int{60, 30, 14, 7},
		OverduePageSize:    100,
		MaxRetries:         3,
		MessageDelay:       2 * time.Second,
		WorkStartHour:      9,
		WorkEndHour:        18,
		WorkingDays: []time.Weekday{
			time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
		},
		DefaultLanguage: PrimaryLanguage,
		UseTemplates:    true,
	}
}

type ContactSettings struct {
	OfficeName  string `json:"officeName"`
	OfficePhone string `json:"officePhone"`
	OfficeEmail string `json:"officeEmail"`
}
