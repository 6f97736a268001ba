package reminder

import (
	"time"

	cal "github.com/rickar/cal/v2"

	"github.com/LeventeLantos/rental-messaging/internal/model"
)

// WorkingWindow is the part of the week in which scheduled runs may send.
type WorkingWindow struct {
	cal *cal.BusinessCalendar
	end time.Duration
	loc *time.Location
}

func NewWorkingWindow(s model.ReminderSettings, loc *time.Location) *WorkingWindow {
	c := cal.NewBusinessCalendar()
	for d := time.Sunday; d <= time.Saturday; d++ {
		c.SetWorkday(d, false)
	}
	for _, d := range s.WorkingDays {
		c.SetWorkday(d, true)
	}
	end := time.Duration(s.WorkEndHour) * time.Hour
	c.SetWorkHours(time.Duration(s.WorkStartHour)*time.Hour, end)
	return &WorkingWindow{cal: c, end: end, loc: loc}
}

// Open reports whether t falls on a working day within [start, end) hours.
func (w *WorkingWindow) Open(t time.Time) bool {
	local := t.In(w.loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, w.loc)
	// cal treats the end of the work day as inclusive.
	return w.cal.IsWorkTime(local) && local.Before(midnight.Add(w.end))
}
