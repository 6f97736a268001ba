package model

import "time"

type DeliveryStatus string

const (
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryRead      DeliveryStatus = "read"
	DeliveryFailed    DeliveryStatus = "failed"
	DeliveryPending   DeliveryStatus = "pending"
)

// SuccessfulDeliveryStatuses are the statuses counted as "already notified".
var SuccessfulDeliveryStatuses = []DeliveryStatus{DeliverySent, DeliveryDelivered, DeliveryRead}

var deliveryRank = map[DeliveryStatus]int{
	DeliveryPending:   0,
	DeliverySent:      1,
	DeliveryDelivered: 2,
	DeliveryRead:      3,
}

// CanAdvance reports whether a stored status may be replaced by next.
// Statuses only move forward; failed is reachable from pending or sent and
// is final.
func (s DeliveryStatus) CanAdvance(next DeliveryStatus) bool {
	if next == DeliveryFailed {
		return s == DeliveryPending || s == DeliverySent
	}
	from, ok := deliveryRank[s]
	if !ok {
		return false
	}
	to, ok := deliveryRank[next]
	return ok && to > from
}

// StatusesBefore lists the stored statuses that may advance to next.
func StatusesBefore(next DeliveryStatus) []DeliveryStatus {
	var out []DeliveryStatus
	for _, s := range []DeliveryStatus{DeliveryPending, DeliverySent, DeliveryDelivered, DeliveryRead, DeliveryFailed} {
		if s.CanAdvance(next) {
			out = append(out, s)
		}
	}
	return out
}

func ParseDeliveryStatus(raw string) (DeliveryStatus, bool) {
	switch s := DeliveryStatus(raw); s {
	case DeliverySent, DeliveryDelivered, DeliveryRead, DeliveryFailed, DeliveryPending:
		return s, true
	}
	return "", false
}

type DeliveryLogEntry struct {
	ID               int64
	RecipientPhone   string
	CustomerID       *int64
	MessageType      string
	TemplateName     string
	LanguageCode     string
	Status           DeliveryStatus
	ChannelMessageID string
	Error            string
	SentAt           time.Time
	Subject          SubjectDetail
}
