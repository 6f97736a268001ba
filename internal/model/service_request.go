package model

import "time"

type RequestKind string

const (
	RequestMaintenance RequestKind = "maintenance"
	RequestComplaint   RequestKind = "complaint"
	RequestSupport     RequestKind = "support"
)

type RequestStatus string

const (
	RequestOpen       RequestStatus = "open"
	RequestInProgress RequestStatus = "in_progress"
	RequestClosed     RequestStatus = "closed"
)

// ServiceRequest backs maintenance requests, complaints and support contacts.
// CustomerID is zero for placeholder identities.
type ServiceRequest struct {
	ID           int64
	Kind         RequestKind
	CustomerID   int64
	CustomerName string
	Phone        string
	Description  string
	Status       RequestStatus
	CreatedAt    time.Time
}
