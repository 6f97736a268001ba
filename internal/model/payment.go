package model

import "time"

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentOverdue PaymentStatus = "overdue"
)

type ContractStatus string

const (
	ContractActive  ContractStatus = "active"
	ContractExpired ContractStatus = "expired"
)

// Payment is one installment of a contract, joined with the contract's renter.
type Payment struct {
	ID             int64
	ContractID     int64
	ContractNumber string
	DueDate        time.Time
	Amount         float64
	Status         PaymentStatus
	Customer       Customer
}

type Contract struct {
	ID         int64
	Number     string
	EndDate    time.Time
	Status     ContractStatus
	TotalValue float64
	RenterID   int64
	Renter     Customer
}
