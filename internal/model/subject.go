package model

import (
	"encoding/json"
	"fmt"
	"time"
)

type SubjectType string

const (
	SubjectPayment  SubjectType = "payment"
	SubjectContract SubjectType = "contract"
)

// SubjectDetail is the display context attached to a delivery. It is either
// a PaymentDetail or a ContractDetail.
type SubjectDetail interface {
	SubjectType() SubjectType
}

type PaymentDetail struct {
	PaymentID      int64     `json:"paymentId"`
	ContractID     int64     `json:"contractId"`
	ContractNumber string    `json:"contractNumber,omitempty"`
	Amount         float64   `json:"amount"`
	DueDate        time.Time `json:"dueDate"`
	DaysUntilDue   int       `json:"daysUntilDue"`
}

func (PaymentDetail) SubjectType() SubjectType { return SubjectPayment }

type ContractDetail struct {
	ContractID     int64     `json:"contractId"`
	ContractNumber string    `json:"contractNumber,omitempty"`
	EndDate        time.Time `json:"endDate"`
	TotalValue     float64   `json:"totalValue"`
	DaysUntilDue   int       `json:"daysUntilDue"`
}

func (ContractDetail) SubjectType() SubjectType { return SubjectContract }

type subjectEnvelope struct {
	Kind     SubjectType     `json:"kind"`
	Payment  *PaymentDetail  `json:"payment,omitempty"`
	Contract *ContractDetail `json:"contract,omitempty"`
}

// MarshalSubject encodes a detail with its kind tag. A nil detail encodes as JSON null.
func MarshalSubject(d SubjectDetail) ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	env := subjectEnvelope{Kind: d.SubjectType()}
	switch v := d.(type) {
	case PaymentDetail:
		env.Payment = &v
	case ContractDetail:
		env.Contract = &v
	default:
		return nil, fmt.Errorf("unknown subject detail %T", d)
	}
	return json.Marshal(env)
}

func UnmarshalSubject(b []byte) (SubjectDetail, error) {
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}
	var env subjectEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, err
	}
	switch env.Kind {
	case SubjectPayment:
		if env.Payment == nil {
			return nil, fmt.Errorf("payment subject without payload")
		}
		return *env.Payment, nil
	case SubjectContract:
		if env.Contract == nil {
			return nil, fmt.Errorf("contract subject without payload")
		}
		return *env.Contract, nil
	}
	return nil, fmt.Errorf("unknown subject kind %q", env.Kind)
}
