package domain

import (
	"strings"
	"time"
)

type PaymentStatus string

const (
	StatusCreated   PaymentStatus = "created"
	StatusPending   PaymentStatus = "pending"
	StatusCompleted PaymentStatus = "completed"
	StatusFailed    PaymentStatus = "failed"
	StatusCancelled PaymentStatus = "cancelled"
	StatusRefunded  PaymentStatus = "refunded"
)

// Terminal reports whether no further transition is permitted for a
// transaction in this status.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// MapVendorStatus maps a raw vendor status string onto the closed status
// set. Only an explicit SUCCESS or FAILED signal produces a terminal
// status; everything else stays pending. Poll and webhook paths go through
// this same mapping so the ledger cannot disagree with itself depending on
// which channel delivered the news first.
func MapVendorStatus(raw string) PaymentStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SUCCESS":
		return StatusCompleted
	case "FAILED":
		return StatusFailed
	default:
		return StatusPending
	}
}

// OrderStatus is one observation of payment state for an order. Entries
// carrying a transaction id are merged in place by (order_id,
// transaction_id); entries without one (the initial placeholder written at
// creation) are superseded by the first transaction-bearing observation.
type OrderStatus struct {
	ID                int64         `gorm:"primaryKey" json:"id"`
	OrderID           int64         `gorm:"index;not null" json:"order_id"`
	OrderAmount       float64       `json:"order_amount"`
	TransactionAmount float64       `json:"transaction_amount"`
	Status            PaymentStatus `gorm:"size:32;not null" json:"status"`
	TransactionID     string        `gorm:"index;size:128" json:"transaction_id,omitempty"`
	PaymentMode       string        `gorm:"size:64" json:"payment_mode,omitempty"`
	BankReference     string        `gorm:"size:128" json:"bank_reference,omitempty"`
	PaymentMessage    string        `gorm:"size:512" json:"payment_message,omitempty"`
	ErrorMessage      string        `gorm:"size:512" json:"error_message,omitempty"`
	PaymentTime       *time.Time    `json:"payment_time,omitempty"`
	RawPayload        string        `gorm:"type:text" json:"-"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

func (OrderStatus) TableName() string { return "order_statuses" }

// Observation is a normalized status report from either the poll path or
// the webhook path, ready to be merged into the ledger.
type Observation struct {
	TransactionID     string
	Status            PaymentStatus
	OrderAmount       float64
	TransactionAmount float64
	PaymentMode       string
	BankReference     string
	PaymentMessage    string
	ErrorMessage      string
	PaymentTime       *time.Time
	RawPayload        string
}
