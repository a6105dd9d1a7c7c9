package domain

import "time"

// StudentInfo is the payee payload attached to an order. The backend
// validates it for shape only and never interprets it.
type StudentInfo struct {
	Name  string `gorm:"column:student_name;size:255" json:"name"`
	ID    string `gorm:"column:student_id;size:128" json:"id"`
	Email string `gorm:"column:student_email;size:255" json:"email"`
}

// Order is the immutable identity of a payment request. It is created
// exactly once and never deleted; the only mutation after creation is the
// cached status, which mirrors the ledger's latest entry for convenience
// and is not authoritative.
type Order struct {
	ID               int64         `gorm:"primaryKey" json:"id"`
	CustomOrderID    string        `gorm:"uniqueIndex;size:128;not null" json:"custom_order_id"`
	SchoolID         string        `gorm:"index;size:64;not null" json:"school_id"`
	TrusteeID        string        `gorm:"size:64" json:"trustee_id,omitempty"`
	Student          StudentInfo   `gorm:"embedded" json:"student_info"`
	GatewayName      string        `gorm:"size:64" json:"gateway_name"`
	CollectRequestID string        `gorm:"index;size:128" json:"collect_request_id"`
	Amount           float64       `gorm:"not null" json:"amount"`
	CallbackURL      string        `gorm:"size:512" json:"callback_url"`
	CachedStatus     PaymentStatus `gorm:"size:32;default:'created'" json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

func (Order) TableName() string { return "orders" }
