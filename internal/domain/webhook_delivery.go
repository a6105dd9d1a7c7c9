package domain

import "time"

type DeliveryState string

const (
	DeliveryQueued    DeliveryState = "queued"
	DeliveryProcessed DeliveryState = "processed"
	DeliveryFailed    DeliveryState = "failed"
)

// WebhookDelivery records every inbound push notification, including ones
// that fail to parse, so nothing the vendor sends is silently lost. Rows
// age out after the retention window; everything else in the system is
// permanent.
type WebhookDelivery struct {
	ID               int64         `gorm:"primaryKey" json:"id"`
	EventID          string        `gorm:"uniqueIndex;size:64;not null" json:"event_id"`
	RawPayload       string        `gorm:"type:text" json:"raw_payload"`
	Headers          string        `gorm:"type:text" json:"headers,omitempty"`
	SourceIP         string        `gorm:"size:64" json:"source_ip,omitempty"`
	SignatureValid   bool          `json:"signature_valid"`
	Status           DeliveryState `gorm:"size:16;index;not null;default:'queued'" json:"status"`
	Message          string        `gorm:"size:512" json:"message,omitempty"`
	RetryCount       int           `gorm:"not null;default:0" json:"retry_count"`
	OrderID          *int64        `gorm:"index" json:"order_id,omitempty"`
	CustomOrderID    string        `gorm:"size:128" json:"custom_order_id,omitempty"`
	CollectRequestID string        `gorm:"size:128" json:"collect_request_id,omitempty"`
	TransactionID    string        `gorm:"size:128" json:"transaction_id,omitempty"`
	ReceivedAt       time.Time     `gorm:"index;not null" json:"received_at"`
	ProcessedAt      *time.Time    `json:"processed_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

func (WebhookDelivery) TableName() string { return "webhook_deliveries" }
