package webhook

import (
	"encoding/json"
	"strings"
	"time"

	"schoolpay/internal/domain"
)

// orderInfo carries the payment fields vendors send, nested under
// order_info, split across order_info/payment_info, or flat at the top
// level. Status is kept raw because some vendors send a string ("SUCCESS")
// and others a bare number.
type orderInfo struct {
	OrderID           string          `json:"order_id"`
	CustomOrderID     string          `json:"custom_order_id"`
	CollectRequestID  string          `json:"collect_request_id"`
	TransactionID     string          `json:"transaction_id"`
	OrderAmount       float64         `json:"order_amount"`
	TransactionAmount float64         `json:"transaction_amount"`
	Gateway           string          `json:"gateway"`
	BankReference     string          `json:"bank_reference"`
	Status            json.RawMessage `json:"status"`
	PaymentMode       string          `json:"payment_mode"`
	PaymentMessage    string          `json:"payment_message"`
	PaymentTime       string          `json:"payment_time"`
	ErrorMessage      string          `json:"error_message"`
}

// overlay merges the payment_info half of a split payload over the
// order_info half. Fields the vendor set under payment_info win.
func (o *orderInfo) overlay(p orderInfo) {
	if p.OrderID != "" {
		o.OrderID = p.OrderID
	}
	if p.CustomOrderID != "" {
		o.CustomOrderID = p.CustomOrderID
	}
	if p.CollectRequestID != "" {
		o.CollectRequestID = p.CollectRequestID
	}
	if p.TransactionID != "" {
		o.TransactionID = p.TransactionID
	}
	if p.OrderAmount != 0 {
		o.OrderAmount = p.OrderAmount
	}
	if p.TransactionAmount != 0 {
		o.TransactionAmount = p.TransactionAmount
	}
	if p.Gateway != "" {
		o.Gateway = p.Gateway
	}
	if p.BankReference != "" {
		o.BankReference = p.BankReference
	}
	if len(p.Status) > 0 {
		o.Status = p.Status
	}
	if p.PaymentMode != "" {
		o.PaymentMode = p.PaymentMode
	}
	if p.PaymentMessage != "" {
		o.PaymentMessage = p.PaymentMessage
	}
	if p.PaymentTime != "" {
		o.PaymentTime = p.PaymentTime
	}
	if p.ErrorMessage != "" {
		o.ErrorMessage = p.ErrorMessage
	}
}

func (o orderInfo) statusText() string {
	raw := strings.TrimSpace(string(o.Status))
	if len(raw) >= 2 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(o.Status, &s); err == nil {
			return s
		}
	}
	return raw
}

// normalized is the parse result: the identifiers used to resolve the order
// plus the observation ready for the ledger merge.
type normalized struct {
	CustomOrderID    string
	CollectRequestID string
	Observation      domain.Observation
}

// normalize parses a raw webhook body into a normalized observation.
// receivedAt fills in for a missing payment_time so every observation
// carries a timestamp. A payload naming neither an order id nor a collect
// request id cannot be attributed and is a hard parse failure.
func normalize(raw []byte, receivedAt time.Time) (*normalized, error) {
	var envelope struct {
		OrderInfo   *orderInfo `json:"order_info"`
		PaymentInfo *orderInfo `json:"payment_info"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, ErrUnparseable
	}

	var info orderInfo
	if envelope.OrderInfo != nil {
		info = *envelope.OrderInfo
	} else if err := json.Unmarshal(raw, &info); err != nil {
		return nil, ErrUnparseable
	}
	if envelope.PaymentInfo != nil {
		info.overlay(*envelope.PaymentInfo)
	}

	collectID := strings.TrimSpace(info.CollectRequestID)
	txnID := strings.TrimSpace(info.TransactionID)
	if info.OrderID != "" {
		// Some vendors encode "collect_request_id/transaction_id" into a
		// single order_id field.
		parts := strings.SplitN(strings.TrimSpace(info.OrderID), "/", 2)
		if collectID == "" {
			collectID = parts[0]
		}
		if len(parts) == 2 && txnID == "" {
			txnID = parts[1]
		}
	}

	customOrderID := strings.TrimSpace(info.CustomOrderID)
	if customOrderID == "" && collectID == "" {
		return nil, ErrUnparseable
	}

	paymentTime := receivedAt
	if info.PaymentTime != "" {
		if t, err := time.Parse(time.RFC3339Nano, info.PaymentTime); err == nil {
			paymentTime = t
		}
	}

	return &normalized{
		CustomOrderID:    customOrderID,
		CollectRequestID: collectID,
		Observation: domain.Observation{
			TransactionID:     txnID,
			Status:            domain.MapVendorStatus(info.statusText()),
			OrderAmount:       info.OrderAmount,
			TransactionAmount: info.TransactionAmount,
			PaymentMode:       info.PaymentMode,
			BankReference:     info.BankReference,
			PaymentMessage:    info.PaymentMessage,
			ErrorMessage:      info.ErrorMessage,
			PaymentTime:       &paymentTime,
			RawPayload:        string(raw),
		},
	}, nil
}

type IngestResponse struct {
	EventID string `json:"event_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
