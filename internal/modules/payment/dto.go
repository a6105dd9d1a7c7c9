package payment

import (
	"time"

	"schoolpay/internal/domain"
)

type StudentInfoRequest struct {
	Name  string `json:"name" binding:"required"`
	ID    string `json:"id" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

type CreatePaymentRequest struct {
	SchoolID      string             `json:"school_id"`
	TrusteeID     string             `json:"trustee_id"`
	CustomOrderID string             `json:"custom_order_id"`
	Amount        float64            `json:"amount" binding:"required,gt=0"`
	CallbackURL   string             `json:"callback_url" binding:"required,url"`
	GatewayName   string             `json:"gateway_name"`
	StudentInfo   StudentInfoRequest `json:"student_info" binding:"required"`
}

type CreatePaymentResponse struct {
	OrderID          int64  `json:"order_id"`
	CustomOrderID    string `json:"custom_order_id"`
	CollectRequestID string `json:"collect_request_id"`
	PaymentURL       string `json:"payment_url"`
	Status           string `json:"status"`
}

type TransactionStatusResponse struct {
	OrderID           int64                `json:"order_id"`
	CustomOrderID     string               `json:"custom_order_id"`
	SchoolID          string               `json:"school_id"`
	GatewayName       string               `json:"gateway"`
	CollectRequestID  string               `json:"collect_request_id,omitempty"`
	OrderAmount       float64              `json:"order_amount"`
	TransactionAmount float64              `json:"transaction_amount"`
	Status            domain.PaymentStatus `json:"status"`
	TransactionID     string               `json:"transaction_id,omitempty"`
	PaymentMode       string               `json:"payment_mode,omitempty"`
	BankReference     string               `json:"bank_reference,omitempty"`
	PaymentMessage    string               `json:"payment_message,omitempty"`
	ErrorMessage      string               `json:"error_message,omitempty"`
	PaymentTime       *time.Time           `json:"payment_time,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	History           []domain.OrderStatus `json:"history,omitempty"`
}
