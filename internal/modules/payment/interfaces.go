package payment

import (
	"context"

	"schoolpay/internal/domain"
	"schoolpay/internal/gateway"
	"schoolpay/internal/repository"
)

type orderRepo interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByCustomOrderID(ctx context.Context, customOrderID string) (*domain.Order, error)
	SetCollectRequest(ctx context.Context, orderID int64, collectRequestID string) error
	UpdateCachedStatus(ctx context.Context, orderID int64, status domain.PaymentStatus) error
}

type statusLedger interface {
	Append(ctx context.Context, entry *domain.OrderStatus) error
	FindLatest(ctx context.Context, orderID int64) (*domain.OrderStatus, error)
	FindAll(ctx context.Context, orderID int64) ([]domain.OrderStatus, error)
	ListTransactions(ctx context.Context, f repository.TransactionFilter) ([]repository.TransactionRow, int64, error)
}

type vendorClient interface {
	CreateCollectRequest(ctx context.Context, in gateway.CreateCollectInput) (*gateway.CreateCollectResult, error)
	CheckStatus(ctx context.Context, in gateway.CheckStatusInput) (*gateway.StatusResult, error)
}

type reconciler interface {
	Apply(ctx context.Context, order *domain.Order, obs domain.Observation) (*domain.OrderStatus, error)
}
