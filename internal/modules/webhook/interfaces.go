package webhook

import (
	"context"

	"schoolpay/internal/domain"
)

type deliveryRepo interface {
	Create(ctx context.Context, d *domain.WebhookDelivery) error
	GetByID(ctx context.Context, id int64) (*domain.WebhookDelivery, error)
	SetResolution(ctx context.Context, id int64, orderID int64, customOrderID, collectRequestID, transactionID string) error
	MarkProcessed(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, message string) error
	Requeue(ctx context.Context, id int64) error
	ListByStatus(ctx context.Context, status domain.DeliveryState, limit, offset int) ([]domain.WebhookDelivery, int64, error)
}

type orderResolver interface {
	GetByCustomOrderID(ctx context.Context, customOrderID string) (*domain.Order, error)
	GetByCollectRequestID(ctx context.Context, collectRequestID string) (*domain.Order, error)
}

type reconciler interface {
	Apply(ctx context.Context, order *domain.Order, obs domain.Observation) (*domain.OrderStatus, error)
}
