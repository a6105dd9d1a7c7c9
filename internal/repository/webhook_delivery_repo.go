package repository

import (
	"context"
	"errors"
	"time"

	"schoolpay/internal/domain"

	"gorm.io/gorm"
)

var ErrDeliveryNotFound = errors.New("webhook delivery not found")

type WebhookDeliveryRepository struct {
	db *gorm.DB
}

func NewWebhookDeliveryRepository(db *gorm.DB) *WebhookDeliveryRepository {
	return &WebhookDeliveryRepository{db: db}
}

func (r *WebhookDeliveryRepository) Create(ctx context.Context, d *domain.WebhookDelivery) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *WebhookDeliveryRepository) GetByID(ctx context.Context, id int64) (*domain.WebhookDelivery, error) {
	var d domain.WebhookDelivery
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeliveryNotFound
		}
		return nil, err
	}
	return &d, nil
}

// SetResolution records the order linkage once the ingestor has worked out
// which order the delivery belongs to.
func (r *WebhookDeliveryRepository) SetResolution(ctx context.Context, id int64, orderID int64, customOrderID, collectRequestID, transactionID string) error {
	return r.db.WithContext(ctx).
		Model(&domain.WebhookDelivery{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"order_id":           orderID,
			"custom_order_id":    customOrderID,
			"collect_request_id": collectRequestID,
			"transaction_id":     transactionID,
		}).Error
}

func (r *WebhookDeliveryRepository) MarkProcessed(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&domain.WebhookDelivery{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       domain.DeliveryProcessed,
			"message":      "",
			"processed_at": now,
		}).Error
}

// MarkFailed records the failure reason and bumps the retry counter. The
// row is kept so an operator can replay it once the cause clears.
func (r *WebhookDeliveryRepository) MarkFailed(ctx context.Context, id int64, message string) error {
	return r.db.WithContext(ctx).
		Model(&domain.WebhookDelivery{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      domain.DeliveryFailed,
			"message":     message,
			"retry_count": gorm.Expr("retry_count + 1"),
		}).Error
}

func (r *WebhookDeliveryRepository) Requeue(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&domain.WebhookDelivery{}).
		Where("id = ?", id).
		Update("status", domain.DeliveryQueued).Error
}

func (r *WebhookDeliveryRepository) ListByStatus(ctx context.Context, status domain.DeliveryState, limit, offset int) ([]domain.WebhookDelivery, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.WebhookDelivery{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var rows []domain.WebhookDelivery
	err := q.Order("received_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// DeleteOlderThan ages out delivery records past the retention window.
// This is the only automatic deletion in the system.
func (r *WebhookDeliveryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("received_at < ?", cutoff).
		Delete(&domain.WebhookDelivery{})
	return res.RowsAffected, res.Error
}
