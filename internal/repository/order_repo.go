package repository

import (
	"context"
	"errors"
	"strings"

	"schoolpay/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrDuplicateOrder = errors.New("custom order id already exists")
	ErrOrderNotFound  = errors.New("order not found")
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	if err := r.db.WithContext(ctx).Create(o).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateOrder
		}
		return err
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	var o domain.Order
	if err := r.db.WithContext(ctx).First(&o, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) GetByCustomOrderID(ctx context.Context, customOrderID string) (*domain.Order, error) {
	var o domain.Order
	if err := r.db.WithContext(ctx).First(&o, "custom_order_id = ?", customOrderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) GetByCollectRequestID(ctx context.Context, collectRequestID string) (*domain.Order, error) {
	var o domain.Order
	if err := r.db.WithContext(ctx).First(&o, "collect_request_id = ?", collectRequestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

// SetCollectRequest attaches the vendor's external reference once the
// collect request has been accepted.
func (r *OrderRepository) SetCollectRequest(ctx context.Context, orderID int64, collectRequestID string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ?", orderID).
		Update("collect_request_id", collectRequestID).Error
}

// UpdateCachedStatus mirrors the ledger's latest status onto the order row.
// Callers treat failures as non-fatal; the ledger stays authoritative.
func (r *OrderRepository) UpdateCachedStatus(ctx context.Context, orderID int64, status domain.PaymentStatus) error {
	return r.db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ?", orderID).
		Update("cached_status", status).Error
}

// isUniqueViolation covers both backends: postgres reports 23505 through
// pgconn, sqlite surfaces a constraint message that gorm may or may not
// translate to ErrDuplicatedKey depending on driver version.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
