package repository

import (
	"context"
	"errors"
	"time"

	"schoolpay/internal/domain"

	"gorm.io/gorm"
)

var ErrStatusNotFound = errors.New("no status entries for order")

type OrderStatusRepository struct {
	db *gorm.DB
}

func NewOrderStatusRepository(db *gorm.DB) *OrderStatusRepository {
	return &OrderStatusRepository{db: db}
}

// Append writes a ledger entry without any merge logic. Used for the
// initial placeholder written alongside order creation.
func (r *OrderStatusRepository) Append(ctx context.Context, entry *domain.OrderStatus) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// Upsert is the ledger merge primitive. An observation carrying a
// transaction id updates the matching (order_id, transaction_id) entry in
// place; absent a match it claims the order's placeholder entry (one
// written without a transaction id) before appending a new row. Status
// never regresses from a terminal value: when an observation would do so
// the existing status wins, descriptive fields are still amended, and the
// returned conflict flag tells the caller to record it.
//
// Re-applying the same observation is a no-op beyond timestamp refresh,
// which is what makes racing poll and webhook updates safe without locks.
func (r *OrderStatusRepository) Upsert(ctx context.Context, orderID int64, obs domain.Observation) (*domain.OrderStatus, bool, error) {
	var (
		entry    domain.OrderStatus
		conflict bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if obs.TransactionID != "" {
			err := tx.Where("order_id = ? AND transaction_id = ?", orderID, obs.TransactionID).
				First(&entry).Error
			switch {
			case err == nil:
				conflict = applyObservation(&entry, obs)
				return tx.Save(&entry).Error
			case errors.Is(err, gorm.ErrRecordNotFound):
				// Supersede the placeholder if one is still unclaimed.
				err = tx.Where("order_id = ? AND (transaction_id = '' OR transaction_id IS NULL)", orderID).
					Order("created_at ASC, id ASC").
					First(&entry).Error
				if err == nil {
					conflict = applyObservation(&entry, obs)
					entry.TransactionID = obs.TransactionID
					return tx.Save(&entry).Error
				}
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}
			default:
				return err
			}
		}

		entry = domain.OrderStatus{OrderID: orderID}
		applyObservation(&entry, obs)
		entry.TransactionID = obs.TransactionID
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &entry, conflict, nil
}

// applyObservation overwrites an entry's fields from the observation,
// holding the status back when it would move a terminal entry to a
// non-terminal one. Reports whether that conflict occurred.
func applyObservation(entry *domain.OrderStatus, obs domain.Observation) bool {
	conflict := false
	if entry.Status.Terminal() && !obs.Status.Terminal() {
		conflict = true
	} else {
		entry.Status = obs.Status
	}
	entry.OrderAmount = obs.OrderAmount
	entry.TransactionAmount = obs.TransactionAmount
	entry.PaymentMode = obs.PaymentMode
	entry.BankReference = obs.BankReference
	entry.PaymentMessage = obs.PaymentMessage
	entry.ErrorMessage = obs.ErrorMessage
	if obs.PaymentTime != nil {
		entry.PaymentTime = obs.PaymentTime
	}
	if obs.RawPayload != "" {
		entry.RawPayload = obs.RawPayload
	}
	return conflict
}

// FindLatest returns the entry with the greatest (payment_time, created_at)
// tuple; payment_time is authoritative when present, created_at is the
// fallback for entries that never reported a settlement time.
func (r *OrderStatusRepository) FindLatest(ctx context.Context, orderID int64) (*domain.OrderStatus, error) {
	var entry domain.OrderStatus
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("COALESCE(payment_time, created_at) DESC").
		Order("created_at DESC").
		Order("id DESC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStatusNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// FindAll returns the order's full status history, newest first, for audit
// display.
func (r *OrderStatusRepository) FindAll(ctx context.Context, orderID int64) ([]domain.OrderStatus, error) {
	var entries []domain.OrderStatus
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("COALESCE(payment_time, created_at) DESC").
		Order("created_at DESC").
		Order("id DESC").
		Find(&entries).Error
	return entries, err
}

// TransactionRow is the JSON projection used by the transaction-query
// endpoints. It joins the order identity with one ledger entry.
type TransactionRow struct {
	OrderID           int64                `json:"order_id"`
	CustomOrderID     string               `json:"custom_order_id"`
	SchoolID          string               `json:"school_id"`
	GatewayName       string               `json:"gateway"`
	CollectRequestID  string               `json:"collect_request_id"`
	OrderAmount       float64              `json:"order_amount"`
	TransactionAmount float64              `json:"transaction_amount"`
	Status            domain.PaymentStatus `json:"status"`
	TransactionID     string               `json:"transaction_id,omitempty"`
	PaymentMode       string               `json:"payment_mode,omitempty"`
	BankReference     string               `json:"bank_reference,omitempty"`
	PaymentTime       *time.Time           `json:"payment_time,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
}

type TransactionFilter struct {
	SchoolID string
	Status   domain.PaymentStatus
	Limit    int
	Offset   int
}

// ListTransactions is the explicit join behind the transaction-query
// endpoints; one row per ledger entry, order identity attached.
func (r *OrderStatusRepository) ListTransactions(ctx context.Context, f TransactionFilter) ([]TransactionRow, int64, error) {
	q := r.db.WithContext(ctx).
		Table("order_statuses").
		Joins("JOIN orders ON orders.id = order_statuses.order_id")
	if f.SchoolID != "" {
		q = q.Where("orders.school_id = ?", f.SchoolID)
	}
	if f.Status != "" {
		q = q.Where("order_statuses.status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	var rows []TransactionRow
	err := q.Select(`orders.id AS order_id,
		orders.custom_order_id,
		orders.school_id,
		orders.gateway_name,
		orders.collect_request_id,
		order_statuses.order_amount,
		order_statuses.transaction_amount,
		order_statuses.status,
		order_statuses.transaction_id,
		order_statuses.payment_mode,
		order_statuses.bank_reference,
		order_statuses.payment_time,
		order_statuses.created_at`).
		Order("order_statuses.created_at DESC").
		Order("order_statuses.id DESC").
		Limit(limit).
		Offset(f.Offset).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
