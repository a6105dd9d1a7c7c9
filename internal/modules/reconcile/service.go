package reconcile

import (
	"context"

	"schoolpay/internal/domain"
	"schoolpay/internal/pkg/metrics"
)

type statusLedger interface {
	Upsert(ctx context.Context, orderID int64, obs domain.Observation) (*domain.OrderStatus, bool, error)
}

type cachedStatusWriter interface {
	UpdateCachedStatus(ctx context.Context, orderID int64, status domain.PaymentStatus) error
}

// StatusPublisher pushes resulting statuses to live subscribers. Optional.
type StatusPublisher interface {
	PublishStatus(order *domain.Order, status domain.PaymentStatus)
}

// Service applies a normalized observation to the ledger, regardless of
// whether it arrived via polling or a webhook. The merge itself lives in
// the ledger repository; this layer handles the side effects: conflict
// logging, the best-effort cached-status sync, and the live feed.
type Service struct {
	ledger    statusLedger
	orders    cachedStatusWriter
	publisher StatusPublisher
	loggerf   func(format string, args ...interface{})
}

func NewService(ledger statusLedger, orders cachedStatusWriter, publisher StatusPublisher, loggerf func(format string, args ...interface{})) *Service {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Service{ledger: ledger, orders: orders, publisher: publisher, loggerf: loggerf}
}

// Apply merges the observation into the order's ledger and returns the
// resulting entry. A terminal-regression conflict is recorded and dropped,
// never surfaced as an error: the existing state wins.
func (s *Service) Apply(ctx context.Context, order *domain.Order, obs domain.Observation) (*domain.OrderStatus, error) {
	entry, conflict, err := s.ledger.Upsert(ctx, order.ID, obs)
	if err != nil {
		return nil, err
	}

	if conflict {
		metrics.ReconciliationConflictsTotal.Inc()
		s.loggerf("level=warn msg=reconciliation conflict order_id=%d transaction_id=%s kept_status=%s dropped_status=%s",
			order.ID, obs.TransactionID, entry.Status, obs.Status)
	}

	// Cached status is a convenience mirror; its failure never fails the flow.
	if err := s.orders.UpdateCachedStatus(ctx, order.ID, entry.Status); err != nil {
		s.loggerf("level=error msg=failed to sync cached order status order_id=%d err=%v", order.ID, err)
	}

	if s.publisher != nil {
		s.publisher.PublishStatus(order, entry.Status)
	}
	return entry, nil
}
