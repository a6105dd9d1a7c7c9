package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"schoolpay/internal/domain"
	"schoolpay/internal/pkg/metrics"
	"schoolpay/internal/repository"

	"github.com/google/uuid"
)

type Config struct {
	// Secret enables HMAC-SHA256 verification of inbound bodies. Empty
	// disables the check; vendors that cannot sign still get ingested.
	Secret string

	// MaxRetries bounds manual replays of a failed delivery.
	MaxRetries int
}

// Service ingests vendor push notifications. Every delivery is persisted
// before any processing so a payload that fails to parse or match an order
// is never lost; failed rows stay replayable through Retry.
type Service struct {
	deliveries deliveryRepo
	orders     orderResolver
	reconcile  reconciler
	cfg        Config
	loggerf    func(format string, args ...interface{})
}

func NewService(deliveries deliveryRepo, orders orderResolver, reconcile reconciler, cfg Config, loggerf func(format string, args ...interface{})) *Service {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Service{deliveries: deliveries, orders: orders, reconcile: reconcile, cfg: cfg, loggerf: loggerf}
}

// Ingest records the delivery and processes it synchronously. The returned
// delivery reflects the outcome; only persistence and signature failures
// come back as errors.
func (s *Service) Ingest(ctx context.Context, raw []byte, headers http.Header, sourceIP, signature string) (*domain.WebhookDelivery, error) {
	now := time.Now().UTC()
	delivery := &domain.WebhookDelivery{
		EventID:    uuid.NewString(),
		RawPayload: string(raw),
		Headers:    headerJSON(headers),
		SourceIP:   sourceIP,
		Status:     domain.DeliveryQueued,
		ReceivedAt: now,
	}

	if s.cfg.Secret != "" {
		delivery.SignatureValid = s.verifySignature(raw, signature)
		if !delivery.SignatureValid {
			delivery.Status = domain.DeliveryFailed
			delivery.Message = ErrInvalidSignature.Error()
			if err := s.deliveries.Create(ctx, delivery); err != nil {
				return nil, err
			}
			metrics.WebhookDeliveriesTotal.WithLabelValues(string(domain.DeliveryFailed)).Inc()
			return delivery, ErrInvalidSignature
		}
	}

	if err := s.deliveries.Create(ctx, delivery); err != nil {
		return nil, err
	}

	if err := s.process(ctx, delivery); err != nil {
		return delivery, err
	}
	return delivery, nil
}

// Retry replays a failed delivery through the same processing path. The
// retry counter is bounded; an exhausted delivery needs a fresh send from
// the vendor.
func (s *Service) Retry(ctx context.Context, id int64) (*domain.WebhookDelivery, error) {
	delivery, err := s.deliveries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if delivery.Status == domain.DeliveryProcessed {
		return delivery, ErrAlreadyProcessed
	}
	// A delivery that failed verification at ingestion stays rejected: a
	// replay must not turn a forged payload into a reconcilable one.
	if s.cfg.Secret != "" && !delivery.SignatureValid {
		return delivery, ErrInvalidSignature
	}
	if delivery.RetryCount >= s.cfg.MaxRetries {
		return delivery, ErrRetryExhausted
	}

	if err := s.deliveries.Requeue(ctx, delivery.ID); err != nil {
		return nil, err
	}
	delivery.Status = domain.DeliveryQueued
	if err := s.process(ctx, delivery); err != nil {
		return delivery, err
	}
	return delivery, nil
}

func (s *Service) ListDeliveries(ctx context.Context, status domain.DeliveryState, limit, offset int) ([]domain.WebhookDelivery, int64, error) {
	return s.deliveries.ListByStatus(ctx, status, limit, offset)
}

// process parses, resolves, and reconciles one delivery, updating its row
// with the outcome. Failures are recorded on the delivery and returned.
func (s *Service) process(ctx context.Context, delivery *domain.WebhookDelivery) error {
	start := time.Now()
	defer func() {
		metrics.WebhookProcessingDuration.Observe(time.Since(start).Seconds())
	}()

	norm, err := normalize([]byte(delivery.RawPayload), delivery.ReceivedAt)
	if err != nil {
		s.fail(ctx, delivery, err.Error())
		return err
	}

	order, err := s.resolveOrder(ctx, norm)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			err = ErrOrderUnresolved
		}
		s.fail(ctx, delivery, err.Error())
		return err
	}

	if _, err := s.reconcile.Apply(ctx, order, norm.Observation); err != nil {
		s.fail(ctx, delivery, err.Error())
		return err
	}

	if err := s.deliveries.SetResolution(ctx, delivery.ID, order.ID, order.CustomOrderID, norm.CollectRequestID, norm.Observation.TransactionID); err != nil {
		s.loggerf("level=error msg=failed to record webhook resolution delivery_id=%d err=%v", delivery.ID, err)
	}
	if err := s.deliveries.MarkProcessed(ctx, delivery.ID); err != nil {
		s.loggerf("level=error msg=failed to mark webhook processed delivery_id=%d err=%v", delivery.ID, err)
	}
	delivery.Status = domain.DeliveryProcessed
	delivery.OrderID = &order.ID
	delivery.CustomOrderID = order.CustomOrderID
	delivery.TransactionID = norm.Observation.TransactionID
	metrics.WebhookDeliveriesTotal.WithLabelValues(string(domain.DeliveryProcessed)).Inc()
	return nil
}

func (s *Service) resolveOrder(ctx context.Context, norm *normalized) (*domain.Order, error) {
	if norm.CustomOrderID != "" {
		order, err := s.orders.GetByCustomOrderID(ctx, norm.CustomOrderID)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, repository.ErrOrderNotFound) {
			return nil, err
		}
	}
	if norm.CollectRequestID != "" {
		return s.orders.GetByCollectRequestID(ctx, norm.CollectRequestID)
	}
	return nil, repository.ErrOrderNotFound
}

func (s *Service) fail(ctx context.Context, delivery *domain.WebhookDelivery, message string) {
	if err := s.deliveries.MarkFailed(ctx, delivery.ID, message); err != nil {
		s.loggerf("level=error msg=failed to mark webhook failed delivery_id=%d err=%v", delivery.ID, err)
	}
	delivery.Status = domain.DeliveryFailed
	delivery.Message = message
	delivery.RetryCount++
	metrics.WebhookDeliveriesTotal.WithLabelValues(string(domain.DeliveryFailed)).Inc()
	s.loggerf("level=warn msg=webhook delivery failed delivery_id=%d event_id=%s reason=%s", delivery.ID, delivery.EventID, message)
}

func (s *Service) verifySignature(raw []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(s.cfg.Secret))
	mac.Write(raw)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func headerJSON(headers http.Header) string {
	if headers == nil {
		return ""
	}
	b, err := json.Marshal(headers)
	if err != nil {
		return ""
	}
	return string(b)
}
