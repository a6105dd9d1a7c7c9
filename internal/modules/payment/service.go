package payment

import (
	"context"
	"encoding/json"
	"strings"

	"schoolpay/internal/domain"
	"schoolpay/internal/gateway"
	"schoolpay/internal/repository"

	"github.com/google/uuid"
)

type Service struct {
	orders    orderRepo
	ledger    statusLedger
	vendor    vendorClient
	reconcile reconciler
	loggerf   func(format string, args ...interface{})
}

func NewService(orders orderRepo, ledger statusLedger, vendor vendorClient, reconcile reconciler, loggerf func(format string, args ...interface{})) *Service {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Service{orders: orders, ledger: ledger, vendor: vendor, reconcile: reconcile, loggerf: loggerf}
}

// CreatePayment persists the order, asks the vendor to open a collect
// request, and records the external reference. The order is a financial
// record of intent: once created it is never rolled back, even when the
// vendor call afterwards fails.
func (s *Service) CreatePayment(ctx context.Context, caller domain.Caller, req CreatePaymentRequest) (*CreatePaymentResponse, error) {
	schoolID := caller.SchoolID
	if caller.IsAdmin() && req.SchoolID != "" {
		schoolID = req.SchoolID
	}
	if schoolID == "" {
		return nil, ErrSchoolRequired
	}
	if req.SchoolID != "" && !caller.CanAccessSchool(req.SchoolID) {
		return nil, ErrForbidden
	}

	customOrderID := strings.TrimSpace(req.CustomOrderID)
	if customOrderID == "" {
		customOrderID = "ORD-" + uuid.NewString()
	}

	order := &domain.Order{
		CustomOrderID: customOrderID,
		SchoolID:      schoolID,
		TrusteeID:     req.TrusteeID,
		Student: domain.StudentInfo{
			Name:  req.StudentInfo.Name,
			ID:    req.StudentInfo.ID,
			Email: req.StudentInfo.Email,
		},
		GatewayName:  req.GatewayName,
		Amount:       req.Amount,
		CallbackURL:  req.CallbackURL,
		CachedStatus: domain.StatusCreated,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}

	// Initial placeholder entry: no transaction id yet, superseded by the
	// first vendor-confirmed observation.
	if err := s.ledger.Append(ctx, &domain.OrderStatus{
		OrderID:     order.ID,
		OrderAmount: order.Amount,
		Status:      domain.StatusCreated,
	}); err != nil {
		s.loggerf("level=error msg=failed to write initial ledger entry order_id=%d err=%v", order.ID, err)
	}

	res, err := s.vendor.CreateCollectRequest(ctx, gateway.CreateCollectInput{
		SchoolID:    schoolID,
		Amount:      req.Amount,
		CallbackURL: req.CallbackURL,
	})
	if err != nil {
		s.loggerf("level=error msg=vendor collect request failed order_id=%d custom_order_id=%s err=%v", order.ID, customOrderID, err)
		return nil, err
	}

	if err := s.orders.SetCollectRequest(ctx, order.ID, res.CollectRequestID); err != nil {
		s.loggerf("level=error msg=failed to store collect request id order_id=%d err=%v", order.ID, err)
		return nil, err
	}
	if err := s.orders.UpdateCachedStatus(ctx, order.ID, domain.StatusPending); err != nil {
		s.loggerf("level=error msg=failed to cache pending status order_id=%d err=%v", order.ID, err)
	}

	return &CreatePaymentResponse{
		OrderID:          order.ID,
		CustomOrderID:    customOrderID,
		CollectRequestID: res.CollectRequestID,
		PaymentURL:       res.PaymentURL,
		Status:           string(domain.StatusPending),
	}, nil
}

// CheckStatus polls the vendor for the order's collect request and merges
// the answer into the ledger through the same reconciliation path webhooks
// use.
func (s *Service) CheckStatus(ctx context.Context, caller domain.Caller, customOrderID string) (*TransactionStatusResponse, error) {
	order, err := s.orders.GetByCustomOrderID(ctx, customOrderID)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccessSchool(order.SchoolID) {
		return nil, ErrForbidden
	}
	if order.CollectRequestID == "" {
		return nil, ErrNoCollectRef
	}

	res, err := s.vendor.CheckStatus(ctx, gateway.CheckStatusInput{
		CollectRequestID: order.CollectRequestID,
		SchoolID:         order.SchoolID,
	})
	if err != nil {
		return nil, err
	}

	obs := observationFromVendor(order, res)
	entry, err := s.reconcile.Apply(ctx, order, obs)
	if err != nil {
		return nil, err
	}
	return statusResponse(order, entry, nil), nil
}

// GetTransactionStatus reads the latest known state from the ledger
// without touching the vendor.
func (s *Service) GetTransactionStatus(ctx context.Context, caller domain.Caller, customOrderID string, includeHistory bool) (*TransactionStatusResponse, error) {
	order, err := s.orders.GetByCustomOrderID(ctx, customOrderID)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccessSchool(order.SchoolID) {
		return nil, ErrForbidden
	}

	entry, err := s.ledger.FindLatest(ctx, order.ID)
	if err != nil {
		if err != repository.ErrStatusNotFound {
			return nil, err
		}
		// An order without ledger entries is equivalent to "created".
		entry = &domain.OrderStatus{
			OrderID:     order.ID,
			OrderAmount: order.Amount,
			Status:      domain.StatusCreated,
			CreatedAt:   order.CreatedAt,
		}
	}

	var history []domain.OrderStatus
	if includeHistory {
		if history, err = s.ledger.FindAll(ctx, order.ID); err != nil {
			return nil, err
		}
	}
	return statusResponse(order, entry, history), nil
}

// ListTransactions returns the admin-wide view, optionally filtered.
func (s *Service) ListTransactions(ctx context.Context, caller domain.Caller, f repository.TransactionFilter) ([]repository.TransactionRow, int64, error) {
	if !caller.IsAdmin() {
		return nil, 0, ErrForbidden
	}
	return s.ledger.ListTransactions(ctx, f)
}

// ListSchoolTransactions enforces tenant isolation: a denied caller gets
// an authorization failure, not an empty result set.
func (s *Service) ListSchoolTransactions(ctx context.Context, caller domain.Caller, schoolID string, f repository.TransactionFilter) ([]repository.TransactionRow, int64, error) {
	if !caller.CanAccessSchool(schoolID) {
		return nil, 0, ErrForbidden
	}
	f.SchoolID = schoolID
	return s.ledger.ListTransactions(ctx, f)
}

// vendorDetails is the loosely-typed details object vendors attach to
// status responses.
type vendorDetails struct {
	TransactionID  string `json:"transaction_id"`
	PaymentMode    string `json:"payment_mode"`
	BankReference  string `json:"bank_reference"`
	PaymentMessage string `json:"payment_message"`
	ErrorMessage   string `json:"error_message"`
}

func observationFromVendor(order *domain.Order, res *gateway.StatusResult) domain.Observation {
	var details vendorDetails
	if len(res.Details) > 0 {
		_ = json.Unmarshal(res.Details, &details)
	}
	raw, _ := json.Marshal(res)
	return domain.Observation{
		TransactionID:     details.TransactionID,
		Status:            domain.MapVendorStatus(res.Status),
		OrderAmount:       order.Amount,
		TransactionAmount: res.Amount,
		PaymentMode:       details.PaymentMode,
		BankReference:     details.BankReference,
		PaymentMessage:    details.PaymentMessage,
		ErrorMessage:      details.ErrorMessage,
		RawPayload:        string(raw),
	}
}

func statusResponse(order *domain.Order, entry *domain.OrderStatus, history []domain.OrderStatus) *TransactionStatusResponse {
	return &TransactionStatusResponse{
		OrderID:           order.ID,
		CustomOrderID:     order.CustomOrderID,
		SchoolID:          order.SchoolID,
		GatewayName:       order.GatewayName,
		CollectRequestID:  order.CollectRequestID,
		OrderAmount:       entry.OrderAmount,
		TransactionAmount: entry.TransactionAmount,
		Status:            entry.Status,
		TransactionID:     entry.TransactionID,
		PaymentMode:       entry.PaymentMode,
		BankReference:     entry.BankReference,
		PaymentMessage:    entry.PaymentMessage,
		ErrorMessage:      entry.ErrorMessage,
		PaymentTime:       entry.PaymentTime,
		CreatedAt:         entry.CreatedAt,
		History:           history,
	}
}
