package payment

import (
	"context"
	"encoding/json"
	"testing"

	"schoolpay/internal/domain"
	"schoolpay/internal/gateway"
	"schoolpay/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOrderRepo struct {
	mock.Mock
}

func (m *MockOrderRepo) Create(ctx context.Context, o *domain.Order) error {
	args := m.Called(ctx, o)
	if o != nil && args.Error(0) == nil {
		o.ID = 42
	}
	return args.Error(0)
}

func (m *MockOrderRepo) GetByCustomOrderID(ctx context.Context, customOrderID string) (*domain.Order, error) {
	args := m.Called(ctx, customOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepo) SetCollectRequest(ctx context.Context, orderID int64, collectRequestID string) error {
	args := m.Called(ctx, orderID, collectRequestID)
	return args.Error(0)
}

func (m *MockOrderRepo) UpdateCachedStatus(ctx context.Context, orderID int64, status domain.PaymentStatus) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Append(ctx context.Context, entry *domain.OrderStatus) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedger) FindLatest(ctx context.Context, orderID int64) (*domain.OrderStatus, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OrderStatus), args.Error(1)
}

func (m *MockLedger) FindAll(ctx context.Context, orderID int64) ([]domain.OrderStatus, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OrderStatus), args.Error(1)
}

func (m *MockLedger) ListTransactions(ctx context.Context, f repository.TransactionFilter) ([]repository.TransactionRow, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]repository.TransactionRow), args.Get(1).(int64), args.Error(2)
}

type MockVendor struct {
	mock.Mock
}

func (m *MockVendor) CreateCollectRequest(ctx context.Context, in gateway.CreateCollectInput) (*gateway.CreateCollectResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.CreateCollectResult), args.Error(1)
}

func (m *MockVendor) CheckStatus(ctx context.Context, in gateway.CheckStatusInput) (*gateway.StatusResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.StatusResult), args.Error(1)
}

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) Apply(ctx context.Context, order *domain.Order, obs domain.Observation) (*domain.OrderStatus, error) {
	args := m.Called(ctx, order, obs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OrderStatus), args.Error(1)
}

func schoolCaller(schoolID string) domain.Caller {
	return domain.Caller{UserID: 1, Role: domain.RoleSchool, SchoolID: schoolID}
}

func validRequest() CreatePaymentRequest {
	return CreatePaymentRequest{
		CustomOrderID: "ORD-1",
		Amount:        2500,
		CallbackURL:   "https://example.com/cb",
		GatewayName:   "edviron",
		StudentInfo:   StudentInfoRequest{Name: "Asel", ID: "STU-9", Email: "asel@example.com"},
	}
}

func TestCreatePayment(t *testing.T) {
	orders := new(MockOrderRepo)
	ledger := new(MockLedger)
	vendor := new(MockVendor)
	svc := NewService(orders, ledger, vendor, new(MockReconciler), nil)

	orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	ledger.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.OrderStatus) bool {
		return e.TransactionID == "" && e.Status == domain.StatusCreated && e.OrderAmount == 2500
	})).Return(nil)
	vendor.On("CreateCollectRequest", mock.Anything, gateway.CreateCollectInput{
		SchoolID:    "SCH001",
		Amount:      2500,
		CallbackURL: "https://example.com/cb",
	}).Return(&gateway.CreateCollectResult{CollectRequestID: "CRQ123", PaymentURL: "https://pay/CRQ123"}, nil)
	orders.On("SetCollectRequest", mock.Anything, int64(42), "CRQ123").Return(nil)
	orders.On("UpdateCachedStatus", mock.Anything, int64(42), domain.StatusPending).Return(nil)

	res, err := svc.CreatePayment(context.Background(), schoolCaller("SCH001"), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "CRQ123", res.CollectRequestID)
	assert.Equal(t, "https://pay/CRQ123", res.PaymentURL)
	assert.Equal(t, "ORD-1", res.CustomOrderID)
	orders.AssertExpectations(t)
	vendor.AssertExpectations(t)
}

func TestCreatePaymentDuplicateOrder(t *testing.T) {
	orders := new(MockOrderRepo)
	vendor := new(MockVendor)
	svc := NewService(orders, new(MockLedger), vendor, new(MockReconciler), nil)

	orders.On("Create", mock.Anything, mock.Anything).Return(repository.ErrDuplicateOrder)

	_, err := svc.CreatePayment(context.Background(), schoolCaller("SCH001"), validRequest())
	assert.ErrorIs(t, err, repository.ErrDuplicateOrder)
	vendor.AssertNotCalled(t, "CreateCollectRequest", mock.Anything, mock.Anything)
}

func TestCreatePaymentVendorFailureKeepsOrder(t *testing.T) {
	orders := new(MockOrderRepo)
	ledger := new(MockLedger)
	vendor := new(MockVendor)
	svc := NewService(orders, ledger, vendor, new(MockReconciler), nil)

	orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	ledger.On("Append", mock.Anything, mock.Anything).Return(nil)
	vendor.On("CreateCollectRequest", mock.Anything, mock.Anything).
		Return(nil, &gateway.VendorError{StatusCode: 502, Message: "vendor down"})

	_, err := svc.CreatePayment(context.Background(), schoolCaller("SCH001"), validRequest())
	var verr *gateway.VendorError
	require.ErrorAs(t, err, &verr)

	// The order stays as an audit trail of intent; nothing rolls it back.
	orders.AssertNotCalled(t, "SetCollectRequest", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckStatusMapsVendorSuccess(t *testing.T) {
	orders := new(MockOrderRepo)
	vendor := new(MockVendor)
	rec := new(MockReconciler)
	svc := NewService(orders, new(MockLedger), vendor, rec, nil)

	order := &domain.Order{ID: 7, CustomOrderID: "ORD-7", SchoolID: "SCH001", CollectRequestID: "CRQ7", Amount: 100}
	orders.On("GetByCustomOrderID", mock.Anything, "ORD-7").Return(order, nil)

	details, _ := json.Marshal(map[string]string{"transaction_id": "TXN7", "payment_mode": "upi"})
	vendor.On("CheckStatus", mock.Anything, gateway.CheckStatusInput{CollectRequestID: "CRQ7", SchoolID: "SCH001"}).
		Return(&gateway.StatusResult{Status: "SUCCESS", Amount: 100, Details: details}, nil)

	rec.On("Apply", mock.Anything, order, mock.MatchedBy(func(obs domain.Observation) bool {
		return obs.Status == domain.StatusCompleted && obs.TransactionID == "TXN7" && obs.TransactionAmount == 100
	})).Return(&domain.OrderStatus{OrderID: 7, Status: domain.StatusCompleted, TransactionID: "TXN7", TransactionAmount: 100}, nil)

	res, err := svc.CheckStatus(context.Background(), schoolCaller("SCH001"), "ORD-7")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, res.Status)
	rec.AssertExpectations(t)
}

func TestCheckStatusSchoolIsolation(t *testing.T) {
	orders := new(MockOrderRepo)
	vendor := new(MockVendor)
	svc := NewService(orders, new(MockLedger), vendor, new(MockReconciler), nil)

	orders.On("GetByCustomOrderID", mock.Anything, "ORD-X").
		Return(&domain.Order{ID: 9, SchoolID: "SCH002", CollectRequestID: "CRQ9"}, nil)

	_, err := svc.CheckStatus(context.Background(), schoolCaller("SCH001"), "ORD-X")
	assert.ErrorIs(t, err, ErrForbidden)
	vendor.AssertNotCalled(t, "CheckStatus", mock.Anything, mock.Anything)
}

func TestListSchoolTransactionsIsolation(t *testing.T) {
	ledger := new(MockLedger)
	svc := NewService(new(MockOrderRepo), ledger, new(MockVendor), new(MockReconciler), nil)

	_, _, err := svc.ListSchoolTransactions(context.Background(), schoolCaller("SCH001"), "SCH002", repository.TransactionFilter{})
	assert.ErrorIs(t, err, ErrForbidden, "denied must be distinguishable from empty")
	ledger.AssertNotCalled(t, "ListTransactions", mock.Anything, mock.Anything)

	ledger.On("ListTransactions", mock.Anything, mock.MatchedBy(func(f repository.TransactionFilter) bool {
		return f.SchoolID == "SCH001"
	})).Return([]repository.TransactionRow{}, int64(0), nil)

	_, _, err = svc.ListSchoolTransactions(context.Background(), schoolCaller("SCH001"), "SCH001", repository.TransactionFilter{})
	assert.NoError(t, err)
}

func TestGetTransactionStatusFallsBackToCreated(t *testing.T) {
	orders := new(MockOrderRepo)
	ledger := new(MockLedger)
	svc := NewService(orders, ledger, new(MockVendor), new(MockReconciler), nil)

	order := &domain.Order{ID: 11, CustomOrderID: "ORD-11", SchoolID: "SCH001", Amount: 50}
	orders.On("GetByCustomOrderID", mock.Anything, "ORD-11").Return(order, nil)
	ledger.On("FindLatest", mock.Anything, int64(11)).Return(nil, repository.ErrStatusNotFound)

	res, err := svc.GetTransactionStatus(context.Background(), schoolCaller("SCH001"), "ORD-11", false)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCreated, res.Status)
	assert.Equal(t, 50.0, res.OrderAmount)
}
