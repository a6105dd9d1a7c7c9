package webhook

import (
	"testing"
	"time"

	"schoolpay/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeNestedPayload(t *testing.T) {
	raw := []byte(`{
		"status": 200,
		"order_info": {
			"order_id": "CRQ123/TXN456",
			"order_amount": 2000,
			"transaction_amount": 2200,
			"gateway": "PhonePe",
			"bank_reference": "YESBNK222",
			"status": "SUCCESS",
			"payment_mode": "upi",
			"payment_message": "payment success",
			"payment_time": "2026-04-23T08:14:21.945Z",
			"error_message": "NA"
		}
	}`)

	received := time.Now().UTC()
	norm, err := normalize(raw, received)
	require.NoError(t, err)

	assert.Equal(t, "CRQ123", norm.CollectRequestID)
	assert.Equal(t, "TXN456", norm.Observation.TransactionID)
	assert.Equal(t, domain.StatusCompleted, norm.Observation.Status)
	assert.Equal(t, 2000.0, norm.Observation.OrderAmount)
	assert.Equal(t, 2200.0, norm.Observation.TransactionAmount)
	assert.Equal(t, "upi", norm.Observation.PaymentMode)
	assert.Equal(t, "YESBNK222", norm.Observation.BankReference)

	require.NotNil(t, norm.Observation.PaymentTime)
	want, _ := time.Parse(time.RFC3339Nano, "2026-04-23T08:14:21.945Z")
	assert.True(t, norm.Observation.PaymentTime.Equal(want))
}

func TestNormalizeSplitOrderAndPaymentInfo(t *testing.T) {
	raw := []byte(`{
		"order_info": {
			"order_id": "CRQ123/TXN456",
			"custom_order_id": "ORD-42"
		},
		"payment_info": {
			"status": "SUCCESS",
			"transaction_id": "TXN456",
			"transaction_amount": 2200,
			"payment_mode": "upi",
			"payment_message": "payment success",
			"payment_time": "2026-04-23T08:14:21.945Z"
		}
	}`)

	norm, err := normalize(raw, time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, "ORD-42", norm.CustomOrderID)
	assert.Equal(t, "CRQ123", norm.CollectRequestID)
	assert.Equal(t, "TXN456", norm.Observation.TransactionID)
	assert.Equal(t, domain.StatusCompleted, norm.Observation.Status)
	assert.Equal(t, 2200.0, norm.Observation.TransactionAmount)
	assert.Equal(t, "upi", norm.Observation.PaymentMode)

	require.NotNil(t, norm.Observation.PaymentTime)
	want, _ := time.Parse(time.RFC3339Nano, "2026-04-23T08:14:21.945Z")
	assert.True(t, norm.Observation.PaymentTime.Equal(want))
}

func TestNormalizePaymentInfoWinsOverOrderInfo(t *testing.T) {
	raw := []byte(`{
		"order_info": {"order_id": "CRQ8/TXN8", "status": "PENDING", "transaction_amount": 100},
		"payment_info": {"status": "SUCCESS", "transaction_amount": 110}
	}`)

	norm, err := normalize(raw, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, "CRQ8", norm.CollectRequestID)
	assert.Equal(t, "TXN8", norm.Observation.TransactionID)
	assert.Equal(t, domain.StatusCompleted, norm.Observation.Status)
	assert.Equal(t, 110.0, norm.Observation.TransactionAmount)
}

func TestNormalizeFlatPayload(t *testing.T) {
	raw := []byte(`{
		"custom_order_id": "ORD-9",
		"transaction_id": "TXN9",
		"status": "FAILED",
		"transaction_amount": 150,
		"error_message": "insufficient funds"
	}`)

	norm, err := normalize(raw, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, "ORD-9", norm.CustomOrderID)
	assert.Equal(t, "TXN9", norm.Observation.TransactionID)
	assert.Equal(t, domain.StatusFailed, norm.Observation.Status)
	assert.Equal(t, "insufficient funds", norm.Observation.ErrorMessage)
}

func TestNormalizeUnsplitOrderID(t *testing.T) {
	raw := []byte(`{"order_info": {"order_id": "CRQ777", "status": "PENDING"}}`)

	norm, err := normalize(raw, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, "CRQ777", norm.CollectRequestID)
	assert.Empty(t, norm.Observation.TransactionID)
	assert.Equal(t, domain.StatusPending, norm.Observation.Status)
}

func TestNormalizeDefaultsPaymentTime(t *testing.T) {
	received := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	raw := []byte(`{"order_info": {"order_id": "CRQ1/TXN1", "status": "SUCCESS"}}`)

	norm, err := normalize(raw, received)
	require.NoError(t, err)
	require.NotNil(t, norm.Observation.PaymentTime)
	assert.True(t, norm.Observation.PaymentTime.Equal(received))
}

func TestNormalizeNumericStatusStaysPending(t *testing.T) {
	raw := []byte(`{"order_info": {"order_id": "CRQ2/TXN2", "status": 200}}`)

	norm, err := normalize(raw, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, norm.Observation.Status)
}

func TestNormalizeRejectsUnattributable(t *testing.T) {
	for name, raw := range map[string][]byte{
		"not json":  []byte(`status=SUCCESS`),
		"no ids":    []byte(`{"status": "SUCCESS", "transaction_amount": 10}`),
		"empty ids": []byte(`{"order_info": {"order_id": "", "custom_order_id": ""}}`),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := normalize(raw, time.Now().UTC())
			assert.ErrorIs(t, err, ErrUnparseable)
		})
	}
}
