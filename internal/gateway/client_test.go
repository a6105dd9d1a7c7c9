package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"schoolpay/internal/pkg/retry"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestNewRequiresSigningKey(t *testing.T) {
	_, err := New(Config{BaseURL: "http://vendor"}, nil)
	assert.ErrorIs(t, err, ErrMissingSigningKey)
}

func TestSignIsStable(t *testing.T) {
	c, err := New(Config{BaseURL: "http://vendor", SigningKey: "pg-key", Retry: testPolicy()}, nil)
	require.NoError(t, err)

	claims := jwtlib.MapClaims{"school_id": "SCH001", "amount": "100.00", "callback_url": "https://cb"}
	a, err := c.sign(claims)
	require.NoError(t, err)
	b, err := c.sign(claims)
	require.NoError(t, err)
	assert.Equal(t, a, b, "signatures for identical inputs must be comparable")
}

func TestCreateCollectRequest(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/create-collect-request", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"collect_request_id":  "CRQ123",
			"collect_request_url": "https://pay.vendor/CRQ123",
		})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, SigningKey: "pg-key", Retry: testPolicy()}, nil)
	require.NoError(t, err)

	res, err := c.CreateCollectRequest(context.Background(), CreateCollectInput{
		SchoolID:    "SCH001",
		Amount:      2500,
		CallbackURL: "https://example.com/callback",
	})
	require.NoError(t, err)
	assert.Equal(t, "CRQ123", res.CollectRequestID)
	assert.Equal(t, "https://pay.vendor/CRQ123", res.PaymentURL)

	assert.Equal(t, "SCH001", gotBody["school_id"])
	assert.Equal(t, "2500.00", gotBody["amount"], "amount is sent as a decimal string")
	assert.NotEmpty(t, gotBody["sign"])
}

func TestCreateCollectRequestRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, `{"message":"upstream hiccup"}`, http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"collect_request_id": "CRQ9"})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, SigningKey: "pg-key", Retry: testPolicy()}, nil)
	require.NoError(t, err)

	res, err := c.CreateCollectRequest(context.Background(), CreateCollectInput{SchoolID: "S", Amount: 1, CallbackURL: "https://cb"})
	require.NoError(t, err)
	assert.Equal(t, "CRQ9", res.CollectRequestID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestCreateCollectRequestDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"message":"school_id is invalid","code":"BAD_SCHOOL"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, SigningKey: "pg-key", Retry: testPolicy()}, nil)
	require.NoError(t, err)

	_, err = c.CreateCollectRequest(context.Background(), CreateCollectInput{SchoolID: "bad", Amount: 1, CallbackURL: "https://cb"})
	var verr *VendorError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, http.StatusBadRequest, verr.StatusCode)
	assert.Equal(t, "school_id is invalid", verr.Message)
	assert.Equal(t, "BAD_SCHOOL", verr.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "4xx must not be retried")
}

func TestCheckStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/collect-request/CRQ123", r.URL.Path)
		require.Equal(t, "SCH001", r.URL.Query().Get("school_id"))
		require.NotEmpty(t, r.URL.Query().Get("sign"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "SUCCESS",
			"amount":  2500.0,
			"details": map[string]string{"payment_mode": "upi", "transaction_id": "TXN1"},
		})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, SigningKey: "pg-key", Retry: testPolicy()}, nil)
	require.NoError(t, err)

	res, err := c.CheckStatus(context.Background(), CheckStatusInput{CollectRequestID: "CRQ123", SchoolID: "SCH001"})
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", res.Status)
	assert.Equal(t, 2500.0, res.Amount)
	assert.Contains(t, string(res.Details), "TXN1")
}

func TestNetworkErrorTaxonomy(t *testing.T) {
	// Point at a closed port; every attempt fails before a response exists.
	c, err := New(Config{BaseURL: "http://127.0.0.1:1", SigningKey: "pg-key", Retry: retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond}}, nil)
	require.NoError(t, err)

	_, err = c.CheckStatus(context.Background(), CheckStatusInput{CollectRequestID: "X", SchoolID: "S"})
	var nerr *NetworkError
	assert.ErrorAs(t, err, &nerr)
}
