package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapVendorStatus(t *testing.T) {
	assert.Equal(t, StatusCompleted, MapVendorStatus("SUCCESS"))
	assert.Equal(t, StatusCompleted, MapVendorStatus("success"))
	assert.Equal(t, StatusCompleted, MapVendorStatus("  Success "))
	assert.Equal(t, StatusFailed, MapVendorStatus("FAILED"))

	// Unrecognized strings must never be promoted to a terminal status.
	for _, raw := range []string{"", "PENDING", "PROCESSING", "OK", "DONE", "garbage"} {
		assert.Equal(t, StatusPending, MapVendorStatus(raw), "raw=%q", raw)
	}
}

func TestPaymentStatusTerminal(t *testing.T) {
	terminal := []PaymentStatus{StatusCompleted, StatusFailed, StatusCancelled, StatusRefunded}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "status=%s", s)
	}
	for _, s := range []PaymentStatus{StatusCreated, StatusPending} {
		assert.False(t, s.Terminal(), "status=%s", s)
	}
}
