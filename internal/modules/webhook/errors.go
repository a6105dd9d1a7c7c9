package webhook

import "errors"

var (
	ErrInvalidSignature = errors.New("webhook signature mismatch")
	ErrUnparseable      = errors.New("webhook payload is not parseable")
	ErrOrderUnresolved  = errors.New("webhook does not match any known order")
	ErrRetryExhausted   = errors.New("webhook delivery has exhausted its retries")
	ErrAlreadyProcessed = errors.New("webhook delivery already processed")
)
