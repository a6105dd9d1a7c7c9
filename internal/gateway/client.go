package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"schoolpay/internal/pkg/metrics"
	"schoolpay/internal/pkg/retry"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// ErrMissingSigningKey is a configuration error: the client refuses to
// operate rather than send unsigned requests.
var ErrMissingSigningKey = errors.New("vendor signing key is not configured")

// VendorError means the vendor answered and rejected the request. 4xx
// responses are never retried; 5xx responses are treated as transient.
type VendorError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("vendor responded %d: %s", e.StatusCode, e.Message)
}

// NetworkError means no usable response reached us (DNS, refused
// connection, timeout). Always transient.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "vendor unreachable: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

type Config struct {
	BaseURL    string
	SigningKey string
	APIKey     string
	Timeout    time.Duration
	Retry      retry.Policy
}

// Client signs and sends outbound requests to the payment vendor and
// normalizes responses and failures. Expected vendor-side failures come
// back as typed errors, never as panics or raw transport errors.
type Client struct {
	cfg     Config
	http    *http.Client
	loggerf func(format string, args ...interface{})
}

func New(cfg Config, loggerf func(format string, args ...interface{})) (*Client, error) {
	if cfg.SigningKey == "" {
		return nil, ErrMissingSigningKey
	}
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry = retry.Policy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 5 * time.Second}
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		loggerf: loggerf,
	}, nil
}

// sign produces an HS256 token over exactly the given claims. There are no
// timestamp claims, so signatures for identical inputs are stable and
// comparable.
func (c *Client) sign(claims jwtlib.MapClaims) (string, error) {
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString([]byte(c.cfg.SigningKey))
}

type CreateCollectInput struct {
	SchoolID    string
	Amount      float64
	CallbackURL string
}

type CreateCollectResult struct {
	CollectRequestID string `json:"collect_request_id"`
	PaymentURL       string `json:"collect_request_url"`
	Sign             string `json:"sign"`
}

// CreateCollectRequest asks the vendor to open a payment attempt and
// returns its external reference plus the URL the payer is redirected to.
func (c *Client) CreateCollectRequest(ctx context.Context, in CreateCollectInput) (*CreateCollectResult, error) {
	amount := strconv.FormatFloat(in.Amount, 'f', 2, 64)
	sign, err := c.sign(jwtlib.MapClaims{
		"school_id":    in.SchoolID,
		"amount":       amount,
		"callback_url": in.CallbackURL,
	})
	if err != nil {
		return nil, err
	}

	body := map[string]string{
		"school_id":    in.SchoolID,
		"amount":       amount,
		"callback_url": in.CallbackURL,
		"sign":         sign,
	}

	var result CreateCollectResult
	if err := c.doJSON(ctx, "create_collect_request", http.MethodPost, c.cfg.BaseURL+"/create-collect-request", body, &result); err != nil {
		return nil, err
	}
	if result.CollectRequestID == "" {
		return nil, &VendorError{StatusCode: http.StatusBadGateway, Code: "MALFORMED_RESPONSE", Message: "vendor response missing collect_request_id"}
	}
	return &result, nil
}

type CheckStatusInput struct {
	CollectRequestID string
	SchoolID         string
}

type StatusResult struct {
	Status  string          `json:"status"`
	Amount  float64         `json:"amount"`
	Details json.RawMessage `json:"details"`
}

// CheckStatus polls the vendor for the current state of a collect request.
func (c *Client) CheckStatus(ctx context.Context, in CheckStatusInput) (*StatusResult, error) {
	sign, err := c.sign(jwtlib.MapClaims{
		"school_id":          in.SchoolID,
		"collect_request_id": in.CollectRequestID,
	})
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("school_id", in.SchoolID)
	q.Set("sign", sign)
	u := fmt.Sprintf("%s/collect-request/%s?%s", c.cfg.BaseURL, url.PathEscape(in.CollectRequestID), q.Encode())

	var result StatusResult
	if err := c.doJSON(ctx, "check_status", http.MethodGet, u, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// doJSON runs one vendor call under the retry policy. Network errors and
// 5xx responses are retried with backoff; 4xx responses fail immediately.
func (c *Client) doJSON(ctx context.Context, operation, method, rawURL string, body interface{}, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
	}

	err := c.cfg.Retry.Do(ctx, func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			c.loggerf("level=error msg=vendor request failed operation=%s err=%v", operation, err)
			return retry.Transient(&NetworkError{Err: err})
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return retry.Transient(&NetworkError{Err: err})
		}

		if resp.StatusCode >= 500 {
			c.loggerf("level=error msg=vendor server error operation=%s status=%d body=%s", operation, resp.StatusCode, truncate(raw, 512))
			return retry.Transient(vendorErrorFromBody(resp.StatusCode, raw))
		}
		if resp.StatusCode >= 400 {
			c.loggerf("level=error msg=vendor rejected request operation=%s status=%d body=%s", operation, resp.StatusCode, truncate(raw, 512))
			return vendorErrorFromBody(resp.StatusCode, raw)
		}

		if err := json.Unmarshal(raw, out); err != nil {
			return &VendorError{StatusCode: http.StatusBadGateway, Code: "MALFORMED_RESPONSE", Message: "vendor returned unparseable body"}
		}
		return nil
	})

	if err != nil {
		metrics.VendorRequestsTotal.WithLabelValues(operation, "error").Inc()
		return err
	}
	metrics.VendorRequestsTotal.WithLabelValues(operation, "ok").Inc()
	return nil
}

func vendorErrorFromBody(status int, raw []byte) *VendorError {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Code    string `json:"code"`
	}
	msg := ""
	if json.Unmarshal(raw, &parsed) == nil {
		if parsed.Message != "" {
			msg = parsed.Message
		} else if parsed.Error != "" {
			msg = parsed.Error
		}
	}
	if msg == "" {
		msg = truncate(raw, 256)
	}
	return &VendorError{StatusCode: status, Code: parsed.Code, Message: msg}
}

func truncate(raw []byte, n int) string {
	if len(raw) <= n {
		return string(raw)
	}
	return string(raw[:n]) + "..."
}
