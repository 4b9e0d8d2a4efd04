// Package client is a Go client for the FraudShield API. Submissions are retried on
// transient failures with the same idempotency key, so a retried request settles at most once.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fraudshield/internal/logger"
	"fraudshield/internal/models"
	"fraudshield/internal/utils/retry"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// DefaultMaxAttempts counts every request of one submission, the first included.
	DefaultMaxAttempts = 3
	// DefaultBaseDelay doubles per retry: 2s, then 4s.
	DefaultBaseDelay = 2 * time.Second
	DefaultTimeout   = 10 * time.Second
)

// Config configures a Client. MaxAttempts of 1 disables retries; zero means DefaultMaxAttempts.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status    int
	Code      string
	Message   string
	Retryable bool
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// TransportError is a request that never produced a response.
type TransportError struct {
	Errs []error
}

func (e *TransportError) Error() string { return errors.Join(e.Errs...).Error() }
func (e *TransportError) Unwrap() []error { return e.Errs }

// IsTransient reports whether err is worth retrying with the same idempotency key.
func IsTransient(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Retryable || ae.Status >= fiber.StatusInternalServerError || ae.Status == fiber.StatusTooManyRequests
	}
	return false
}

// SubmitRequest is a payment or P2P transfer.
type SubmitRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	Merchant       string          `json:"merchant,omitempty"`
	Category       string          `json:"category"`
	Location       string          `json:"location,omitempty"`
	DeviceID       string          `json:"device_id,omitempty"`
	NetworkOrigin  string          `json:"network_origin,omitempty"`
	TransferKind   string          `json:"transfer_kind"`
	RecipientEmail string          `json:"recipient_email,omitempty"`
	// IdempotencyKey is generated when empty and reused across retries
	IdempotencyKey string `json:"-"`
}

// SubmitResponse is the scored and settled result.
type SubmitResponse struct {
	TransactionID string          `json:"transaction_id"`
	RiskScore     float64         `json:"risk_score"`
	RiskLevel     string          `json:"risk_level"`
	Flagged       bool            `json:"flagged"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Replayed      bool            `json:"replayed"`
	// Attempts is how many requests it took
	Attempts int `json:"-"`
}

type Client struct {
	baseURL string
	timeout time.Duration
	policy  retry.Policy
	token   string
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		policy: retry.Policy{
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   cfg.BaseDelay,
			Retryable:   IsTransient,
		},
	}
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) { c.token = token }

// Login authenticates and keeps the access token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	err := c.do(ctx, fiber.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil, &out)
	if err != nil {
		return err
	}
	c.token = out.AccessToken
	return nil
}

// Submit sends the attempt, retrying transient failures with the same idempotency key.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}
	headers := map[string]string{"Idempotency-Key": req.IdempotencyKey}
	log := logger.FromContext(ctx)

	policy := c.policy
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		log.Warn().Err(err).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Str("idempotency_key", req.IdempotencyKey).
			Msg("submission failed, retrying")
	}

	var (
		out      SubmitResponse
		attempts int
	)
	err := retry.Do(ctx, policy, func(attempt int) error {
		attempts = attempt
		return c.do(ctx, fiber.MethodPost, "/api/transactions", req, headers, &out)
	})
	if err != nil {
		return nil, err
	}
	out.Attempts = attempts
	return &out, nil
}

// Report opens a fraud case for a transaction.
func (c *Client) Report(ctx context.Context, transactionID, notes string) (*models.FraudCase, error) {
	var out struct {
		Data models.FraudCase `json:"data"`
	}
	path := fmt.Sprintf("/api/transactions/%s/report", transactionID)
	if err := c.do(ctx, fiber.MethodPost, path, map[string]string{"notes": notes}, nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// Dispute marks a transaction disputed.
func (c *Client) Dispute(ctx context.Context, transactionID, reason string) (*models.Transaction, error) {
	var out struct {
		Data models.Transaction `json:"data"`
	}
	path := fmt.Sprintf("/api/transactions/%s/dispute", transactionID)
	if err := c.do(ctx, fiber.MethodPost, path, map[string]string{"reason": reason}, nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// Stats returns the dashboard numbers of the logged in account.
func (c *Client) Stats(ctx context.Context) (*models.AccountStats, error) {
	var out models.AccountStats
	if err := c.do(ctx, fiber.MethodGet, "/api/dashboard", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, headers map[string]string, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return retry.Permanent(err)
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	agent := fiber.AcquireAgent()
	req := agent.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return retry.Permanent(fmt.Errorf("build request: %w", err))
	}

	agent.Timeout(timeout)
	if c.token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	for k, v := range headers {
		agent.Set(k, v)
	}
	if body != nil {
		agent.JSON(body)
	}

	status, raw, errs := agent.Bytes()
	if len(errs) > 0 {
		return &TransportError{Errs: errs}
	}

	if status < 200 || status >= 300 {
		var apiErr struct {
			Error     string `json:"error"`
			Code      string `json:"code"`
			Retryable bool   `json:"retryable"`
		}
		_ = json.Unmarshal(raw, &apiErr)
		if apiErr.Error == "" {
			apiErr.Error = string(raw)
		}
		return &APIError{Status: status, Code: apiErr.Code, Message: apiErr.Error, Retryable: apiErr.Retryable}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return retry.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return nil
}
