package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingServer struct {
	mu       sync.Mutex
	keys     []string
	statuses []int
}

func (s *recordingServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.keys = append(s.keys, r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

		status := http.StatusCreated
		if len(s.statuses) > 0 {
			status = s.statuses[0]
			s.statuses = s.statuses[1:]
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		switch {
		case status == http.StatusServiceUnavailable:
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"error": "account is busy", "code": "CONCURRENCY_CONFLICT", "retryable": true,
			})
		case status >= 400:
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"error": "insufficient funds", "code": "INSUFFICIENT_FUNDS",
			})
		default:
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"transaction_id": "0b8c1a52-4a52-4d8e-9d1e-1f0a4c8f7f10",
				"risk_score":     0.165,
				"risk_level":     "low",
				"flagged":        false,
				"status":         "approved",
				"amount":         "50",
			})
		}
	}
}

func newTestClient(url string) *Client {
	c := New(Config{BaseURL: url, BaseDelay: time.Millisecond, Timeout: time.Second})
	c.SetToken("token-1")
	return c
}

func payment() SubmitRequest {
	return SubmitRequest{
		Amount:       decimal.NewFromInt(50),
		Merchant:     "Corner Cafe",
		Category:     "food",
		TransferKind: "payment",
	}
}

func TestSubmit_RetriesTransientWithSameKey(t *testing.T) {
	rs := &recordingServer{statuses: []int{http.StatusServiceUnavailable, http.StatusBadGateway}}
	srv := httptest.NewServer(rs.handler(t))
	defer srv.Close()

	req := payment()
	req.IdempotencyKey = "order-42"
	resp, err := newTestClient(srv.URL).Submit(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 3, resp.Attempts)
	assert.Equal(t, "low", resp.RiskLevel)
	assert.Equal(t, []string{"order-42", "order-42", "order-42"}, rs.keys)
}

func TestNew_DefaultRetryBudget(t *testing.T) {
	c := New(Config{BaseURL: "http://localhost:3000"})

	assert.Equal(t, 3, c.policy.MaxAttempts)
	assert.Equal(t, 2*time.Second, c.policy.Backoff(1))
	assert.Equal(t, 4*time.Second, c.policy.Backoff(2))
}

func TestSubmit_GivesUpAfterThreeAttempts(t *testing.T) {
	rs := &recordingServer{statuses: []int{503, 503, 503, 503, 503}}
	srv := httptest.NewServer(rs.handler(t))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Submit(context.Background(), payment())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "CONCURRENCY_CONFLICT", apiErr.Code)
	assert.Len(t, rs.keys, 3)
	assert.NotEmpty(t, rs.keys[0], "a key is generated when none is given")
	assert.Equal(t, rs.keys[0], rs.keys[1])
	assert.Equal(t, rs.keys[0], rs.keys[2])
}

func TestSubmit_BusinessErrorsAreNotRetried(t *testing.T) {
	rs := &recordingServer{statuses: []int{http.StatusUnprocessableEntity}}
	srv := httptest.NewServer(rs.handler(t))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Submit(context.Background(), payment())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.False(t, IsTransient(err))
	assert.Len(t, rs.keys, 1)
}

func TestSubmit_TransportErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Config{BaseURL: url, BaseDelay: time.Millisecond, MaxAttempts: 1, Timeout: 200 * time.Millisecond})
	_, err := c.Submit(context.Background(), payment())
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestSubmit_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient("http://127.0.0.1:1").Submit(ctx, payment())
	assert.ErrorIs(t, err, context.Canceled)
}
