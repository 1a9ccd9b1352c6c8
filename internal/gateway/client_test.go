package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"perfect-traders-go/internal/config"
	"perfect-traders-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(baseURL string, dryRun bool) *Client {
	return NewClient(&config.Gateway{
		BaseURL:        baseURL,
		DryRun:         dryRun,
		RateLimit:      1000, // effectively unlimited in tests
		RateLimitBurst: 1000,
	}, zap.NewNop())
}

func TestSubmitOrder_DryRunResolvesLocally(t *testing.T) {
	// No server behind the base URL; dry-run must never touch the network.
	client := testClient("http://127.0.0.1:1", true)

	err := client.SubmitOrder(context.Background(), models.TradeRecord{ID: "PT-1"})

	assert.NoError(t, err)
}

func TestRegisterAccount_DryRunResolvesLocally(t *testing.T) {
	client := testClient("http://127.0.0.1:1", true)

	err := client.RegisterAccount(context.Background(), "a@b.com")

	assert.NoError(t, err)
}

func TestSubmitOrder_PostsRecord(t *testing.T) {
	var received models.TradeRecord
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
	})
	server := httptest.NewServer(handler)
	defer server.Close()

	client := testClient(server.URL, false)
	record := models.TradeRecord{
		ID:     "PT-1724900000000",
		Symbol: "EURUSD",
		Side:   models.SideBuy,
		Price:  1.0832,
		Lots:   1,
	}

	err := client.SubmitOrder(context.Background(), record)

	assert.NoError(t, err)
	assert.Equal(t, record, received)
}

func TestRegisterAccount_PostsEmail(t *testing.T) {
	var payload map[string]string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusCreated)
	})
	server := httptest.NewServer(handler)
	defer server.Close()

	client := testClient(server.URL, false)

	err := client.RegisterAccount(context.Background(), "a@b.com")

	assert.NoError(t, err)
	assert.Equal(t, "a@b.com", payload["email"])
}

func TestSubmitOrder_ClientErrorDoesNotRetry(t *testing.T) {
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"rejected"}`))
	})
	server := httptest.NewServer(handler)
	defer server.Close()

	client := testClient(server.URL, false)

	err := client.SubmitOrder(context.Background(), models.TradeRecord{ID: "PT-1"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to submit order")
	assert.Equal(t, 1, calls)
}

func TestSubmitOrder_ExhaustedRetriesReportLastStatus(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	server := httptest.NewServer(handler)
	defer server.Close()

	client := testClient(server.URL, false)

	err := client.SubmitOrder(context.Background(), models.TradeRecord{ID: "PT-1"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	// The status that exhausted the retries must survive into the error.
	assert.Contains(t, err.Error(), "429")
}

func TestSubmitOrder_RetriesServerErrors(t *testing.T) {
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	server := httptest.NewServer(handler)
	defer server.Close()

	client := testClient(server.URL, false)

	err := client.SubmitOrder(context.Background(), models.TradeRecord{ID: "PT-1"})

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}
