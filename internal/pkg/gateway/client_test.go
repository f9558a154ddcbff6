package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := &Client{
		APIBaseURL:  server.URL,
		AccessToken: "test-token",
		HTTPClient:  server.Client(),
	}
	return client, server
}

func TestFetchPaymentDecodesRecord(t *testing.T) {
	var gotAuth string
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/payments/pay-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "pay-1",
			"status": "approved",
			"metadata": {"athlete_id": "ath-1", "schedule_id": "sched-7", "plan_id": "monthly", "amount": "45.50"},
			"date_created": "2024-03-10T12:00:00Z",
			"payment_method_id": "credit_card",
			"external_reference": "ref-001"
		}`))
	})
	defer server.Close()

	record, err := client.FetchPayment(context.Background(), "pay-1")
	require.NoError(t, err)

	assert.Equal(t, "pay-1", record.ID)
	assert.True(t, record.Approved())
	assert.Equal(t, "ath-1", record.Metadata.AthleteID)
	assert.Equal(t, "sched-7", record.Metadata.ScheduleID)
	assert.Equal(t, "45.5", record.Metadata.Amount.String())
	assert.Equal(t, time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC), record.DateCreated)
	assert.Equal(t, "Bearer test-token", gotAuth)
}

func TestFetchPaymentServerErrorIsUnavailable(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer server.Close()

	_, err := client.FetchPayment(context.Background(), "pay-1")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFetchPaymentNotFoundIsUnavailable(t *testing.T) {
	// The gateway's read side can lag the webhook; a 404 must stay retryable.
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer server.Close()

	_, err := client.FetchPayment(context.Background(), "pay-1")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFetchPaymentTransportErrorIsUnavailable(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {})
	server.Close() // connection refused from here on

	_, err := client.FetchPayment(context.Background(), "pay-1")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFetchPaymentRequiresID(t *testing.T) {
	client := &Client{APIBaseURL: "http://localhost:1", HTTPClient: http.DefaultClient}
	_, err := client.FetchPayment(context.Background(), "  ")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
}
