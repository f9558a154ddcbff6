package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sportac/backoffice/internal/pkg/env"
)

const defaultAPIBaseURL = "https://api.pagos.example.com/v1"

// Payment status values reported by the gateway. Only approved payments have
// any effect on a subscription.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusApproved  = "approved"
	PaymentStatusRejected  = "rejected"
	PaymentStatusCancelled = "cancelled"
	PaymentStatusRefunded  = "refunded"
)

// ErrUnavailable marks transient gateway failures (timeouts, transport errors,
// 5xx and read-side lag). The whole webhook delivery is safe to retry on it.
var ErrUnavailable = errors.New("payment gateway unavailable")

// Client fetches canonical payment records from the payment gateway. The
// inbound webhook is only a pointer; this is the source of truth.
type Client struct {
	APIBaseURL  string
	AccessToken string

	HTTPClient *http.Client
}

// PaymentMetadata carries the checkout context the academy attached when the
// payment preference was created. AthleteID is the one hard requirement; a
// record without it cannot be reconciled and is a permanent failure upstream.
type PaymentMetadata struct {
	AthleteID  string          `json:"athlete_id" validate:"required"`
	ScheduleID string          `json:"schedule_id"`
	PlanID     string          `json:"plan_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// PaymentRecord is the gateway's canonical view of one payment. Immutable once
// approved.
type PaymentRecord struct {
	ID                string          `json:"id"`
	Status            string          `json:"status"`
	Metadata          PaymentMetadata `json:"metadata"`
	DateCreated       time.Time       `json:"date_created"`
	DateApproved      *time.Time      `json:"date_approved,omitempty"`
	MethodID          string          `json:"payment_method_id"`
	ExternalReference string          `json:"external_reference"`
}

// Approved reports whether the gateway settled the payment.
func (r *PaymentRecord) Approved() bool {
	return r.Status == PaymentStatusApproved
}

// NewClientFromEnv builds a client from PAYMENT_GATEWAY_* environment values.
func NewClientFromEnv() *Client {
	return &Client{
		APIBaseURL:  strings.TrimRight(env.GetEnv("PAYMENT_GATEWAY_BASE_URL", defaultAPIBaseURL), "/"),
		AccessToken: strings.TrimSpace(env.GetEnv("PAYMENT_GATEWAY_ACCESS_TOKEN", "")),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// FetchPayment requests the full payment record for a gateway payment ID.
//
// A 404 maps to ErrUnavailable rather than a permanent failure: webhook
// delivery can outrun read-side visibility of the record at the gateway, and a
// retried delivery will find it.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*PaymentRecord, error) {
	id := strings.TrimSpace(paymentID)
	if id == "" {
		return nil, errors.New("payment id is required")
	}

	endpoint := fmt.Sprintf("%s/payments/%s", c.APIBaseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: fetch payment %s: status=%d body=%s", ErrUnavailable, id, resp.StatusCode, string(body))
	}

	var out PaymentRecord
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode payment %s: %w", id, err)
	}
	if out.ID == "" {
		out.ID = id
	}
	return &out, nil
}
