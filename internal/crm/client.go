package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leadhiveapp/leadhive-backend/pkg/config"
	pkgerrors "github.com/leadhiveapp/leadhive-backend/pkg/errors"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
)

const (
	responseBodyReadLimit int64 = 1024
	initialBackoff              = 500 * time.Millisecond
)

var errTokenRequired = errors.New("crm api token is required")

// PurchaseRecord is the minimal payload pushed to the CRM per purchase.
type PurchaseRecord struct {
	PurchaseID  uuid.UUID       `json:"purchase_id"`
	ExternalRef string          `json:"external_ref"`
	VendorEmail string          `json:"vendor_email"`
	VendorName  string          `json:"vendor_name"`
	VendorType  string          `json:"vendor_type,omitempty"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	PurchasedAt time.Time       `json:"purchased_at"`
}

// Client wraps the CRM's purchase-ingest endpoint. Calls retry with
// exponential backoff on transport errors, 429 and 5xx responses.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
	maxRetries uint64
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the CRM client from configuration.
func NewClient(cfg config.CRMConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("crm base url is required")
	}
	if strings.TrimSpace(cfg.APIToken) == "" {
		return nil, errTokenRequired
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiToken:   strings.TrimSpace(cfg.APIToken),
		maxRetries: uint64(max(cfg.MaxRetries, 0)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// PushPurchase delivers one purchase record, retrying transient failures.
func (c *Client) PushPurchase(ctx context.Context, record PurchaseRecord) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "crm client not configured")
	}
	if record.PurchaseID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "purchase id is required")
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal purchase record")
	}

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(initialBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		return c.post(ctx, payload)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "push purchase to crm")
	}
	return nil
}

func (c *Client) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/purchases", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return retry.RetryableError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	reqErr := fmt.Errorf("crm responded %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return retry.RetryableError(reqErr)
	}
	return reqErr
}
