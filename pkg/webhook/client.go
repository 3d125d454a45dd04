package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/stockledger/pkg/config"
)

const (
	SignatureHeader = "X-Stockledger-Signature"
	EventIDHeader   = "X-Stockledger-Event-Id"
)

// StockAlert is the body posted to vendor tooling when a threshold fires.
type StockAlert struct {
	EventID        uuid.UUID  `json:"event_id"`
	Type           string     `json:"type"`
	StoreID        *uuid.UUID `json:"store_id,omitempty"`
	RecordID       uuid.UUID  `json:"record_id"`
	ProductID      uuid.UUID  `json:"product_id"`
	VariantID      *uuid.UUID `json:"variant_id,omitempty"`
	WarehouseID    *uuid.UUID `json:"warehouse_id,omitempty"`
	AvailableStock int        `json:"available_stock"`
	Threshold      int        `json:"low_stock_threshold"`
	ReorderPoint   *int       `json:"reorder_point,omitempty"`
	DetectedAt     time.Time  `json:"detected_at"`
}

// Sender delivers stock alerts.
type Sender interface {
	Send(ctx context.Context, alert StockAlert) error
}

// Client posts signed alerts to a single configured endpoint.
type Client struct {
	http   *resty.Client
	url    string
	secret []byte
}

// NewClient returns nil when no webhook URL is configured.
func NewClient(cfg config.NotificationsConfig) (*Client, error) {
	url := strings.TrimSpace(cfg.WebhookURL)
	if url == "" {
		return nil, nil
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("webhook url must be http(s): %q", url)
	}
	timeout := cfg.WebhookTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	httpClient := resty.New().
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout).
		SetRetryCount(cfg.WebhookRetries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() >= http.StatusInternalServerError
		})
	return &Client{
		http:   httpClient,
		url:    url,
		secret: []byte(cfg.WebhookSecret),
	}, nil
}

func (c *Client) Send(ctx context.Context, alert StockAlert) error {
	if c == nil {
		return errors.New("webhook client not configured")
	}
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	req := c.http.R().
		SetContext(ctx).
		SetHeader(EventIDHeader, alert.EventID.String()).
		SetBody(body)
	if len(c.secret) > 0 {
		req.SetHeader(SignatureHeader, Sign(c.secret, body))
	}
	resp, err := req.Post(c.url)
	if err != nil {
		return fmt.Errorf("post stock alert: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("stock alert rejected: status=%d body=%s", resp.StatusCode(), truncate(resp.String(), 256))
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body, prefixed with the algorithm.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
