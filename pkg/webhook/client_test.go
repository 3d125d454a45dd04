package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/stockledger/pkg/config"
)

func TestNewClientDisabledWithoutURL(t *testing.T) {
	client, err := NewClient(config.NotificationsConfig{})
	require.NoError(t, err)
	assert.Nil(t, client)

	_, err = NewClient(config.NotificationsConfig{WebhookURL: "ftp://example.com"})
	assert.Error(t, err)
}

func TestSendSignsBody(t *testing.T) {
	alert := StockAlert{EventID: uuid.New(), Type: "low_stock", RecordID: uuid.New(), AvailableStock: 2, DetectedAt: time.Now().UTC()}
	var gotSignature, gotEventID string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get(SignatureHeader)
		gotEventID = r.Header.Get(EventIDHeader)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client, err := NewClient(config.NotificationsConfig{WebhookURL: srv.URL, WebhookSecret: "s3cret", WebhookTimeout: time.Second})
	require.NoError(t, err)
	require.NoError(t, client.Send(context.Background(), alert))

	assert.Equal(t, alert.EventID.String(), gotEventID)
	assert.Equal(t, Sign([]byte("s3cret"), gotBody), gotSignature)
	assert.Contains(t, string(gotBody), `"type":"low_stock"`)
}

func TestSendRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewClient(config.NotificationsConfig{WebhookURL: srv.URL, WebhookRetries: 2, WebhookTimeout: time.Second})
	require.NoError(t, err)
	require.NoError(t, client.Send(context.Background(), StockAlert{EventID: uuid.New()}))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSendReportsClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := NewClient(config.NotificationsConfig{WebhookURL: srv.URL, WebhookTimeout: time.Second})
	require.NoError(t, err)
	err = client.Send(context.Background(), StockAlert{EventID: uuid.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=400")

	var nilClient *Client
	assert.Error(t, nilClient.Send(context.Background(), StockAlert{}))
}
