package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"example.com/pushups/internal/events"
)

// WebhookSender posts notifications as JSON to a chat gateway.
type WebhookSender struct {
	client *http.Client
	url    string
	token  string
}

// NewWebhookSender constructs a WebhookSender.
func NewWebhookSender(endpoint, token string, timeout time.Duration) *WebhookSender {
	return &WebhookSender{
		client: &http.Client{Timeout: timeout},
		url:    strings.TrimRight(endpoint, "/"),
		token:  token,
	}
}

// Send implements Sender.
func (w *WebhookSender) Send(ctx context.Context, n events.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &DeliveryError{Status: resp.StatusCode}
	}
	return nil
}

// DeliveryError represents a non-successful gateway response.
type DeliveryError struct {
	Status int
}

func (e *DeliveryError) Error() string {
	return "notification delivery failed with status " + http.StatusText(e.Status)
}
