package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookEvent is the JSON body POSTed to the configured endpoint when a
// commission record reaches a terminal status.
type WebhookEvent struct {
	Evento     string `json:"evento"`
	ComissaoID string `json:"comissao_id"`
	Status     string `json:"status"`
	Cliente    string `json:"cliente"`
}

// WebhookClient delivers status-change events to an external system
// (ERP, CRM). An empty URL disables delivery entirely.
type WebhookClient struct {
	url        string
	httpClient *http.Client
}

func NewWebhookClient(url string) *WebhookClient {
	return &WebhookClient{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether an endpoint is configured.
func (c *WebhookClient) Enabled() bool { return c.url != "" }

// Notificar POSTs the event and treats any non-2xx answer as failure.
func (c *WebhookClient) Notificar(ctx context.Context, event WebhookEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: endpoint returned %d", resp.StatusCode)
	}
	return nil
}
