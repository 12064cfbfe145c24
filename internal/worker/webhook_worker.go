package worker

// webhook_worker.go
// Processes status-change notification jobs from QueueWebhook.
// Delivers the event to the configured endpoint through the circuit
// breaker, with exponential backoff; exhausted jobs go to the DLQ.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cotaflow/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const webhookMaxAttempts = 3

// WebhookJobPayload is the job envelope sent to QueueWebhook.
type WebhookJobPayload struct {
	Evento     string `json:"evento"`
	ComissaoID string `json:"comissao_id"`
	Status     string `json:"status"`
	Cliente    string `json:"cliente"`
}

type WebhookWorker struct {
	client *infra.WebhookClient
	cb     *infra.CircuitBreaker
	rdb    *redis.Client
}

func NewWebhookWorker(client *infra.WebhookClient, cb *infra.CircuitBreaker, rdb *redis.Client) *WebhookWorker {
	return &WebhookWorker{client: client, cb: cb, rdb: rdb}
}

// Process delivers one event. Delivery is best-effort: a permanently
// failing endpoint parks the job in the DLQ instead of blocking the pool.
func (w *WebhookWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload WebhookJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("webhook_worker: invalid payload")
		return
	}
	if !w.client.Enabled() {
		log.Debug().Str("evento", payload.Evento).Msg("webhook_worker: no endpoint configured — skipping")
		return
	}

	err := withRetry(ctx, webhookMaxAttempts, func(attempt int) error {
		if w.cb.State() == infra.CBOpen {
			return fmt.Errorf("circuit breaker open")
		}
		return w.cb.Execute(func() error {
			return w.client.Notificar(ctx, infra.WebhookEvent{
				Evento:     payload.Evento,
				ComissaoID: payload.ComissaoID,
				Status:     payload.Status,
				Cliente:    payload.Cliente,
			})
		})
	})
	if err != nil {
		log.Error().Err(err).Str("comissao_id", payload.ComissaoID).Msg("webhook_worker: delivery failed")
		SendToDLQ(ctx, w.rdb, QueueWebhook, "webhook", raw,
			fmt.Sprintf("delivery failed after %d attempts: %v", webhookMaxAttempts, err),
			webhookMaxAttempts)
		return
	}
	log.Info().
		Str("comissao_id", payload.ComissaoID).
		Str("status", payload.Status).
		Msg("webhook_worker: event delivered")
}

// withRetry calls fn up to maxAttempts times with exponential backoff.
// Backoff schedule: attempt 1 = immediate, 2 = 1s, 3 = 2s.
// Returns nil if any attempt succeeds; last error otherwise.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
