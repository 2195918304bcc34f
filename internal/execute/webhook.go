package execute

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"workpile/internal/domain"
)

// Webhook delivers work payloads to an external HTTP endpoint. A
// non-2xx response is a failure, so the worker's retry policy applies.
// The receiving side sees at-least-once delivery keyed by work id.
type Webhook struct {
	url    string
	client *http.Client
}

type webhookPayload struct {
	ID          string    `json:"id"`
	Data        string    `json:"data"`
	RequestedAt time.Time `json:"requested_at"`
	Attempt     int       `json:"attempt"`
}

func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (h *Webhook) Do(ctx context.Context, w domain.Work, attempt int) error {
	body, err := json.Marshal(webhookPayload{
		ID:          w.ID,
		Data:        w.Data,
		RequestedAt: w.RequestedAt,
		Attempt:     attempt,
	})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver work %s: %w", w.ID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
