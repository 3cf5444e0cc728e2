// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package alerting

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
)

// WebhookConfig configures the webhook notifier.
type WebhookConfig struct {
	URL     string            `koanf:"url" json:"url"`
	Headers map[string]string `koanf:"headers" json:"headers,omitempty"`
	Timeout time.Duration     `koanf:"timeout" json:"timeout"`
}

// WebhookPayload is the JSON body posted to the webhook endpoint.
type WebhookPayload struct {
	Alert     *Alert    `json:"alert"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// WebhookNotifier posts alerts to an HTTP endpoint. Deliveries run behind
// a circuit breaker so a dead endpoint stops consuming dispatcher time
// quickly instead of timing out on every alert.
type WebhookNotifier struct {
	url     string
	headers map[string]string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[any]
}

// NewWebhookNotifier creates a webhook notifier. The breaker opens after
// five consecutive failures and probes again after thirty seconds.
func NewWebhookNotifier(cfg WebhookConfig) *WebhookNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "alert-webhook",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &WebhookNotifier{
		url:     cfg.URL,
		headers: headers,
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
	}
}

// Name returns the notifier name.
func (n *WebhookNotifier) Name() string { return "webhook" }

// Notify posts the alert. Returns gobreaker.ErrOpenState while the
// breaker is open.
func (n *WebhookNotifier) Notify(ctx context.Context, alert *Alert) error {
	_, err := n.breaker.Execute(func() (any, error) {
		return nil, n.post(ctx, alert)
	})
	return err
}

func (n *WebhookNotifier) post(ctx context.Context, alert *Alert) error {
	payload := WebhookPayload{
		Alert:     alert,
		EventType: "audit_alert",
		Timestamp: time.Now().UTC(),
		Source:    "casetrail",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range n.headers {
		req.Header.Set(k, v)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
