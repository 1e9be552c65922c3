package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/intel"
)

// isValidURL checks if a string is a valid HTTP/HTTPS URL.
func isValidURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// maskURL masks sensitive parts of a URL for logging.
func maskURL(url string) string {
	if len(url) > 50 {
		return url[:30] + "..." + url[len(url)-10:]
	}
	return url
}

// WebhookSender delivers alerts to a generic webhook endpoint via HTTP POST.
type WebhookSender struct {
	url        string
	httpClient *http.Client
}

// NewWebhookSender creates a webhook sender for the given URL.
func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{
		url: url,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Name returns the channel name.
func (s *WebhookSender) Name() string { return "webhook" }

// Send POSTs the alert to the configured webhook URL.
func (s *WebhookSender) Send(ctx context.Context, a *intel.Alert) error {
	if s.url == "" {
		return fmt.Errorf("webhook URL is required")
	}
	if !isValidURL(s.url) {
		return fmt.Errorf("invalid webhook URL: %q (must be a valid HTTP/HTTPS URL)", s.url)
	}

	jsonData, err := json.Marshal(BuildWebhookPayload(a))
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Error("Failed to send webhook alert",
			"error", err,
			"webhook_url", maskURL(s.url),
			"competitor", a.Competitor,
		)
		return fmt.Errorf("failed to send webhook alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Error("Webhook returned error status",
			"status_code", resp.StatusCode,
			"webhook_url", maskURL(s.url),
			"competitor", a.Competitor,
		)
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	slog.Info("Successfully sent webhook alert",
		"competitor", a.Competitor,
		"subject", a.Subject,
		"threat", a.Threat,
	)

	return nil
}
