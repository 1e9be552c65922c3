package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/intel"
)

// SlackSender delivers alerts to a Slack Incoming Webhook.
type SlackSender struct {
	webhookURL string
	httpClient *http.Client
}

// NewSlackSender creates a Slack sender for the given Incoming Webhook URL.
func NewSlackSender(webhookURL string) *SlackSender {
	return &SlackSender{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Name returns the channel name.
func (s *SlackSender) Name() string { return "slack" }

// Send posts the alert to Slack.
func (s *SlackSender) Send(ctx context.Context, a *intel.Alert) error {
	if s.webhookURL == "" {
		return fmt.Errorf("slack webhook URL is required")
	}
	if !isValidURL(s.webhookURL) {
		return fmt.Errorf("invalid Slack webhook URL: %q (must be a valid HTTP/HTTPS URL). Slack webhook URLs typically start with https://hooks.slack.com/services/", s.webhookURL)
	}

	jsonData, err := json.Marshal(BuildSlackPayload(a))
	if err != nil {
		return fmt.Errorf("failed to marshal Slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Error("Failed to send Slack alert",
			"error", err,
			"webhook_url", maskURL(s.webhookURL),
			"competitor", a.Competitor,
		)
		return fmt.Errorf("failed to send Slack alert to %s: %w", maskURL(s.webhookURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Error("Slack webhook returned error status",
			"status_code", resp.StatusCode,
			"competitor", a.Competitor,
		)
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}

	slog.Info("Successfully sent Slack alert",
		"competitor", a.Competitor,
		"subject", a.Subject,
		"threat", a.Threat,
	)

	return nil
}
