package notify

import (
	"fmt"
	"time"

	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/intel"
)

// WebhookPayload is the JSON body POSTed to generic webhook endpoints.
type WebhookPayload struct {
	Event       string    `json:"event"`
	Competitor  string    `json:"competitor"`
	Subject     string    `json:"subject"`
	ThreatLevel string    `json:"threat_level"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	Timestamp   time.Time `json:"timestamp"`
}

// BuildWebhookPayload builds the webhook body for an alert.
func BuildWebhookPayload(a *intel.Alert) *WebhookPayload {
	return &WebhookPayload{
		Event:       "competitor.alert",
		Competitor:  a.Competitor,
		Subject:     a.Subject,
		ThreatLevel: string(a.Threat),
		FirstSeenAt: a.FirstSeenAt,
		Timestamp:   time.Now().UTC(),
	}
}

// SlackPayload is the Incoming Webhook message format.
type SlackPayload struct {
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

// SlackAttachment is a colored message block.
type SlackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
	Fields []SlackField `json:"fields,omitempty"`
}

// SlackField is a short key/value pair inside an attachment.
type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// threatColor maps a threat level to a Slack attachment color.
func threatColor(t intel.ThreatLevel) string {
	switch t {
	case intel.ThreatCritical:
		return "#d00000"
	case intel.ThreatHigh:
		return "#e85d04"
	case intel.ThreatMedium:
		return "#ffba08"
	case intel.ThreatLow:
		return "#2d6a4f"
	default:
		return "#6c757d"
	}
}

// BuildSlackPayload builds the Slack message for an alert.
func BuildSlackPayload(a *intel.Alert) *SlackPayload {
	return &SlackPayload{
		Text: fmt.Sprintf("Competitor alert: %s", a.Competitor),
		Attachments: []SlackAttachment{
			{
				Color: threatColor(a.Threat),
				Title: a.Subject,
				Text:  fmt.Sprintf("%s activity detected for %s", a.Threat, a.Competitor),
				Fields: []SlackField{
					{Title: "Competitor", Value: a.Competitor, Short: true},
					{Title: "Threat", Value: string(a.Threat), Short: true},
					{Title: "First seen", Value: a.FirstSeenAt.UTC().Format(time.RFC3339), Short: true},
				},
			},
		},
	}
}

// BuildEmailSubject builds the subject line for an alert email.
func BuildEmailSubject(a *intel.Alert) string {
	return fmt.Sprintf("[%s] %s: %s", a.Threat, a.Competitor, a.Subject)
}

// BuildEmailBody builds the plain-text body for an alert email.
func BuildEmailBody(a *intel.Alert) string {
	return fmt.Sprintf(
		"Competitor: %s\nSubject: %s\nThreat level: %s\nFirst seen: %s\n",
		a.Competitor,
		a.Subject,
		a.Threat,
		a.FirstSeenAt.UTC().Format(time.RFC3339),
	)
}
