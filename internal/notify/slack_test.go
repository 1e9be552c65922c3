package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/intel"
)

func TestSlackSender_Send(t *testing.T) {
	t.Run("successful delivery", func(t *testing.T) {
		var received SlackPayload
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
				t.Errorf("decode body: %v", err)
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		s := NewSlackSender(srv.URL)
		if err := s.Send(context.Background(), testAlert()); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		if !strings.Contains(received.Text, "acme") {
			t.Errorf("message text = %q, want competitor name", received.Text)
		}
		if len(received.Attachments) != 1 {
			t.Fatalf("attachments = %d, want 1", len(received.Attachments))
		}
		att := received.Attachments[0]
		if att.Title != "cost-cutting signal" {
			t.Errorf("attachment title = %q, want alert subject", att.Title)
		}
		if att.Color != "#d00000" {
			t.Errorf("attachment color = %q, want critical red", att.Color)
		}
	})

	t.Run("server error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		s := NewSlackSender(srv.URL)
		err := s.Send(context.Background(), testAlert())
		if err == nil {
			t.Fatal("Send() error = nil, want error for 503")
		}
		// A 503 from Slack is transient.
		if !IsRetryable(err) {
			t.Errorf("Send() error = %v, want retryable", err)
		}
	})

	t.Run("empty URL", func(t *testing.T) {
		s := NewSlackSender("")
		err := s.Send(context.Background(), testAlert())
		if err == nil || !strings.Contains(err.Error(), "webhook URL is required") {
			t.Errorf("Send() error = %v, want URL required", err)
		}
	})

	t.Run("invalid URL", func(t *testing.T) {
		s := NewSlackSender("hooks.slack.com/services/T/B/X")
		err := s.Send(context.Background(), testAlert())
		if err == nil || !strings.Contains(err.Error(), "invalid Slack webhook URL") {
			t.Errorf("Send() error = %v, want invalid URL", err)
		}
	})
}

func TestSlackSender_Name(t *testing.T) {
	if got := NewSlackSender("https://hooks.slack.com/services/T/B/X").Name(); got != "slack" {
		t.Errorf("Name() = %q, want slack", got)
	}
}

func TestThreatColor(t *testing.T) {
	tests := []struct {
		threat intel.ThreatLevel
		want   string
	}{
		{threat: intel.ThreatCritical, want: "#d00000"},
		{threat: intel.ThreatHigh, want: "#e85d04"},
		{threat: intel.ThreatMedium, want: "#ffba08"},
		{threat: intel.ThreatLow, want: "#2d6a4f"},
		{threat: intel.ThreatInfo, want: "#6c757d"},
	}
	for _, tt := range tests {
		if got := threatColor(tt.threat); got != tt.want {
			t.Errorf("threatColor(%s) = %q, want %q", tt.threat, got, tt.want)
		}
	}
}

func TestBuildEmailSubject(t *testing.T) {
	got := BuildEmailSubject(testAlert())
	want := "[critical] acme: cost-cutting signal"
	if got != want {
		t.Errorf("BuildEmailSubject() = %q, want %q", got, want)
	}
}
