package producer

import (
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		brokers string
		topic   string
		wantErr bool
	}{
		{
			name:    "valid configuration",
			brokers: "localhost:9092",
			topic:   "signals.observed",
			wantErr: false,
		},
		{
			name:    "multiple brokers",
			brokers: "broker-1:9092,broker-2:9092",
			topic:   "signals.observed",
			wantErr: false,
		},
		{
			name:    "empty brokers",
			brokers: "",
			topic:   "signals.observed",
			wantErr: true,
		},
		{
			name:    "empty topic",
			brokers: "localhost:9092",
			topic:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.brokers, tt.topic)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err == nil {
				if p == nil {
					t.Fatal("New() returned nil producer without error")
				}
				p.Close()
			}
		})
	}
}
