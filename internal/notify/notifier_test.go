package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/intel"
)

type fakeSubscription struct {
	ch   chan intel.Record
	once sync.Once
}

func newFakeSubscription(buf int) *fakeSubscription {
	return &fakeSubscription{ch: make(chan intel.Record, buf)}
}

func (f *fakeSubscription) Records() <-chan intel.Record { return f.ch }

func (f *fakeSubscription) Close() {
	f.once.Do(func() { close(f.ch) })
}

// recordingSender captures delivered alerts.
type recordingSender struct {
	mu     sync.Mutex
	name   string
	alerts []*intel.Alert
	fail   error
}

func (s *recordingSender) Name() string { return s.name }

func (s *recordingSender) Send(ctx context.Context, a *intel.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.alerts = append(s.alerts, a)
	return nil
}

func (s *recordingSender) delivered() []*intel.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*intel.Alert(nil), s.alerts...)
}

func TestNotifier_DeliversAlertsOnly(t *testing.T) {
	sub := newFakeSubscription(8)
	sender := &recordingSender{name: "test"}
	n := NewNotifier(sub, sender)
	n.Start(context.Background())

	sub.ch <- intel.SignalRecord(&intel.Signal{ID: "sig-1", Competitor: "acme"})
	sub.ch <- intel.InsightRecord(&intel.Insight{ID: "in-1", Competitor: "acme"})
	sub.ch <- intel.AlertRecord(testAlert())
	sub.Close()
	n.Wait()

	got := sender.delivered()
	if len(got) != 1 {
		t.Fatalf("delivered %d alerts, want 1", len(got))
	}
	if got[0].Subject != "cost-cutting signal" {
		t.Errorf("delivered Subject = %q, want cost-cutting signal", got[0].Subject)
	}
}

func TestNotifier_FailingChannelDoesNotStopOthers(t *testing.T) {
	sub := newFakeSubscription(8)
	failing := &recordingSender{name: "broken", fail: errors.New("invalid webhook URL")}
	working := &recordingSender{name: "working"}
	n := NewNotifier(sub, failing, working)
	n.Start(context.Background())

	sub.ch <- intel.AlertRecord(testAlert())
	sub.Close()
	n.Wait()

	if got := working.delivered(); len(got) != 1 {
		t.Errorf("working sender delivered %d alerts, want 1", len(got))
	}
}

func TestNotifier_StopsOnContextCancel(t *testing.T) {
	sub := newFakeSubscription(8)
	sender := &recordingSender{name: "test"}
	n := NewNotifier(sub, sender)

	ctx, cancel := context.WithCancel(context.Background())
	n.Start(ctx)
	cancel()
	n.Wait() // must return, closing the subscription on the way out

	// The subscription was closed by the notifier.
	if _, ok := <-sub.Records(); ok {
		t.Error("subscription not closed after context cancel")
	}
}
