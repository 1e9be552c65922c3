package email

import (
	"context"
	"errors"
	"testing"
)

// fakeProvider is a controllable provider for registry tests.
type fakeProvider struct {
	name       string
	configured bool
	fail       error
	sent       int
}

func (p *fakeProvider) Name() string       { return p.name }
func (p *fakeProvider) IsConfigured() bool { return p.configured }

func (p *fakeProvider) Send(ctx context.Context, req *Request) error {
	if p.fail != nil {
		return p.fail
	}
	p.sent++
	return nil
}

func testRequest() *Request {
	return &Request{
		From:    "alerts@example.com",
		To:      []string{"ops@example.com"},
		Subject: "[critical] acme: cost-cutting signal",
		Body:    "Competitor: acme\n",
	}
}

func TestRegistry_SetPrimaryUnregistered(t *testing.T) {
	r := NewRegistry()
	if err := r.SetPrimary("resend"); err == nil {
		t.Error("SetPrimary(unregistered) error = nil, want error")
	}
}

func TestRegistry_SendUsesPrimary(t *testing.T) {
	r := NewRegistry()
	primary := &fakeProvider{name: "resend", configured: true}
	fallback := &fakeProvider{name: "ses", configured: true}
	r.Register(primary)
	r.Register(fallback)
	if err := r.SetPrimary("resend"); err != nil {
		t.Fatalf("SetPrimary() error = %v", err)
	}
	if err := r.SetFallback("ses"); err != nil {
		t.Fatalf("SetFallback() error = %v", err)
	}

	if err := r.Send(context.Background(), testRequest()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if primary.sent != 1 || fallback.sent != 0 {
		t.Errorf("sent = primary %d, fallback %d, want 1, 0", primary.sent, fallback.sent)
	}
}

func TestRegistry_SendFallsBackOnFailure(t *testing.T) {
	r := NewRegistry()
	primary := &fakeProvider{name: "resend", configured: true, fail: errors.New("rate limit exceeded")}
	fallback := &fakeProvider{name: "ses", configured: true}
	r.Register(primary)
	r.Register(fallback)
	r.SetPrimary("resend")
	r.SetFallback("ses")

	if err := r.Send(context.Background(), testRequest()); err != nil {
		t.Fatalf("Send() error = %v, want nil via fallback", err)
	}
	if fallback.sent != 1 {
		t.Errorf("fallback sent = %d, want 1", fallback.sent)
	}
}

func TestRegistry_SendReturnsOriginalErrorWhenAllFail(t *testing.T) {
	r := NewRegistry()
	primaryErr := errors.New("rate limit exceeded")
	primary := &fakeProvider{name: "resend", configured: true, fail: primaryErr}
	fallback := &fakeProvider{name: "ses", configured: true, fail: errors.New("throttled")}
	r.Register(primary)
	r.Register(fallback)
	r.SetPrimary("resend")
	r.SetFallback("ses")

	err := r.Send(context.Background(), testRequest())
	if !errors.Is(err, primaryErr) {
		t.Errorf("Send() error = %v, want primary error %v", err, primaryErr)
	}
}

func TestRegistry_UnconfiguredPrimarySkipped(t *testing.T) {
	r := NewRegistry()
	primary := &fakeProvider{name: "resend", configured: false}
	fallback := &fakeProvider{name: "ses", configured: true}
	r.Register(primary)
	r.Register(fallback)
	r.SetPrimary("resend")
	r.SetFallback("ses")

	if err := r.Send(context.Background(), testRequest()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if primary.sent != 0 || fallback.sent != 1 {
		t.Errorf("sent = primary %d, fallback %d, want 0, 1", primary.sent, fallback.sent)
	}
}

func TestRegistry_NoConfiguredProvider(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeProvider{name: "resend", configured: false})

	if err := r.Send(context.Background(), testRequest()); err == nil {
		t.Error("Send() error = nil, want no configured provider error")
	}
}
