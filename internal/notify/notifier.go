// Package notify delivers dispatched alerts to outbound channels: generic
// webhooks, Slack, and email. The notifier consumes the broadcast stream so
// slow third-party endpoints never touch the ingest path.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/intel"
	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/notify/email"
)

// Sender delivers one alert to one outbound channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, a *intel.Alert) error
}

// EmailSender delivers alerts as email through a provider registry.
type EmailSender struct {
	registry *email.Registry
	from     string
	to       []string
}

// NewEmailSender creates an email sender.
func NewEmailSender(registry *email.Registry, from string, to []string) *EmailSender {
	return &EmailSender{registry: registry, from: from, to: to}
}

// Name returns the channel name.
func (s *EmailSender) Name() string { return "email" }

// Send emails the alert to the configured recipients.
func (s *EmailSender) Send(ctx context.Context, a *intel.Alert) error {
	return s.registry.Send(ctx, &email.Request{
		From:    s.from,
		To:      s.to,
		Subject: BuildEmailSubject(a),
		Body:    BuildEmailBody(a),
	})
}

// Subscription is the hub handle the notifier drains.
type Subscription interface {
	Records() <-chan intel.Record
	Close()
}

// Notifier drains a hub subscription and fans alert records out to the
// configured senders with retry. Signal and insight records are ignored.
type Notifier struct {
	sub     Subscription
	senders []Sender
	retry   RetryConfig
	wg      sync.WaitGroup
}

// NewNotifier creates a notifier over the given subscription and senders.
func NewNotifier(sub Subscription, senders ...Sender) *Notifier {
	return &Notifier{
		sub:     sub,
		senders: senders,
		retry:   DefaultRetryConfig(),
	}
}

// Start launches the delivery loop. The loop exits when ctx is cancelled or
// the subscription channel closes.
func (n *Notifier) Start(ctx context.Context) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for {
			select {
			case <-ctx.Done():
				n.sub.Close()
				return
			case rec, ok := <-n.sub.Records():
				if !ok {
					return
				}
				if rec.Kind != intel.KindAlert {
					continue
				}
				n.deliver(ctx, rec.Alert)
			}
		}
	}()
}

// Wait blocks until the delivery loop has exited.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// deliver sends one alert to every sender. A failing channel does not stop
// the others.
func (n *Notifier) deliver(ctx context.Context, a *intel.Alert) {
	for _, s := range n.senders {
		err := WithRetry(ctx, n.retry, s.Name()+"_send", func() error {
			return s.Send(ctx, a)
		})
		if err != nil {
			slog.Error("Failed to deliver alert",
				"channel", s.Name(),
				"competitor", a.Competitor,
				"subject", a.Subject,
				"error", err,
			)
		}
	}
}
