package database

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/intel"
)

// Subscription is the hub handle the archiver drains.
type Subscription interface {
	Records() <-chan intel.Record
	Close()
}

// Archiver drains a hub subscription into the archive so persistence never
// sits on the ingest path. A full archiver queue sheds oldest records like
// any other slow subscriber.
type Archiver struct {
	db  *DB
	sub Subscription
	wg  sync.WaitGroup
}

// NewArchiver creates an archiver draining the given subscription into db.
func NewArchiver(db *DB, sub Subscription) *Archiver {
	return &Archiver{db: db, sub: sub}
}

// Start launches the drain loop. The loop exits when ctx is cancelled or
// the subscription channel closes.
func (a *Archiver) Start(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for {
			select {
			case <-ctx.Done():
				a.sub.Close()
				// Drain what is already queued before exiting.
				for rec := range a.sub.Records() {
					a.archive(rec)
				}
				return
			case rec, ok := <-a.sub.Records():
				if !ok {
					return
				}
				a.archive(rec)
			}
		}
	}()
}

// Wait blocks until the drain loop has exited.
func (a *Archiver) Wait() {
	a.wg.Wait()
}

// archive writes one record under its own deadline. Shutdown must not
// abort an in-flight write, so the deadline is independent of the loop
// context.
func (a *Archiver) archive(rec intel.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	switch rec.Kind {
	case intel.KindSignal:
		_, err = a.db.InsertSignalIdempotent(ctx, rec.Signal)
	case intel.KindInsight:
		_, err = a.db.InsertInsightIdempotent(ctx, rec.Insight)
	case intel.KindAlert:
		_, err = a.db.InsertAlertIdempotent(ctx, rec.Alert)
	default:
		slog.Warn("Skipping record with unknown kind", "kind", rec.Kind)
		return
	}
	if err != nil {
		slog.Error("Failed to archive record",
			"kind", rec.Kind,
			"competitor", rec.Competitor(),
			"error", err,
		)
	}
}
