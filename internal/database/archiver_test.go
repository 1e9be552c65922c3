package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/intel"
)

// fakeSubscription feeds records to the archiver without a real hub.
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

func TestArchiver_ArchivesUntilChannelCloses(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO signals`).
		WillReturnRows(sqlmock.NewRows([]string{"signal_id"}).AddRow("sig-1"))
	mock.ExpectQuery(`INSERT INTO alerts`).
		WillReturnRows(sqlmock.NewRows([]string{"subject_id"}).AddRow("al-1"))

	sub := newFakeSubscription(4)
	a := NewArchiver(&DB{conn: db}, sub)
	a.Start(context.Background())

	sub.ch <- intel.SignalRecord(&intel.Signal{
		ID: "sig-1", Head: intel.HeadPriceWatch, Competitor: "acme",
		ObservedAt: testBase, RawConfidence: 0.9,
	})
	sub.ch <- intel.AlertRecord(&intel.Alert{
		SubjectID: "al-1", Competitor: "acme", Subject: "price_watch",
		Threat: intel.ThreatHigh, FirstSeenAt: testBase,
	})
	sub.Close()
	a.Wait()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestArchiver_DrainsQueueOnShutdown(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO insights`).
		WillReturnRows(sqlmock.NewRows([]string{"insight_id"}).AddRow("in-1"))

	sub := newFakeSubscription(4)
	sub.ch <- intel.InsightRecord(&intel.Insight{
		ID: "in-1", Competitor: "acme", PatternKind: "cost-cutting signal",
		SignalIDs: []string{"sig-1"}, Threat: intel.ThreatCritical,
		CreatedAt: testBase,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := NewArchiver(&DB{conn: db}, sub)
	a.Start(ctx)
	a.Wait()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("queued record not archived on shutdown: %v", err)
	}
}

func TestArchiver_ArchiveErrorDoesNotStopLoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO signals`).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectQuery(`INSERT INTO signals`).
		WillReturnRows(sqlmock.NewRows([]string{"signal_id"}).AddRow("sig-2"))

	sub := newFakeSubscription(4)
	a := NewArchiver(&DB{conn: db}, sub)
	a.Start(context.Background())

	for _, id := range []string{"sig-1", "sig-2"} {
		sub.ch <- intel.SignalRecord(&intel.Signal{
			ID: id, Head: intel.HeadPriceWatch, Competitor: "acme",
			ObservedAt: testBase.Add(-time.Minute), RawConfidence: 0.9,
		})
	}
	sub.Close()
	a.Wait()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
