// Package store provides the correlation store: a windowed, per-competitor
// index of recent signals queried by the correlator.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/CryptoBitwise/Hydra-Intelligence-System/internal/intel"
)

// Clock supplies the current time; injected for deterministic tests.
type Clock func() time.Time

// entry pairs a signal with its insertion sequence for stable tie-breaking.
type entry struct {
	sig *intel.Signal
	seq uint64
}

// partition holds one competitor's signals ordered by observed-at ascending,
// ties broken by insertion order.
type partition struct {
	mu      sync.RWMutex
	entries []entry
	byID    map[string]bool
}

// Store is the correlation store. State is partitioned per competitor; there
// is no global lock on the signal data, only on the partition directory.
type Store struct {
	retention time.Duration
	clock     Clock

	mu         sync.RWMutex
	partitions map[string]*partition

	seqMu sync.Mutex
	seq   uint64
}

// New creates a store retaining signals for the given window. A nil clock
// defaults to time.Now.
func New(retention time.Duration, clock Clock) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		retention:  retention,
		clock:      clock,
		partitions: make(map[string]*partition),
	}
}

func (s *Store) partitionFor(competitor string) *partition {
	s.mu.RLock()
	p, ok := s.partitions[competitor]
	s.mu.RUnlock()
	if ok {
		return p
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok = s.partitions[competitor]; ok {
		return p
	}
	p = &partition{byID: make(map[string]bool)}
	s.partitions[competitor] = p
	return p
}

func (s *Store) nextSeq() uint64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	s.seq++
	return s.seq
}

// Put inserts a signal, keyed by competitor then time. Re-inserting a signal
// with an id already retained for the competitor is a no-op and returns
// false. Inserting an already-stale signal succeeds (it is immediately
// eviction-eligible, never an error). Entries older than now-retention are
// lazily evicted on the way in. An insert is atomically visible: concurrent
// readers see either the state before or after it, never a torn write.
func (s *Store) Put(sig *intel.Signal) bool {
	p := s.partitionFor(sig.Competitor)
	cutoff := s.clock().Add(-s.retention)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.evictLocked(cutoff)
	if p.byID[sig.ID] {
		return false
	}

	e := entry{sig: sig, seq: s.nextSeq()}
	// Signals usually arrive near-ordered, so search from the end.
	i := sort.Search(len(p.entries), func(i int) bool {
		return p.entries[i].sig.ObservedAt.After(sig.ObservedAt)
	})
	p.entries = append(p.entries, entry{})
	copy(p.entries[i+1:], p.entries[i:])
	p.entries[i] = e
	p.byID[sig.ID] = true
	return true
}

// evictLocked drops entries observed before cutoff. Caller holds p.mu.
func (p *partition) evictLocked(cutoff time.Time) {
	n := 0
	for n < len(p.entries) && p.entries[n].sig.ObservedAt.Before(cutoff) {
		delete(p.byID, p.entries[n].sig.ID)
		n++
	}
	if n > 0 {
		p.entries = append(p.entries[:0], p.entries[n:]...)
	}
}

// Query returns the retained signals for a competitor whose observed-at
// falls in [from, to], ascending by observed-at with insertion-order ties,
// excluding signals from excludeHead when it is non-empty.
func (s *Store) Query(competitor string, from, to time.Time, excludeHead intel.HeadKind) []*intel.Signal {
	s.mu.RLock()
	p, ok := s.partitions[competitor]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	cutoff := s.clock().Add(-s.retention)

	p.mu.Lock()
	p.evictLocked(cutoff)
	var out []*intel.Signal
	for _, e := range p.entries {
		at := e.sig.ObservedAt
		if at.Before(from) {
			continue
		}
		if at.After(to) {
			break
		}
		if excludeHead != "" && e.sig.Head == excludeHead {
			continue
		}
		out = append(out, e.sig)
	}
	p.mu.Unlock()
	return out
}

// Recent returns up to limit most recent retained signals for a competitor,
// newest first, optionally filtered by head. Used for dashboard hydration.
func (s *Store) Recent(competitor string, head intel.HeadKind, limit int) []*intel.Signal {
	s.mu.RLock()
	p, ok := s.partitions[competitor]
	s.mu.RUnlock()
	if !ok || limit <= 0 {
		return nil
	}

	cutoff := s.clock().Add(-s.retention)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.evictLocked(cutoff)
	var out []*intel.Signal
	for i := len(p.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if head != "" && p.entries[i].sig.Head != head {
			continue
		}
		out = append(out, p.entries[i].sig)
	}
	return out
}

// Contains reports whether a signal id is currently retained for the
// competitor.
func (s *Store) Contains(competitor, id string) bool {
	s.mu.RLock()
	p, ok := s.partitions[competitor]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.byID[id]
}

// Size returns the number of retained signals for a competitor, evicting
// stale entries first.
func (s *Store) Size(competitor string) int {
	s.mu.RLock()
	p, ok := s.partitions[competitor]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evictLocked(s.clock().Add(-s.retention))
	return len(p.entries)
}
