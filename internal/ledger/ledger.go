// Package ledger records which games have already been scored so that no game
// produces points twice.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrNilStore is returned when a ledger is opened without a backing store
var ErrNilStore = errors.New("ledger: nil store")

// Store is the durable side of a ledger, scoped to one season
type Store interface {
	// Load returns every processed game key and when the set last changed
	Load(ctx context.Context) (keys []string, lastUpdated time.Time, err error)
	// Append adds keys to the processed set
	Append(ctx context.Context, keys []string, at time.Time) error
	// Reset empties the processed set
	Reset(ctx context.Context) error
}

// Ledger is an in-memory working copy of a Store. Keys marked during a run are
// held back until Commit so the store is written once per batch.
// A Ledger is not safe for concurrent use.
type Ledger struct {
	store       Store
	processed   map[string]struct{}
	pending     []string
	lastUpdated time.Time
	now         func() time.Time
}

// Open loads the processed set from store
func Open(ctx context.Context, store Store) (*Ledger, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	keys, lastUpdated, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	processed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		processed[k] = struct{}{}
	}

	return &Ledger{
		store:       store,
		processed:   processed,
		lastUpdated: lastUpdated,
		now:         time.Now,
	}, nil
}

// HasProcessed reports whether key was scored before or marked during this run
func (l *Ledger) HasProcessed(key string) bool {
	_, ok := l.processed[key]
	return ok
}

// MarkProcessed adds key to the working copy. Marking a key twice is a no-op.
func (l *Ledger) MarkProcessed(key string) {
	if key == "" || l.HasProcessed(key) {
		return
	}
	l.processed[key] = struct{}{}
	l.pending = append(l.pending, key)
}

// Pending returns the keys marked since the last Commit
func (l *Ledger) Pending() []string {
	out := make([]string, len(l.pending))
	copy(out, l.pending)
	return out
}

// Commit persists the keys marked since the last Commit. With nothing pending
// it does not touch the store. On failure the pending keys are kept.
func (l *Ledger) Commit(ctx context.Context) error {
	if len(l.pending) == 0 {
		return nil
	}

	at := l.now()
	if err := l.store.Append(ctx, l.pending, at); err != nil {
		return fmt.Errorf("failed to persist %d ledger keys: %w", len(l.pending), err)
	}

	l.pending = nil
	l.lastUpdated = at
	return nil
}

// Reset empties both the store and the working copy
func (l *Ledger) Reset(ctx context.Context) error {
	if err := l.store.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset ledger: %w", err)
	}
	l.processed = make(map[string]struct{})
	l.pending = nil
	l.lastUpdated = l.now()
	return nil
}

// Len returns the number of processed keys, committed or not
func (l *Ledger) Len() int {
	return len(l.processed)
}

// LastUpdated returns when the store last changed
func (l *Ledger) LastUpdated() time.Time {
	return l.lastUpdated
}

// Keys returns the processed keys in sorted order
func (l *Ledger) Keys() []string {
	keys := make([]string, 0, len(l.processed))
	for k := range l.processed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
