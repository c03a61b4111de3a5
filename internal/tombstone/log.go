// Package tombstone provides the default in-process TombstoneStore: an
// append-only per-process log, as spec.md §9 describes. Hosts that want
// durability past a restart supply their own storage.TombstoneStore (see
// storage/tombstonearchive for a Cassandra-backed one) instead of this type.
package tombstone

import (
	"context"
	"sync"

	"github.com/deltasync/peersync/internal/model"
)

// Log is a thread-safe, append-only tombstone list. Readers receive copies;
// callers must not mutate a returned slice's elements.
type Log struct {
	mu      sync.RWMutex
	entries []model.Tombstone
}

// NewLog returns an empty tombstone log.
func NewLog() *Log {
	return &Log{}
}

// SaveTombstone appends a deletion record.
func (l *Log) SaveTombstone(_ context.Context, t model.Tombstone) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, t)
	return nil
}

// ListTombstones returns a copy of the tombstones for one channel.
func (l *Log) ListTombstones(_ context.Context, space model.SpaceID, channel model.ChannelID) ([]model.Tombstone, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.Tombstone, 0, len(l.entries))
	for _, t := range l.entries {
		if t.SpaceID == space && t.ChannelID == channel {
			out = append(out, t)
		}
	}
	return out, nil
}

// CleanupTombstones filters out every entry with DeletedAt older than
// before, reaping them in a single whole-list pass. It returns the number
// removed.
func (l *Log) CleanupTombstones(_ context.Context, before model.Timestamp) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.entries[:0:0]
	removed := 0
	for _, t := range l.entries {
		if t.DeletedAt < before {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	l.entries = kept
	return removed, nil
}
