package engine

import (
	"sync"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/google/btree"
)

// Entry is one vault event as recorded in the journal
type Entry struct {
	Seq        uint64            `json:"seq"`
	Height     int64             `json:"height"`
	Time       time.Time         `json:"time"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Journal keeps the most recent events ordered by sequence number so that
// readers can resume from the last sequence they saw.
type Journal struct {
	mu       sync.RWMutex
	tree     *btree.BTreeG[Entry]
	nextSeq  uint64
	capacity int
}

// NewJournal creates a journal holding at most capacity entries
func NewJournal(capacity int) *Journal {
	if capacity <= 0 {
		capacity = 10000
	}
	return &Journal{
		tree: btree.NewG[Entry](32, func(a, b Entry) bool {
			return a.Seq < b.Seq
		}),
		nextSeq:  1,
		capacity: capacity,
	}
}

// Append records events emitted at height and returns the new entries
func (j *Journal) Append(height int64, blockTime time.Time, events sdk.Events) []Entry {
	if len(events) == 0 {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	entries := make([]Entry, 0, len(events))
	for _, ev := range events {
		attrs := make(map[string]string, len(ev.Attributes))
		for _, attr := range ev.Attributes {
			attrs[attr.Key] = attr.Value
		}
		entry := Entry{
			Seq:        j.nextSeq,
			Height:     height,
			Time:       blockTime,
			Type:       ev.Type,
			Attributes: attrs,
		}
		j.nextSeq++
		j.tree.ReplaceOrInsert(entry)
		entries = append(entries, entry)
	}

	for j.tree.Len() > j.capacity {
		j.tree.DeleteMin()
	}
	return entries
}

// Since returns up to limit entries with a sequence above seq, oldest first.
// A limit of zero returns everything retained.
func (j *Journal) Since(seq uint64, limit int) []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var out []Entry
	j.tree.AscendGreaterOrEqual(Entry{Seq: seq + 1}, func(e Entry) bool {
		out = append(out, e)
		return limit <= 0 || len(out) < limit
	})
	return out
}

// Oldest returns the lowest retained sequence, zero when empty
func (j *Journal) Oldest() uint64 {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if min, ok := j.tree.Min(); ok {
		return min.Seq
	}
	return 0
}

// Latest returns the last sequence handed out, zero when nothing was recorded
func (j *Journal) Latest() uint64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.nextSeq - 1
}

// Len returns the number of retained entries
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.tree.Len()
}
