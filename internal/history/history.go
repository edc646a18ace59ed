// Package history implements the bounded duplicate-suppression window for feed entries.
package history

import "feedrelay/internal/model"

// DefaultCapacity is the number of entries remembered by the poller.
const DefaultCapacity = 200

// History is a fixed-capacity FIFO set of feed entries.
// It is not safe for concurrent use; the poller is its only caller.
type History struct {
	ring  []model.FeedEntry
	index map[model.FeedEntry]struct{}
	next  int
	size  int
}

// New returns an empty History holding at most capacity entries.
func New(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{
		ring:  make([]model.FeedEntry, capacity),
		index: make(map[model.FeedEntry]struct{}, capacity),
	}
}

// Seen reports whether an equal entry is currently resident.
func (h *History) Seen(e model.FeedEntry) bool {
	_, ok := h.index[e]
	return ok
}

// Record inserts e, evicting the oldest entry when full.
// Recording an entry that is already resident is a no-op.
func (h *History) Record(e model.FeedEntry) {
	if h.Seen(e) {
		return
	}
	if h.size == len(h.ring) {
		delete(h.index, h.ring[h.next])
	} else {
		h.size++
	}
	h.ring[h.next] = e
	h.index[e] = struct{}{}
	h.next = (h.next + 1) % len(h.ring)
}

// CheckAndRecord records e and reports whether it was new.
func (h *History) CheckAndRecord(e model.FeedEntry) bool {
	if h.Seen(e) {
		return false
	}
	h.Record(e)
	return true
}

// Len returns the number of resident entries.
func (h *History) Len() int {
	return h.size
}

// Cap returns the capacity.
func (h *History) Cap() int {
	return len(h.ring)
}
