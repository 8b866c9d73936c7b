package application

import (
	"sync"

	"github.com/bnema/dealer-pipeline/internal/domain"
)

const DefaultHistorySize = 50

// History is a fixed-size ring of the most recent transitions. Once full, the
// oldest entry is overwritten.
type History struct {
	mu      sync.Mutex
	entries []domain.UndoEntry
	start   int
	size    int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}

	return &History{entries: make([]domain.UndoEntry, capacity)}
}

func (h *History) Push(entry domain.UndoEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	capacity := len(h.entries)
	if h.size < capacity {
		h.entries[(h.start+h.size)%capacity] = entry
		h.size++
		return
	}

	h.entries[h.start] = entry
	h.start = (h.start + 1) % capacity
}

// Peek returns the most recent entry.
func (h *History) Peek() (domain.UndoEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.size == 0 {
		return domain.UndoEntry{}, false
	}
	return h.entries[h.lastLocked()], true
}

// Pop removes the most recent entry.
func (h *History) Pop() (domain.UndoEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.size == 0 {
		return domain.UndoEntry{}, false
	}
	idx := h.lastLocked()
	entry := h.entries[idx]
	h.entries[idx] = domain.UndoEntry{}
	h.size--
	return entry, true
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.size
}

// Entries returns the retained entries, oldest first.
func (h *History) Entries() []domain.UndoEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := make([]domain.UndoEntry, 0, h.size)
	for i := 0; i < h.size; i++ {
		entries = append(entries, h.entries[(h.start+i)%len(h.entries)])
	}
	return entries
}

func (h *History) lastLocked() int {
	return (h.start + h.size - 1) % len(h.entries)
}
