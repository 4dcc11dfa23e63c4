package history

import (
	"sort"
	"sync"

	"github.com/stamns/modelwatch/internal/domain"
)

// DefaultCapacity is the per-target history depth used when none is configured.
const DefaultCapacity = 60

// Ring is a fixed-capacity, insertion-ordered buffer of probe results.
// Appending beyond capacity evicts the oldest entry.
type Ring struct {
	buf   []domain.ProbeResult
	head  int // index of the oldest entry
	count int
}

// NewRing creates a ring holding at most capacity results.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]domain.ProbeResult, capacity)}
}

func (r *Ring) Append(res domain.ProbeResult) {
	if r.count < len(r.buf) {
		r.buf[(r.head+r.count)%len(r.buf)] = res
		r.count++
		return
	}
	r.buf[r.head] = res
	r.head = (r.head + 1) % len(r.buf)
}

func (r *Ring) Len() int { return r.count }

// Snapshot returns the stored results oldest first.
func (r *Ring) Snapshot() []domain.ProbeResult {
	out := make([]domain.ProbeResult, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}

// Latest returns the most recently appended result.
func (r *Ring) Latest() (domain.ProbeResult, bool) {
	if r.count == 0 {
		return domain.ProbeResult{}, false
	}
	return r.buf[(r.head+r.count-1)%len(r.buf)], true
}

// Book holds one Ring per target. Rings are created lazily on first append
// and never destroyed; a stale target simply stops receiving results.
// Appends come from the scheduler's completion handler only, reads from the
// stats aggregator and the API.
type Book struct {
	mu       sync.RWMutex
	capacity int
	rings    map[string]*Ring
}

func NewBook(capacity int) *Book {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Book{
		capacity: capacity,
		rings:    make(map[string]*Ring),
	}
}

func (b *Book) Append(res domain.ProbeResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := b.rings[res.TargetID]
	if r == nil {
		r = NewRing(b.capacity)
		b.rings[res.TargetID] = r
	}
	r.Append(res)
}

// Snapshot returns a copy of the target's history, oldest first.
// Unknown targets yield nil.
func (b *Book) Snapshot(targetID string) []domain.ProbeResult {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r := b.rings[targetID]
	if r == nil {
		return nil
	}
	return r.Snapshot()
}

func (b *Book) Latest(targetID string) (domain.ProbeResult, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r := b.rings[targetID]
	if r == nil {
		return domain.ProbeResult{}, false
	}
	return r.Latest()
}

func (b *Book) Len(targetID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r := b.rings[targetID]
	if r == nil {
		return 0
	}
	return r.Len()
}

// TargetIDs lists every target that ever received a result, sorted.
func (b *Book) TargetIDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.rings))
	for id := range b.rings {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
