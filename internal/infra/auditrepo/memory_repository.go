package auditrepo

import (
	"context"
	"sync"

	"github.com/yanqian/rihla/internal/domain/generation"
)

const defaultCapacity = 500

// MemoryRepository keeps the most recent entries in a fixed-size ring.
type MemoryRepository struct {
	mu      sync.Mutex
	entries []generation.AuditEntry
	next    int
	full    bool
}

// NewMemoryRepository constructs a ring holding at most capacity entries.
func NewMemoryRepository(capacity int) *MemoryRepository {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &MemoryRepository{entries: make([]generation.AuditEntry, capacity)}
}

// Record implements generation.AuditLog.
func (r *MemoryRepository) Record(_ context.Context, entry generation.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.next] = entry
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (r *MemoryRepository) Recent(_ context.Context, limit int) ([]generation.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	size := r.next
	if r.full {
		size = len(r.entries)
	}
	if limit <= 0 || limit > size {
		limit = size
	}
	out := make([]generation.AuditEntry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (r.next - i + len(r.entries)) % len(r.entries)
		out = append(out, r.entries[idx])
	}
	return out, nil
}

var _ generation.AuditLog = (*MemoryRepository)(nil)
