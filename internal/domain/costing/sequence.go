package costing

import (
	"sync"

	"github.com/google/uuid"
)

// SequenceAllocator serializes FIFO sequence assignment per material(+batch).
// Sequence numbers are assigned read-then-write (max(existing)+1), so the
// read of existing layers and the save of the new layer must happen inside
// one critical section. A unique index on (material, batch, sequence) backs
// this up at the store level.
type SequenceAllocator struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSequenceAllocator creates a new sequence allocator
func NewSequenceAllocator() *SequenceAllocator {
	return &SequenceAllocator{
		locks: make(map[string]*sync.Mutex),
	}
}

// Acquire locks sequence assignment for a material(+batch) and returns the
// release function. Callers must release as soon as the new layer is saved.
func (a *SequenceAllocator) Acquire(materialID uuid.UUID, batchID *uuid.UUID) func() {
	key := materialID.String()
	if batchID != nil {
		key += "|" + batchID.String()
	}

	a.mu.Lock()
	lock, ok := a.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[key] = lock
	}
	a.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
