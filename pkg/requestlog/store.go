package requestlog

import "sync"

// Recorder is the minimal interface the request handler and sequence
// runner need: add an entry, attach delivery outcomes later.
type Recorder interface {
	Log(entry *Entry)
	AddDelivery(requestID string, d Delivery)
}

// Store extends Recorder with query methods for the introspection endpoint.
type Store interface {
	Recorder

	// Get retrieves an entry by request id, nil if unknown or evicted.
	Get(id string) *Entry

	// List returns up to limit entries, newest first (0 = all retained).
	List(limit int) []*Entry

	// Clear removes all entries.
	Clear()

	// Count returns the number of retained entries.
	Count() int
}

// MemoryStore is a fixed-capacity ring of entries. Oldest entries are
// evicted first. Safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	capacity int
	entries  []*Entry // oldest first
	byID     map[string]*Entry
}

// DefaultCapacity is the number of entries retained when none is given.
const DefaultCapacity = 1000

// NewMemoryStore creates a store retaining at most capacity entries.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{
		capacity: capacity,
		byID:     make(map[string]*Entry),
	}
}

// Log appends an entry, evicting the oldest when at capacity.
func (s *MemoryStore) Log(entry *Entry) {
	if entry == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.capacity {
		evicted := s.entries[0]
		s.entries = s.entries[1:]
		delete(s.byID, evicted.ID)
	}
	s.entries = append(s.entries, entry)
	s.byID[entry.ID] = entry
}

// AddDelivery appends a delivery outcome to the entry with the given
// request id. Unknown ids are ignored (the entry may have been evicted
// while its sequence was still running).
func (s *MemoryStore) AddDelivery(requestID string, d Delivery) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.byID[requestID]; ok {
		entry.Deliveries = append(entry.Deliveries, d)
	}
}

// Get retrieves an entry by request id. The returned entry is a copy:
// the stored one keeps gaining deliveries while its sequence runs, so
// handing out the live pointer would race with readers.
func (s *MemoryStore) Get(id string) *Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[id].clone()
}

// List returns up to limit entries, newest first. Entries are copied
// under the lock, see Get.
func (s *MemoryStore) List(limit int) []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*Entry, n)
	for i := 0; i < n; i++ {
		out[i] = s.entries[len(s.entries)-1-i].clone()
	}
	return out
}

// Clear removes all entries.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.byID = make(map[string]*Entry)
}

// Count returns the number of retained entries.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Nop is a Recorder that discards everything. Used when request history
// is disabled.
type Nop struct{}

func (Nop) Log(*Entry)                   {}
func (Nop) AddDelivery(string, Delivery) {}
