// Package records owns the in-memory, insertion-ordered list of processed
// files. Every write replaces a whole record value under one lock.
package records

import (
	"sync"

	"github.com/format-smormat/backend/internal/models"
)

// EventType identifies a change to the record list.
type EventType string

const (
	EventUpsert  EventType = "upsert"
	EventRemove  EventType = "remove"
	EventCleared EventType = "clear"
)

// subscriberBuffer is the number of events a subscriber may lag behind
// before further events are dropped for it.
const subscriberBuffer = 64

// Event describes one change. Record is set for upserts, ID for removals.
type Event struct {
	Type   EventType             `json:"type"`
	ID     string                `json:"id,omitempty"`
	Record *models.ProcessedFile `json:"record,omitempty"`
}

// Store implements the shared record list. The zero value is not usable;
// call NewStore.
type Store struct {
	mu      sync.RWMutex
	records []models.ProcessedFile // newest first
	index   map[string]int

	subMu  sync.Mutex
	subs   map[int]chan Event
	nextID int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		index: make(map[string]int),
		subs:  make(map[int]chan Event),
	}
}

// Prepend inserts recs at the front of the list, keeping their relative
// order, so the first element of recs becomes the first record.
// Records whose id is already present are skipped.
func (s *Store) Prepend(recs ...models.ProcessedFile) {
	s.mu.Lock()
	fresh := make([]models.ProcessedFile, 0, len(recs))
	seen := make(map[string]struct{}, len(recs))
	for _, r := range recs {
		if _, ok := s.index[r.ID]; ok {
			continue
		}
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		fresh = append(fresh, r)
	}

	next := make([]models.ProcessedFile, 0, len(fresh)+len(s.records))
	next = append(next, fresh...)
	next = append(next, s.records...)
	s.records = next
	s.reindex()

	for i := range fresh {
		rec := fresh[i]
		s.publish(Event{Type: EventUpsert, ID: rec.ID, Record: &rec})
	}
	s.mu.Unlock()
}

// Get returns a copy of the record with the given id.
func (s *Store) Get(id string) (models.ProcessedFile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return models.ProcessedFile{}, false
	}
	return s.records[i], true
}

// List returns a snapshot of all records, newest first.
func (s *Store) List() []models.ProcessedFile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ProcessedFile, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of live records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Update replaces the record identified by id with fn(current). The new
// value is stored only if the record still exists and its status may
// legally advance to the status fn returned; the id is never changed.
// It returns the stored value and whether the update was applied.
func (s *Store) Update(id string, fn func(models.ProcessedFile) models.ProcessedFile) (models.ProcessedFile, bool) {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return models.ProcessedFile{}, false
	}

	cur := s.records[i]
	next := fn(cur)
	next.ID = cur.ID
	if !cur.Status.CanAdvanceTo(next.Status) {
		s.mu.Unlock()
		return cur, false
	}
	s.records[i] = next
	s.publish(Event{Type: EventUpsert, ID: id, Record: &next})
	s.mu.Unlock()

	return next, true
}

// Remove deletes exactly the record with the given id.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return false
	}

	next := make([]models.ProcessedFile, 0, len(s.records)-1)
	next = append(next, s.records[:i]...)
	next = append(next, s.records[i+1:]...)
	s.records = next
	s.reindex()
	s.publish(Event{Type: EventRemove, ID: id})
	s.mu.Unlock()

	return true
}

// Clear removes every record and returns how many were removed.
func (s *Store) Clear() int {
	s.mu.Lock()
	n := len(s.records)
	s.records = nil
	s.index = make(map[string]int)
	s.publish(Event{Type: EventCleared})
	s.mu.Unlock()

	return n
}

// Subscribe registers for change events. The returned cancel func must be
// called to release the subscription; it closes the channel.
func (s *Store) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// publish is called with mu held so events leave in the order the list
// changed. It never blocks; a subscriber with a full buffer misses the event.
func (s *Store) publish(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// reindex must be called with mu held for writing.
func (s *Store) reindex() {
	s.index = make(map[string]int, len(s.records))
	for i, r := range s.records {
		s.index[r.ID] = i
	}
}
