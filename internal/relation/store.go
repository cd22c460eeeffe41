package relation

import (
	"log"
	"sort"
	"sync"

	"days-together/internal/storage"
)

// Store owns the identity -> UserRecord mapping and writes it through to the
// repository on every change.
type Store struct {
	mu      sync.RWMutex
	records map[string]UserRecord
	repo    storage.Repository
}

// NewStore loads all records from repo. Unreadable state starts an empty mapping.
func NewStore(repo storage.Repository) *Store {
	s := &Store{repo: repo, records: make(map[string]UserRecord)}
	if repo == nil {
		return s
	}
	loaded, err := repo.LoadAll()
	if err != nil {
		log.Printf("⚠️ failed to load records, starting empty: %v", err)
		return s
	}
	for id, r := range loaded {
		st := StatusEnded
		if r.Active {
			st = StatusActive
		}
		s.records[id] = UserRecord{Identity: id, Day: r.Day, Status: st}
	}
	return s
}

func (s *Store) Get(id string) (UserRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	return r, ok
}

// Identities returns every stored identity in a stable order.
func (s *Store) Identities() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.records))
	for id := range s.records {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *Store) Snapshot() []UserRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]UserRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}

func (s *Store) CountActive() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.records {
		if r.Status == StatusActive {
			n++
		}
	}
	return n
}

// Update applies fn to the current record of id and persists the whole mapping.
// If fn returns an error nothing is written and the error is returned as is.
// A failed write is logged; the in-memory change is kept.
func (s *Store) Update(id string, fn func(cur UserRecord, exists bool) (UserRecord, error)) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.records[id]
	next, err := fn(cur, ok)
	if err != nil {
		return cur, err
	}
	next.Identity = id
	s.records[id] = next
	s.persistLocked()
	return next, nil
}

func (s *Store) persistLocked() {
	if s.repo == nil {
		return
	}
	out := make(map[string]storage.Record, len(s.records))
	for id, r := range s.records {
		if r.Status == StatusInactive {
			continue
		}
		out[id] = storage.Record{Day: r.Day, Active: r.Status == StatusActive}
	}
	if err := s.repo.SaveAll(out); err != nil {
		log.Printf("❌ failed to save records: %v", err)
	}
}
