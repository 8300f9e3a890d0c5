package store

import (
	"sort"
	"sync"

	"github.com/mamamialezatoz/go-techstack/internal/models"
)

// MemoryStore keeps records in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	records map[models.TabID]*models.VisitRecord
	epochs  map[models.TabID]uint64
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[models.TabID]*models.VisitRecord),
		epochs:  make(map[models.TabID]uint64),
	}
}

func (s *MemoryStore) Put(rec *models.VisitRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Visit.Tab] = rec.Clone()
	return nil
}

func (s *MemoryStore) Delete(tab models.TabID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, tab)
	return nil
}

// All returns copies of every record ordered by tab
func (s *MemoryStore) All() ([]*models.VisitRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.VisitRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Visit.Tab < out[j].Visit.Tab })
	return out, nil
}

func (s *MemoryStore) SetEpoch(tab models.TabID, epoch uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epochs[tab] = epoch
	return nil
}

func (s *MemoryStore) Epochs() (map[models.TabID]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[models.TabID]uint64, len(s.epochs))
	for tab, epoch := range s.epochs {
		out[tab] = epoch
	}
	return out, nil
}

func (s *MemoryStore) Forget(tab models.TabID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, tab)
	delete(s.epochs, tab)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
