// Package store persists visit records so a restarted coordinator can
// recover its per-tab state.
package store

import (
	"fmt"
	"strings"

	"github.com/mamamialezatoz/go-techstack/internal/config"
	"github.com/mamamialezatoz/go-techstack/internal/models"
)

// Store persists visit records and per-tab navigation epochs. Implementations
// keep their own copies; callers may mutate what they pass in afterwards.
type Store interface {
	Put(rec *models.VisitRecord) error
	Delete(tab models.TabID) error
	All() ([]*models.VisitRecord, error)

	SetEpoch(tab models.TabID, epoch uint64) error
	Epochs() (map[models.TabID]uint64, error)
	// Forget removes the record and the epoch of tab
	Forget(tab models.TabID) error

	Close() error
}

// New opens the store selected by cfg
func New(cfg config.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "leveldb":
		return OpenLevelStore(cfg.Path)
	}
	return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
}
