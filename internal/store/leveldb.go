package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/mamamialezatoz/go-techstack/internal/logger"
	"github.com/mamamialezatoz/go-techstack/internal/models"
)

var (
	recordPrefix = []byte("v:")
	epochPrefix  = []byte("n:")
)

// ErrClosed is returned by operations on a closed store
var ErrClosed = errors.New("store: closed")

// levelOp is one queued write. A nil batch with a non-nil flushed channel is
// a barrier: it is acknowledged once every earlier op has been written.
type levelOp struct {
	batch   *leveldb.Batch
	flushed chan struct{}
}

// LevelStore persists records in LevelDB. Writes are queued and applied by a
// single writer goroutine; reads flush the queue first.
type LevelStore struct {
	db *leveldb.DB

	mu     sync.RWMutex
	closed bool

	ops  chan levelOp
	done chan struct{}
}

// OpenLevelStore opens or creates a database directory
func OpenLevelStore(path string) (*LevelStore, error) {
	if path == "" {
		return nil, fmt.Errorf("leveldb store requires a path")
	}
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb at %s: %w", path, err)
	}
	return NewLevelStore(db), nil
}

// NewLevelStore wraps an open database. The store owns db from now on.
func NewLevelStore(db *leveldb.DB) *LevelStore {
	s := &LevelStore{
		db:   db,
		ops:  make(chan levelOp, 256),
		done: make(chan struct{}),
	}
	go s.writerLoop()
	return s
}

func recordKey(tab models.TabID) []byte {
	return append(append([]byte(nil), recordPrefix...), strconv.Itoa(int(tab))...)
}

func epochKey(tab models.TabID) []byte {
	return append(append([]byte(nil), epochPrefix...), strconv.Itoa(int(tab))...)
}

func (s *LevelStore) enqueue(op levelOp) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	s.ops <- op
	return nil
}

func (s *LevelStore) writerLoop() {
	defer close(s.done)

	for op := range s.ops {
		if op.batch != nil {
			if err := s.db.Write(op.batch, nil); err != nil {
				logger.Errorf("leveldb write failed: %v", err)
			}
		}
		if op.flushed != nil {
			close(op.flushed)
		}
	}
}

// flush waits until every queued write has been applied
func (s *LevelStore) flush() error {
	barrier := make(chan struct{})
	if err := s.enqueue(levelOp{flushed: barrier}); err != nil {
		return err
	}
	<-barrier
	return nil
}

func (s *LevelStore) Put(rec *models.VisitRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode visit %s: %w", rec.Visit, err)
	}
	batch := new(leveldb.Batch)
	batch.Put(recordKey(rec.Visit.Tab), b)
	return s.enqueue(levelOp{batch: batch})
}

func (s *LevelStore) Delete(tab models.TabID) error {
	batch := new(leveldb.Batch)
	batch.Delete(recordKey(tab))
	return s.enqueue(levelOp{batch: batch})
}

func (s *LevelStore) SetEpoch(tab models.TabID, epoch uint64) error {
	batch := new(leveldb.Batch)
	batch.Put(epochKey(tab), []byte(strconv.FormatUint(epoch, 10)))
	return s.enqueue(levelOp{batch: batch})
}

func (s *LevelStore) Forget(tab models.TabID) error {
	batch := new(leveldb.Batch)
	batch.Delete(recordKey(tab))
	batch.Delete(epochKey(tab))
	return s.enqueue(levelOp{batch: batch})
}

// All loads every stored record ordered by tab. Undecodable entries are
// skipped.
func (s *LevelStore) All() ([]*models.VisitRecord, error) {
	if err := s.flush(); err != nil {
		return nil, err
	}

	it := s.db.NewIterator(util.BytesPrefix(recordPrefix), nil)
	defer it.Release()

	var out []*models.VisitRecord
	for it.Next() {
		var rec models.VisitRecord
		if err := json.Unmarshal(it.Value(), &rec); err != nil {
			logger.Warnf("skipping undecodable visit record %q: %v", it.Key(), err)
			continue
		}
		out = append(out, &rec)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Visit.Tab < out[j].Visit.Tab })
	return out, nil
}

func (s *LevelStore) Epochs() (map[models.TabID]uint64, error) {
	if err := s.flush(); err != nil {
		return nil, err
	}

	it := s.db.NewIterator(util.BytesPrefix(epochPrefix), nil)
	defer it.Release()

	out := make(map[models.TabID]uint64)
	for it.Next() {
		tab, err := strconv.Atoi(string(bytes.TrimPrefix(it.Key(), epochPrefix)))
		if err != nil {
			continue
		}
		epoch, err := strconv.ParseUint(string(it.Value()), 10, 64)
		if err != nil {
			continue
		}
		out[models.TabID(tab)] = epoch
	}
	return out, it.Error()
}

// Close drains pending writes and closes the database
func (s *LevelStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.ops)
	s.mu.Unlock()

	<-s.done
	return s.db.Close()
}
