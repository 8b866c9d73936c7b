package application

import (
	"fmt"
	"sort"
	"sync"

	"github.com/bnema/dealer-pipeline/internal/domain"
)

// Listener receives the snapshot produced by a committed store mutation.
// Listeners run synchronously and must not mutate the store themselves.
type Listener func(domain.PipelineSnapshot)

// Store holds the local copy of every tracked record. Records are values, so a
// mutation always swaps in a whole new record.
type Store struct {
	// commitMu serializes mutations together with listener delivery so that
	// listeners observe commits in order.
	commitMu sync.Mutex

	mu       sync.RWMutex
	records  map[domain.RecordID]domain.CustomerRecord
	order    []domain.RecordID
	revision uint64
	memo     *domain.PipelineSnapshot

	listenersMu  sync.Mutex
	listeners    map[int]Listener
	nextListener int
}

func NewStore() *Store {
	return &Store{
		records:   map[domain.RecordID]domain.CustomerRecord{},
		listeners: map[int]Listener{},
	}
}

func (s *Store) Get(id domain.RecordID) (domain.CustomerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return domain.CustomerRecord{}, &domain.NotFoundError{ID: id}
	}

	return record, nil
}

func (s *Store) All() []domain.CustomerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.allLocked()
}

func (s *Store) ByStage(stage domain.Stage) []domain.CustomerRecord {
	return s.filter(func(record domain.CustomerRecord) bool {
		return record.Stage == stage
	})
}

func (s *Store) ByAssignee(user domain.UserID) []domain.CustomerRecord {
	return s.filter(func(record domain.CustomerRecord) bool {
		return record.AssignedTo == user
	})
}

func (s *Store) filter(keep func(domain.CustomerRecord) bool) []domain.CustomerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]domain.CustomerRecord, 0)
	for _, id := range s.order {
		record := s.records[id]
		if keep(record) {
			records = append(records, record)
		}
	}
	return records
}

// Replace swaps in record unless the store already holds a newer version of it.
// Unknown ids are inserted.
func (s *Store) Replace(record domain.CustomerRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("replace record: %w", err)
	}

	return s.commit(func() error {
		current, ok := s.records[record.ID]
		if ok && record.Version < current.Version {
			return &domain.StaleWriteError{ID: record.ID, Stored: current.Version, Attempted: record.Version}
		}
		s.putLocked(record, ok)
		return nil
	})
}

// Revert undoes an optimistic change: while the stored record still equals
// expected, the fields of prior are committed again at expected.Version+1, so
// versions seen by listeners keep increasing. It returns the committed record.
func (s *Store) Revert(expected, prior domain.CustomerRecord) (domain.CustomerRecord, error) {
	if expected.ID != prior.ID {
		return domain.CustomerRecord{}, fmt.Errorf("revert record: id mismatch %s != %s", expected.ID, prior.ID)
	}

	restored := prior
	restored.Version = expected.Version + 1

	err := s.commit(func() error {
		current, ok := s.records[expected.ID]
		if !ok {
			return &domain.NotFoundError{ID: expected.ID}
		}
		if current != expected {
			return &domain.StaleWriteError{ID: expected.ID, Stored: current.Version, Attempted: expected.Version}
		}
		s.putLocked(restored, true)
		return nil
	})
	if err != nil {
		return domain.CustomerRecord{}, err
	}

	return restored, nil
}

// Load inserts or refreshes records in bulk, skipping values older than what
// the store already holds. Listeners are notified once.
func (s *Store) Load(records []domain.CustomerRecord) error {
	for _, record := range records {
		if err := record.Validate(); err != nil {
			return fmt.Errorf("load records: %w", err)
		}
	}

	return s.commit(func() error {
		for _, record := range records {
			current, ok := s.records[record.ID]
			if ok && record.Version < current.Version {
				continue
			}
			s.putLocked(record, ok)
		}
		return nil
	})
}

// Aggregate returns the current snapshot. It is rebuilt from the records after
// every mutation and reused until the next one.
func (s *Store) Aggregate() domain.PipelineSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

// Subscribe registers listener and returns a function that removes it.
func (s *Store) Subscribe(listener Listener) func() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	id := s.nextListener
	s.nextListener++
	s.listeners[id] = listener

	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) commit(mutate func() error) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	if err := mutate(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.revision++
	s.memo = nil
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	for _, listener := range s.listenerList() {
		listener(snapshot)
	}

	return nil
}

func (s *Store) listenerList() []Listener {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	return listeners
}

func (s *Store) putLocked(record domain.CustomerRecord, exists bool) {
	if !exists {
		s.order = append(s.order, record.ID)
	}
	s.records[record.ID] = record
}

func (s *Store) snapshotLocked() domain.PipelineSnapshot {
	if s.memo == nil {
		snapshot := domain.NewPipelineSnapshot(s.revision, s.allLocked())
		s.memo = &snapshot
	}

	snapshot := *s.memo
	snapshot.Records = append([]domain.CustomerRecord(nil), s.memo.Records...)
	return snapshot
}

func (s *Store) allLocked() []domain.CustomerRecord {
	records := make([]domain.CustomerRecord, 0, len(s.order))
	for _, id := range s.order {
		records = append(records, s.records[id])
	}
	return records
}
