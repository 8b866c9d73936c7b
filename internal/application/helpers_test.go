package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/bnema/dealer-pipeline/internal/domain"
	"github.com/bnema/dealer-pipeline/internal/ports"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

type fixedClock struct {
	now time.Time
}

func (f fixedClock) Now() time.Time {
	return f.now
}

// tickingClock advances by one second on every call.
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(time.Second)
	return c.now
}

type allowAll struct{}

func (allowAll) CanTransition(context.Context, domain.Actor, domain.CustomerRecord, domain.Stage) bool {
	return true
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.Event
}

func (n *recordingNotifier) Send(event domain.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.events = append(n.events, event)
}

func (n *recordingNotifier) Events() []domain.Event {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]domain.Event(nil), n.events...)
}

func (n *recordingNotifier) Types() []domain.EventType {
	events := n.Events()
	types := make([]domain.EventType, 0, len(events))
	for _, event := range events {
		types = append(types, event.Type)
	}
	return types
}

func (n *recordingNotifier) Count(eventType domain.EventType) int {
	count := 0
	for _, event := range n.Events() {
		if event.Type == eventType {
			count++
		}
	}
	return count
}

func newRecord(id domain.RecordID, stage domain.Stage, budget domain.Money, version int64) domain.CustomerRecord {
	return domain.CustomerRecord{
		ID:          id,
		Name:        "Customer " + string(id),
		Stage:       stage,
		Budget:      budget,
		Interest:    domain.InterestMedium,
		AssignedTo:  "u-1",
		LastContact: testNow.Add(-48 * time.Hour),
		Version:     version,
	}
}

func newLoadedStore(records ...domain.CustomerRecord) *Store {
	store := NewStore()
	if err := store.Load(records); err != nil {
		panic(err)
	}
	return store
}

var salesperson = domain.Actor{ID: "u-1", Role: domain.RoleSalesperson}

// memoryRepo behaves like a real repository: a save is a conflict whenever the
// stored version is not older than the incoming one.
type memoryRepo struct {
	mu      sync.Mutex
	records map[domain.RecordID]domain.CustomerRecord
	saves   int
}

func newMemoryRepo(records ...domain.CustomerRecord) *memoryRepo {
	repo := &memoryRepo{records: map[domain.RecordID]domain.CustomerRecord{}}
	for _, record := range records {
		repo.records[record.ID] = record
	}
	return repo
}

func (r *memoryRepo) Save(_ context.Context, record domain.CustomerRecord) (ports.SaveResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.saves++
	if stored, ok := r.records[record.ID]; ok && stored.Version >= record.Version {
		return ports.SaveResult{Conflict: stored}, nil
	}
	r.records[record.ID] = record
	return ports.SaveResult{OK: true, Record: record}, nil
}

func (r *memoryRepo) Fetch(_ context.Context, id domain.RecordID) (domain.CustomerRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[id]
	if !ok {
		return domain.CustomerRecord{}, &domain.NotFoundError{ID: id}
	}
	return record, nil
}

func (r *memoryRepo) List(context.Context) ([]domain.CustomerRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := make([]domain.CustomerRecord, 0, len(r.records))
	for _, record := range r.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (r *memoryRepo) put(record domain.CustomerRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[record.ID] = record
}

func (r *memoryRepo) get(id domain.RecordID) domain.CustomerRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.records[id]
}

func (r *memoryRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.saves
}

// gatedRepo holds every save until the test releases a response for the
// saved version. Cancellation is ignored so late responses can be simulated.
type gatedRepo struct {
	mu    sync.Mutex
	gates map[int64]chan ports.SaveResult
	saved chan domain.CustomerRecord
}

func newGatedRepo() *gatedRepo {
	return &gatedRepo{
		gates: map[int64]chan ports.SaveResult{},
		saved: make(chan domain.CustomerRecord, 16),
	}
}

func (g *gatedRepo) gate(version int64) chan ports.SaveResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	ch, ok := g.gates[version]
	if !ok {
		ch = make(chan ports.SaveResult, 1)
		g.gates[version] = ch
	}
	return ch
}

func (g *gatedRepo) release(version int64, result ports.SaveResult) {
	g.gate(version) <- result
}

func (g *gatedRepo) Save(_ context.Context, record domain.CustomerRecord) (ports.SaveResult, error) {
	g.saved <- record
	return <-g.gate(record.Version), nil
}

func (g *gatedRepo) Fetch(context.Context, domain.RecordID) (domain.CustomerRecord, error) {
	return domain.CustomerRecord{}, errors.New("fetch not expected")
}

func (g *gatedRepo) List(context.Context) ([]domain.CustomerRecord, error) {
	return nil, nil
}

func waitOutcome(t *testing.T, in *Inflight) Outcome {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	outcome, err := in.Wait(ctx)
	require.NoError(t, err)
	return outcome
}

func mockAnyContext() interface{} {
	return mock.Anything
}
