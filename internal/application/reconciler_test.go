package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bnema/dealer-pipeline/internal/domain"
	"github.com/bnema/dealer-pipeline/internal/ports"
	"github.com/bnema/dealer-pipeline/internal/ports/mocks"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type pipeline struct {
	store      *Store
	engine     *Engine
	reconciler *Reconciler
	notifier   *recordingNotifier
}

func newPipeline(repo ports.RecordRepository, clock ports.Clock, records ...domain.CustomerRecord) *pipeline {
	store := newLoadedStore(records...)
	notifier := &recordingNotifier{}
	return &pipeline{
		store:      store,
		engine:     NewEngine(store, allowAll{}, clock),
		reconciler: NewReconciler(store, repo, notifier, clock),
		notifier:   notifier,
	}
}

func (p *pipeline) move(t *testing.T, id domain.RecordID, to domain.Stage) *Inflight {
	t.Helper()

	pending, err := p.engine.RequestTransition(context.Background(), id, to, salesperson)
	require.NoError(t, err)
	in, err := p.reconciler.Commit(context.Background(), pending)
	require.NoError(t, err)
	return in
}

func TestReconcilerCommitAppliesOptimisticallyAndConfirms(t *testing.T) {
	base := newRecord("c1", domain.StageLead, 30000_00, 1)
	repo := newGatedRepo()
	p := newPipeline(repo, fixedClock{now: testNow}, base)

	confirmed := testutil.ToFloat64(syncOutcomes.WithLabelValues(string(OutcomeConfirmed)))

	in := p.move(t, "c1", domain.StageHot)

	current, err := p.store.Get("c1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageHot, current.Stage)
	assert.Equal(t, int64(2), current.Version)
	assert.True(t, p.reconciler.Pending("c1"))

	saved := <-repo.saved
	assert.Equal(t, current, saved)
	repo.release(2, ports.SaveResult{OK: true, Record: saved})

	outcome := waitOutcome(t, in)
	assert.Equal(t, OutcomeConfirmed, outcome.Kind)
	assert.Equal(t, current, outcome.Record)
	assert.False(t, p.reconciler.Pending("c1"))
	assert.Equal(t, []domain.EventType{domain.EventTransitioned, domain.EventConfirmed}, p.notifier.Types())
	assert.Equal(t, confirmed+1, testutil.ToFloat64(syncOutcomes.WithLabelValues(string(OutcomeConfirmed))))

	for _, event := range p.notifier.Events() {
		assert.NotEmpty(t, event.ID)
		assert.Equal(t, testNow, event.OccurredAt)
	}
}

func TestReconcilerSupersededSaveIsDiscardedWhenItArrivesLast(t *testing.T) {
	repo := newGatedRepo()
	p := newPipeline(repo, fixedClock{now: testNow}, newRecord("c3", domain.StageProspect, 100, 1))

	first := p.move(t, "c3", domain.StageLead)
	<-repo.saved
	second := p.move(t, "c3", domain.StageHot)
	<-repo.saved

	repo.release(3, ports.SaveResult{OK: true})
	assert.Equal(t, OutcomeConfirmed, waitOutcome(t, second).Kind)

	remote := newRecord("c3", domain.StageLost, 100, 2)
	repo.release(2, ports.SaveResult{Conflict: remote})
	assert.Equal(t, OutcomeSuperseded, waitOutcome(t, first).Kind)
	p.reconciler.Wait()

	current, err := p.store.Get("c3")
	require.NoError(t, err)
	assert.Equal(t, domain.StageHot, current.Stage)
	assert.Equal(t, int64(3), current.Version)
	assert.Zero(t, p.notifier.Count(domain.EventConflict))
	assert.Equal(t, 1, p.notifier.Count(domain.EventConfirmed))
}

func TestReconcilerSupersededSaveIsDiscardedWhenItArrivesFirst(t *testing.T) {
	repo := newGatedRepo()
	p := newPipeline(repo, fixedClock{now: testNow}, newRecord("c3", domain.StageProspect, 100, 1))

	first := p.move(t, "c3", domain.StageLead)
	<-repo.saved
	second := p.move(t, "c3", domain.StageHot)
	<-repo.saved

	before := p.store.Aggregate()
	repo.release(2, ports.SaveResult{OK: true})
	assert.Equal(t, OutcomeSuperseded, waitOutcome(t, first).Kind)
	assert.Equal(t, before, p.store.Aggregate())

	repo.release(3, ports.SaveResult{OK: true})
	assert.Equal(t, OutcomeConfirmed, waitOutcome(t, second).Kind)

	current, err := p.store.Get("c3")
	require.NoError(t, err)
	assert.Equal(t, domain.StageHot, current.Stage)
	assert.Equal(t, int64(3), current.Version)
	assert.Equal(t, 1, p.notifier.Count(domain.EventConfirmed))
}

func TestReconcilerConflictAdoptsRemote(t *testing.T) {
	base := newRecord("c-1", domain.StageLead, 100, 2)
	remote := newRecord("c-1", domain.StageNegotiating, 250, 4)
	remote.AssignedTo = "u-2"

	repo := mocks.NewMockRecordRepository(t)
	repo.EXPECT().Save(mockAnyContext(), mock.Anything).Return(ports.SaveResult{Conflict: remote}, nil).Once()
	p := newPipeline(repo, fixedClock{now: testNow}, base)

	in := p.move(t, "c-1", domain.StageHot)
	assert.Equal(t, int64(3), in.Pending().Proposed.Version)

	outcome := waitOutcome(t, in)
	assert.Equal(t, OutcomeConflictResolved, outcome.Kind)
	require.NotNil(t, outcome.Remote)
	assert.Equal(t, remote, *outcome.Remote)

	current, err := p.store.Get("c-1")
	require.NoError(t, err)
	assert.Equal(t, remote, current)

	assert.Equal(t, 1, p.notifier.Count(domain.EventConflict))
	conflict := p.notifier.Events()[1]
	assert.Equal(t, domain.EventConflict, conflict.Type)
	require.NotNil(t, conflict.Local)
	assert.Equal(t, int64(3), conflict.Local.Version)
	require.NotNil(t, conflict.Remote)
	assert.Equal(t, int64(4), conflict.Remote.Version)
}

func TestReconcilerConflictWithIdenticalRecordConfirms(t *testing.T) {
	repo := newMemoryRepo()
	p := newPipeline(repo, fixedClock{now: testNow}, newRecord("c-1", domain.StageLead, 100, 1))

	in := p.move(t, "c-1", domain.StageHot)
	assert.Equal(t, OutcomeConfirmed, waitOutcome(t, in).Kind)

	resync, err := p.reconciler.Resync(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, waitOutcome(t, resync).Kind)
	assert.Zero(t, p.notifier.Count(domain.EventConflict))
}

func TestReconcilerNetworkErrorWithMatchingRemoteConfirms(t *testing.T) {
	repo := mocks.NewMockRecordRepository(t)
	p := newPipeline(repo, fixedClock{now: testNow}, newRecord("c-1", domain.StageLead, 100, 1))

	repo.EXPECT().Save(mockAnyContext(), mock.Anything).Return(ports.SaveResult{}, errors.New("connection reset")).Once()
	repo.EXPECT().Fetch(mockAnyContext(), domain.RecordID("c-1")).RunAndReturn(func(context.Context, domain.RecordID) (domain.CustomerRecord, error) {
		current, err := p.store.Get("c-1")
		current.LastContact = current.LastContact.Local()
		return current, err
	}).Once()

	in := p.move(t, "c-1", domain.StageHot)
	outcome := waitOutcome(t, in)
	assert.Equal(t, OutcomeConfirmed, outcome.Kind)
	assert.Equal(t, 1, p.notifier.Count(domain.EventConfirmed))
}

func TestReconcilerNetworkErrorWithNewerRemoteAdoptsIt(t *testing.T) {
	repo := mocks.NewMockRecordRepository(t)
	remote := newRecord("c-1", domain.StageNegotiating, 100, 2)
	repo.EXPECT().Save(mockAnyContext(), mock.Anything).Return(ports.SaveResult{}, errors.New("timeout")).Once()
	repo.EXPECT().Fetch(mockAnyContext(), domain.RecordID("c-1")).Return(remote, nil).Once()
	p := newPipeline(repo, fixedClock{now: testNow}, newRecord("c-1", domain.StageLead, 100, 1))

	in := p.move(t, "c-1", domain.StageHot)
	outcome := waitOutcome(t, in)
	assert.Equal(t, OutcomeConflictResolved, outcome.Kind)

	current, err := p.store.Get("c-1")
	require.NoError(t, err)
	assert.Equal(t, remote, current)
	assert.Equal(t, 1, p.notifier.Count(domain.EventConflict))
}

func TestReconcilerNetworkErrorRetriesOnce(t *testing.T) {
	base := newRecord("c-1", domain.StageLead, 100, 1)
	repo := mocks.NewMockRecordRepository(t)
	repo.EXPECT().Save(mockAnyContext(), mock.Anything).Return(ports.SaveResult{}, errors.New("timeout")).Once()
	repo.EXPECT().Fetch(mockAnyContext(), domain.RecordID("c-1")).Return(base, nil).Once()
	repo.EXPECT().Save(mockAnyContext(), mock.Anything).Return(ports.SaveResult{OK: true}, nil).Once()
	p := newPipeline(repo, fixedClock{now: testNow}, base)

	in := p.move(t, "c-1", domain.StageHot)
	assert.Equal(t, OutcomeConfirmed, waitOutcome(t, in).Kind)
}

func TestReconcilerSyncFailureKeepsOptimisticState(t *testing.T) {
	repo := mocks.NewMockRecordRepository(t)
	repo.EXPECT().Save(mockAnyContext(), mock.Anything).Return(ports.SaveResult{}, errors.New("offline")).Twice()
	repo.EXPECT().Fetch(mockAnyContext(), domain.RecordID("c-1")).Return(domain.CustomerRecord{}, errors.New("offline")).Once()
	p := newPipeline(repo, fixedClock{now: testNow}, newRecord("c-1", domain.StageLead, 100, 1))

	in := p.move(t, "c-1", domain.StageHot)
	outcome := waitOutcome(t, in)
	assert.Equal(t, OutcomeSyncFailed, outcome.Kind)
	require.Error(t, outcome.Err)
	assert.ErrorIs(t, outcome.Err, domain.ErrSyncFailed)

	current, err := p.store.Get("c-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageHot, current.Stage)
	assert.Equal(t, int64(2), current.Version)

	assert.Equal(t, []domain.EventType{domain.EventTransitioned, domain.EventSyncFailed}, p.notifier.Types())
	assert.Contains(t, p.notifier.Events()[1].Detail, "offline")
}

func TestReconcilerResyncAfterFailure(t *testing.T) {
	repo := mocks.NewMockRecordRepository(t)
	repo.EXPECT().Save(mockAnyContext(), mock.Anything).Return(ports.SaveResult{}, errors.New("offline")).Twice()
	repo.EXPECT().Fetch(mockAnyContext(), domain.RecordID("c-1")).Return(domain.CustomerRecord{}, errors.New("offline")).Once()
	p := newPipeline(repo, fixedClock{now: testNow}, newRecord("c-1", domain.StageLead, 100, 1))

	in := p.move(t, "c-1", domain.StageHot)
	require.Equal(t, OutcomeSyncFailed, waitOutcome(t, in).Kind)
	revision := p.store.Aggregate().Revision

	repo.EXPECT().Save(mockAnyContext(), mock.Anything).Return(ports.SaveResult{OK: true}, nil).Once()
	resync, err := p.reconciler.Resync(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TransitionResync, resync.Pending().Kind)

	outcome := waitOutcome(t, resync)
	assert.Equal(t, OutcomeConfirmed, outcome.Kind)
	assert.Equal(t, revision, p.store.Aggregate().Revision)

	_, err = p.reconciler.Resync(context.Background(), "c-404")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestReconcilerUnauthorizedSaveRollsBack(t *testing.T) {
	base := newRecord("c-1", domain.StageLead, 100, 1)
	repo := mocks.NewMockRecordRepository(t)
	repo.EXPECT().Save(mockAnyContext(), mock.Anything).
		Return(ports.SaveResult{}, &domain.AuthorizationError{Actor: "u-1", ID: "c-1", To: domain.StageHot}).Once()
	p := newPipeline(repo, fixedClock{now: testNow}, base)

	in := p.move(t, "c-1", domain.StageHot)
	outcome := waitOutcome(t, in)
	assert.Equal(t, OutcomeRolledBack, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, domain.ErrUnauthorized)

	restored := base
	restored.Version = 3
	assert.Equal(t, restored, outcome.Record)

	current, err := p.store.Get("c-1")
	require.NoError(t, err)
	assert.Equal(t, restored, current)
	assert.Equal(t, 1, p.notifier.Count(domain.EventRolledBack))
}

func TestReconcilerRollbackKeepsVersionsIncreasing(t *testing.T) {
	base := newRecord("c-1", domain.StageLead, 100, 1)
	repo := mocks.NewMockRecordRepository(t)
	repo.EXPECT().Save(mockAnyContext(), mock.Anything).
		Return(ports.SaveResult{}, &domain.AuthorizationError{Actor: "u-1", ID: "c-1", To: domain.StageHot}).Once()
	p := newPipeline(repo, fixedClock{now: testNow}, base)

	var (
		mu       sync.Mutex
		versions []int64
		stages   []domain.Stage
	)
	unsubscribe := p.store.Subscribe(func(snapshot domain.PipelineSnapshot) {
		for _, record := range snapshot.Records {
			if record.ID != "c-1" {
				continue
			}
			mu.Lock()
			versions = append(versions, record.Version)
			stages = append(stages, record.Stage)
			mu.Unlock()
		}
	})
	defer unsubscribe()

	outcome := waitOutcome(t, p.move(t, "c-1", domain.StageHot))
	require.Equal(t, OutcomeRolledBack, outcome.Kind)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{2, 3}, versions)
	assert.Equal(t, []domain.Stage{domain.StageHot, domain.StageLead}, stages)
	for i := 1; i < len(versions); i++ {
		assert.Greater(t, versions[i], versions[i-1])
	}
}

func TestReconcilerLastWriteWinsOnSameBase(t *testing.T) {
	repo := newMemoryRepo(newRecord("c-1", domain.StageLead, 100, 1))
	clock := &tickingClock{now: testNow}
	p := newPipeline(repo, clock, newRecord("c-1", domain.StageLead, 100, 1))

	older, err := p.engine.RequestTransition(context.Background(), "c-1", domain.StageHot, salesperson)
	require.NoError(t, err)
	newer, err := p.engine.RequestTransition(context.Background(), "c-1", domain.StageNegotiating, salesperson)
	require.NoError(t, err)
	require.Equal(t, older.Proposed.Version, newer.Proposed.Version)

	inNewer, err := p.reconciler.Commit(context.Background(), newer)
	require.NoError(t, err)
	inOlder, err := p.reconciler.Commit(context.Background(), older)
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuperseded, waitOutcome(t, inOlder).Kind)
	assert.Equal(t, OutcomeConfirmed, waitOutcome(t, inNewer).Kind)

	current, err := p.store.Get("c-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageNegotiating, current.Stage)
	assert.Equal(t, domain.StageNegotiating, repo.get("c-1").Stage)
	assert.Equal(t, 1, p.notifier.Count(domain.EventTransitioned))
}

func TestReconcilerApplyRemote(t *testing.T) {
	p := newPipeline(newMemoryRepo(), fixedClock{now: testNow}, newRecord("c-1", domain.StageLead, 100, 3))

	require.NoError(t, p.reconciler.ApplyRemote(newRecord("c-1", domain.StageHot, 100, 4)))
	current, err := p.store.Get("c-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageHot, current.Stage)

	revision := p.store.Aggregate().Revision
	require.NoError(t, p.reconciler.ApplyRemote(newRecord("c-1", domain.StageLead, 100, 2)))
	require.NoError(t, p.reconciler.ApplyRemote(newRecord("c-1", domain.StageHot, 100, 4)))
	assert.Equal(t, revision, p.store.Aggregate().Revision)

	require.NoError(t, p.reconciler.ApplyRemote(newRecord("c-9", domain.StageProspect, 100, 1)))
	_, err = p.store.Get("c-9")
	require.NoError(t, err)

	assert.Error(t, p.reconciler.ApplyRemote(newRecord("c-1", domain.Stage("gone"), 100, 9)))
	assert.Empty(t, p.notifier.Events())
}

func TestReconcilerApplyRemoteResolvesPendingSave(t *testing.T) {
	repo := newGatedRepo()
	p := newPipeline(repo, fixedClock{now: testNow}, newRecord("c-1", domain.StageLead, 100, 1))

	in := p.move(t, "c-1", domain.StageHot)
	<-repo.saved

	remote := newRecord("c-1", domain.StageLost, 100, 2)
	require.NoError(t, p.reconciler.ApplyRemote(remote))

	outcome := waitOutcome(t, in)
	assert.Equal(t, OutcomeConflictResolved, outcome.Kind)
	assert.False(t, p.reconciler.Pending("c-1"))

	repo.release(2, ports.SaveResult{OK: true})
	p.reconciler.Wait()

	current, err := p.store.Get("c-1")
	require.NoError(t, err)
	assert.Equal(t, remote, current)
	assert.Equal(t, 1, p.notifier.Count(domain.EventConflict))
	assert.Zero(t, p.notifier.Count(domain.EventConfirmed))
}

func TestReconcilerCommitRejectsStaleProposal(t *testing.T) {
	p := newPipeline(newMemoryRepo(), fixedClock{now: testNow}, newRecord("c-1", domain.StageLead, 100, 1))

	pending, err := p.engine.RequestTransition(context.Background(), "c-1", domain.StageHot, salesperson)
	require.NoError(t, err)
	require.NoError(t, p.store.Replace(newRecord("c-1", domain.StageNegotiating, 100, 5)))

	_, err = p.reconciler.Commit(context.Background(), pending)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStaleWrite)
	assert.Empty(t, p.notifier.Events())
}

func TestReconcilerSaveOutlivesCallerContext(t *testing.T) {
	repo := mocks.NewMockRecordRepository(t)
	repo.EXPECT().Save(mockAnyContext(), mock.Anything).RunAndReturn(func(ctx context.Context, record domain.CustomerRecord) (ports.SaveResult, error) {
		if err := ctx.Err(); err != nil {
			return ports.SaveResult{}, err
		}
		return ports.SaveResult{OK: true, Record: record}, nil
	}).Once()
	p := newPipeline(repo, fixedClock{now: testNow}, newRecord("c-1", domain.StageLead, 100, 1))

	ctx, cancel := context.WithCancel(context.Background())
	pending, err := p.engine.RequestTransition(ctx, "c-1", domain.StageHot, salesperson)
	require.NoError(t, err)
	cancel()

	in, err := p.reconciler.Commit(ctx, pending)
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, waitOutcome(t, in).Kind)
}

func TestInflightWaitHonoursContext(t *testing.T) {
	repo := newGatedRepo()
	p := newPipeline(repo, fixedClock{now: testNow}, newRecord("c-1", domain.StageLead, 100, 1))

	in := p.move(t, "c-1", domain.StageHot)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := in.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	repo.release(2, ports.SaveResult{OK: true})
	assert.Equal(t, OutcomeConfirmed, waitOutcome(t, in).Kind)
}

// slowFetchRepo blocks every fetch until release is closed and remembers how
// each fetch ended.
type slowFetchRepo struct {
	record  domain.CustomerRecord
	started chan struct{}
	release chan struct{}

	mu      sync.Mutex
	results []error
}

func (s *slowFetchRepo) Save(context.Context, domain.CustomerRecord) (ports.SaveResult, error) {
	return ports.SaveResult{}, errors.New("save not expected")
}

func (s *slowFetchRepo) Fetch(ctx context.Context, _ domain.RecordID) (domain.CustomerRecord, error) {
	select {
	case s.started <- struct{}{}:
	default:
	}

	var err error
	select {
	case <-s.release:
	case <-ctx.Done():
		err = ctx.Err()
	}

	s.mu.Lock()
	s.results = append(s.results, err)
	s.mu.Unlock()

	if err != nil {
		return domain.CustomerRecord{}, err
	}
	return s.record, nil
}

func (s *slowFetchRepo) List(context.Context) ([]domain.CustomerRecord, error) {
	return nil, nil
}

func TestReconcilerSharedFetchSurvivesCallerCancellation(t *testing.T) {
	remote := newRecord("c-1", domain.StageHot, 100, 4)
	repo := &slowFetchRepo{record: remote, started: make(chan struct{}, 4), release: make(chan struct{})}
	reconciler := NewReconciler(NewStore(), repo, nil, fixedClock{now: testNow})

	abandoned, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := reconciler.fetch(abandoned, "c-1")
		firstErr <- err
	}()

	select {
	case <-repo.started:
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not reach the repository")
	}
	cancel()

	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	type fetched struct {
		record domain.CustomerRecord
		err    error
	}
	second := make(chan fetched, 1)
	go func() {
		record, err := reconciler.fetch(context.Background(), "c-1")
		second <- fetched{record: record, err: err}
	}()
	close(repo.release)

	select {
	case got := <-second:
		require.NoError(t, got.err)
		assert.Equal(t, remote, got.record)
	case <-time.After(2 * time.Second):
		t.Fatal("second caller did not return")
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()
	require.NotEmpty(t, repo.results)
	for _, err := range repo.results {
		assert.NoError(t, err)
	}
}
