package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bnema/dealer-pipeline/internal/domain"
	"github.com/bnema/dealer-pipeline/internal/ports"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const tracerName = "github.com/bnema/dealer-pipeline/internal/application"

type OutcomeKind string

const (
	OutcomeConfirmed        OutcomeKind = "confirmed"
	OutcomeConflictResolved OutcomeKind = "conflictResolved"
	OutcomeSyncFailed       OutcomeKind = "syncFailed"
	OutcomeRolledBack       OutcomeKind = "rolledBack"
	OutcomeSuperseded       OutcomeKind = "superseded"
)

// Outcome is how a committed transition was eventually resolved. Record is the
// value the store holds for the record as a result.
type Outcome struct {
	Kind    OutcomeKind
	Pending domain.PendingTransition
	Record  domain.CustomerRecord
	Remote  *domain.CustomerRecord
	Err     error
}

// Inflight tracks one asynchronous save.
type Inflight struct {
	pending domain.PendingTransition
	ctx     context.Context
	cancel  context.CancelFunc

	once    sync.Once
	done    chan struct{}
	outcome Outcome
}

func (i *Inflight) Pending() domain.PendingTransition {
	return i.pending
}

func (i *Inflight) Done() <-chan struct{} {
	return i.done
}

// Wait blocks until the save resolves or ctx is done.
func (i *Inflight) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-i.done:
		return i.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// claim records outcome if no outcome was recorded yet. The claimer must call
// release once its side effects are done.
func (i *Inflight) claim(outcome Outcome) bool {
	claimed := false
	i.once.Do(func() {
		i.outcome = outcome
		claimed = true
	})
	return claimed
}

func (i *Inflight) release() {
	close(i.done)
}

// Reconciler applies transitions to the store optimistically and reconciles
// them with the repository in the background. Remote state always wins over a
// pending local change.
//
// Store listeners may run while the reconciler holds its lock, so they must
// not call back into the reconciler.
type Reconciler struct {
	store    *Store
	repo     ports.RecordRepository
	notifier ports.Notifier
	clock    ports.Clock
	logger   *slog.Logger
	tracer   trace.Tracer

	saveTimeout time.Duration
	fetches     singleflight.Group

	mu       sync.Mutex
	inflight map[domain.RecordID]*Inflight
	wg       sync.WaitGroup
}

func NewReconciler(store *Store, repo ports.RecordRepository, notifier ports.Notifier, clock ports.Clock, opts ...Option) *Reconciler {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	o := buildOptions(opts)

	return &Reconciler{
		store:       store,
		repo:        repo,
		notifier:    notifier,
		clock:       clock,
		logger:      o.logger,
		tracer:      otel.Tracer(tracerName),
		saveTimeout: o.saveTimeout,
		inflight:    map[domain.RecordID]*Inflight{},
	}
}

// Commit applies pending.Proposed to the store and starts saving it. A newer
// commit for the same record supersedes an older one still in flight; the
// older result is then discarded.
func (r *Reconciler) Commit(ctx context.Context, pending domain.PendingTransition) (*Inflight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.store.Get(pending.RecordID)
	if err != nil && !errors.Is(err, domain.ErrRecordNotFound) {
		return nil, err
	}
	if err == nil && current.Version == pending.Proposed.Version && current != pending.Proposed {
		// Two proposals built on the same base: last write by client time wins.
		if !pending.ClientTimestamp.After(current.LastContact) {
			in := r.newInflight(ctx, pending)
			in.cancel()
			in.claim(Outcome{Kind: OutcomeSuperseded, Pending: pending, Record: current})
			in.release()
			syncOutcomes.WithLabelValues(string(OutcomeSuperseded)).Inc()
			return in, nil
		}
	}

	if err := r.store.Replace(pending.Proposed); err != nil {
		return nil, fmt.Errorf("apply optimistic transition: %w", err)
	}

	if previous, ok := r.inflight[pending.RecordID]; ok {
		previous.cancel()
	}
	in := r.newInflight(ctx, pending)
	r.inflight[pending.RecordID] = in

	proposed := pending.Proposed
	r.notify(domain.Event{
		Type:     domain.EventTransitioned,
		RecordID: pending.RecordID,
		Detail:   fmt.Sprintf("%s -> %s", pending.FromStage, pending.ToStage),
		Local:    &proposed,
	})

	r.start(in)
	return in, nil
}

// Resync saves the record's current local value again, typically after a
// sync failure. The store is not touched unless the repository disagrees.
func (r *Reconciler) Resync(ctx context.Context, id domain.RecordID) (*Inflight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.store.Get(id)
	if err != nil {
		return nil, err
	}

	pending := domain.PendingTransition{
		RecordID:        id,
		FromStage:       current.Stage,
		ToStage:         current.Stage,
		ClientTimestamp: r.clock.Now(),
		ExpectedVersion: current.Version - 1,
		Kind:            domain.TransitionResync,
		Base:            current,
		Proposed:        current,
	}

	if previous, ok := r.inflight[id]; ok {
		previous.cancel()
	}
	in := r.newInflight(ctx, pending)
	r.inflight[id] = in

	r.start(in)
	return in, nil
}

// ApplyRemote folds an authoritative record pushed by the repository into the
// store. A pending save for the same record is abandoned in its favour.
func (r *Reconciler) ApplyRemote(record domain.CustomerRecord) error {
	r.mu.Lock()

	in := r.inflight[record.ID]
	current, err := r.store.Get(record.ID)
	if err == nil {
		if sameState(current, record) {
			r.mu.Unlock()
			return nil
		}
		if record.Version < current.Version {
			r.mu.Unlock()
			r.logger.Debug("ignoring older remote record",
				slog.String("record", string(record.ID)),
				slog.Int64("remote_version", record.Version),
				slog.Int64("local_version", current.Version),
			)
			return nil
		}
	}

	if err := r.store.Replace(record); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("apply remote record: %w", err)
	}

	if in == nil {
		r.mu.Unlock()
		return nil
	}

	delete(r.inflight, record.ID)
	in.cancel()
	r.mu.Unlock()

	remote := record
	r.finish(in, Outcome{
		Kind:    OutcomeConflictResolved,
		Pending: in.pending,
		Record:  remote,
		Remote:  &remote,
	})

	return nil
}

// Pending reports whether a save for id is still unresolved.
func (r *Reconciler) Pending(id domain.RecordID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.inflight[id]
	return ok
}

// Wait blocks until every background save has returned.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

// Close abandons all pending saves and waits for their goroutines.
func (r *Reconciler) Close() {
	r.mu.Lock()
	for _, in := range r.inflight {
		in.cancel()
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Reconciler) newInflight(ctx context.Context, pending domain.PendingTransition) *Inflight {
	syncCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	return &Inflight{
		pending: pending,
		ctx:     syncCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

func (r *Reconciler) start(in *Inflight) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer in.cancel()

		ctx, span := r.tracer.Start(in.ctx, "pipeline.sync", trace.WithAttributes(
			attribute.String("record.id", string(in.pending.RecordID)),
			attribute.Int64("record.version", in.pending.Proposed.Version),
			attribute.String("transition.kind", string(in.pending.Kind)),
		))
		defer span.End()

		outcome := r.reconcile(ctx, in)
		span.SetAttributes(attribute.String("sync.outcome", string(outcome.Kind)))
		if outcome.Err != nil {
			span.RecordError(outcome.Err)
			span.SetStatus(codes.Error, outcome.Err.Error())
		}

		r.finish(in, outcome)
	}()
}

func (r *Reconciler) reconcile(ctx context.Context, in *Inflight) Outcome {
	proposed := in.pending.Proposed

	result, err := r.save(ctx, proposed)
	if err == nil {
		return r.settleSave(in, result)
	}
	if errors.Is(err, domain.ErrUnauthorized) {
		return r.rollback(in, err)
	}
	if r.superseded(in) {
		return r.supersededOutcome(in)
	}

	r.logger.Warn("save failed, checking authoritative record",
		slog.String("record", string(proposed.ID)),
		slog.Int64("version", proposed.Version),
		slog.Any("error", err),
	)

	remote, fetchErr := r.fetch(ctx, proposed.ID)
	if fetchErr == nil {
		if sameState(remote, proposed) {
			return r.settle(in, func() Outcome {
				return Outcome{Kind: OutcomeConfirmed, Pending: in.pending, Record: proposed}
			})
		}
		if remote.Version > in.pending.ExpectedVersion {
			return r.adoptRemote(in, remote)
		}
	} else {
		r.logger.Warn("fetch authoritative record failed",
			slog.String("record", string(proposed.ID)),
			slog.Any("error", fetchErr),
		)
	}

	result, err = r.save(ctx, proposed)
	if err == nil {
		return r.settleSave(in, result)
	}
	if errors.Is(err, domain.ErrUnauthorized) {
		return r.rollback(in, err)
	}

	return r.settle(in, func() Outcome {
		return Outcome{
			Kind:    OutcomeSyncFailed,
			Pending: in.pending,
			Record:  proposed,
			Err:     fmt.Errorf("%w: save record %s: %w", domain.ErrSyncFailed, proposed.ID, err),
		}
	})
}

func (r *Reconciler) settleSave(in *Inflight, result ports.SaveResult) Outcome {
	proposed := in.pending.Proposed
	if result.OK || sameState(result.Conflict, proposed) {
		return r.settle(in, func() Outcome {
			return Outcome{Kind: OutcomeConfirmed, Pending: in.pending, Record: proposed}
		})
	}

	return r.adoptRemote(in, result.Conflict)
}

func (r *Reconciler) adoptRemote(in *Inflight, remote domain.CustomerRecord) Outcome {
	return r.settle(in, func() Outcome {
		if err := r.store.Replace(remote); err != nil {
			return Outcome{
				Kind:    OutcomeSyncFailed,
				Pending: in.pending,
				Record:  in.pending.Proposed,
				Err:     fmt.Errorf("%w: adopt remote record %s: %w", domain.ErrSyncFailed, remote.ID, err),
			}
		}
		return Outcome{Kind: OutcomeConflictResolved, Pending: in.pending, Record: remote, Remote: &remote}
	})
}

func (r *Reconciler) rollback(in *Inflight, cause error) Outcome {
	return r.settle(in, func() Outcome {
		record, err := r.store.Revert(in.pending.Proposed, in.pending.Base)
		if err != nil {
			r.logger.Warn("rollback skipped",
				slog.String("record", string(in.pending.RecordID)),
				slog.Any("error", err),
			)
			if current, getErr := r.store.Get(in.pending.RecordID); getErr == nil {
				record = current
			}
		}
		return Outcome{Kind: OutcomeRolledBack, Pending: in.pending, Record: record, Err: cause}
	})
}

// settle resolves in under the reconciler lock. If a newer commit replaced in
// meanwhile, decide is not run and in is reported as superseded.
func (r *Reconciler) settle(in *Inflight, decide func() Outcome) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inflight[in.pending.RecordID] != in {
		return r.supersededOutcome(in)
	}
	delete(r.inflight, in.pending.RecordID)

	return decide()
}

func (r *Reconciler) superseded(in *Inflight) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.inflight[in.pending.RecordID] != in
}

func (r *Reconciler) supersededOutcome(in *Inflight) Outcome {
	return Outcome{Kind: OutcomeSuperseded, Pending: in.pending, Record: in.pending.Proposed}
}

func (r *Reconciler) finish(in *Inflight, outcome Outcome) {
	if !in.claim(outcome) {
		return
	}
	defer in.release()
	syncOutcomes.WithLabelValues(string(outcome.Kind)).Inc()

	id := in.pending.RecordID
	local := in.pending.Proposed
	switch outcome.Kind {
	case OutcomeConfirmed:
		r.notify(domain.Event{Type: domain.EventConfirmed, RecordID: id, Local: &local})
	case OutcomeConflictResolved:
		r.logger.Info("remote record replaced local change",
			slog.String("record", string(id)),
			slog.Int64("local_version", local.Version),
			slog.Int64("remote_version", outcome.Record.Version),
		)
		r.notify(domain.Event{
			Type:     domain.EventConflict,
			RecordID: id,
			Detail:   "record was updated by someone else",
			Local:    &local,
			Remote:   outcome.Remote,
		})
	case OutcomeSyncFailed:
		r.logger.Warn("sync failed, keeping local change",
			slog.String("record", string(id)),
			slog.Any("error", outcome.Err),
		)
		r.notify(domain.Event{Type: domain.EventSyncFailed, RecordID: id, Detail: errorDetail(outcome.Err), Local: &local})
	case OutcomeRolledBack:
		r.logger.Warn("repository refused change, rolled back",
			slog.String("record", string(id)),
			slog.Any("error", outcome.Err),
		)
		r.notify(domain.Event{Type: domain.EventRolledBack, RecordID: id, Detail: errorDetail(outcome.Err), Local: &local})
	}
}

func (r *Reconciler) save(ctx context.Context, record domain.CustomerRecord) (ports.SaveResult, error) {
	if r.saveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.saveTimeout)
		defer cancel()
	}

	started := time.Now()
	result, err := r.repo.Save(ctx, record)
	saveDuration.Observe(time.Since(started).Seconds())

	return result, err
}

// fetch shares one repository read between concurrent callers for the same
// record. The read is detached from any single caller, so a superseded save
// giving up does not cancel it for the others.
func (r *Reconciler) fetch(ctx context.Context, id domain.RecordID) (domain.CustomerRecord, error) {
	results := r.fetches.DoChan(string(id), func() (interface{}, error) {
		fetchCtx := context.WithoutCancel(ctx)
		if r.saveTimeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(fetchCtx, r.saveTimeout)
			defer cancel()
		}
		return r.repo.Fetch(fetchCtx, id)
	})

	select {
	case result := <-results:
		if result.Err != nil {
			return domain.CustomerRecord{}, result.Err
		}
		return result.Val.(domain.CustomerRecord), nil
	case <-ctx.Done():
		return domain.CustomerRecord{}, ctx.Err()
	}
}

func (r *Reconciler) notify(event domain.Event) {
	if r.notifier == nil {
		return
	}
	event.ID = uuid.NewString()
	event.OccurredAt = r.clock.Now()
	r.notifier.Send(event)
}

// sameState compares the fields a save can change, ignoring time zone and
// precision differences introduced by serialization.
func sameState(a, b domain.CustomerRecord) bool {
	return a.ID == b.ID &&
		a.Version == b.Version &&
		a.Stage == b.Stage &&
		a.Budget == b.Budget &&
		a.AssignedTo == b.AssignedTo &&
		a.Interest == b.Interest
}

func errorDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
