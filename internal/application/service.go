package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bnema/dealer-pipeline/internal/domain"
	"github.com/bnema/dealer-pipeline/internal/ports"
)

// Service wires the store, engine and reconciler together for a UI layer.
type Service struct {
	repo       ports.RecordRepository
	store      *Store
	engine     *Engine
	reconciler *Reconciler
	clock      ports.Clock
	logger     *slog.Logger
}

func NewService(repo ports.RecordRepository, authz ports.Authorizer, notifier ports.Notifier, clock ports.Clock, opts ...Option) *Service {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	o := buildOptions(opts)

	store := NewStore()
	return &Service{
		repo:       repo,
		store:      store,
		engine:     NewEngine(store, authz, clock, opts...),
		reconciler: NewReconciler(store, repo, notifier, clock, opts...),
		clock:      clock,
		logger:     o.logger,
	}
}

// Load hydrates the store from the repository.
func (s *Service) Load(ctx context.Context) error {
	records, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}

	if err := s.store.Load(records); err != nil {
		return err
	}

	s.logger.Debug("pipeline loaded", slog.Int("records", len(records)))
	return nil
}

func (s *Service) Move(ctx context.Context, id domain.RecordID, to domain.Stage, actor domain.Actor) (*Inflight, error) {
	pending, err := s.engine.RequestTransition(ctx, id, to, actor)
	if err != nil {
		return nil, err
	}

	return s.commit(ctx, pending)
}

func (s *Service) Reopen(ctx context.Context, id domain.RecordID, actor domain.Actor) (*Inflight, error) {
	pending, err := s.engine.Reopen(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	return s.commit(ctx, pending)
}

func (s *Service) Undo(ctx context.Context, actor domain.Actor) (*Inflight, error) {
	pending, err := s.engine.Undo(ctx, actor)
	if err != nil {
		return nil, err
	}

	return s.reconciler.Commit(ctx, pending)
}

func (s *Service) Resync(ctx context.Context, id domain.RecordID) (*Inflight, error) {
	return s.reconciler.Resync(ctx, id)
}

// ApplyRemote folds records pushed by the repository's change feed into the store.
func (s *Service) ApplyRemote(records []domain.CustomerRecord) error {
	var errs error
	for _, record := range records {
		if err := s.reconciler.ApplyRemote(record); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

func (s *Service) Get(id domain.RecordID) (domain.CustomerRecord, error) {
	return s.store.Get(id)
}

func (s *Service) Snapshot() domain.PipelineSnapshot {
	return s.store.Aggregate()
}

// Board returns the snapshot restricted to records assigned to user. An empty
// user returns the whole pipeline.
func (s *Service) Board(user domain.UserID) domain.PipelineSnapshot {
	snapshot := s.store.Aggregate()
	if user == "" {
		return snapshot
	}

	return domain.NewPipelineSnapshot(snapshot.Revision, s.ByAssignee(user))
}

func (s *Service) ByAssignee(user domain.UserID) []domain.CustomerRecord {
	return s.store.ByAssignee(user)
}

func (s *Service) Overdue() []domain.CustomerRecord {
	return s.store.Aggregate().Overdue(s.clock.Now())
}

func (s *Service) Stats() Stats {
	return statsFromSnapshot(s.store.Aggregate(), s.clock)
}

func (s *Service) Subscribe(listener Listener) func() {
	return s.store.Subscribe(listener)
}

func (s *Service) History() []domain.UndoEntry {
	return s.engine.History()
}

// Close abandons pending saves.
func (s *Service) Close() {
	s.reconciler.Close()
}

// commit hands pending to the reconciler and records it for undo unless the
// store never took it.
func (s *Service) commit(ctx context.Context, pending domain.PendingTransition) (*Inflight, error) {
	in, err := s.reconciler.Commit(ctx, pending)
	if err != nil {
		return nil, err
	}

	select {
	case <-in.Done():
		if in.outcome.Kind == OutcomeSuperseded {
			return in, nil
		}
	default:
	}
	s.engine.Record(pending)

	return in, nil
}

func statsFromSnapshot(snapshot domain.PipelineSnapshot, clock ports.Clock) Stats {
	stages := make([]StageStats, 0, domain.StageCount)
	for _, total := range snapshot.Stages {
		stages = append(stages, StageStats{
			Stage:      total.Stage,
			Count:      total.Count,
			TotalCents: int64(total.Total),
		})
	}

	return Stats{
		Revision:       snapshot.Revision,
		Records:        snapshot.Count(),
		TotalCents:     int64(snapshot.Total()),
		ConversionRate: snapshot.ConversionRate(),
		Overdue:        len(snapshot.Overdue(clock.Now())),
		Stages:         stages,
	}
}
