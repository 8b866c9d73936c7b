package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bnema/dealer-pipeline/internal/domain"
	"github.com/bnema/dealer-pipeline/internal/ports"
)

// Engine turns stage-change intents into validated proposals. It reads from the
// store but never writes to it; applying a proposal is the reconciler's job.
type Engine struct {
	store   *Store
	authz   ports.Authorizer
	clock   ports.Clock
	history *History
	logger  *slog.Logger
}

func NewEngine(store *Store, authz ports.Authorizer, clock ports.Clock, opts ...Option) *Engine {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	o := buildOptions(opts)

	return &Engine{
		store:   store,
		authz:   authz,
		clock:   clock,
		history: NewHistory(o.historySize),
		logger:  o.logger,
	}
}

// RequestTransition validates moving record id to stage to on behalf of actor
// and returns the proposed record with its version bumped. The proposal only
// becomes undoable once it is passed to Record.
func (e *Engine) RequestTransition(ctx context.Context, id domain.RecordID, to domain.Stage, actor domain.Actor) (domain.PendingTransition, error) {
	if !to.Valid() {
		return domain.PendingTransition{}, fmt.Errorf("%w: %q", domain.ErrInvalidStage, to)
	}

	current, err := e.store.Get(id)
	if err != nil {
		return domain.PendingTransition{}, err
	}
	if current.Stage.Terminal() {
		return domain.PendingTransition{}, &domain.TerminalStageError{ID: id, Stage: current.Stage}
	}
	if current.Stage == to {
		return domain.PendingTransition{}, fmt.Errorf("record %s: %w", id, domain.ErrNoTransition)
	}
	if !e.authz.CanTransition(ctx, actor, current, to) {
		return domain.PendingTransition{}, &domain.AuthorizationError{Actor: actor.ID, ID: id, To: to}
	}

	pending := e.propose(current, to, actor, domain.TransitionMove)
	e.requested(pending)

	return pending, nil
}

// Reopen moves a sold or lost record back to lead.
func (e *Engine) Reopen(ctx context.Context, id domain.RecordID, actor domain.Actor) (domain.PendingTransition, error) {
	current, err := e.store.Get(id)
	if err != nil {
		return domain.PendingTransition{}, err
	}
	if !current.Stage.Terminal() {
		return domain.PendingTransition{}, fmt.Errorf("reopen record %s: %w", id, domain.ErrNotTerminal)
	}
	if !e.authz.CanTransition(ctx, actor, current, domain.StageLead) {
		return domain.PendingTransition{}, &domain.AuthorizationError{Actor: actor.ID, ID: id, To: domain.StageLead}
	}

	pending := e.propose(current, domain.StageLead, actor, domain.TransitionReopen)
	e.requested(pending)

	return pending, nil
}

// Undo proposes restoring the stage that preceded the most recent transition.
// The record must not have changed since that transition, and a record that
// has reached a terminal stage has to be reopened instead.
func (e *Engine) Undo(ctx context.Context, actor domain.Actor) (domain.PendingTransition, error) {
	entry, ok := e.history.Peek()
	if !ok {
		return domain.PendingTransition{}, domain.ErrNothingToUndo
	}

	current, err := e.store.Get(entry.RecordID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			e.history.Pop()
		}
		return domain.PendingTransition{}, err
	}
	if current.Version != entry.Version || current.Stage != entry.ToStage {
		e.history.Pop()
		return domain.PendingTransition{}, &domain.StaleWriteError{ID: entry.RecordID, Stored: current.Version, Attempted: entry.Version}
	}
	if current.Stage.Terminal() {
		return domain.PendingTransition{}, &domain.TerminalStageError{ID: current.ID, Stage: current.Stage}
	}
	if !e.authz.CanTransition(ctx, actor, current, entry.FromStage) {
		return domain.PendingTransition{}, &domain.AuthorizationError{Actor: actor.ID, ID: current.ID, To: entry.FromStage}
	}

	e.history.Pop()
	pending := e.propose(current, entry.FromStage, actor, domain.TransitionUndo)
	e.logger.Debug("undo proposed",
		slog.String("record", string(current.ID)),
		slog.String("from", string(current.Stage)),
		slog.String("to", string(entry.FromStage)),
	)

	return pending, nil
}

func (e *Engine) History() []domain.UndoEntry {
	return e.history.Entries()
}

func (e *Engine) propose(base domain.CustomerRecord, to domain.Stage, actor domain.Actor, kind domain.TransitionKind) domain.PendingTransition {
	now := e.clock.Now()

	next := base
	next.Stage = to
	next.Version = base.Version + 1
	next.LastContact = now
	if to.Terminal() {
		next.ClosedAt = now
	} else {
		next.ClosedAt = time.Time{}
	}

	return domain.PendingTransition{
		RecordID:        base.ID,
		FromStage:       base.Stage,
		ToStage:         to,
		ClientTimestamp: now,
		ExpectedVersion: base.Version,
		Kind:            kind,
		Actor:           actor,
		Base:            base,
		Proposed:        next,
	}
}

// Record makes an applied move or reopen available to Undo. Undo proposals
// are never recorded.
func (e *Engine) Record(pending domain.PendingTransition) {
	if pending.Kind != domain.TransitionMove && pending.Kind != domain.TransitionReopen {
		return
	}

	e.history.Push(domain.UndoEntry{
		RecordID:  pending.RecordID,
		FromStage: pending.FromStage,
		ToStage:   pending.ToStage,
		Version:   pending.Proposed.Version,
		At:        pending.ClientTimestamp,
	})
}

func (e *Engine) requested(pending domain.PendingTransition) {
	transitionsRequested.WithLabelValues(string(pending.Kind), string(pending.ToStage)).Inc()

	e.logger.Debug("transition proposed",
		slog.String("record", string(pending.RecordID)),
		slog.String("kind", string(pending.Kind)),
		slog.String("from", string(pending.FromStage)),
		slog.String("to", string(pending.ToStage)),
		slog.Int64("version", pending.Proposed.Version),
	)
}
