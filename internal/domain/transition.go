package domain

import "time"

type TransitionKind string

const (
	TransitionMove   TransitionKind = "move"
	TransitionReopen TransitionKind = "reopen"
	TransitionUndo   TransitionKind = "undo"
	// TransitionResync re-saves the current local value without changing it.
	TransitionResync TransitionKind = "resync"
)

// PendingTransition is a stage change that has been computed but not yet
// confirmed by the repository.
type PendingTransition struct {
	RecordID        RecordID
	FromStage       Stage
	ToStage         Stage
	ClientTimestamp time.Time
	ExpectedVersion int64
	Kind            TransitionKind
	Actor           Actor
	// Base is the record the proposal was derived from.
	Base     CustomerRecord
	Proposed CustomerRecord
}

type UndoEntry struct {
	RecordID  RecordID
	FromStage Stage
	ToStage   Stage
	// Version is the record version the transition produced.
	Version int64
	At      time.Time
}
