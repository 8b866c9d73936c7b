package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrTerminalStage  = errors.New("record is in a terminal stage")
	ErrStaleWrite     = errors.New("stale write")
	ErrUnauthorized   = errors.New("actor is not authorized")
	ErrSyncFailed     = errors.New("sync failed")
	ErrInvalidStage   = errors.New("invalid stage")
	ErrNothingToUndo  = errors.New("nothing to undo")
	ErrNotTerminal    = errors.New("record is not in a terminal stage")
	ErrNoTransition   = errors.New("record is already in the requested stage")
)

type NotFoundError struct {
	ID RecordID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("record %s: %s", e.ID, ErrRecordNotFound)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrRecordNotFound
}

type TerminalStageError struct {
	ID    RecordID
	Stage Stage
}

func (e *TerminalStageError) Error() string {
	return fmt.Sprintf("record %s is %s: reopen it before moving", e.ID, e.Stage)
}

func (e *TerminalStageError) Is(target error) bool {
	return target == ErrTerminalStage
}

type StaleWriteError struct {
	ID        RecordID
	Stored    int64
	Attempted int64
}

func (e *StaleWriteError) Error() string {
	return fmt.Sprintf("record %s: stale write: stored version %d, attempted %d", e.ID, e.Stored, e.Attempted)
}

func (e *StaleWriteError) Is(target error) bool {
	return target == ErrStaleWrite
}

type AuthorizationError struct {
	Actor UserID
	ID    RecordID
	To    Stage
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("actor %s may not move record %s to %s", e.Actor, e.ID, e.To)
}

func (e *AuthorizationError) Is(target error) bool {
	return target == ErrUnauthorized
}
