package domain

import (
	"fmt"
	"strings"
)

type Stage string

const (
	StageProspect    Stage = "prospect"
	StageLead        Stage = "lead"
	StageHot         Stage = "hot"
	StageNegotiating Stage = "negotiating"
	StageSold        Stage = "sold"
	StageLost        Stage = "lost"
)

// StageCount is the number of members in the stage enumeration.
const StageCount = 6

var orderedStages = [StageCount]Stage{
	StageProspect,
	StageLead,
	StageHot,
	StageNegotiating,
	StageSold,
	StageLost,
}

// Stages returns the pipeline columns in board order.
func Stages() []Stage {
	stages := make([]Stage, StageCount)
	copy(stages, orderedStages[:])
	return stages
}

func ParseStage(raw string) (Stage, error) {
	stage := Stage(strings.ToLower(strings.TrimSpace(raw)))
	if !stage.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStage, raw)
	}

	return stage, nil
}

func (s Stage) Valid() bool {
	return s.Index() >= 0
}

// Index returns the board position of s, or -1 when s is not a pipeline stage.
func (s Stage) Index() int {
	for i, stage := range orderedStages {
		if stage == s {
			return i
		}
	}
	return -1
}

func (s Stage) Terminal() bool {
	return s == StageSold || s == StageLost
}

func (s Stage) Label() string {
	switch s {
	case StageProspect:
		return "Prospect"
	case StageLead:
		return "Lead"
	case StageHot:
		return "Hot"
	case StageNegotiating:
		return "Negotiating"
	case StageSold:
		return "Sold"
	case StageLost:
		return "Lost"
	default:
		return string(s)
	}
}

type InterestLevel string

const (
	InterestLow    InterestLevel = "low"
	InterestMedium InterestLevel = "medium"
	InterestHigh   InterestLevel = "high"
)

func (l InterestLevel) Valid() bool {
	switch l {
	case InterestLow, InterestMedium, InterestHigh:
		return true
	default:
		return false
	}
}
