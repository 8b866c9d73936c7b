package domain

import "time"

type StageTotal struct {
	Stage Stage
	Count int
	Total Money
}

// PipelineSnapshot is a materialized view of the store. Every figure in it is
// derived from Records.
type PipelineSnapshot struct {
	Revision uint64
	Records  []CustomerRecord
	Stages   [StageCount]StageTotal
}

func NewPipelineSnapshot(revision uint64, records []CustomerRecord) PipelineSnapshot {
	snapshot := PipelineSnapshot{
		Revision: revision,
		Records:  records,
	}
	for i, stage := range orderedStages {
		snapshot.Stages[i].Stage = stage
	}

	for _, record := range records {
		idx := record.Stage.Index()
		if idx < 0 {
			continue
		}
		snapshot.Stages[idx].Count++
		snapshot.Stages[idx].Total += record.Budget
	}

	return snapshot
}

func (s PipelineSnapshot) StageTotal(stage Stage) StageTotal {
	idx := stage.Index()
	if idx < 0 {
		return StageTotal{Stage: stage}
	}
	return s.Stages[idx]
}

func (s PipelineSnapshot) Count() int {
	return len(s.Records)
}

func (s PipelineSnapshot) Total() Money {
	var total Money
	for _, stage := range s.Stages {
		total += stage.Total
	}
	return total
}

// ConversionRate returns sold records over all records, or 0 for an empty pipeline.
func (s PipelineSnapshot) ConversionRate() float64 {
	if len(s.Records) == 0 {
		return 0
	}

	return float64(s.StageTotal(StageSold).Count) / float64(len(s.Records))
}

func (s PipelineSnapshot) Overdue(now time.Time) []CustomerRecord {
	overdue := make([]CustomerRecord, 0)
	for _, record := range s.Records {
		if record.Stage.Terminal() {
			continue
		}
		if record.Overdue(now) {
			overdue = append(overdue, record)
		}
	}
	return overdue
}

func (s PipelineSnapshot) ByStage(stage Stage) []CustomerRecord {
	records := make([]CustomerRecord, 0, s.StageTotal(stage).Count)
	for _, record := range s.Records {
		if record.Stage == stage {
			records = append(records, record)
		}
	}
	return records
}
