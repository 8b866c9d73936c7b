package ports

import (
	"context"

	"github.com/bnema/dealer-pipeline/internal/domain"
)

// SaveResult reports whether a save was accepted. When OK is false, Conflict
// holds the record the repository kept instead.
type SaveResult struct {
	OK       bool
	Record   domain.CustomerRecord
	Conflict domain.CustomerRecord
}

// RecordRepository is the remote store of customer records. Save is rejected
// with a conflict when the stored version is not older than record.Version.
type RecordRepository interface {
	Save(ctx context.Context, record domain.CustomerRecord) (SaveResult, error)
	Fetch(ctx context.Context, id domain.RecordID) (domain.CustomerRecord, error)
	List(ctx context.Context) ([]domain.CustomerRecord, error)
}
