package ports

import (
	"context"

	"github.com/bnema/dealer-pipeline/internal/domain"
)

// ChangeFeed streams authoritative records written by other actors. Watch
// blocks until ctx is done.
type ChangeFeed interface {
	Watch(ctx context.Context, fn func([]domain.CustomerRecord)) error
}
