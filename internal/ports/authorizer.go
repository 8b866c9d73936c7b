package ports

import (
	"context"

	"github.com/bnema/dealer-pipeline/internal/domain"
)

type Authorizer interface {
	CanTransition(ctx context.Context, actor domain.Actor, record domain.CustomerRecord, to domain.Stage) bool
}
