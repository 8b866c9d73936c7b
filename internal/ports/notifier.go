package ports

import "github.com/bnema/dealer-pipeline/internal/domain"

// Notifier delivers pipeline events. Send must not block on listeners.
type Notifier interface {
	Send(event domain.Event)
}
