package notify

import (
	"context"
	"log/slog"

	"github.com/bnema/dealer-pipeline/internal/domain"
	"github.com/bnema/dealer-pipeline/internal/ports"
)

// LogNotifier writes every event to a structured logger. Problems are logged
// at warn level, routine events at debug.
type LogNotifier struct {
	logger *slog.Logger
}

var _ ports.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(event domain.Event) {
	level := slog.LevelDebug
	switch event.Type {
	case domain.EventConflict, domain.EventSyncFailed, domain.EventRolledBack:
		level = slog.LevelWarn
	}

	attrs := []slog.Attr{
		slog.String("event_id", event.ID),
		slog.String("record", string(event.RecordID)),
	}
	if event.Detail != "" {
		attrs = append(attrs, slog.String("detail", event.Detail))
	}
	if event.Local != nil {
		attrs = append(attrs, slog.Int64("local_version", event.Local.Version))
	}
	if event.Remote != nil {
		attrs = append(attrs, slog.Int64("remote_version", event.Remote.Version))
	}

	n.logger.LogAttrs(context.Background(), level, "pipeline "+string(event.Type), attrs...)
}
