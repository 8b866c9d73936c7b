package application

import (
	"log/slog"
	"time"
)

const DefaultSaveTimeout = 15 * time.Second

type options struct {
	logger      *slog.Logger
	historySize int
	saveTimeout time.Duration
}

type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithHistorySize bounds the number of transitions kept for undo.
func WithHistorySize(size int) Option {
	return func(o *options) {
		o.historySize = size
	}
}

// WithSaveTimeout bounds a single repository save issued by the reconciler.
func WithSaveTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.saveTimeout = timeout
	}
}

func buildOptions(opts []Option) options {
	o := options{
		historySize: DefaultHistorySize,
		saveTimeout: DefaultSaveTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.historySize <= 0 {
		o.historySize = DefaultHistorySize
	}
	return o
}
