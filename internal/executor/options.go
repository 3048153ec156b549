package executor

import (
	"io"
	"log/slog"
	goruntime "runtime"
)

type options struct {
	workers       int
	queueCapacity int
	logger        *slog.Logger
}

func defaultOptions() options {
	return options{
		workers:       goruntime.NumCPU(),
		queueCapacity: 64,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

type Option func(*options)

// WithWorkers sets the number of concurrent jobs. Values below one are
// ignored.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithQueueCapacity sets how many jobs may wait before Submit blocks.
func WithQueueCapacity(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.queueCapacity = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
