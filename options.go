// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package dispatch

import "math"

// dispatcherOptions holds configuration resolved from Option values passed
// to New.
type dispatcherOptions struct {
	logger     Logger
	maxSocket  SocketID
	eventBufSz int
}

// Option configures a Dispatcher instance.
type Option interface {
	applyDispatcher(*dispatcherOptions) error
}

type optionFunc func(*dispatcherOptions) error

func (f optionFunc) applyDispatcher(opts *dispatcherOptions) error {
	return f(opts)
}

// WithLogger sets the Logger used for lifecycle and error events. The
// default is NewNopLogger(), which discards everything.
func WithLogger(l Logger) Option {
	return optionFunc(func(opts *dispatcherOptions) error {
		if l != nil {
			opts.logger = l
		}
		return nil
	})
}

// WithMaxSocketID bounds the number of concurrently live sockets. This
// exists primarily so tests can exercise TooManySockets without allocating
// math.MaxUint32 file descriptors. The default is math.MaxUint32.
func WithMaxSocketID(max SocketID) Option {
	return optionFunc(func(opts *dispatcherOptions) error {
		opts.maxSocket = max
		return nil
	})
}

// WithEventBufferSize overrides the size of the poller's readiness-event
// scratch buffer (the eventBufferSize argument of New is the usual way to
// set this; this option exists for symmetry with the other Option values
// and for use by callers who construct a Dispatcher via options alone).
func WithEventBufferSize(n int) Option {
	return optionFunc(func(opts *dispatcherOptions) error {
		if n > 0 {
			opts.eventBufSz = n
		}
		return nil
	})
}

// resolveOptions applies Option values over the zero-value defaults.
func resolveOptions(eventBufferSize int, opts []Option) (*dispatcherOptions, error) {
	cfg := &dispatcherOptions{
		logger:     NewNopLogger(),
		maxSocket:  math.MaxUint32,
		eventBufSz: eventBufferSize,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyDispatcher(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.eventBufSz <= 0 {
		cfg.eventBufSz = 256
	}
	return cfg, nil
}
