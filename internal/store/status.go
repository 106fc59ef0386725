// Package store holds the client-side state of the dashboard views. Each
// store pairs one Status (loading flag and error message) with one or more
// typed datasets, and every action follows the same discipline: clear the
// error and raise loading, call the backend, then either replace the data or
// record the failure, and lower loading on every path.
//
// Actions never return errors. Callers read Err after the action returns.
package store

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/tinytelemetry/olam/internal/apiclient"
	"github.com/tinytelemetry/olam/internal/normalize"
)

// Option configures a store.
type Option func(*options)

type options struct {
	logger       *zap.Logger
	staleDiscard bool
	formatter    normalize.Formatter
}

func buildOptions(opts []Option) options {
	o := options{
		logger:    zap.NewNop(),
		formatter: normalize.DefaultFormatter(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger failures are reported to.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithStaleDiscard drops a response when a newer request for the same
// dataset was issued after it. Without it the last response to arrive wins.
func WithStaleDiscard() Option {
	return func(o *options) { o.staleDiscard = true }
}

// WithFormatter sets how batch timestamps are rendered.
func WithFormatter(f normalize.Formatter) Option {
	return func(o *options) { o.formatter = f }
}

// Status is the loading flag and error message shared by the actions of one
// store. Its mutex also guards the store's datasets; it is never held across
// a network call.
type Status struct {
	mu       sync.Mutex
	loading  bool
	err      string
	inflight int
	opts     options
}

func (s *Status) configure(opts []Option) {
	s.opts = buildOptions(opts)
}

// Loading reports whether a request is outstanding.
func (s *Status) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the message of the last failure, or "" after a new attempt
// started.
func (s *Status) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// beginLocked starts an attempt. Caller holds s.mu.
func (s *Status) beginLocked() {
	s.loading = true
	s.err = ""
	s.inflight++
}

// end lowers the loading flag. With stale discard enabled the flag stays up
// until the last outstanding request finishes.
func (s *Status) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if !s.opts.staleDiscard || s.inflight <= 0 {
		s.loading = false
		s.inflight = max(s.inflight, 0)
	}
}

// failLocked records err. Caller holds s.mu.
func (s *Status) failLocked(action string, err error, fallback string) {
	msg := apiclient.Message(err)
	if msg == "" {
		msg = fallback
	}
	s.err = msg
	s.opts.logger.Warn("store action failed",
		zap.String("action", action),
		zap.String("message", msg),
		zap.Error(err))
}

// Dataset is one typed piece of store state. It is guarded by the Status of
// the store that owns it.
type Dataset[T any] struct {
	value  T
	issued uint64
}

// issue returns the ticket of a new request for d.
func (d *Dataset[T]) issue() uint64 {
	d.issued++
	return d.issued
}

// stale reports whether a response with ticket must be dropped.
func (d *Dataset[T]) stale(s *Status, ticket uint64) bool {
	return s.opts.staleDiscard && ticket != d.issued
}

// fetch runs one attempt of a single-dataset action. When empty is non-nil
// a failure resets the dataset to empty().
func fetch[T any](ctx context.Context, s *Status, d *Dataset[T], action, fallback string, empty func() T, call func(context.Context) (T, error)) {
	s.mu.Lock()
	s.beginLocked()
	ticket := d.issue()
	s.mu.Unlock()
	defer s.end()

	v, err := call(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if d.stale(s, ticket) {
		return
	}
	if err != nil {
		s.failLocked(action, err, fallback)
		if empty != nil {
			d.value = empty()
		}
		return
	}
	d.value = v
}
