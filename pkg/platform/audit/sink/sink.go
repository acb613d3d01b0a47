// Package sink implements audit.Sink as a bounded in-memory queue drained by
// a background worker.
//
// Record never blocks: it appends to a ring buffer that drops its oldest
// entry when full. A single worker persists batches to an audit.Store, either
// when a batch fills up or on a timer. Failed batches stay queued and are
// retried; a circuit breaker stops the worker from hammering a store that is
// down, and the ring buffer bounds memory while it is.
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	audit "tiermask/pkg/platform/audit"
	"tiermask/pkg/platform/circuit"
	"tiermask/pkg/platform/sentinel"
)

const (
	defaultBatchSize      = 100
	defaultFlushInterval  = time.Second
	defaultPersistTimeout = 5 * time.Second
)

// Sink is the production audit.Sink.
type Sink struct {
	store   audit.Store
	buffer  *RingBuffer
	breaker *circuit.Breaker
	metrics *Metrics
	logger  *slog.Logger

	batchSize      int
	flushInterval  time.Duration
	persistTimeout time.Duration

	wake chan struct{}
	stop chan struct{}
	done chan struct{}

	// closeMu is held for reading while Record enqueues, so once Close has
	// set closed under the write lock no record can land after the final drain.
	closeMu   sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// Option configures the Sink.
type Option func(*Sink)

// WithLogger sets a logger for delivery problems.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(s *Sink) {
		s.metrics = m
	}
}

// WithBufferSize sets the queue capacity.
func WithBufferSize(n int) Option {
	return func(s *Sink) {
		s.buffer = NewRingBuffer(n)
	}
}

// WithBatchSize sets the maximum records per store write.
func WithBatchSize(n int) Option {
	return func(s *Sink) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithFlushInterval sets how often a partial batch is written.
func WithFlushInterval(d time.Duration) Option {
	return func(s *Sink) {
		if d > 0 {
			s.flushInterval = d
		}
	}
}

// WithPersistTimeout bounds a single store write.
func WithPersistTimeout(d time.Duration) Option {
	return func(s *Sink) {
		if d > 0 {
			s.persistTimeout = d
		}
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Sink) {
		s.breaker = b
	}
}

// New creates a sink and starts its worker. Call Close to stop it.
func New(store audit.Store, opts ...Option) *Sink {
	s := &Sink{
		store:          store,
		logger:         slog.Default(),
		batchSize:      defaultBatchSize,
		flushInterval:  defaultFlushInterval,
		persistTimeout: defaultPersistTimeout,
		wake:           make(chan struct{}, 1),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.buffer == nil {
		s.buffer = NewRingBuffer(defaultCapacity)
	}
	if s.breaker == nil {
		s.breaker = circuit.New("audit-store")
	}

	go s.run()
	return s
}

// Record queues a record for persistence. It assigns an ID and timestamp if
// the caller did not. It never blocks and never fails.
func (s *Sink) Record(ctx context.Context, record audit.Record) {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()

	if s.closed {
		s.metrics.AddDropped(1)
		s.logger.WarnContext(ctx, "audit record dropped: sink closed",
			"reason", record.Reason,
			"data_type", record.DataType,
		)
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	if s.buffer.Enqueue(record) {
		s.metrics.AddDropped(1)
	}
	s.metrics.IncEnqueued()

	depth := s.buffer.Len()
	s.metrics.SetQueueDepth(depth)
	if depth >= s.batchSize {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

// Len reports the number of queued records.
func (s *Sink) Len() int {
	return s.buffer.Len()
}

// Dropped reports how many records were lost to overflow.
func (s *Sink) Dropped() int64 {
	return s.buffer.Dropped()
}

// Close stops the worker and writes what is still queued until ctx ends.
// Records that could not be written are counted as dropped and reported in
// the returned error.
func (s *Sink) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.closeMu.Lock()
		s.closed = true
		s.closeMu.Unlock()
		close(s.stop)

		select {
		case <-s.done:
		case <-ctx.Done():
			err = ctx.Err()
			return
		}

		for s.buffer.Len() > 0 && ctx.Err() == nil {
			if !s.persistBatch(ctx) {
				break
			}
		}

		if left := s.buffer.Len(); left > 0 {
			s.buffer.DequeueBatch(left)
			s.metrics.AddDropped(left)
			s.metrics.SetQueueDepth(0)
			s.logger.ErrorContext(ctx, "audit sink closed with undelivered records", "count", left)
			err = fmt.Errorf("audit sink: %d undelivered records: %w", left, sentinel.ErrClosed)
		}
	})
	return err
}

func (s *Sink) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		case <-s.wake:
		}
		s.flush()
	}
}

// flush writes batches until the queue is empty, a write fails, or the
// breaker refuses.
func (s *Sink) flush() {
	for s.buffer.Len() > 0 {
		select {
		case <-s.stop:
			return
		default:
		}
		if !s.breaker.Allow() {
			return
		}
		if !s.persistBatch(context.Background()) {
			return
		}
	}
}

// persistBatch writes the oldest batch and reports whether it succeeded.
func (s *Sink) persistBatch(parent context.Context) bool {
	batch := s.buffer.Peek(s.batchSize)
	if len(batch) == 0 {
		return true
	}

	ctx, cancel := context.WithTimeout(parent, s.persistTimeout)
	defer cancel()

	start := time.Now()
	err := s.store.Append(ctx, batch)
	s.metrics.ObservePersistDuration(time.Since(start).Seconds())

	if err != nil {
		s.metrics.IncPersistFailures()
		_, change := s.breaker.RecordFailure()
		if change.Opened {
			s.metrics.SetCircuitState(true)
			s.logger.Error("audit store circuit opened", "breaker", s.breaker.Name())
		}
		s.logger.Error("audit batch persist failed",
			"batch_size", len(batch),
			"queued", s.buffer.Len(),
			"error", err,
		)
		return false
	}

	removed := s.buffer.Discard(batch)
	s.metrics.AddPersisted(len(batch))
	s.metrics.SetQueueDepth(s.buffer.Len())

	_, change := s.breaker.RecordSuccess()
	if change.Closed {
		s.metrics.SetCircuitState(false)
		s.logger.Info("audit store circuit closed", "breaker", s.breaker.Name())
	}
	if removed < len(batch) {
		s.logger.Debug("audit records overflowed while persisting", "count", len(batch)-removed)
	}
	return true
}
