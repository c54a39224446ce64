// Package supervisor owns the shared WNI client, a fixed pool of reader
// threads and the single ingest channel that funnels parsed events
// through the global history into every destination router. Readers
// never touch the history or the router list directly; only the
// supervisor's drain loop does.
package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tina/internal/eew"
	"tina/internal/history"
	"tina/internal/router"
	"tina/internal/telegram"
	"tina/internal/telemetry/logging"
	"tina/internal/telemetry/tracing"
	"tina/internal/wni"
)

const (
	defaultReaderCount  = 4
	defaultIngestBuffer = 32

	defaultModeratorRate     = 2
	defaultModeratorMaxCount = 10
)

// Moderator is an exponential backoff with a saturating retry count:
// wait_secs = rate^count, reset to zero on the first successful data
// frame.
type Moderator struct {
	mu       sync.Mutex
	count    uint32
	maxCount uint32
	rate     uint32
}

// NewModerator builds a Moderator with the default rate (2) and cap
// (10).
func NewModerator() *Moderator { return NewModeratorWithRate(defaultModeratorMaxCount, defaultModeratorRate) }

// NewModeratorWithRate builds a Moderator with a custom cap and rate.
func NewModeratorWithRate(maxCount, rate uint32) *Moderator {
	return &Moderator{maxCount: maxCount, rate: rate}
}

// Reset zeroes the failure count after a successful data frame.
func (m *Moderator) Reset() {
	m.mu.Lock()
	m.count = 0
	m.mu.Unlock()
}

// AddFailure increments the failure count, saturating at maxCount.
func (m *Moderator) AddFailure() {
	m.mu.Lock()
	if m.count < m.maxCount {
		m.count++
	}
	m.mu.Unlock()
}

// NextInterval returns rate^count seconds for the current failure
// count.
func (m *Moderator) NextInterval() time.Duration {
	m.mu.Lock()
	count := m.count
	m.mu.Unlock()
	return time.Duration(math.Pow(float64(m.rate), float64(count))) * time.Second
}

// Supervisor coordinates the reader pool, the history and the router
// fan-out.
type Supervisor struct {
	client       *wni.Client
	clientMu     sync.Mutex
	dicts        *telegram.Dictionaries
	history      *history.History
	routers      []*router.Router
	readerCount  int
	ingestBuffer int
	logger       logging.Logger
	tracer       tracing.Tracer
	metrics      *Metrics
}

// Option configures a Supervisor at construction time.
type Option func(*Supervisor)

func WithReaderCount(n int) Option {
	return func(s *Supervisor) {
		if n > 0 {
			s.readerCount = n
		}
	}
}

func WithIngestBuffer(n int) Option {
	return func(s *Supervisor) {
		if n > 0 {
			s.ingestBuffer = n
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(s *Supervisor) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithTracer(t tracing.Tracer) Option {
	return func(s *Supervisor) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithMetrics attaches the ingest-path instruments; nil leaves the
// supervisor uninstrumented.
func WithMetrics(m *Metrics) Option {
	return func(s *Supervisor) { s.metrics = m }
}

// New builds a Supervisor over client, dicts and the given routers. The
// history capacity bounds how many distinct earthquake ids are tracked
// for deduplication.
func New(client *wni.Client, dicts *telegram.Dictionaries, historyCapacity int, routers []*router.Router, opts ...Option) *Supervisor {
	s := &Supervisor{
		client:       client,
		dicts:        dicts,
		history:      history.New(historyCapacity),
		routers:      routers,
		readerCount:  defaultReaderCount,
		ingestBuffer: defaultIngestBuffer,
		logger:       logging.New(nil),
		tracer:       tracing.NewTracer(true),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// History exposes the deduplication store for health probes and tests.
func (s *Supervisor) History() *history.History { return s.history }

// Run spawns the reader pool and drains the ingest channel until ctx is
// cancelled. It blocks until every reader has exited.
func (s *Supervisor) Run(ctx context.Context) error {
	ingest := make(chan *eew.Event, s.ingestBuffer)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < s.readerCount; i++ {
		readerID := i
		g.Go(func() error {
			s.runReader(gctx, readerID, ingest)
			return nil
		})
	}

	go s.drain(ctx, ingest)

	return g.Wait()
}

// runReader is one connect/read/reconnect cycle, racing independently
// against every other reader: readers never coordinate, the history is
// the rendezvous.
func (s *Supervisor) runReader(ctx context.Context, readerID int, ingest chan<- *eew.Event) {
	moderator := NewModerator()

	for {
		if ctx.Err() != nil {
			return
		}

		cctx, span := s.tracer.StartSpan(ctx, "wni.connect")
		conn, err := s.connect(cctx)
		span.End()
		if err != nil {
			s.logger.WarnCtx(cctx, "reader connect failed", slog.Int("reader", readerID), slog.String("error", err.Error()))
			wait := moderator.NextInterval()
			s.metrics.backoffWait(wait.Seconds())
			if !sleepOrDone(ctx, wait) {
				return
			}
			moderator.AddFailure()
			continue
		}

		s.metrics.readerConnected(1)
		s.readLoop(ctx, readerID, conn, ingest, moderator)
		conn.Close()
		s.metrics.readerConnected(-1)

		if ctx.Err() != nil {
			return
		}
		wait := moderator.NextInterval()
		s.metrics.backoffWait(wait.Seconds())
		if !sleepOrDone(ctx, wait) {
			return
		}
	}
}

func (s *Supervisor) connect(ctx context.Context) (*wni.Connection, error) {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	return s.client.Connect(ctx)
}

func (s *Supervisor) readLoop(ctx context.Context, readerID int, conn *wni.Connection, ingest chan<- *eew.Event, moderator *Moderator) {
	for {
		if ctx.Err() != nil {
			return
		}
		event, err := conn.WaitForTelegram(ctx, s.dicts)
		if err != nil {
			var wniErr *wni.Error
			if errors.As(err, &wniErr) && wniErr.Kind == wni.ErrParse {
				// A malformed or un-dictionaried telegram is logged and
				// dropped; the connection itself is still healthy and the
				// reader keeps waiting on it.
				s.logger.WarnCtx(ctx, "dropping unparseable telegram", slog.Int("reader", readerID), slog.String("error", err.Error()))
				continue
			}
			s.logger.WarnCtx(ctx, "reader lost connection", slog.Int("reader", readerID), slog.String("error", err.Error()))
			return
		}
		moderator.Reset()

		select {
		case ingest <- event:
		default:
			s.logger.WarnCtx(ctx, "ingest channel full, dropping event", slog.Int("reader", readerID), slog.String("id", event.ID))
			s.metrics.dropped()
		}
	}
}

// drain is the single consumer of the ingest channel: it gates every
// event through the history and fans accepted events out to every
// router.
func (s *Supervisor) drain(ctx context.Context, ingest <-chan *eew.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ingest:
			if !ok {
				return
			}
			ectx, span := s.tracer.StartSpan(ctx, "ingest")
			span.SetAttribute("id", event.ID)
			accepted, ok := s.history.Append(event)
			if !ok {
				s.metrics.rejected()
				span.End()
				continue
			}
			s.metrics.accepted()
			for _, r := range s.routers {
				r.Emit(ectx, accepted)
			}
			span.End()
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
