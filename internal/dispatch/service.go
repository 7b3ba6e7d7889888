// Package dispatch formats and delivers webhook notifications for matched
// rules: queue + worker pool + bounded retry + audit logging.
package dispatch

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"pucktrack/internal/audit"
	"pucktrack/internal/events"
	"pucktrack/internal/store"
	"pucktrack/internal/teamcolors"
	logx "pucktrack/pkg/logx"
)

var (
	ErrQueueFull = errors.New("dispatch queue full")
	ErrStopped   = errors.New("dispatch stopped")
)

// Config controls delivery behavior.
//
// MaxAttempts counts total POSTs per delivery, not extra retries.
type Config struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	RetryBase   time.Duration
	SendTimeout time.Duration
}

// LogSink persists one audit row per delivery.
type LogSink interface {
	AppendLog(ctx context.Context, l store.Log) error
}

type job struct {
	rule store.Rule
	ev   events.Event
}

// Service is the dispatch engine. It is safe for concurrent use.
type Service struct {
	mu sync.Mutex

	log    logx.Logger
	sink   LogSink
	colors teamcolors.Lookup
	bus    audit.Bus

	cfg Config
	hc  *http.Client

	accepting bool
	sendWG    sync.WaitGroup

	queue chan job

	runCtx    context.Context
	runCancel context.CancelFunc
	workerWG  sync.WaitGroup
}

func New(cfg Config, sink LogSink, colors teamcolors.Lookup, bus audit.Bus, log logx.Logger) *Service {
	s := &Service{
		log:    log,
		sink:   sink,
		colors: colors,
		bus:    bus,
	}
	s.applyLocked(cfg)
	return s
}

// Apply updates delivery tunables. Safe during operation; in-flight
// deliveries keep the snapshot they started with.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	// Defaults
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 512
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 2 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	s.cfg = cfg
	s.hc = &http.Client{Timeout: cfg.SendTimeout}
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.queue != nil {
		// already running
		s.mu.Unlock()
		return
	}
	s.queue = make(chan job, s.cfg.QueueSize)
	s.accepting = true
	s.runCtx, s.runCancel = context.WithCancel(ctx)
	workers := s.cfg.Workers
	s.mu.Unlock()

	for i := 0; i < workers; i++ {
		i := i
		s.workerWG.Add(1)
		go func() {
			defer s.workerWG.Done()
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("panic in dispatch worker",
						logx.Int("worker", i),
						logx.Any("panic", r),
						logx.Stack(string(debug.Stack())))
				}
			}()
			s.workerLoop()
		}()
	}
}

// Stop blocks new dispatches and drains the queue best-effort until ctx
// expires, then cancels in-flight deliveries.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	q := s.queue
	cancel := s.runCancel
	if q == nil {
		s.mu.Unlock()
		return
	}
	s.accepting = false
	s.mu.Unlock()

	// Wait for in-flight enqueues, then close the queue so workers drain.
	enqDone := make(chan struct{})
	go func() {
		s.sendWG.Wait()
		close(enqDone)
	}()
	select {
	case <-ctx.Done():
		cancel()
		return
	case <-enqDone:
	}

	func() {
		defer func() { _ = recover() }()
		close(q)
	}()

	done := make(chan struct{})
	go func() {
		s.workerWG.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
	case <-done:
	}
	cancel()

	s.mu.Lock()
	s.queue = nil
	s.runCancel = nil
	s.runCtx = nil
	s.mu.Unlock()
}

// Dispatch enqueues one delivery. It never blocks on the network.
func (s *Service) Dispatch(ctx context.Context, rule store.Rule, ev events.Event) error {
	if ctx != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	s.mu.Lock()
	if !s.accepting || s.queue == nil {
		s.mu.Unlock()
		return ErrStopped
	}
	q := s.queue
	s.sendWG.Add(1)
	s.mu.Unlock()
	defer s.sendWG.Done()

	select {
	case q <- job{rule: rule, ev: ev}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Service) workerLoop() {
	s.mu.Lock()
	q := s.queue
	runCtx := s.runCtx
	s.mu.Unlock()

	for j := range q {
		select {
		case <-runCtx.Done():
			return
		default:
		}
		s.deliver(runCtx, j.rule, j.ev)
	}
}
