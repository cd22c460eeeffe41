package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"

	"days-together/internal/metrics"
)

// Advancer is the part of the state machine the daily sweep needs.
type Advancer interface {
	Identities() []string
	AdvanceDay(ctx context.Context, id string) (bool, error)
}

// Report summarises one sweep. Advanced counts every persisted increment,
// including those whose notification then failed (SendFailed).
type Report struct {
	Advanced   int
	Skipped    int
	Failed     int
	SendFailed int
}

// Scheduler fires the daily sweep at the configured wall-clock time.
type Scheduler struct {
	schedule cron.Schedule
	loc      *time.Location
	clock    clockwork.Clock
	advancer Advancer
	metrics  metrics.Recorder

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the real clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithRecorder reports sweep outcomes to r.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Scheduler) { s.metrics = r }
}

// New parses expr (standard 5-field cron) evaluated in loc.
func New(expr string, loc *time.Location, advancer Advancer, opts ...Option) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	s := &Scheduler{
		schedule: schedule,
		loc:      loc,
		clock:    clockwork.NewRealClock(),
		advancer: advancer,
		metrics:  metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Next returns the first fire instant strictly after now.
func (s *Scheduler) Next(now time.Time) time.Time {
	return s.schedule.Next(now.In(s.loc))
}

// nextAfter never returns an instant at or before last, so a wall clock
// stepped backwards cannot fire the same slot twice.
func (s *Scheduler) nextAfter(now, last time.Time) time.Time {
	if now.Before(last) {
		now = last
	}
	return s.Next(now)
}

// Start launches the wait loop. It stops when ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if s.advancer == nil {
		log.Println("⚠️ Advancer not set, scheduler will not run sweeps")
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	go s.loop(ctx, s.done)
	log.Printf("📅 Scheduler started - next sweep at %s", s.Next(s.clock.Now()).Format(time.RFC3339))
	return nil
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		if s.done == done {
			s.running = false
		}
		s.mu.Unlock()
		close(done)
	}()
	var last time.Time
	for {
		next := s.nextAfter(s.clock.Now(), last)
		timer := s.clock.NewTimer(next.Sub(s.clock.Now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
		}
		last = next
		log.Printf("🕛 Triggered daily sweep at %s", next.Format(time.RFC3339))
		r := s.Sweep(ctx)
		log.Printf("📅 Sweep done: advanced=%d skipped=%d failed=%d send_failed=%d", r.Advanced, r.Skipped, r.Failed, r.SendFailed)
	}
}

// Sweep advances every stored identity once. A failure for one identity is
// logged and the sweep moves on.
func (s *Scheduler) Sweep(ctx context.Context) Report {
	started := s.clock.Now()
	var r Report
	for _, id := range s.advancer.Identities() {
		advanced, err := s.advancer.AdvanceDay(ctx, id)
		switch {
		case advanced && err != nil:
			r.Advanced++
			r.SendFailed++
			log.Printf("❌ Daily notification for %s failed: %v", id, err)
		case err != nil:
			r.Failed++
			log.Printf("❌ Daily update for %s failed: %v", id, err)
		case advanced:
			r.Advanced++
		default:
			r.Skipped++
		}
	}
	s.metrics.ObserveSweep(s.clock.Since(started), r.Advanced, r.Skipped, r.Failed, r.SendFailed)
	return r
}

// Stop cancels the wait loop and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	done := s.done
	s.mu.Unlock()
	<-done
	log.Println("📅 Scheduler stopped")
}

// IsRunning reports whether the wait loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
