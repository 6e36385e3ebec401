package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	cardstore "simtrack/internal/card/store"
	"simtrack/internal/reconcile/metrics"
	id "simtrack/pkg/domain"
)

// Locker elects a sweep leader so only one instance polls the authority
// when several replicas run. The zero-dependency AlwaysLeader suits single
// instance deployments and tests.
type Locker interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// LockerFunc adapts a function to the Locker interface.
type LockerFunc func(ctx context.Context, key string, ttl time.Duration) (bool, error)

func (f LockerFunc) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return f(ctx, key, ttl)
}

// AlwaysLeader grants every acquisition.
var AlwaysLeader Locker = LockerFunc(func(context.Context, string, time.Duration) (bool, error) {
	return true, nil
})

const sweepLockKey = "simtrack:sweep:leader"

// Sweep is the long-lived background loop reconciling all assigned cards on
// a fixed interval. It survives individual failures indefinitely: a failing
// card is logged and skipped, and a failing iteration is logged and retried
// at the next tick.
type Sweep struct {
	cards    cardstore.Store
	engine   Reconciler
	locker   Locker
	interval time.Duration
	pause    time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type SweepOption func(s *Sweep)

func WithSweepLogger(logger *slog.Logger) SweepOption {
	return func(s *Sweep) {
		s.logger = logger
	}
}

func WithSweepMetrics(m *metrics.Metrics) SweepOption {
	return func(s *Sweep) {
		s.metrics = m
	}
}

// WithLocker sets the leader election lock.
func WithLocker(locker Locker) SweepOption {
	return func(s *Sweep) {
		s.locker = locker
	}
}

// NewSweep constructs the periodic sweep. interval is the time between
// iterations, pause the delay between cards bounding the outbound request
// rate against the authority.
func NewSweep(cards cardstore.Store, engine Reconciler, interval, pause time.Duration, opts ...SweepOption) *Sweep {
	s := &Sweep{
		cards:    cards,
		engine:   engine,
		locker:   AlwaysLeader,
		interval: interval,
		pause:    pause,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run loops until ctx is cancelled. The first iteration starts immediately.
// Cancellation is honored between cards, so an in-flight merge always runs
// to completion before the loop exits.
func (s *Sweep) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "periodic sweep started",
		"interval", s.interval,
		"pause", s.pause)

	for {
		s.iterate(ctx)
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "periodic sweep stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// iterate runs one full sweep. All failures are absorbed here; the loop
// must survive them indefinitely.
func (s *Sweep) iterate(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.ErrorContext(ctx, "sweep iteration panicked", "panic", rec)
		}
	}()

	if ctx.Err() != nil {
		return
	}

	leader, err := s.locker.TryAcquire(ctx, sweepLockKey, s.interval)
	if err != nil {
		s.logger.WarnContext(ctx, "sweep leader election failed, proceeding", "error", err)
	} else if !leader {
		s.logger.InfoContext(ctx, "sweep skipped, another instance holds the lock")
		return
	}

	start := time.Now()
	if err := s.sweepOnce(ctx); err != nil {
		s.logger.ErrorContext(ctx, "sweep iteration failed", "error", err)
		return
	}
	s.metrics.ObserveSweep(time.Since(start))
}

func (s *Sweep) sweepOnce(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting periodic simcard check")

	assigned, err := s.cards.List(ctx, cardstore.Filter{Status: id.CardStatusAssigned})
	if err != nil {
		return fmt.Errorf("list assigned cards: %w", err)
	}

	checked := 0
	for _, card := range assigned {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.engine.Reconcile(ctx, card.ID); err != nil {
			s.logger.ErrorContext(ctx, "error checking simcard",
				"simcard_code", card.Code,
				"error", err)
		} else {
			checked++
		}
		if !s.sleep(ctx) {
			break
		}
	}

	s.logger.InfoContext(ctx, "periodic check completed",
		"assigned", len(assigned),
		"checked", checked)
	return nil
}

// sleep waits the inter-card pause, returning false when ctx was cancelled.
func (s *Sweep) sleep(ctx context.Context) bool {
	if s.pause <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(s.pause):
		return true
	}
}
