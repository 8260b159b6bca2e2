package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/abrezinsky/jackpot/internal/logger"
	"github.com/abrezinsky/jackpot/internal/services"
)

// Cranker runs one draw attempt
type Cranker interface {
	RunCrank(ctx context.Context) (*services.CrankResult, error)
}

// StatusSource provides the status the countdown is computed from
type StatusSource interface {
	Status(ctx context.Context) (*services.Status, error)
}

// CountdownPublisher receives countdown ticks
type CountdownPublisher interface {
	BroadcastCountdown(secondsRemaining int64, nextDrawAt time.Time)
}

// Scheduler turns the draw crank on a cron schedule and, optionally,
// publishes a countdown to the next draw.
type Scheduler struct {
	log      logger.Logger
	clock    clockwork.Clock
	expr     string
	schedule cron.Schedule
	crank    Cranker

	status    StatusSource
	publisher CountdownPublisher
	interval  time.Duration
}

// New parses expr (standard 5-field cron or a descriptor such as
// "@every 1m") and returns a scheduler for crank.
func New(log logger.Logger, clock clockwork.Clock, expr string, crank Cranker) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse draw schedule %q: %w", expr, err)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{log: log, clock: clock, expr: expr, schedule: schedule, crank: crank}, nil
}

// WithCountdown enables countdown publishing every interval
func (s *Scheduler) WithCountdown(status StatusSource, publisher CountdownPublisher, interval time.Duration) *Scheduler {
	s.status = status
	s.publisher = publisher
	s.interval = interval
	return s
}

// Next returns the next crank time after t
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Run blocks until ctx is done
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.runCrank(ctx) })
	if s.status != nil && s.publisher != nil && s.interval > 0 {
		g.Go(func() error { return s.runCountdown(ctx) })
	}
	return g.Wait()
}

func (s *Scheduler) runCrank(ctx context.Context) error {
	s.log.Info("Draw scheduler started", "schedule", s.expr)
	for {
		now := s.clock.Now()
		timer := s.clock.NewTimer(s.schedule.Next(now).Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("Draw scheduler stopped")
			return nil
		case <-timer.Chan():
			s.Tick(ctx)
		}
	}
}

// Tick runs one crank turn and logs what it did. Crank errors are logged,
// never returned: the next tick simply tries again.
func (s *Scheduler) Tick(ctx context.Context) *services.CrankResult {
	res, err := s.crank.RunCrank(ctx)
	if err != nil {
		s.log.Error("Crank failed", "error", err)
		return res
	}
	switch {
	case res.Draw != nil && res.Payout != nil:
		s.log.Info("Crank drew and paid out", "draw", res.Draw.DrawNumber, "payout", res.Payout.ID)
	case res.Draw != nil:
		s.log.Info("Crank drew", "draw", res.Draw.DrawNumber, "outcome", res.Draw.Outcome)
	case res.Payout != nil:
		s.log.Info("Crank settled pending payout", "payout", res.Payout.ID)
	default:
		s.log.Debug("Crank skipped", "reason", res.Skipped)
	}
	return res
}

func (s *Scheduler) runCountdown(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			st, err := s.status.Status(ctx)
			if err != nil {
				continue
			}
			s.publisher.BroadcastCountdown(st.SecondsRemaining, st.NextDrawAt)
		}
	}
}
