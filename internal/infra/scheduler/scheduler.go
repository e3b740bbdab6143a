package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"assessment-activation/internal/infra/metrics"
)

// Reaper is the minimal interface the scheduler needs from the auth use-case.
type Reaper interface {
	// ReapExpiredSessions deletes sessions past their expiry and returns
	// how many rows went away.
	ReapExpiredSessions(ctx context.Context) (int64, error)
}

// Scheduler periodically runs the session reaper.
type Scheduler struct {
	interval time.Duration
	reaper   Reaper
	log      *zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler constructs a scheduler that reaps every `interval`.
// If interval <= 0 it defaults to 1 hour.
func NewScheduler(interval time.Duration, reaper Reaper, log *zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		interval: interval,
		reaper:   reaper,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start begins the scheduler loop in a background goroutine.
// Calling Start multiple times has no effect.
func (s *Scheduler) Start(parentCtx context.Context) {
	if s.ctx != nil {
		return
	}
	ctx, cancel := context.WithCancel(parentCtx)
	s.ctx = ctx
	s.cancel = cancel

	go s.loop()
}

func (s *Scheduler) loop() {
	ticker := time.NewTicker(s.interval)
	defer func() {
		ticker.Stop()
		close(s.done)
	}()

	s.log.Info().Dur("interval", s.interval).Msg("scheduler started")
	for {
		select {
		case <-s.ctx.Done():
			s.log.Info().Msg("scheduler stopping")
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
			func() {
				defer cancel()
				reaped, err := s.reaper.ReapExpiredSessions(runCtx)
				if err != nil {
					s.log.Error().Err(err).Msg("session reap failed")
					return
				}
				metrics.AddSessionsReaped(reaped)
				if reaped > 0 {
					s.log.Info().Int64("reaped", reaped).Msg("expired admin sessions removed")
				}
			}()
		}
	}
}

// Stop cancels the scheduler and waits for the loop to finish. It is idempotent.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.ctx = nil
	s.cancel = nil
	s.done = make(chan struct{})
}
