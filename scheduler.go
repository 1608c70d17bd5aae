package main

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

const dayLayout = "2006-01-02"

// Scheduler fires run once a day when the wall clock reaches hour:minute.
// It checks at a coarse interval and remembers the last day it fired, so a
// clock step back into the target minute does not send a second report.
type Scheduler struct {
	log        logr.Logger
	hour       int
	minute     int
	interval   time.Duration
	runTimeout time.Duration
	run        func(ctx context.Context) error
	now        func() time.Time

	lastDay string

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func newScheduler(log logr.Logger, hour, minute int, interval, runTimeout time.Duration, run func(ctx context.Context) error) *Scheduler {
	return &Scheduler{
		log:        log,
		hour:       hour,
		minute:     minute,
		interval:   interval,
		runTimeout: runTimeout,
		run:        run,
		now:        time.Now,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start runs the check loop on its own goroutine until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("scheduler started", "at", formatClock(s.hour, s.minute), "interval", s.interval)
	go func() {
		defer close(s.doneCh)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.check(ctx)
		for {
			select {
			case <-ticker.C:
				s.check(ctx)
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
}

// check dispatches when the current minute matches and reports whether it did.
func (s *Scheduler) check(ctx context.Context) bool {
	now := s.now()
	if now.Hour() != s.hour || now.Minute() != s.minute {
		return false
	}

	day := now.Format(dayLayout)
	if day == s.lastDay {
		s.log.V(1).Info("report already dispatched today", "day", day)
		return false
	}
	s.lastDay = day

	s.log.Info("dispatching daily report", "day", day)
	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()
	if err := s.run(runCtx); err != nil {
		s.log.Error(err, "daily report failed; waiting for next schedule")
		return true
	}
	s.log.Info("daily report dispatched", "day", day)
	return true
}

func formatClock(hour, minute int) string {
	return time.Date(0, 1, 1, hour, minute, 0, 0, time.Local).Format("15:04")
}
