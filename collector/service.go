package collector

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/pevans/listwatch/notify"
	"github.com/pevans/listwatch/record"
)

// ServiceConfig holds the scheduling settings of the watch loop.
type ServiceConfig struct {
	// Interval between the end of a cycle and the start of the next one
	Interval time.Duration
	// RetryInterval replaces Interval after a failed cycle
	RetryInterval time.Duration
	// Pace is the pause between two notifications
	Pace time.Duration
	// SuppressFirstRun seeds an empty store without notifying
	SuppressFirstRun bool
}

// DefaultServiceConfig returns an hourly schedule with a five minute retry.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Interval:         1 * time.Hour,
		RetryInterval:    5 * time.Minute,
		Pace:             2 * time.Second,
		SuppressFirstRun: true,
	}
}

// Service runs collection cycles on a schedule and hands each delta set to
// a notifier.
type Service struct {
	collector *Collector
	notifier  notify.Notifier
	config    ServiceConfig
	logger    *log.Logger
	sleep     func(ctx context.Context, d time.Duration) error

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewService creates a service. When SuppressFirstRun is set, cycles that
// run before the store's first successful save do not notify.
func NewService(c *Collector, n notify.Notifier, config ServiceConfig, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		collector: c,
		notifier:  n,
		config:    config,
		logger:    logger,
		sleep:     sleepContext,
		stopChan:  make(chan struct{}),
	}
}

// Run starts the watch loop. It runs a cycle immediately, then waits
// Interval (or RetryInterval after a failure) before the next one. It
// returns when Stop is called or ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Println("INFO: Watch service starting")

	for {
		wait := s.config.Interval

		if _, err := s.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				s.logger.Println("INFO: Watch service stopping (context cancelled)")
				return ctx.Err()
			}
			s.logger.Printf("ERROR: Cycle failed: %v", err)
			wait = s.config.RetryInterval
			s.logger.Printf("INFO: Retrying in %v", wait)
		} else {
			s.logger.Printf("INFO: Next cycle in %v", wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Println("INFO: Watch service stopping (context cancelled)")
			return ctx.Err()
		case <-s.stopChan:
			timer.Stop()
			s.logger.Println("INFO: Watch service stopping")
			return nil
		case <-timer.C:
		}
	}
}

// Stop signals the watch loop to stop after the current cycle.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// RunOnce runs one cycle and delivers its delta set. While the store has
// never been saved, a cycle only seeds it when SuppressFirstRun is set.
func (s *Service) RunOnce(ctx context.Context) (*CycleResult, error) {
	firstRun := s.config.SuppressFirstRun && !s.collector.Store().Existed()

	result, err := s.collector.RunCycle(ctx)
	if err != nil {
		return result, err
	}

	if firstRun {
		s.logger.Printf("INFO: First run, stored %d records without notifications", s.collector.Store().Len())
		return result, nil
	}

	if len(result.Delta) == 0 {
		s.logger.Println("INFO: No new qualifying records")
		return result, nil
	}

	s.logger.Printf("INFO: Found %d qualifying records", len(result.Delta))
	if err := s.deliver(ctx, result.Delta); err != nil {
		return result, err
	}
	return result, nil
}

// deliver notifies each record, pausing Pace between two messages. A failed
// notification is logged and does not stop the others.
func (s *Service) deliver(ctx context.Context, records []record.Record) error {
	for i, r := range records {
		if i > 0 {
			if err := s.sleep(ctx, s.config.Pace); err != nil {
				return err
			}
		}
		if err := s.notifier.Notify(ctx, r); err != nil {
			s.logger.Printf("ERROR: Failed to notify record %s: %v", r.ID, err)
			continue
		}
		s.logger.Printf("INFO: Notified record %s", r.ID)
	}
	return nil
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
