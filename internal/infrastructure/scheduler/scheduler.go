package scheduler

import (
	"context"
	"sync"
	"time"

	coreport "github.com/rica-io/payment-engine/internal/domain/port/core"
	"github.com/rica-io/payment-engine/internal/domain/usecase/payment"
	"github.com/rica-io/payment-engine/internal/domain/usecase/subscription"
)

// Config bounds the background sweep loops
type Config struct {
	PollInterval   time.Duration
	ExpiryInterval time.Duration
	BatchSize      int
	Concurrency    int
}

// Scheduler drives the two periodic sweeps: polling pending payment
// transactions and expiring lapsed subscriptions. Both loops stop when the
// context passed to Start is cancelled.
type Scheduler struct {
	payments      *payment.StateMachine
	subscriptions *subscription.Service
	logger        coreport.Logger
	config        Config

	wg sync.WaitGroup
}

// NewScheduler creates a scheduler for the background sweeps
func NewScheduler(
	payments *payment.StateMachine,
	subscriptions *subscription.Service,
	logger coreport.Logger,
	config Config,
) *Scheduler {
	if config.PollInterval <= 0 {
		config.PollInterval = 30 * time.Second
	}
	if config.ExpiryInterval <= 0 {
		config.ExpiryInterval = 5 * time.Minute
	}
	return &Scheduler{
		payments:      payments,
		subscriptions: subscriptions,
		logger:        logger,
		config:        config,
	}
}

// Start launches both sweep loops
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting scheduler", map[string]any{
		"poll_interval":   s.config.PollInterval.String(),
		"expiry_interval": s.config.ExpiryInterval.String(),
		"batch_size":      s.config.BatchSize,
	})

	s.wg.Add(2)
	go s.runPollLoop(ctx)
	go s.runExpiryLoop(ctx)
}

// Wait blocks until both loops have stopped
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) runPollLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Payment poll loop stopped", nil)
			return
		case <-ticker.C:
			polled, err := s.payments.SweepPending(ctx, payment.SweepConfig{
				BatchSize:   s.config.BatchSize,
				Concurrency: s.config.Concurrency,
			})
			if err != nil {
				s.logger.Error("Pending transaction sweep failed", map[string]any{
					"error": err.Error(),
				})
				continue
			}
			if polled > 0 {
				s.logger.Debug("Pending transaction sweep finished", map[string]any{
					"polled": polled,
				})
			}
		}
	}
}

func (s *Scheduler) runExpiryLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.ExpiryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Subscription expiry loop stopped", nil)
			return
		case <-ticker.C:
			expired, err := s.subscriptions.SweepExpired(ctx, s.config.BatchSize)
			if err != nil {
				s.logger.Error("Subscription expiry sweep failed", map[string]any{
					"error": err.Error(),
				})
				continue
			}
			if expired > 0 {
				s.logger.Info("Subscription expiry sweep finished", map[string]any{
					"expired": expired,
				})
			}
		}
	}
}
