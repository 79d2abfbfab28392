package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pollsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payments",
			Name:      "polls_total",
			Help:      "Total number of pending-transaction polls by outcome.",
		},
		[]string{"outcome"}, // pending, completed, failed, error
	)
	sweepDurationHist = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "payments",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of one pending-transaction sweep.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// SweepConfig bounds one pass over the pending transactions
type SweepConfig struct {
	BatchSize   int
	Concurrency int
}

// SweepPending polls every pending transaction in one batch with bounded
// concurrency. One slow gateway call delays at most its own slot, never the
// whole sweep. Returns the number of transactions polled.
func (m *StateMachine) SweepPending(ctx context.Context, cfg SweepConfig) (int, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}

	start := m.timeProvider.Now()
	defer func() {
		sweepDurationHist.Observe(m.timeProvider.Since(start).Seconds())
	}()

	pending, err := m.transactionRepo.ListPending(ctx, cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	m.logger.Debug("Sweeping pending transactions", map[string]any{
		"count":       len(pending),
		"concurrency": cfg.Concurrency,
	})

	sem := make(chan struct{}, cfg.Concurrency)
	var wg sync.WaitGroup
	launched := 0
	for _, txn := range pending {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			// Let the polls already in flight finish before reporting the
			// cancellation.
			wg.Wait()
			return launched, ctx.Err()
		}
		wg.Add(1)
		launched++
		go func(id string) {
			defer func() {
				<-sem
				wg.Done()
			}()
			result, pollErr := m.Poll(ctx, id)
			if pollErr != nil {
				pollsCounter.WithLabelValues("error").Inc()
				m.logger.Error("Poll failed during sweep", map[string]any{
					"transaction_id": id,
					"error":          pollErr.Error(),
				})
				return
			}
			pollsCounter.WithLabelValues(string(result.Status)).Inc()
		}(txn.ID)
	}

	wg.Wait()
	return launched, nil
}
