// README: Pending monitor reports stale open requests; it never changes them.
package booking

import (
	"context"
	"log"
	"time"

	"farmhaul/internal/metrics"
)

func (s *Service) RunPendingMonitor(ctx context.Context) {
	ticker := time.NewTicker(s.opts.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.CheckStalePending(ctx); err != nil && ctx.Err() == nil {
				log.Printf("booking: pending monitor: %v", err)
			}
		}
	}
}

// CheckStalePending counts pending bookings older than the stale threshold and
// exports the count.
func (s *Service) CheckStalePending(ctx context.Context) (int, error) {
	n, err := s.repo.CountStalePending(ctx, s.now().Add(-s.opts.StaleAfter))
	if err != nil {
		return 0, err
	}
	metrics.SetStalePending(n)
	if n > 0 {
		log.Printf("booking: %d pending bookings older than %s", n, s.opts.StaleAfter)
	}
	return n, nil
}
