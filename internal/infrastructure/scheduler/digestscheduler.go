package scheduler

import (
	"context"
	"sync"
	"time"

	notificationUsecases "lumina/internal/application/notification/usecases"
	"lumina/internal/shared/budget"
	"lumina/internal/shared/logger"
)

// maxDigestRunDuration bounds a single digest sweep so a slow model or SMTP
// server cannot overlap the next run.
const maxDigestRunDuration = 10 * time.Minute

// DigestScheduler runs the periodic digest sweep.
type DigestScheduler struct {
	digestUC *notificationUsecases.SendDigestUseCase
	logger   logger.Interface
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	interval time.Duration
}

func NewDigestScheduler(
	digestUC *notificationUsecases.SendDigestUseCase,
	intervalHours int,
	logger logger.Interface,
) *DigestScheduler {
	if intervalHours <= 0 {
		intervalHours = 24
	}

	return &DigestScheduler{
		digestUC: digestUC,
		logger:   logger,
		stopChan: make(chan struct{}),
		interval: time.Duration(intervalHours) * time.Hour,
	}
}

// Start starts the scheduler loop.
func (s *DigestScheduler) Start(ctx context.Context) {
	s.logger.Infow("starting digest scheduler", "interval", s.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runLoop(ctx)
	}()
}

// Stop stops the scheduler gracefully.
func (s *DigestScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Infow("stopping digest scheduler")
		close(s.stopChan)
		s.wg.Wait()
		s.logger.Infow("digest scheduler stopped")
	})
}

func (s *DigestScheduler) runLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("digest scheduler stopped due to context cancellation")
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runDigest(ctx)
		}
	}
}

func (s *DigestScheduler) runDigest(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, maxDigestRunDuration)
	defer cancel()

	monitor := budget.NewMonitor(maxDigestRunDuration, s.logger)
	startTime := time.Now()

	sent, err := s.digestUC.Execute(runCtx, monitor)
	if err != nil {
		s.logger.Errorw("digest sweep failed", "error", err, "duration", time.Since(startTime))
		return
	}

	if sent > 0 {
		s.logger.Infow("digest sweep completed", "sent", sent, "duration", time.Since(startTime))
	}
}
