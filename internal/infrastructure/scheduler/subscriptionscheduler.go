package scheduler

import (
	"context"
	"sync"
	"time"

	notificationUsecases "lumina/internal/application/notification/usecases"
	subscriptionUsecases "lumina/internal/application/subscription/usecases"
	"lumina/internal/shared/logger"
)

// SubscriptionScheduler runs the daily subscription maintenance pass: mark
// lapsed records expired, then send reminders for periods about to end.
// Webhook handlers keep records current in real time; this loop is the
// safety net for events the vendor never delivered.
type SubscriptionScheduler struct {
	expireUC   *subscriptionUsecases.ExpireSubscriptionsUseCase
	reminderUC *notificationUsecases.SendExpiryReminderUseCase
	logger     logger.Interface
	stopChan   chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
	interval   time.Duration
}

func NewSubscriptionScheduler(
	expireUC *subscriptionUsecases.ExpireSubscriptionsUseCase,
	reminderUC *notificationUsecases.SendExpiryReminderUseCase,
	logger logger.Interface,
) *SubscriptionScheduler {
	return &SubscriptionScheduler{
		expireUC:   expireUC,
		reminderUC: reminderUC,
		logger:     logger,
		stopChan:   make(chan struct{}),
		interval:   24 * time.Hour,
	}
}

// Start starts the scheduler loop.
func (s *SubscriptionScheduler) Start(ctx context.Context) {
	s.logger.Infow("starting subscription scheduler", "interval", s.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runLoop(ctx)
	}()
}

// Stop stops the scheduler gracefully.
func (s *SubscriptionScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Infow("stopping subscription scheduler")
		close(s.stopChan)
		s.wg.Wait()
		s.logger.Infow("subscription scheduler stopped")
	})
}

func (s *SubscriptionScheduler) runLoop(ctx context.Context) {
	// Run immediately on startup to clear anything that lapsed while the
	// service was down.
	s.runMaintenance(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("subscription scheduler stopped due to context cancellation")
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runMaintenance(ctx)
		}
	}
}

func (s *SubscriptionScheduler) runMaintenance(ctx context.Context) {
	startTime := time.Now()

	expired, err := s.expireUC.Execute(ctx)
	if err != nil {
		s.logger.Errorw("expiry sweep failed", "error", err, "duration", time.Since(startTime))
	} else if len(expired) > 0 {
		s.logger.Infow("expiry sweep completed", "expired", len(expired), "duration", time.Since(startTime))
	}

	reminded, err := s.reminderUC.Execute(ctx)
	if err != nil {
		s.logger.Errorw("expiry reminder sweep failed", "error", err)
	} else if reminded > 0 {
		s.logger.Infow("expiry reminders completed", "sent", reminded)
	}
}
