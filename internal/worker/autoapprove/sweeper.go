// Package autoapprove периодически завершает заказы, которые покупатель не подтвердил в срок.
package autoapprove

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultInterval       = 5 * time.Minute
	defaultBatchSize      = 50
	defaultServiceTimeout = 30 * time.Second
)

// Sweeper фоновый аналог cron эндпоинта: по таймеру вызывает авто-подтверждение и чистку счетчиков
// лимита запросов.
type Sweeper struct {
	orders    OrderServicer
	purger    RateLimitPurger
	l         *logrus.Entry
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

// New создает sweeper. purger может быть nil, тогда счетчики не чистятся.
func New(orders OrderServicer, purger RateLimitPurger, l *logrus.Logger) *Sweeper {
	return &Sweeper{
		orders: orders,
		purger: purger,
		l: l.WithFields(logrus.Fields{
			"component": "autoapprove",
			"module":    "sweeper",
		}),
		interval:  DefaultInterval,
		batchSize: defaultBatchSize,
		now:       time.Now,
	}
}

// SetInterval устанавливает период между проходами.
func (s *Sweeper) SetInterval(interval time.Duration) *Sweeper {
	if interval > 0 {
		s.interval = interval
	}
	return s
}

// SetBatchSize устанавливает кол-во заказов, обрабатываемых за один проход.
func (s *Sweeper) SetBatchSize(size int) *Sweeper {
	if size > 0 {
		s.batchSize = size
	}
	return s
}

// Summary итог одного прохода.
type Summary struct {
	Processed int
	Completed int
	Failed    int
	Purged    int64
}

// Run выполняет проход сразу после запуска и далее по таймеру до отмены контекста.
func (s *Sweeper) Run(ctx context.Context) error {
	s.l.WithFields(logrus.Fields{
		"interval":  s.interval,
		"batchSize": s.batchSize,
	}).Info("Starting")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil {
			s.l.WithError(err).Error("sweep error")
		}

		select {
		case <-ctx.Done():
			s.l.Info("Got stop signal, exiting...")
			return nil
		case <-ticker.C:
		}
	}
}

// Sweep выполняет один проход. Ошибки отдельных заказов только логируются, ошибку возвращает лишь
// сбой выборки заказов.
func (s *Sweeper) Sweep(ctx context.Context) (Summary, error) {
	reqCtx, cancel := context.WithTimeout(ctx, defaultServiceTimeout)
	defer cancel()

	var summary Summary
	results, err := s.orders.AutoApproveExpired(reqCtx, s.now(), s.batchSize)
	if err != nil {
		return summary, fmt.Errorf("sweep: %w", err)
	}

	summary.Processed = len(results)
	for _, r := range results {
		l := s.l.WithFields(logrus.Fields{"orderID": r.OrderID, "order": r.OrderNumber})
		switch {
		case r.Err != nil:
			summary.Failed++
			l.WithError(r.Err).Warn("auto approve failed")
		case r.Completed:
			summary.Completed++
			l.Info("order auto approved")
		}
	}

	if s.purger != nil {
		purged, purgeErr := s.purger.PurgeRateLimits(reqCtx)
		if purgeErr != nil {
			s.l.WithError(purgeErr).Error("purge rate limit windows")
		}
		summary.Purged = purged
	}

	if summary.Processed > 0 || summary.Purged > 0 {
		s.l.WithFields(logrus.Fields{
			"processed": summary.Processed,
			"completed": summary.Completed,
			"failed":    summary.Failed,
			"purged":    summary.Purged,
		}).Info("sweep finished")
	}
	return summary, nil
}
