package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-rewards/internal/domain"
	"github.com/spec-kit/ticket-rewards/internal/notification"
	"github.com/spec-kit/ticket-rewards/internal/observability"
	"github.com/spec-kit/ticket-rewards/internal/service"
)

// Deliverer delivers one notification job.
type Deliverer interface {
	Deliver(ctx context.Context, job notification.Job) (*domain.Notification, error)
}

// NotificationWorker drains the notification queue with a fixed pool of goroutines.
type NotificationWorker struct {
	queue     notification.Queue
	deliverer Deliverer
	workers   int
	metrics   *observability.Metrics
	logger    *zap.Logger
	wg        sync.WaitGroup

	// Backoff between failed dequeues, doubling up to maxBackoff.
	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewNotificationWorker builds a worker pool of size workers.
func NewNotificationWorker(queue notification.Queue, deliverer Deliverer, workers int, metrics *observability.Metrics, logger *zap.Logger) *NotificationWorker {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		queue:     queue,
		deliverer: deliverer,
		workers:   workers,
		metrics:   metrics,
		logger:    logger,

		minBackoff: 100 * time.Millisecond,
		maxBackoff: 5 * time.Second,
	}
}

// Start launches the pool. It returns immediately; Wait blocks until ctx ends
// or the queue closes and every goroutine has exited.
func (w *NotificationWorker) Start(ctx context.Context) {
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i)
	}
}

// Wait blocks until all goroutines have stopped.
func (w *NotificationWorker) Wait() {
	w.wg.Wait()
}

func (w *NotificationWorker) run(ctx context.Context, id int) {
	defer w.wg.Done()
	failures := 0
	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, notification.ErrQueueClosed) {
				return
			}
			delay := w.backoff(failures)
			failures++
			w.logger.Warn("notification dequeue failed",
				zap.Int("worker", id),
				zap.Int("attempt", failures),
				zap.Duration("retry_in", delay),
				zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}
		failures = 0
		w.process(ctx, job)
	}
}

func (w *NotificationWorker) backoff(failures int) time.Duration {
	delay := w.minBackoff
	for i := 0; i < failures && delay < w.maxBackoff; i++ {
		delay *= 2
	}
	if delay > w.maxBackoff {
		delay = w.maxBackoff
	}
	return delay
}

func (w *NotificationWorker) process(ctx context.Context, job notification.Job) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("notification delivery panicked", zap.String("job_id", job.ID), zap.Any("panic", r))
		}
	}()
	if _, err := w.deliverer.Deliver(ctx, job); err != nil {
		w.metrics.RecordNotification(observability.NotificationFailed, string(domain.PrimaryChannel(job.Channels)))
		w.logger.Warn("notification delivery failed",
			zap.String("job_id", job.ID),
			zap.String("user_id", job.UserID),
			zap.String("type", job.Type),
			zap.Error(err))
	}
}

// StartNotificationWorker registers the event handlers that feed the queue and
// starts the delivery pool.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, w *NotificationWorker) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if w != nil {
		w.Start(ctx)
	}
}
