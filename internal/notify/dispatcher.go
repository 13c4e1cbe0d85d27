package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"trade_engine/internal/metrics"
	"trade_engine/internal/models"
)

// Channel delivers a notification to one medium.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, n *models.Notification) error
}

type Config struct {
	QueueSize int `mapstructure:"queue_size"`
	Workers   int `mapstructure:"workers"`
}

// Dispatcher fans events out to channels in the background. Publishing
// never blocks the decision path: when the queue is full the event is
// dropped and counted.
type Dispatcher struct {
	channels []Channel
	queue    chan models.Event
	workers  int
	logger   *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewDispatcher(cfg Config, logger *zap.Logger, channels ...Channel) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	return &Dispatcher{
		channels: channels,
		queue:    make(chan models.Event, cfg.QueueSize),
		workers:  cfg.Workers,
		logger:   logger.Named("notify"),
	}
}

// Publish enqueues events without blocking. Events published after Stop
// are dropped.
func (d *Dispatcher) Publish(events ...models.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, ev := range events {
		if d.closed {
			metrics.NotificationsDroppedTotal.Inc()
			continue
		}
		select {
		case d.queue <- ev:
		default:
			metrics.NotificationsDroppedTotal.Inc()
			d.logger.Warn("queue full, event dropped",
				zap.String("user_id", ev.UserID),
				zap.String("event_type", string(ev.Type)),
			)
		}
	}
}

// Start launches the workers.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.work(ctx)
		}()
	}
}

// Stop delivers what is already queued and waits for the workers, or
// gives up when ctx is done.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		if d.cancel != nil {
			d.cancel()
		}
		return ctx.Err()
	}
}

func (d *Dispatcher) work(ctx context.Context) {
	for ev := range d.queue {
		if err := d.Deliver(ctx, ev); err != nil {
			d.logger.Error("delivery failed",
				zap.String("user_id", ev.UserID),
				zap.String("event_type", string(ev.Type)),
				zap.Error(err),
			)
		}
	}
}

// Deliver sends ev to every channel and returns the combined error.
func (d *Dispatcher) Deliver(ctx context.Context, ev models.Event) error {
	var errs error
	for _, ch := range d.channels {
		n := &models.Notification{
			ID:        uuid.NewString(),
			UserID:    ev.UserID,
			EventType: ev.Type,
			Title:     ev.Title,
			Message:   ev.Message,
			Channel:   models.ChannelInApp,
			CreatedAt: ev.At,
		}
		if err := ch.Deliver(ctx, n); err != nil {
			metrics.NotificationsTotal.WithLabelValues(ch.Name(), "error").Inc()
			errs = multierr.Append(errs, err)
			continue
		}
		metrics.NotificationsTotal.WithLabelValues(ch.Name(), "ok").Inc()
	}
	return errs
}
