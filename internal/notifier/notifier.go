// Package notifier delivers fired notifications to the desktop tray, Telegram
// and email. Delivery runs on the dispatcher's own goroutine so the timer
// engine never waits on network I/O.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/julianstephens/dayplan/internal/constants"
	"github.com/julianstephens/dayplan/internal/logger"
	"github.com/julianstephens/dayplan/internal/models"
)

// ErrSkipped is returned by a sink that does not handle a notification kind.
var ErrSkipped = errors.New("notification skipped by sink")

type Sink interface {
	Name() string
	Send(ctx context.Context, cfg models.NotificationConfig) error
}

const queueSize = 64

type Dispatcher struct {
	sinks      []Sink
	queue      chan models.NotificationConfig
	retries    int
	retryDelay time.Duration

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func NewDispatcher(sinks ...Sink) *Dispatcher {
	d := &Dispatcher{
		sinks:      sinks,
		queue:      make(chan models.NotificationConfig, queueSize),
		retries:    constants.NotifyMaxRetries,
		retryDelay: constants.NotifyRetryDelay,
		done:       make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) Sinks() []string {
	names := make([]string, len(d.sinks))
	for i, s := range d.sinks {
		names[i] = s.Name()
	}
	return names
}

// Enqueue hands a fired notification to the sinks. It never blocks: when the
// queue is full the notification is dropped and logged. It matches
// timer.Listener.
func (d *Dispatcher) Enqueue(cfg models.NotificationConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- cfg.Clone():
	default:
		logger.Warn("Notification queue full, dropping", "id", cfg.ID)
	}
}

func (d *Dispatcher) run() {
	for cfg := range d.queue {
		for _, s := range d.sinks {
			d.send(s, cfg)
		}
	}
	close(d.done)
}

func (d *Dispatcher) send(s Sink, cfg models.NotificationConfig) {
	var err error
	for attempt := 0; attempt < max(d.retries, 1); attempt++ {
		if attempt > 0 {
			time.Sleep(d.retryDelay)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = s.Send(ctx, cfg)
		cancel()
		if err == nil || errors.Is(err, ErrSkipped) {
			return
		}
	}
	logger.Warn("Failed to deliver notification", "sink", s.Name(), "id", cfg.ID, "error", err)
}

// Close stops accepting notifications and waits until the queued ones have
// been delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.done
}

// Text renders a notification for sinks without rich formatting.
func Text(cfg models.NotificationConfig) string {
	if cfg.Message == "" {
		return cfg.Title
	}
	return fmt.Sprintf("%s: %s", cfg.Title, cfg.Message)
}
