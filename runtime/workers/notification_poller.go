package workers

import (
	"context"
	"log/slog"
	"time"
)

const DefaultPollInterval = 20 * time.Second

type NotificationSource interface {
	Poll(ctx context.Context) error
	HasUnread() bool
}

// NotificationPoller is the only way new replies are discovered: there is no push channel.
type NotificationPoller struct {
	log      *slog.Logger
	source   NotificationSource
	interval time.Duration
	onPoll   func(hasUnread bool)
}

// NewNotificationPoller polls source every interval. onPoll, when not nil, receives
// the unread indicator after every poll, failed ones included.
func NewNotificationPoller(log *slog.Logger, source NotificationSource, interval time.Duration, onPoll func(hasUnread bool)) *NotificationPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &NotificationPoller{log: log, source: source, interval: interval, onPoll: onPoll}
}

// Run polls once right away, then on every tick until ctx is cancelled.
// Poll errors are not returned: the next tick is the retry.
func (w *NotificationPoller) Run(ctx context.Context) error {
	w.log.Info("Starting notification poller", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *NotificationPoller) poll(ctx context.Context) {
	if err := w.source.Poll(ctx); err != nil {
		w.log.Debug("Notification poll skipped", "err", err)
	}
	if w.onPoll != nil {
		w.onPoll(w.source.HasUnread())
	}
}
