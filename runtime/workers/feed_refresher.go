package workers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

const DefaultFeedSchedule = "@every 1m"

type FeedSource interface {
	RefreshFeed(ctx context.Context) error
}

// FeedRefresher refreshes the feed on a cron schedule so expired echoes leave
// long-lived views and new ones appear without a user action.
type FeedRefresher struct {
	log      *slog.Logger
	source   FeedSource
	schedule cron.Schedule
	spec     string
}

func NewFeedRefresher(log *slog.Logger, source FeedSource, spec string) (*FeedRefresher, error) {
	if spec == "" {
		spec = DefaultFeedSchedule
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid feed refresh schedule %q: %w", spec, err)
	}
	return &FeedRefresher{log: log, source: source, schedule: schedule, spec: spec}, nil
}

func (w *FeedRefresher) Run(ctx context.Context) error {
	w.log.Info("Starting feed refresher", "schedule", w.spec)
	c := cron.New()
	c.Schedule(w.schedule, cron.FuncJob(func() { w.refresh(ctx) }))

	w.refresh(ctx)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}

func (w *FeedRefresher) refresh(ctx context.Context) {
	if err := w.source.RefreshFeed(ctx); err != nil {
		w.log.Debug("Scheduled feed refresh failed", "err", err)
	}
}
