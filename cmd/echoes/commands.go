package main

import (
	"context"
	"echoes/internal"
	"echoes/observability"
	"echoes/runtime/workers"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var errUsage = fmt.Errorf("usage: echoes <feed|post|reply|thread|notifications|watch|signature> [args]")

func (a *app) dispatch(ctx context.Context, args []string, r *renderer) error {
	switch args[0] {
	case "feed":
		return a.feed(ctx, r)
	case "post":
		return a.post(ctx, args[1:], r)
	case "reply":
		return a.reply(ctx, args[1:], r)
	case "thread":
		return a.thread(ctx, args[1:], r)
	case "notifications":
		return a.openNotifications(ctx, r)
	case "watch":
		return a.watch(ctx, args[1:], r)
	case "signature":
		return a.showSignature(ctx, args[1:], r)
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}
}

func (a *app) feed(ctx context.Context, r *renderer) error {
	if err := a.service.RefreshFeed(ctx); err != nil {
		return err
	}
	r.Feed(a.service.Feed(), a.clock.Now())
	return nil
}

func (a *app) post(ctx context.Context, args []string, r *renderer) error {
	echo, err := a.service.Post(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	r.Posted(echo)
	return nil
}

func (a *app) reply(ctx context.Context, args []string, r *renderer) error {
	if len(args) < 1 {
		return errUsage
	}
	echoID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid echo id %q: %w", args[0], errUsage)
	}
	if _, err := a.service.Reply(ctx, echoID, strings.Join(args[1:], " ")); err != nil {
		return err
	}
	return a.renderThread(echoID, r)
}

func (a *app) thread(ctx context.Context, args []string, r *renderer) error {
	if len(args) != 1 {
		return errUsage
	}
	echoID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid echo id %q: %w", args[0], errUsage)
	}
	if err := a.service.RefreshFeed(ctx); err != nil {
		return err
	}
	return a.renderThread(echoID, r)
}

func (a *app) renderThread(echoID uuid.UUID, r *renderer) error {
	echo, err := a.service.Thread(echoID)
	if err != nil {
		return err
	}
	r.Thread(echo, a.clock.Now())
	return nil
}

// openNotifications polls first since a fresh process has no snapshot yet,
// then opens the panel, which marks everything read.
func (a *app) openNotifications(ctx context.Context, r *renderer) error {
	if err := a.notifications.Poll(ctx); err != nil {
		return err
	}
	before := a.notifications.Snapshot()
	if err := a.service.OpenNotifications(ctx); err != nil {
		return err
	}
	r.Notifications(before)
	return nil
}

// watch keeps the feed, the countdowns and the unread indicator live until interrupted.
func (a *app) watch(ctx context.Context, args []string, r *renderer) error {
	flags := flag.NewFlagSet("watch", flag.ContinueOnError)
	precise := flags.Bool("precise", false, "refresh countdowns every second")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}
	precision := workers.Coarse
	if *precise {
		precision = workers.Precise
	}

	refresher, err := workers.NewFeedRefresher(a.log, a.service, a.config.FeedRefreshSchedule)
	if err != nil {
		return err
	}

	indicator := newUnreadIndicator(r)
	sup := workers.NewSupervisor(a.log, a.config.RestartInterval)
	sup.Add(
		refresher,
		workers.NewNotificationPoller(a.log, a.notifications, a.config.PollInterval, indicator.Update),
		workers.NewCountdownTicker(a.log, a.clock, precision, a.service.Feed, func(countdowns []workers.Countdown) {
			r.Board(a.service.Feed(), countdowns)
		}),
	)

	watchCtx, stop := context.WithCancel(ctx)
	defer stop()
	var debugStopped <-chan struct{}
	if a.storeDB != nil && strings.EqualFold(a.config.LogLevel, "DEBUG") {
		started := time.Now()
		a.log.Info("Debug Badger inspector available", "url", fmt.Sprintf("http://localhost:%d/inspect", a.config.DebugPort))
		debugStopped = internal.StartDebugServer(watchCtx, a.storeDB, a.log, a.config.DebugPort, "/inspect", nil, func() map[string]any {
			stats := map[string]any{
				"Backend": a.config.Backend(),
				"Uptime":  time.Since(started).Round(time.Second).String(),
				"Unread":  a.notifications.HasUnread(),
			}
			summary, err := observability.Summary(a.registry)
			if err != nil {
				a.log.Debug("Metrics unavailable", "error", err)
				return stats
			}
			for name, value := range summary {
				stats[name] = value
			}
			return stats
		})
	}

	a.log.Info("Watching the void (Ctrl+C to quit)...")
	sup.Run(watchCtx)
	stop()
	if debugStopped != nil {
		<-debugStopped
	}
	return nil
}

func (a *app) showSignature(ctx context.Context, args []string, r *renderer) error {
	if len(args) == 1 && args[0] == "reset" {
		if err := a.signature.Reset(); err != nil {
			return err
		}
	} else if len(args) > 0 {
		return errUsage
	}
	sig, err := a.signature.Get(ctx)
	if err != nil {
		return err
	}
	r.Signature(sig)
	return nil
}
