package observability

import (
	"context"
	"echoes/contract"
	"echoes/domain"
	"echoes/errors"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// InstrumentedGateway records the outcome and latency of every store call.
type InstrumentedGateway struct {
	next    contract.IGateway
	metrics *Metrics
	log     *slog.Logger
}

func NewInstrumentedGateway(next contract.IGateway, metrics *Metrics, log *slog.Logger) *InstrumentedGateway {
	return &InstrumentedGateway{next: next, metrics: metrics, log: log}
}

func (g *InstrumentedGateway) CreateEcho(ctx context.Context, cmd domain.PostEchoCommand) (domain.Echo, error) {
	defer g.observe("create_echo", time.Now())
	echo, err := g.next.CreateEcho(ctx, cmd)
	g.count("create_echo", err)
	return echo, err
}

func (g *InstrumentedGateway) CreateReply(ctx context.Context, cmd domain.ReplyCommand) (domain.Reply, error) {
	defer g.observe("create_reply", time.Now())
	reply, err := g.next.CreateReply(ctx, cmd)
	g.count("create_reply", err)
	return reply, err
}

func (g *InstrumentedGateway) ListLiveEchoes(ctx context.Context, now time.Time) ([]domain.Echo, error) {
	defer g.observe("list_live_echoes", time.Now())
	echoes, err := g.next.ListLiveEchoes(ctx, now)
	g.count("list_live_echoes", err)
	return echoes, err
}

func (g *InstrumentedGateway) ListNotifications(ctx context.Context, signature domain.SignatureID, limit int) ([]domain.Notification, error) {
	defer g.observe("list_notifications", time.Now())
	notifications, err := g.next.ListNotifications(ctx, signature, limit)
	g.count("list_notifications", err)
	return notifications, err
}

func (g *InstrumentedGateway) MarkRead(ctx context.Context, replyIDs []uuid.UUID) error {
	defer g.observe("mark_read", time.Now())
	err := g.next.MarkRead(ctx, replyIDs)
	g.count("mark_read", err)
	return err
}

func (g *InstrumentedGateway) observe(op string, start time.Time) {
	g.metrics.StoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (g *InstrumentedGateway) count(op string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case stderrors.Is(err, errors.ErrNotFound):
		outcome = "not_found"
	case stderrors.Is(err, errors.ErrStoreUnavailable):
		outcome = "unavailable"
	default:
		outcome = "error"
	}
	g.metrics.StoreCalls.WithLabelValues(op, outcome).Inc()
	if err != nil {
		g.log.Debug("Store call failed", "op", op, "outcome", outcome, "err", err)
	}
}
