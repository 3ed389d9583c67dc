package services

import (
	"context"
	"echoes/contract"
	"echoes/domain"
	"echoes/errors"
	"echoes/observability"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IEchoService interface {
	Post(ctx context.Context, content string) (domain.Echo, error)
	Reply(ctx context.Context, echoID uuid.UUID, content string) (domain.Reply, error)
	RefreshFeed(ctx context.Context) error
	Feed() []domain.Echo
	Thread(echoID uuid.UUID) (domain.Echo, error)
	OpenNotifications(ctx context.Context) error
	HasUnread() bool
}

// EchoService holds the feed view and turns user intents into gateway calls.
// Writes are not optimistic: local state only changes through a re-fetch.
type EchoService struct {
	gateway       contract.IGateway
	signature     contract.ISignatureProvider
	notifications *NotificationAggregator
	clock         domain.Clock
	metrics       *observability.Metrics
	log           *slog.Logger
	timeout       time.Duration

	mu      sync.Mutex
	issued  uint64
	applied uint64
	feed    []domain.Echo
}

func NewEchoService(
	gateway contract.IGateway,
	signature contract.ISignatureProvider,
	notifications *NotificationAggregator,
	clock domain.Clock,
	metrics *observability.Metrics,
	log *slog.Logger,
	timeout time.Duration,
) *EchoService {
	return &EchoService{
		gateway:       gateway,
		signature:     signature,
		notifications: notifications,
		clock:         clock,
		metrics:       metrics,
		log:           log,
		timeout:       timeout,
	}
}

// Post validates content before anything else; blank content never reaches the store.
// Without a device signature the echo is still posted, it just cannot raise notifications.
func (s *EchoService) Post(ctx context.Context, content string) (domain.Echo, error) {
	cmd, err := domain.NewPostEchoCommand(content, "")
	if err != nil {
		return domain.Echo{}, err
	}
	sig, err := s.signature.Get(ctx)
	if err != nil {
		s.log.Warn("Posting without device signature", "err", err)
	}
	cmd.Signature = sig

	callCtx, cancel := withStoreTimeout(ctx, s.timeout)
	echo, err := s.gateway.CreateEcho(callCtx, cmd)
	cancel()
	if err != nil {
		return domain.Echo{}, fmt.Errorf("post echo: %w", err)
	}
	s.refreshAfterWrite(ctx)
	return echo, nil
}

func (s *EchoService) Reply(ctx context.Context, echoID uuid.UUID, content string) (domain.Reply, error) {
	cmd, err := domain.NewReplyCommand(echoID, content)
	if err != nil {
		return domain.Reply{}, err
	}
	callCtx, cancel := withStoreTimeout(ctx, s.timeout)
	reply, err := s.gateway.CreateReply(callCtx, cmd)
	cancel()
	if err != nil {
		return domain.Reply{}, fmt.Errorf("reply to %s: %w", echoID, err)
	}
	s.refreshAfterWrite(ctx)
	return reply, nil
}

// RefreshFeed replaces the feed with the live echoes. A failed read keeps the previous feed.
func (s *EchoService) RefreshFeed(ctx context.Context) error {
	seq := s.issue()
	callCtx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()
	echoes, err := s.gateway.ListLiveEchoes(callCtx, s.clock.Now())
	if err != nil {
		s.metrics.SnapshotFailed()
		s.log.Warn("Feed refresh failed, keeping previous feed", "seq", seq, "err", err)
		return err
	}
	s.apply(seq, echoes)
	return nil
}

// Feed returns the echoes of the last snapshot that are still live right now.
func (s *EchoService) Feed() []domain.Echo {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Filter(s.feed, func(e domain.Echo, _ int) bool { return e.IsLive(now) })
}

func (s *EchoService) Thread(echoID uuid.UUID) (domain.Echo, error) {
	echo, ok := lo.Find(s.Feed(), func(e domain.Echo) bool { return e.ID == echoID })
	if !ok {
		return domain.Echo{}, fmt.Errorf("echo %s: %w", echoID, errors.ErrNotFound)
	}
	return echo, nil
}

func (s *EchoService) OpenNotifications(ctx context.Context) error {
	return s.notifications.Open(ctx)
}

func (s *EchoService) HasUnread() bool {
	return s.notifications.HasUnread()
}

func (s *EchoService) refreshAfterWrite(ctx context.Context) {
	if err := s.RefreshFeed(ctx); err != nil {
		s.log.Debug("Feed stays stale until next refresh", "err", err)
	}
}

func (s *EchoService) issue() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

func (s *EchoService) apply(seq uint64, echoes []domain.Echo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.applied {
		s.metrics.SnapshotStale()
		return
	}
	s.applied = seq
	s.feed = echoes
	s.metrics.SnapshotApplied()
}

// withStoreTimeout bounds one store call. A zero timeout leaves ctx as is.
func withStoreTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
