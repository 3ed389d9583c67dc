package services

import (
	"context"
	"echoes/contract"
	"echoes/domain"
	"echoes/observability"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const DefaultNotificationLimit = 20

// NotificationAggregator owns the notification view of one device.
//
// Reads are snapshots: every poll replaces the whole set. Each poll takes a
// sequence number when it is issued and its response is applied only if no
// later-issued poll has been applied already, so a slow response never
// overwrites a newer one.
//
// Marking as read is two-phase. Ids are first put in an overlay that hides them
// from HasUnread, then MarkRead is sent. A failed MarkRead removes them from the
// overlay again. After success, each id is tagged with the last sequence issued
// so far; the first snapshot from a poll issued after that is authoritative and
// clears the overlay entry.
type NotificationAggregator struct {
	gateway   contract.IGateway
	signature contract.ISignatureProvider
	metrics   *observability.Metrics
	log       *slog.Logger
	limit     int
	timeout   time.Duration

	mu       sync.Mutex
	issued   uint64
	applied  uint64
	snapshot []domain.Notification
	// reply id -> sequence after which the store is known to have it read, 0 while in flight
	pendingRead map[uuid.UUID]uint64
}

func NewNotificationAggregator(
	gateway contract.IGateway,
	signature contract.ISignatureProvider,
	metrics *observability.Metrics,
	log *slog.Logger,
	limit int,
	timeout time.Duration,
) *NotificationAggregator {
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	return &NotificationAggregator{
		gateway:     gateway,
		signature:   signature,
		metrics:     metrics,
		log:         log,
		limit:       limit,
		timeout:     timeout,
		pendingRead: make(map[uuid.UUID]uint64),
	}
}

// Poll fetches the notification set and applies it unless superseded.
// On failure the previous snapshot is kept.
func (a *NotificationAggregator) Poll(ctx context.Context) error {
	sig, err := a.signature.Get(ctx)
	if err != nil {
		return err
	}
	seq := a.issue()
	callCtx, cancel := withStoreTimeout(ctx, a.timeout)
	defer cancel()
	notifications, err := a.gateway.ListNotifications(callCtx, sig, a.limit)
	if err != nil {
		a.metrics.SnapshotFailed()
		a.log.Warn("Notification poll failed, keeping previous snapshot", "seq", seq, "err", err)
		return err
	}
	a.apply(seq, notifications)
	return nil
}

// Open marks every currently unread notification as read, then re-fetches.
// The unread indicator clears before the store answers.
func (a *NotificationAggregator) Open(ctx context.Context) error {
	if _, err := a.signature.Get(ctx); err != nil {
		return err
	}
	ids := a.beginMarkRead()
	if len(ids) == 0 {
		return nil
	}

	callCtx, cancel := withStoreTimeout(ctx, a.timeout)
	err := a.gateway.MarkRead(callCtx, ids)
	cancel()
	if err != nil {
		a.rollbackMarkRead(ids)
		a.log.Warn("Mark read did not complete", "count", len(ids), "err", err)
		return err
	}
	a.confirmMarkRead(ids)

	if err := a.Poll(ctx); err != nil {
		a.log.Debug("Reconciliation after mark read deferred to next poll", "err", err)
	}
	return nil
}

// HasUnread is derived from the current snapshot on every call.
func (a *NotificationAggregator) HasUnread() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return lo.SomeBy(a.snapshot, a.isUnread)
}

// Snapshot returns a copy of the notifications, with optimistically read ones shown as read.
func (a *NotificationAggregator) Snapshot() []domain.Notification {
	a.mu.Lock()
	defer a.mu.Unlock()
	return lo.Map(a.snapshot, func(n domain.Notification, _ int) domain.Notification {
		if _, ok := a.pendingRead[n.ID]; ok {
			n.IsRead = true
		}
		return n
	})
}

func (a *NotificationAggregator) isUnread(n domain.Notification) bool {
	if n.IsRead {
		return false
	}
	_, pending := a.pendingRead[n.ID]
	return !pending
}

func (a *NotificationAggregator) issue() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.issued++
	return a.issued
}

func (a *NotificationAggregator) apply(seq uint64, notifications []domain.Notification) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if seq <= a.applied {
		a.metrics.SnapshotStale()
		a.log.Debug("Discarding stale notification snapshot", "seq", seq, "applied", a.applied)
		return false
	}
	a.applied = seq
	a.snapshot = notifications
	for id, confirmedAt := range a.pendingRead {
		if confirmedAt != 0 && seq > confirmedAt {
			delete(a.pendingRead, id)
		}
	}
	a.metrics.SnapshotApplied()
	return true
}

func (a *NotificationAggregator) beginMarkRead() []uuid.UUID {
	a.mu.Lock()
	defer a.mu.Unlock()
	unread := lo.Filter(a.snapshot, func(n domain.Notification, _ int) bool { return a.isUnread(n) })
	ids := lo.Map(unread, func(n domain.Notification, _ int) uuid.UUID { return n.ID })
	for _, id := range ids {
		a.pendingRead[id] = 0
	}
	return ids
}

func (a *NotificationAggregator) rollbackMarkRead(ids []uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, id := range ids {
		delete(a.pendingRead, id)
	}
}

func (a *NotificationAggregator) confirmMarkRead(ids []uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, id := range ids {
		a.pendingRead[id] = a.issued
	}
}
