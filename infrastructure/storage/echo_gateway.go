package storage

import (
	"context"
	"echoes/domain"
	"echoes/errors"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// EchoGateway keeps echoes and replies in an embedded BadgerDB.
// Creation timestamps are assigned here, from clock, the way a hosted store would.
type EchoGateway struct {
	db    *badger.DB
	log   *slog.Logger
	clock domain.Clock
}

func NewEchoGateway(db *badger.DB, log *slog.Logger, clock domain.Clock) *EchoGateway {
	return &EchoGateway{db: db, log: log, clock: clock}
}

// CreateEcho persists an echo under "echo:{timestamp_padded}:{uuid}" so a reverse
// prefix scan yields the newest echoes first. An index key resolves the id for replies.
func (g *EchoGateway) CreateEcho(_ context.Context, cmd domain.PostEchoCommand) (domain.Echo, error) {
	echo := domain.Echo{
		ID:        uuid.New(),
		Content:   cmd.Content,
		Signature: cmd.Signature,
		CreatedAt: g.clock.Now().UTC(),
	}
	data, err := cbor.Marshal(fromEcho(echo))
	if err != nil {
		return domain.Echo{}, err
	}
	key := echoKey(echo.CreatedAt, echo.ID)
	err = g.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(echoIndexKey(echo.ID), key)
	})
	if err != nil {
		return domain.Echo{}, errors.Unavailable("create echo", err)
	}
	return echo, nil
}

// CreateReply attaches a reply to a live echo. Replying to an unknown or expired
// echo returns ErrNotFound.
func (g *EchoGateway) CreateReply(_ context.Context, cmd domain.ReplyCommand) (domain.Reply, error) {
	now := g.clock.Now().UTC()
	reply := domain.Reply{
		ID:        uuid.New(),
		EchoID:    cmd.EchoID,
		Content:   cmd.Content,
		CreatedAt: now,
	}
	data, err := cbor.Marshal(fromReply(reply))
	if err != nil {
		return domain.Reply{}, err
	}

	err = g.db.Update(func(txn *badger.Txn) error {
		echo, err := g.loadEcho(txn, cmd.EchoID)
		if err != nil {
			return err
		}
		if !echo.IsLive(now) {
			return fmt.Errorf("echo %s expired: %w", echo.ID, errors.ErrNotFound)
		}
		key := replyKey(reply.EchoID, reply.CreatedAt, reply.ID)
		if err := txn.Set(key, data); err != nil {
			return err
		}
		if err := txn.Set(replyIndexKey(reply.ID), key); err != nil {
			return err
		}
		if echo.Signature.IsZero() {
			return nil
		}
		return txn.Set(signatureReplyKey(echo.Signature, reply.CreatedAt, reply.ID), key)
	})
	if err != nil {
		if stderrors.Is(err, errors.ErrNotFound) {
			return domain.Reply{}, err
		}
		return domain.Reply{}, errors.Unavailable("create reply", err)
	}
	return reply, nil
}

// ListLiveEchoes scans echoes from the newest key backwards and stops at the first
// key older than the cutoff, since keys are ordered by creation time.
func (g *EchoGateway) ListLiveEchoes(_ context.Context, now time.Time) ([]domain.Echo, error) {
	cutoff := domain.Cutoff(now)
	var echoes []domain.Echo
	err := g.db.View(func(txn *badger.Txn) error {
		prefix := []byte("echo:")
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(append(prefix, []byte(maxTimestamp)...)); it.ValidForPrefix(prefix); it.Next() {
			var echo domain.Echo
			err := it.Item().Value(func(value []byte) error {
				var err error
				echo, err = toEcho(value)
				return err
			})
			if err != nil {
				return err
			}
			if !echo.CreatedAt.After(cutoff) {
				break
			}
			replies, err := g.loadReplies(txn, echo.ID)
			if err != nil {
				return err
			}
			echo.Replies = replies
			echoes = append(echoes, echo)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Unavailable("list live echoes", err)
	}
	return echoes, nil
}

// ListNotifications walks the per-signature reply index newest first.
func (g *EchoGateway) ListNotifications(_ context.Context, signature domain.SignatureID, limit int) ([]domain.Notification, error) {
	var notifications []domain.Notification
	if signature.IsZero() {
		return notifications, nil
	}
	err := g.db.View(func(txn *badger.Txn) error {
		prefix := signaturePrefix(signature)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		echoes := make(map[uuid.UUID]domain.Echo)
		for it.Seek(append(prefix, []byte(maxTimestamp)...)); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(notifications) == limit {
				g.log.Debug(fmt.Sprintf("Maximum of %d notifications reached", limit))
				break
			}
			key, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			reply, err := g.loadReplyAt(txn, key)
			if err != nil {
				return err
			}
			echo, ok := echoes[reply.EchoID]
			if !ok {
				if echo, err = g.loadEcho(txn, reply.EchoID); err != nil {
					return err
				}
				echoes[reply.EchoID] = echo
			}
			notifications = append(notifications, domain.Notification{
				Reply:         reply,
				EchoSignature: echo.Signature,
				EchoContent:   echo.Content,
			})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Unavailable("list notifications", err)
	}
	return notifications, nil
}

// MarkRead flips every known reply to read inside one transaction, so either all
// of them are written or none is. Unknown ids and already read replies are skipped.
func (g *EchoGateway) MarkRead(_ context.Context, replyIDs []uuid.UUID) error {
	if len(replyIDs) == 0 {
		return nil
	}
	err := g.db.Update(func(txn *badger.Txn) error {
		for _, id := range replyIDs {
			key, err := valueOf(txn, replyIndexKey(id))
			if stderrors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			reply, err := g.loadReplyAt(txn, key)
			if err != nil {
				return err
			}
			if reply.IsRead {
				continue
			}
			reply.IsRead = true
			data, err := cbor.Marshal(fromReply(reply))
			if err != nil {
				return err
			}
			if err = txn.Set(key, data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Unavailable("mark read", err)
	}
	return nil
}

func (g *EchoGateway) loadEcho(txn *badger.Txn, id uuid.UUID) (domain.Echo, error) {
	key, err := valueOf(txn, echoIndexKey(id))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Echo{}, fmt.Errorf("echo %s: %w", id, errors.ErrNotFound)
	}
	if err != nil {
		return domain.Echo{}, err
	}
	data, err := valueOf(txn, key)
	if err != nil {
		return domain.Echo{}, err
	}
	return toEcho(data)
}

func (g *EchoGateway) loadReplies(txn *badger.Txn, echoID uuid.UUID) ([]domain.Reply, error) {
	var replies []domain.Reply
	prefix := replyPrefix(echoID)
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		err := it.Item().Value(func(value []byte) error {
			reply, err := toReply(value)
			if err != nil {
				return err
			}
			replies = append(replies, reply)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return replies, nil
}

func (g *EchoGateway) loadReplyAt(txn *badger.Txn, key []byte) (domain.Reply, error) {
	data, err := valueOf(txn, key)
	if err != nil {
		return domain.Reply{}, err
	}
	return toReply(data)
}

func valueOf(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}
