// Package supabase talks to the hosted PostgREST backend of the echo board.
// Tables: echoes(id, content, signature_id, created_at) and
// replies(id, echo_id, content, created_at, is_read).
package supabase

import (
	"context"
	"echoes/domain"
	"echoes/errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"
)

const (
	echoesTable  = "echoes"
	repliesTable = "replies"

	echoColumns         = "*, replies(*)"
	notificationColumns = "id, echo_id, content, created_at, is_read, echoes!inner(signature_id, content)"

	foreignKeyViolation = "23503"
)

// QueryClient is satisfied by *supabase.Client and *postgrest.Client.
type QueryClient interface {
	From(table string) *postgrest.QueryBuilder
}

type Gateway struct {
	client QueryClient
	clock  domain.Clock
	log    *slog.Logger
}

func NewGateway(client QueryClient, clock domain.Clock, log *slog.Logger) *Gateway {
	return &Gateway{client: client, clock: clock, log: log}
}

// Dial builds the hosted client from the project URL and its anon key.
func Dial(url, key string, clock domain.Clock, log *slog.Logger) (*Gateway, error) {
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create supabase client: %w", err)
	}
	return NewGateway(client, clock, log), nil
}

type echoRow struct {
	ID        uuid.UUID  `json:"id,omitempty"`
	Content   string     `json:"content"`
	Signature string     `json:"signature_id,omitempty"`
	CreatedAt time.Time  `json:"created_at,omitempty"`
	Replies   []replyRow `json:"replies,omitempty"`
}

type replyRow struct {
	ID        uuid.UUID `json:"id,omitempty"`
	EchoID    uuid.UUID `json:"echo_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	IsRead    bool      `json:"is_read"`
	Echo      *echoRow  `json:"echoes,omitempty"`
}

type newEcho struct {
	Content   string `json:"content"`
	Signature string `json:"signature_id,omitempty"`
}

type newReply struct {
	EchoID  uuid.UUID `json:"echo_id"`
	Content string    `json:"content"`
}

func (g *Gateway) CreateEcho(ctx context.Context, cmd domain.PostEchoCommand) (domain.Echo, error) {
	var rows []echoRow
	err := await(ctx, func() error {
		_, err := g.client.From(echoesTable).
			Insert(newEcho{Content: cmd.Content, Signature: cmd.Signature.String()}, false, "", "representation", "").
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return domain.Echo{}, errors.Unavailable("create echo", err)
	}
	if len(rows) == 0 {
		return domain.Echo{}, errors.Unavailable("create echo", fmt.Errorf("no row returned"))
	}
	return rows[0].toEcho(), nil
}

// CreateReply checks the echo is still live before inserting; the store itself
// only enforces the foreign key.
func (g *Gateway) CreateReply(ctx context.Context, cmd domain.ReplyCommand) (domain.Reply, error) {
	var live []echoRow
	cutoff := timestamp(domain.Cutoff(g.clock.Now()))
	err := await(ctx, func() error {
		_, err := g.client.From(echoesTable).
			Select("id", "", false).
			Eq("id", cmd.EchoID.String()).
			Gt("created_at", cutoff).
			Limit(1, "").
			ExecuteTo(&live)
		return err
	})
	if err != nil {
		return domain.Reply{}, errors.Unavailable("create reply", err)
	}
	if len(live) == 0 {
		return domain.Reply{}, fmt.Errorf("echo %s: %w", cmd.EchoID, errors.ErrNotFound)
	}

	var rows []replyRow
	err = await(ctx, func() error {
		_, err := g.client.From(repliesTable).
			Insert(newReply{EchoID: cmd.EchoID, Content: cmd.Content}, false, "", "representation", "").
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		if strings.Contains(err.Error(), foreignKeyViolation) {
			return domain.Reply{}, fmt.Errorf("echo %s: %w", cmd.EchoID, errors.ErrNotFound)
		}
		return domain.Reply{}, errors.Unavailable("create reply", err)
	}
	if len(rows) == 0 {
		return domain.Reply{}, errors.Unavailable("create reply", fmt.Errorf("no row returned"))
	}
	return rows[0].toReply(), nil
}

func (g *Gateway) ListLiveEchoes(ctx context.Context, now time.Time) ([]domain.Echo, error) {
	var rows []echoRow
	err := await(ctx, func() error {
		_, err := g.client.From(echoesTable).
			Select(echoColumns, "", false).
			Gt("created_at", timestamp(domain.Cutoff(now))).
			Order("created_at", &postgrest.OrderOpts{Ascending: false}).
			Order("created_at", &postgrest.OrderOpts{Ascending: true, ForeignTable: repliesTable}).
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return nil, errors.Unavailable("list live echoes", err)
	}
	// the cutoff is enforced again locally so clock skew with the store can't leak expired rows
	live := lo.Filter(rows, func(r echoRow, _ int) bool { return domain.IsLive(r.CreatedAt, now) })
	return lo.Map(live, func(r echoRow, _ int) domain.Echo { return r.toEcho() }), nil
}

func (g *Gateway) ListNotifications(ctx context.Context, signature domain.SignatureID, limit int) ([]domain.Notification, error) {
	if signature.IsZero() {
		return []domain.Notification{}, nil
	}
	var rows []replyRow
	err := await(ctx, func() error {
		query := g.client.From(repliesTable).
			Select(notificationColumns, "", false).
			Eq("echoes.signature_id", signature.String()).
			Order("created_at", &postgrest.OrderOpts{Ascending: false})
		if limit > 0 {
			query = query.Limit(limit, "")
		}
		_, err := query.ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return nil, errors.Unavailable("list notifications", err)
	}
	return lo.Map(rows, func(r replyRow, _ int) domain.Notification {
		n := domain.Notification{Reply: r.toReply()}
		if r.Echo != nil {
			n.EchoSignature = domain.SignatureID(r.Echo.Signature)
			n.EchoContent = r.Echo.Content
		}
		return n
	}), nil
}

// MarkRead issues a single filtered update, which PostgREST runs in one transaction.
func (g *Gateway) MarkRead(ctx context.Context, replyIDs []uuid.UUID) error {
	if len(replyIDs) == 0 {
		return nil
	}
	ids := lo.Map(replyIDs, func(id uuid.UUID, _ int) string { return id.String() })
	err := await(ctx, func() error {
		_, _, err := g.client.From(repliesTable).
			Update(map[string]any{"is_read": true}, "minimal", "").
			In("id", ids).
			Execute()
		return err
	})
	if err != nil {
		return errors.Unavailable("mark read", err)
	}
	return nil
}

// await bounds a query by ctx since postgrest-go takes no context. A query
// abandoned on cancellation finishes in the background and its result is dropped.
func await(ctx context.Context, query func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- query() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func (r echoRow) toEcho() domain.Echo {
	return domain.Echo{
		ID:        r.ID,
		Content:   r.Content,
		Signature: domain.SignatureID(r.Signature),
		CreatedAt: r.CreatedAt.UTC(),
		Replies:   lo.Map(r.Replies, func(reply replyRow, _ int) domain.Reply { return reply.toReply() }),
	}
}

func (r replyRow) toReply() domain.Reply {
	return domain.Reply{
		ID:        r.ID,
		EchoID:    r.EchoID,
		Content:   r.Content,
		CreatedAt: r.CreatedAt.UTC(),
		IsRead:    r.IsRead,
	}
}
