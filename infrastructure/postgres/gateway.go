// Package postgres stores echoes and replies directly in PostgreSQL,
// with the same tables as the hosted backend.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"echoes/domain"
	"echoes/errors"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
)

//go:embed schema.sql
var schema string

const (
	insertEchoQuery = `INSERT INTO echoes (content, signature_id) VALUES ($1, $2)
RETURNING id, content, signature_id, created_at`

	// the liveness check and the insert run as one statement
	insertReplyQuery = `INSERT INTO replies (echo_id, content)
SELECT id, $2 FROM echoes WHERE id = $1 AND created_at > $3
RETURNING id, echo_id, content, created_at, is_read`

	liveEchoesQuery = `SELECT e.id, e.content, e.signature_id, e.created_at,
r.id AS reply_id, r.content AS reply_content, r.created_at AS reply_created_at, r.is_read AS reply_is_read
FROM echoes e LEFT JOIN replies r ON r.echo_id = e.id
WHERE e.created_at > $1
ORDER BY e.created_at DESC, e.id, r.created_at ASC`

	notificationsQuery = `SELECT r.id, r.echo_id, r.content, r.created_at, r.is_read,
e.signature_id AS echo_signature_id, e.content AS echo_content
FROM replies r JOIN echoes e ON e.id = r.echo_id
WHERE e.signature_id = $1
ORDER BY r.created_at DESC
LIMIT $2`

	markReadQuery = `UPDATE replies SET is_read = TRUE WHERE is_read = FALSE AND id IN (?)`
)

type Gateway struct {
	db    *sqlx.DB
	clock domain.Clock
	log   *slog.Logger
}

func NewGateway(db *sqlx.DB, clock domain.Clock, log *slog.Logger) *Gateway {
	return &Gateway{db: db, clock: clock, log: log}
}

// Dial opens and pings the pool through the pgx driver.
func Dial(ctx context.Context, dsn string, clock domain.Clock, log *slog.Logger) (*Gateway, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, errors.Unavailable("connect", err)
	}
	return NewGateway(db, clock, log), nil
}

// Migrate creates the tables and indexes if they don't exist yet.
func (g *Gateway) Migrate(ctx context.Context) error {
	if _, err := g.db.ExecContext(ctx, schema); err != nil {
		return errors.Unavailable("migrate", err)
	}
	g.log.Debug("Schema is up to date")
	return nil
}

func (g *Gateway) Close() error {
	return g.db.Close()
}

type echoRow struct {
	ID        uuid.UUID      `db:"id"`
	Content   string         `db:"content"`
	Signature sql.NullString `db:"signature_id"`
	CreatedAt time.Time      `db:"created_at"`
}

type replyRow struct {
	ID        uuid.UUID `db:"id"`
	EchoID    uuid.UUID `db:"echo_id"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
	IsRead    bool      `db:"is_read"`
}

type threadRow struct {
	echoRow
	ReplyID        uuid.NullUUID  `db:"reply_id"`
	ReplyContent   sql.NullString `db:"reply_content"`
	ReplyCreatedAt sql.NullTime   `db:"reply_created_at"`
	ReplyIsRead    sql.NullBool   `db:"reply_is_read"`
}

type notificationRow struct {
	replyRow
	EchoSignature sql.NullString `db:"echo_signature_id"`
	EchoContent   string         `db:"echo_content"`
}

func (g *Gateway) CreateEcho(ctx context.Context, cmd domain.PostEchoCommand) (domain.Echo, error) {
	var row echoRow
	err := g.db.GetContext(ctx, &row, insertEchoQuery, cmd.Content, nullable(cmd.Signature))
	if err != nil {
		return domain.Echo{}, errors.Unavailable("create echo", err)
	}
	return row.toEcho(), nil
}

// CreateReply returns ErrNotFound when the echo is unknown or already expired.
func (g *Gateway) CreateReply(ctx context.Context, cmd domain.ReplyCommand) (domain.Reply, error) {
	var row replyRow
	cutoff := domain.Cutoff(g.clock.Now())
	err := g.db.GetContext(ctx, &row, insertReplyQuery, cmd.EchoID, cmd.Content, cutoff)
	if stderrors.Is(err, sql.ErrNoRows) {
		return domain.Reply{}, fmt.Errorf("echo %s: %w", cmd.EchoID, errors.ErrNotFound)
	}
	if err != nil {
		return domain.Reply{}, errors.Unavailable("create reply", err)
	}
	return row.toReply(), nil
}

func (g *Gateway) ListLiveEchoes(ctx context.Context, now time.Time) ([]domain.Echo, error) {
	var rows []threadRow
	if err := g.db.SelectContext(ctx, &rows, liveEchoesQuery, domain.Cutoff(now)); err != nil {
		return nil, errors.Unavailable("list live echoes", err)
	}

	echoes := make([]domain.Echo, 0, len(rows))
	for _, row := range rows {
		if len(echoes) == 0 || echoes[len(echoes)-1].ID != row.ID {
			echoes = append(echoes, row.toEcho())
		}
		if !row.ReplyID.Valid {
			continue
		}
		last := &echoes[len(echoes)-1]
		last.Replies = append(last.Replies, domain.Reply{
			ID:        row.ReplyID.UUID,
			EchoID:    row.ID,
			Content:   row.ReplyContent.String,
			CreatedAt: row.ReplyCreatedAt.Time.UTC(),
			IsRead:    row.ReplyIsRead.Bool,
		})
	}
	return echoes, nil
}

func (g *Gateway) ListNotifications(ctx context.Context, signature domain.SignatureID, limit int) ([]domain.Notification, error) {
	if signature.IsZero() {
		return []domain.Notification{}, nil
	}
	var rows []notificationRow
	if err := g.db.SelectContext(ctx, &rows, notificationsQuery, signature.String(), limitArg(limit)); err != nil {
		return nil, errors.Unavailable("list notifications", err)
	}
	return lo.Map(rows, func(r notificationRow, _ int) domain.Notification {
		return domain.Notification{
			Reply:         r.toReply(),
			EchoSignature: domain.SignatureID(r.EchoSignature.String),
			EchoContent:   r.EchoContent,
		}
	}), nil
}

// MarkRead is a single UPDATE; unknown and already read ids are left alone.
func (g *Gateway) MarkRead(ctx context.Context, replyIDs []uuid.UUID) error {
	if len(replyIDs) == 0 {
		return nil
	}
	query, args, err := sqlx.In(markReadQuery, replyIDs)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if _, err := g.db.ExecContext(ctx, sqlx.Rebind(sqlx.DOLLAR, query), args...); err != nil {
		return errors.Unavailable("mark read", err)
	}
	return nil
}

// limitArg maps a non-positive limit to NULL, which PostgreSQL reads as LIMIT ALL.
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

func nullable(signature domain.SignatureID) any {
	if signature.IsZero() {
		return nil
	}
	return signature.String()
}

func (r echoRow) toEcho() domain.Echo {
	return domain.Echo{
		ID:        r.ID,
		Content:   r.Content,
		Signature: domain.SignatureID(r.Signature.String),
		CreatedAt: r.CreatedAt.UTC(),
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
