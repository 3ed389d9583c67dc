package storage

import (
	"context"
	"echoes/domain"
	"echoes/errors"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func openDB(t *testing.T) *badger.DB {
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newGateway(t *testing.T) (*EchoGateway, *domain.FixedClock) {
	clock := &domain.FixedClock{T: t0}
	return NewEchoGateway(openDB(t), logs.GetLoggerFromLevel(slog.LevelDebug), clock), clock
}

func post(t *testing.T, g *EchoGateway, content string, signature domain.SignatureID) domain.Echo {
	cmd, err := domain.NewPostEchoCommand(content, signature)
	require.NoError(t, err)
	echo, err := g.CreateEcho(context.Background(), cmd)
	require.NoError(t, err)
	return echo
}

func reply(t *testing.T, g *EchoGateway, echoID uuid.UUID, content string) domain.Reply {
	cmd, err := domain.NewReplyCommand(echoID, content)
	require.NoError(t, err)
	r, err := g.CreateReply(context.Background(), cmd)
	require.NoError(t, err)
	return r
}

func Test_Echo_Leaves_Feed_After_48_Hours(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	g, _ := newGateway(t)

	echo := post(t, g, "hello", "S")

	live, err := g.ListLiveEchoes(ctx, t0.Add(47*time.Hour+59*time.Minute))
	req.NoError(err)
	req.Len(live, 1)
	req.Equal(echo.ID, live[0].ID)
	req.Equal("hello", live[0].Content)

	live, err = g.ListLiveEchoes(ctx, t0.Add(48*time.Hour+time.Minute))
	req.NoError(err)
	req.Empty(live)

	live, err = g.ListLiveEchoes(ctx, t0.Add(48*time.Hour))
	req.NoError(err)
	req.Empty(live)
}

func Test_Feed_Is_Newest_First_With_Replies_In_Insertion_Order(t *testing.T) {
	req := require.New(t)
	g, clock := newGateway(t)

	first := post(t, g, "first", "A")
	clock.Advance(time.Minute)
	second := post(t, g, "second", "B")
	clock.Advance(time.Minute)
	r1 := reply(t, g, first.ID, "one")
	clock.Advance(time.Second)
	r2 := reply(t, g, first.ID, "two")

	live, err := g.ListLiveEchoes(context.Background(), clock.Now())
	req.NoError(err)
	req.Equal([]uuid.UUID{second.ID, first.ID}, lo.Map(live, func(e domain.Echo, _ int) uuid.UUID { return e.ID }))
	req.Empty(live[0].Replies)
	req.Equal([]uuid.UUID{r1.ID, r2.ID}, lo.Map(live[1].Replies, func(r domain.Reply, _ int) uuid.UUID { return r.ID }))
	req.False(live[1].Replies[0].IsRead)
}

func Test_Feed_Skips_Only_Expired_Echoes(t *testing.T) {
	req := require.New(t)
	g, clock := newGateway(t)

	post(t, g, "old", "A")
	clock.Advance(24 * time.Hour)
	recent := post(t, g, "recent", "A")

	live, err := g.ListLiveEchoes(context.Background(), t0.Add(49*time.Hour))
	req.NoError(err)
	req.Len(live, 1)
	req.Equal(recent.ID, live[0].ID)
}

func Test_Reply_Becomes_Notification_For_Author(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	g, clock := newGateway(t)

	echo := post(t, g, "anyone there?", "S")
	post(t, g, "not mine", "OTHER")
	clock.Advance(time.Minute)
	reply(t, g, echo.ID, "hi back")

	notifications, err := g.ListNotifications(ctx, "S", 20)
	req.NoError(err)
	req.Len(notifications, 1)
	req.Equal("hi back", notifications[0].Content)
	req.False(notifications[0].IsRead)
	req.Equal(domain.SignatureID("S"), notifications[0].EchoSignature)
	req.Equal("anyone there?", notifications[0].EchoContent)

	notifications, err = g.ListNotifications(ctx, "OTHER", 20)
	req.NoError(err)
	req.Empty(notifications)

	notifications, err = g.ListNotifications(ctx, "", 20)
	req.NoError(err)
	req.Empty(notifications)
}

func Test_Notifications_Are_Newest_First_And_Capped(t *testing.T) {
	req := require.New(t)
	g, clock := newGateway(t)

	echo := post(t, g, "mine", "S")
	var replies []domain.Reply
	for _, content := range []string{"a", "b", "c"} {
		clock.Advance(time.Second)
		replies = append(replies, reply(t, g, echo.ID, content))
	}

	notifications, err := g.ListNotifications(context.Background(), "S", 2)
	req.NoError(err)
	req.Len(notifications, 2)
	req.Equal(replies[2].ID, notifications[0].ID)
	req.Equal(replies[1].ID, notifications[1].ID)

	// a non-positive limit means no cap
	all, err := g.ListNotifications(context.Background(), "S", 0)
	req.NoError(err)
	req.Len(all, 3)
}

func Test_MarkRead_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	g, clock := newGateway(t)

	echo := post(t, g, "mine", "S")
	clock.Advance(time.Second)
	r1 := reply(t, g, echo.ID, "one")
	clock.Advance(time.Second)
	r2 := reply(t, g, echo.ID, "two")
	ids := []uuid.UUID{r1.ID, r2.ID}

	req.NoError(g.MarkRead(ctx, ids))
	once, err := g.ListNotifications(ctx, "S", 20)
	req.NoError(err)

	req.NoError(g.MarkRead(ctx, ids))
	twice, err := g.ListNotifications(ctx, "S", 20)
	req.NoError(err)

	req.Equal(once, twice)
	for _, n := range twice {
		req.True(n.IsRead)
	}

	req.NoError(g.MarkRead(ctx, []uuid.UUID{uuid.New()}))
	req.NoError(g.MarkRead(ctx, nil))
}

func Test_Reply_To_Unknown_Or_Expired_Echo(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	g, clock := newGateway(t)

	cmd, err := domain.NewReplyCommand(uuid.New(), "hello?")
	req.NoError(err)
	_, err = g.CreateReply(ctx, cmd)
	req.ErrorIs(err, errors.ErrNotFound)

	echo := post(t, g, "soon gone", "S")
	clock.Advance(domain.LifetimeWindow)
	cmd, err = domain.NewReplyCommand(echo.ID, "too late")
	req.NoError(err)
	_, err = g.CreateReply(ctx, cmd)
	req.ErrorIs(err, errors.ErrNotFound)
	req.NotErrorIs(err, errors.ErrStoreUnavailable)
}

func Test_Closed_Database_Reports_Store_Unavailable(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	g := NewEchoGateway(db, logs.GetLoggerFromLevel(slog.LevelDebug), &domain.FixedClock{T: t0})
	req.NoError(db.Close())

	_, err = g.ListLiveEchoes(context.Background(), t0)
	req.ErrorIs(err, errors.ErrStoreUnavailable)
}
