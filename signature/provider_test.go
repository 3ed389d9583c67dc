package signature

import (
	"context"
	"echoes/domain"
	"echoes/errors"
	"echoes/infrastructure/storage"
	"echoes/mocks"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func openStore(t *testing.T, dir string) (*storage.KeyValueStore, func()) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	return storage.NewKeyValueStore(db), func() { _ = db.Close() }
}

func TestProvider_StableAcrossCallsAndRestarts(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	dir := t.TempDir()

	store, closeStore := openStore(t, dir)
	provider := NewProvider(store, logs.GetLoggerFromLevel(slog.LevelDebug))
	first, err := provider.Get(ctx)
	req.NoError(err)
	req.False(first.IsZero())
	_, err = uuid.Parse(first.String())
	req.NoError(err)

	again, err := provider.Get(ctx)
	req.NoError(err)
	req.Equal(first, again)
	closeStore()

	store, closeStore = openStore(t, dir)
	defer closeStore()
	reopened, err := NewProvider(store, logs.GetLoggerFromLevel(slog.LevelDebug)).Get(ctx)
	req.NoError(err)
	req.Equal(first, reopened)
}

func TestProvider_NewSignatureAfterReset(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store, closeStore := openStore(t, t.TempDir())
	defer closeStore()

	provider := NewProvider(store, logs.GetLoggerFromLevel(slog.LevelDebug))
	before, err := provider.Get(ctx)
	req.NoError(err)

	req.NoError(provider.Reset())
	after, err := provider.Get(ctx)
	req.NoError(err)
	req.NotEqual(before, after)
}

func TestProvider_StorageFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("read failure is reported and nothing is written", func(t *testing.T) {
		req := require.New(t)
		store := mocks.NewMockIKeyValueStore(ctrl)
		store.EXPECT().Get(StorageKey).Return(nil, badger.ErrDBClosed).Times(1)
		store.EXPECT().Set(gomock.Any(), gomock.Any()).Times(0)

		sig, err := NewProvider(store, logs.GetLoggerFromLevel(slog.LevelDebug)).Get(context.Background())
		req.ErrorIs(err, errors.ErrSignatureUnavailable)
		req.Equal(domain.SignatureID(""), sig)
	})

	t.Run("write failure is reported", func(t *testing.T) {
		req := require.New(t)
		store := mocks.NewMockIKeyValueStore(ctrl)
		store.EXPECT().Get(StorageKey).Return(nil, errors.ErrNotFound).Times(1)
		store.EXPECT().Set(StorageKey, gomock.Any()).Return(badger.ErrDBClosed).Times(1)

		_, err := NewProvider(store, logs.GetLoggerFromLevel(slog.LevelDebug)).Get(context.Background())
		req.ErrorIs(err, errors.ErrSignatureUnavailable)
	})
}
