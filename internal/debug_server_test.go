package internal

import (
	"context"
	"echoes/domain"
	"echoes/infrastructure/storage"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestInspectHandler_ListsEchoesUnderPrefix(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()

	clock := &domain.FixedClock{T: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	gateway := storage.NewEchoGateway(db, logs.GetLoggerFromLevel(slog.LevelDebug), clock)
	echo, err := gateway.CreateEcho(context.Background(), domain.PostEchoCommand{Content: "hello from the void"})
	req.NoError(err)

	handler := NewInspectHandler(db, nil, func() map[string]any { return map[string]any{"Backend": "badger"} })

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/inspect", nil))
	req.Equal(http.StatusOK, recorder.Code)
	body := recorder.Body.String()
	req.Contains(body, "hello from the void")
	req.Contains(body, echo.ID.String()[:8])
	req.Contains(body, "Backend: badger")

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/inspect?prefix=reply:", nil))
	req.NotContains(recorder.Body.String(), "hello from the void")
}

func TestDefaultMapper_RawValue(t *testing.T) {
	row := DefaultMapper("something:else", []byte("abc"))
	require.Equal(t, storage.KindRaw, row.Type)
	require.Equal(t, "--------", row.EntityID)
}

func TestDebugServer_StopsWithContext(t *testing.T) {
	req := require.New(t)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	url := "http://" + listener.Addr().String() + "/inspect"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	done := serveDebug(ctx, listener, handler, logs.GetLoggerFromLevel(slog.LevelDebug))

	client := &http.Client{Timeout: time.Second, Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get(url)
	req.NoError(err)
	req.NoError(resp.Body.Close())
	req.Equal(http.StatusNoContent, resp.StatusCode)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		req.Fail("debug server should stop once its context is cancelled")
	}
	_, err = client.Get(url)
	req.Error(err)
}
