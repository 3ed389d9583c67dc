package internal

import (
	"context"
	"echoes/infrastructure/storage"
	"embed"
	stderrors "errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dgraph-io/badger/v4"
)

//go:embed inspect.html
var templatesFS embed.FS

const defaultPrefix = "echo:"

type InspectRow struct {
	Key       string
	Type      string
	Timestamp string
	EntityID  string
	Detail    string
}

type RowMapper func(key string, val []byte) InspectRow
type StatsProvider func() map[string]any

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

// NewInspectHandler renders every key under ?prefix= (default "echo:") as an HTML table.
func NewInspectHandler(db *badger.DB, mapper RowMapper, statsProvider StatsProvider) http.Handler {
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))
	if mapper == nil {
		mapper = DefaultMapper
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = defaultPrefix
		}

		data := PageData{
			Prefix: prefix,
			Stats:  make(map[string]any),
		}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		err := db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				err := item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapper(string(item.Key()), val))
					return nil
				})
				if err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})
}

// StartDebugServer serves the inspector on localhost:port in the background
// until ctx is done. The returned channel closes once the server has stopped.
func StartDebugServer(ctx context.Context, db *badger.DB, log *slog.Logger, port int, endpoint string, mapper RowMapper, statsProvider StatsProvider) <-chan struct{} {
	mux := http.NewServeMux()
	mux.Handle(endpoint, NewInspectHandler(db, mapper, statsProvider))

	address := fmt.Sprintf("localhost:%d", port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		log.Warn("Debug server not started", "address", address, "error", err)
		done := make(chan struct{})
		close(done)
		return done
	}
	return serveDebug(ctx, listener, mux, log)
}

func serveDebug(ctx context.Context, listener net.Listener, handler http.Handler, log *slog.Logger) <-chan struct{} {
	server := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := server.Serve(listener); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			log.Warn("Debug server stopped", "address", listener.Addr().String(), "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Debug("Debug server shutdown", "error", err)
		}
	}()
	return done
}

func DefaultMapper(key string, val []byte) InspectRow {
	entry := storage.Describe([]byte(key), val)
	row := InspectRow{
		Key:       entry.Key,
		Type:      entry.Kind,
		Timestamp: "--:--:--",
		EntityID:  "--------",
		Detail:    entry.Detail,
	}
	if !entry.At.IsZero() {
		row.Timestamp = entry.At.Format(time.DateTime)
	}
	if entry.ID != "" {
		row.EntityID = entry.ID
		if len(row.EntityID) > 8 {
			row.EntityID = row.EntityID[:8]
		}
	}
	return row
}
