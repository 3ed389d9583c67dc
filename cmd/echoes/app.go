package main

import (
	"context"
	"echoes/contract"
	"echoes/domain"
	"echoes/infrastructure/postgres"
	"echoes/infrastructure/storage"
	"echoes/infrastructure/supabase"
	"echoes/internal"
	"echoes/observability"
	"echoes/services"
	"echoes/signature"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// app owns every long-lived resource of one invocation.
type app struct {
	config        internal.Config
	log           *slog.Logger
	clock         domain.Clock
	signature     *signature.Provider
	service       services.IEchoService
	notifications *services.NotificationAggregator
	registry      *prometheus.Registry
	storeDB       *badger.DB
	closers       []func() error
}

func newApp(ctx context.Context, config internal.Config, log *slog.Logger) (*app, error) {
	a := &app{
		config:   config,
		log:      log,
		clock:    domain.SystemClock{},
		registry: prometheus.NewRegistry(),
	}

	// Without the device store only signature features degrade, unless the
	// local gateway lives in the same directory.
	var deviceStore contract.IKeyValueStore
	deviceDB, err := a.openBadger(config.DeviceFilepath)
	switch {
	case err == nil:
		deviceStore = storage.NewKeyValueStore(deviceDB)
	case config.Backend() == internal.BackendBadger && samePath(config.BadgerFilepath, config.DeviceFilepath):
		a.Close()
		return nil, fmt.Errorf("database opening failed: %w", err)
	default:
		log.Warn("Device store unavailable, running without signature", "path", config.DeviceFilepath, "error", err)
		deviceStore = storage.UnavailableStore{Cause: err}
	}
	a.signature = signature.NewProvider(deviceStore, log)

	gateway, err := a.openGateway(ctx, deviceDB)
	if err != nil {
		a.Close()
		return nil, err
	}

	metrics := observability.NewMetrics(a.registry)
	instrumented := observability.NewInstrumentedGateway(gateway, metrics, log)
	a.notifications = services.NewNotificationAggregator(instrumented, a.signature, metrics, log, config.NotificationLimit, config.StoreTimeout)
	a.service = services.NewEchoService(instrumented, a.signature, a.notifications, a.clock, metrics, log, config.StoreTimeout)
	return a, nil
}

// openGateway selects the store from STORE_BACKEND. The local backend shares the
// device database when both paths point to the same directory.
func (a *app) openGateway(ctx context.Context, deviceDB *badger.DB) (contract.IGateway, error) {
	switch a.config.Backend() {
	case internal.BackendSupabase:
		gateway, err := supabase.Dial(a.config.SupabaseURL, a.config.SupabaseKey, a.clock, a.log)
		if err != nil {
			return nil, err
		}
		return gateway, nil
	case internal.BackendPostgres:
		gateway, err := postgres.Dial(ctx, a.config.DatabaseURL, a.clock, a.log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, gateway.Close)
		if err := gateway.Migrate(ctx); err != nil {
			return nil, err
		}
		return gateway, nil
	default:
		db := deviceDB
		if !samePath(a.config.BadgerFilepath, a.config.DeviceFilepath) {
			var err error
			if db, err = a.openBadger(a.config.BadgerFilepath); err != nil {
				return nil, fmt.Errorf("database opening failed: %w", err)
			}
		}
		a.storeDB = db
		return storage.NewEchoGateway(db, a.log, a.clock), nil
	}
}

func (a *app) openBadger(path string) (*badger.DB, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		a.log.Debug("Closing BadgerDB...", "path", path)
		return db.Close()
	})
	return db, nil
}

// Close releases resources in reverse opening order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("Close failed", "error", err)
		}
	}
	a.closers = nil
}

func samePath(left, right string) bool {
	l, errL := filepath.Abs(left)
	r, errR := filepath.Abs(right)
	if errL != nil || errR != nil {
		return left == right
	}
	return l == r
}
