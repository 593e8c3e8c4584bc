// Package redline wires the engine, its stores and the event bus into the
// application the commands drive.
package redline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/colonyops/redline/internal/core/config"
	"github.com/colonyops/redline/internal/core/eventbus"
	"github.com/colonyops/redline/internal/core/history"
	"github.com/colonyops/redline/internal/core/notify"
	"github.com/colonyops/redline/internal/data/db"
	"github.com/colonyops/redline/internal/data/stores"
	"github.com/colonyops/redline/internal/generate"
	"github.com/colonyops/redline/internal/store/jsonfile"
)

// notificationLimit bounds the notification store.
const notificationLimit = 100

// App is the central entry point for redline operations.
// Commands consume App instead of cherry-picking raw dependencies.
type App struct {
	Config        *config.Config
	Bus           *eventbus.EventBus
	History       history.Store
	Notifications notify.Store
	DB            *db.DB // nil unless the sqlite backend is configured
	Log           zerolog.Logger
}

// NewApp constructs an App for cfg, opening the configured storage backend.
// The bus is created but not started; call Start before publishing
// anything that must be delivered.
func NewApp(cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Bus:    eventbus.New(cfg.EventBuffer),
		Log:    log,
	}

	switch cfg.Storage.Backend {
	case config.StorageSQLite:
		database, err := db.Open(cfg.DataDir, db.OpenOptions{
			MaxOpenConns: cfg.Storage.MaxOpenConns,
			MaxIdleConns: cfg.Storage.MaxIdleConns,
			BusyTimeout:  cfg.Storage.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.DB = database
		a.History = stores.NewHistoryStore(database)
		a.Notifications = stores.NewNotifyStore(database, notificationLimit)
	default:
		a.History = jsonfile.NewHistoryStore(cfg.HistoryFile())
		a.Notifications = notify.NewMemory(notificationLimit)
	}

	eventbus.RegisterDebugLogger(a.Bus, log.With().Str("cmp", "eventbus").Logger())
	eventbus.NewNotificationRouter(a.Bus).Register()
	a.Bus.SubscribeNotificationPublished(a.storeNotification)

	return a, nil
}

// Close releases the storage backend.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

// Start runs the bus dispatcher until ctx is done.
func (a *App) Start(ctx context.Context) {
	go a.Bus.Start(ctx)
}

// Generator builds the configured text generator.
func (a *App) Generator(ctx context.Context) (generate.Generator, error) {
	return generate.New(ctx, a.Config, a.Log)
}

func (a *App) storeNotification(p eventbus.NotificationPublishedPayload) {
	n := notify.Notification{Level: p.Level, Message: p.Message}
	if _, err := a.Notifications.Save(context.Background(), n); err != nil {
		a.Log.Warn().Err(err).Msg("failed to store notification")
	}
}
