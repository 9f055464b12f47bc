package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"codepair/internal/database"
	"codepair/internal/services"
)

// App owns the full service graph for one process: database, persistence
// services, keyring, snapshots, event stream, and the session engine.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	db      *gorm.DB
	dbClose func() error

	Db        *services.DbServices
	Keyring   *services.KeyringService
	Snapshots *services.SnapshotService
	Emitter   *services.EventEmitterService
	Sessions  *services.SessionService
}

func NewApp(logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{logger: logger}
}

// Startup opens the database and brings every service up in dependency
// order. It must be called once before any command runs.
func (a *App) Startup(ctx context.Context, dbPath string) error {
	a.ctx, a.cancel = context.WithCancel(ctx)

	db, err := database.Init(database.Config{
		Path:     dbPath,
		LogLevel: gormlogger.Warn,
		Logger:   a.logger,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.db = db
	if sqlDB, err := db.DB(); err == nil {
		a.dbClose = sqlDB.Close
	}

	a.Db = services.NewDbServices(db)
	a.Keyring = services.NewKeyringService()
	a.Snapshots = services.NewSnapshotService(a.logger)
	a.Emitter = services.NewEventEmitterService(a.logger)
	a.Sessions = services.NewSessionService(
		a.Db.Workspaces,
		a.Snapshots,
		a.Keyring,
		a.Db.Conversations,
		a.Db.Models,
		a.Db.Settings,
		a.logger,
	)

	a.Emitter.Startup(a.ctx)
	a.Db.Settings.Startup(a.ctx)
	a.Db.Conversations.Startup(a.ctx)
	a.Snapshots.Startup(a.ctx)
	if err := a.Db.Models.Startup(a.ctx); err != nil {
		return fmt.Errorf("load model catalog: %w", err)
	}
	if err := a.Sessions.Startup(a.ctx); err != nil {
		return fmt.Errorf("start session service: %w", err)
	}
	return nil
}

// Shutdown tears the process down: live sessions first, then the event
// stream, then the database.
func (a *App) Shutdown() {
	if a.Sessions != nil {
		a.Sessions.CloseAll()
	}
	if a.Emitter != nil {
		a.Emitter.StopStream()
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.dbClose != nil {
		if err := a.dbClose(); err != nil {
			a.logger.Warn("closing database failed", zap.Error(err))
		}
		a.dbClose = nil
	}
	_ = a.logger.Sync()
}
