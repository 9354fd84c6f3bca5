package app

import (
	"context"
	"errors"

	"github.com/Larry-Schultz/FFTBViewerV3/config"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/controllers"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/database"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/events"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/handlers/middleware"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/jobs"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/logger"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/repositories"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/services"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/websockets"
)

type App struct {
	Database    database.DB
	Middleware  middleware.Middleware
	Websocket   *websockets.Manager
	EventBus    *events.EventBus
	Config      config.Config
	Repos       repositories.Repository
	Services    services.Service
	Controllers controllers.Controllers

	cancel context.CancelFunc
}

func New() (*App, error) {
	log := logger.New("app").Function("New")

	config, err := config.New()
	if err != nil {
		return &App{}, log.Err("failed to initialize config", err)
	}

	db, err := database.New(config)
	if err != nil {
		return &App{}, log.Err("failed to create database", err)
	}

	eventBus := events.New(db.Cache.Events)
	repos := repositories.New(db)

	services, err := services.New(db, repos, config, eventBus)
	if err != nil {
		return &App{}, log.Err("failed to create services", err)
	}

	websocket, err := websockets.New(eventBus)
	if err != nil {
		return &App{}, log.Err("failed to create websocket manager", err)
	}

	controllers := controllers.New(services)
	middleware := middleware.New(config)

	if err := jobs.RegisterAllJobs(services.Scheduler, config, services); err != nil {
		return &App{}, log.Err("failed to register jobs", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	services.PlayTracker.Start(ctx)

	app := &App{
		Database:    db,
		Config:      config,
		Middleware:  middleware,
		Websocket:   websocket,
		EventBus:    eventBus,
		Repos:       repos,
		Services:    services,
		Controllers: controllers,
		cancel:      cancel,
	}

	if err := app.validate(); err != nil {
		_ = app.Close()
		return &App{}, log.Err("failed to validate app", err)
	}

	return app, nil
}

func (a *App) validate() error {
	log := logger.New("app").Function("validate")
	if a.Database.SQL == nil {
		return log.ErrMsg("database is nil")
	}

	if a.Config == (config.Config{}) {
		return log.ErrMsg("config is nil")
	}

	nilChecks := map[string]any{
		"websocket":          a.Websocket,
		"eventBus":           a.EventBus,
		"transactionService": a.Services.Transaction,
		"schedulerService":   a.Services.Scheduler,
		"playlistSync":       a.Services.PlaylistSync,
		"playTracker":        a.Services.PlayTracker,
		"chatService":        a.Services.Chat,
		"catalogService":     a.Services.Catalog,
		"trackRepository":    a.Repos.Track,
		"playlistController": a.Controllers.Playlist,
		"chatController":     a.Controllers.Chat,
	}

	for name, check := range nilChecks {
		if isNil(check) {
			return log.Error("nil check failed", "component", name)
		}
	}

	return nil
}

func isNil(v any) bool {
	switch typed := v.(type) {
	case nil:
		return true
	case *websockets.Manager:
		return typed == nil
	case *events.EventBus:
		return typed == nil
	case *services.TransactionService:
		return typed == nil
	case *services.SchedulerService:
		return typed == nil
	case *services.PlaylistSyncService:
		return typed == nil
	case *services.PlayTracker:
		return typed == nil
	case *services.ChatService:
		return typed == nil
	case *services.CatalogService:
		return typed == nil
	}
	return false
}

// Close stops background work before the connections it depends on.
func (a *App) Close() (err error) {
	if a.Services.Scheduler != nil {
		if closeErr := a.Services.Scheduler.Stop(context.Background()); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}

	if a.Services.PlayTracker != nil {
		a.Services.PlayTracker.Stop()
	}
	if a.cancel != nil {
		a.cancel()
	}

	if a.Websocket != nil {
		a.Websocket.Close()
	}

	if a.EventBus != nil {
		if closeErr := a.EventBus.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}

	if dbErr := a.Database.Close(); dbErr != nil {
		err = errors.Join(err, dbErr)
	}

	return err
}
