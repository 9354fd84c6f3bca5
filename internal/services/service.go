package services

import (
	"errors"

	"github.com/Larry-Schultz/FFTBViewerV3/config"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/database"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/events"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/repositories"
)

type Service struct {
	Transaction  *TransactionService
	Scheduler    *SchedulerService
	FeedFetcher  *FeedFetcher
	PlaylistSync *PlaylistSyncService
	PlayDetector *PlayEventDetector
	PlayTracker  *PlayTracker
	Dedupe       *EventDeduplicator
	Chat         *ChatService
	Catalog      *CatalogService
}

func New(
	db database.DB,
	repos repositories.Repository,
	config config.Config,
	eventBus *events.EventBus,
) (Service, error) {
	if eventBus == nil {
		return Service{}, errors.New("event bus is required")
	}

	transactionService := NewTransactionService(db)
	schedulerService := NewSchedulerService()
	feedFetcher := NewFeedFetcher(config)
	playlistSyncService := NewPlaylistSyncService(feedFetcher, repos, db.Cache.General, eventBus)
	playDetector := NewPlayEventDetector(config.ChatAnnouncer)
	playTracker := NewPlayTracker(
		config.TrackPlayPolicy(),
		repos,
		transactionService,
		eventBus,
		config.TrackPlayWorkers,
		config.TrackPlayQueueSize,
	)
	dedupe := NewEventDeduplicator(db.Cache.Dedupe)
	chatService := NewChatService(config.ChatChannel, playDetector, playTracker, dedupe, eventBus)
	catalogService := NewCatalogService(repos, db.Cache.General)

	return Service{
		Transaction:  transactionService,
		Scheduler:    schedulerService,
		FeedFetcher:  feedFetcher,
		PlaylistSync: playlistSyncService,
		PlayDetector: playDetector,
		PlayTracker:  playTracker,
		Dedupe:       dedupe,
		Chat:         chatService,
		Catalog:      catalogService,
	}, nil
}
