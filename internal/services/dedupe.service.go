package services

import (
	"context"
	"time"

	"github.com/Larry-Schultz/FFTBViewerV3/internal/database"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/logger"
)

// Deduplicator reports whether a delivery ID is being seen for the first time.
// Release gives a claim back so a redelivery is processed again.
type Deduplicator interface {
	FirstSeen(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}

// EventDeduplicator claims message IDs with SET NX in valkey so an
// at-least-once chat relay cannot count the same play twice.
type EventDeduplicator struct {
	cache database.CacheClient
	ttl   time.Duration
	log   logger.Logger
}

func NewEventDeduplicator(cache database.CacheClient) *EventDeduplicator {
	return &EventDeduplicator{
		cache: cache,
		ttl:   ChatDedupeTTL,
		log:   logger.New("eventDeduplicator"),
	}
}

// FirstSeen fails open: empty IDs, a missing cache and cache errors all count
// as first sightings.
func (d *EventDeduplicator) FirstSeen(ctx context.Context, id string) (bool, error) {
	if id == "" || d.cache == nil {
		return true, nil
	}

	claimed, err := database.NewCacheBuilder(d.cache, id).
		WithHash(CHAT_DEDUPE_HASH).
		WithValue(time.Now().UTC().Format(time.RFC3339)).
		WithTTL(d.ttl).
		WithContext(ctx).
		SetNX()
	if err != nil {
		return true, d.log.Function("FirstSeen").Err("failed to claim message id", err, "id", id)
	}

	return claimed, nil
}

func (d *EventDeduplicator) Release(ctx context.Context, id string) error {
	if id == "" || d.cache == nil {
		return nil
	}

	err := database.NewCacheBuilder(d.cache, id).
		WithHash(CHAT_DEDUPE_HASH).
		WithContext(ctx).
		Delete()
	if err != nil {
		return d.log.Function("Release").Err("failed to release message id", err, "id", id)
	}

	return nil
}
