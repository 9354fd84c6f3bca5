package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Larry-Schultz/FFTBViewerV3/config"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/logger"

	"github.com/valkey-io/valkey-go"
)

// Valkey database indexes, one per cache category.
const (
	// GENERAL_CACHE_INDEX (DB 0) - cached read models such as the last sync summary
	GENERAL_CACHE_INDEX = iota

	// EVENTS_CACHE_INDEX (DB 1) - pub/sub for real-time updates
	EVENTS_CACHE_INDEX

	// DEDUPE_CACHE_INDEX (DB 2) - chat message ids already processed
	DEDUPE_CACHE_INDEX
)

var cacheIndexNames = map[int]string{
	GENERAL_CACHE_INDEX: "General",
	EVENTS_CACHE_INDEX:  "Events",
	DEDUPE_CACHE_INDEX:  "Dedupe",
}

func (s *DB) initializeCacheDB(config config.Config) error {
	log := s.log.Function("initializeCacheDB")
	log.Info("initializing cache database")

	address := config.DatabaseCacheAddress
	port := config.DatabaseCachePort
	if address == "" || port == 0 {
		return log.Errorf("failed to initialize cache database", "address or port is empty")
	}

	var cacheDB Cache
	clients := []struct {
		target *CacheClient
		index  int
	}{
		{&cacheDB.General, GENERAL_CACHE_INDEX},
		{&cacheDB.Events, EVENTS_CACHE_INDEX},
		{&cacheDB.Dedupe, DEDUPE_CACHE_INDEX},
	}

	for _, c := range clients {
		client, err := valkey.NewClient(
			valkey.ClientOption{
				InitAddress: []string{fmt.Sprintf("%s:%d", address, port)},
				SelectDB:    c.index,
			},
		)
		if err != nil {
			return log.Err("failed to create valkey client", err, "cache", cacheIndexNames[c.index])
		}
		*c.target = client
	}

	s.Cache = cacheDB

	if config.DatabaseCacheReset != -1 {
		go clearCacheDB(config.DatabaseCacheReset, cacheDB)
	}

	return nil
}

func (c Cache) byIndex(index int) CacheClient {
	switch index {
	case GENERAL_CACHE_INDEX:
		return c.General
	case EVENTS_CACHE_INDEX:
		return c.Events
	case DEDUPE_CACHE_INDEX:
		return c.Dedupe
	default:
		return nil
	}
}

func clearCacheDB(index int, cacheDB Cache) {
	log := logger.New("database").File("cache.database").Function("clearCacheDB")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := cacheDB.byIndex(index)
	if client == nil {
		log.Warn("Invalid cache database index", "index", index)
		return
	}

	dbName := cacheIndexNames[index]
	if err := client.Do(ctx, client.B().Flushdb().Build()).Error(); err != nil {
		log.Er("Failed to clear cache database", err, "index", index, "dbName", dbName)
		return
	}

	log.Info("Successfully cleared cache database", "index", index, "dbName", dbName)
}

// FlushAllCaches empties every cache database. Used by the migration seed.
func (s *DB) FlushAllCaches() error {
	log := logger.New("database").Function("FlushAllCaches")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for index, name := range cacheIndexNames {
		client := s.Cache.byIndex(index)
		if client == nil {
			continue
		}
		if err := client.Do(ctx, client.B().Flushdb().Build()).Error(); err != nil {
			return log.Err("failed to flush cache database", err, "dbName", name)
		}
	}

	return nil
}
