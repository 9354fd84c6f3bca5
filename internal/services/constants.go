package services

import "time"

// Reconciliation batch sizes
const (
	REMOVAL_BATCH_SIZE   = 100
	INSERTION_BATCH_SIZE = 500
)

// Cache hash patterns
const (
	SYNC_HASH        = "sync"
	LATEST_SYNC_KEY  = "latest"
	CHAT_DEDUPE_HASH = "chat_message"
)

const (
	LatestSyncTTL    = 24 * time.Hour
	ChatDedupeTTL    = 24 * time.Hour
	ChatHistoryLimit = 50
)
