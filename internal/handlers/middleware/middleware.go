package middleware

import (
	"time"

	"github.com/Larry-Schultz/FFTBViewerV3/config"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/logger"

	"golang.org/x/time/rate"
)

type Middleware struct {
	Config      config.Config
	log         logger.Logger
	syncLimiter *rate.Limiter
}

func New(config config.Config) Middleware {
	var syncLimiter *rate.Limiter
	if config.ManualSyncMinIntervalSeconds > 0 {
		interval := time.Duration(config.ManualSyncMinIntervalSeconds) * time.Second
		syncLimiter = rate.NewLimiter(rate.Every(interval), 1)
	}

	return Middleware{
		Config:      config,
		log:         logger.New("middleware"),
		syncLimiter: syncLimiter,
	}
}
