package config

import (
	"strings"

	"github.com/Larry-Schultz/FFTBViewerV3/internal/logger"

	"github.com/spf13/viper"
)

const DefaultPlaylistURL = "http://www.fftbattleground.com/fftbg/playlist.xml"

type Config struct {
	GeneralVersion       string `mapstructure:"GENERAL_VERSION"`
	Environment          string `mapstructure:"ENVIRONMENT"`
	ServerPort           int    `mapstructure:"SERVER_PORT"`
	DatabaseHost         string `mapstructure:"DB_HOST"`
	DatabasePort         int    `mapstructure:"DB_PORT"`
	DatabaseName         string `mapstructure:"DB_NAME"`
	DatabaseUser         string `mapstructure:"DB_USER"`
	DatabasePassword     string `mapstructure:"DB_PASSWORD"`
	DatabaseCacheAddress string `mapstructure:"DB_CACHE_ADDRESS"`
	DatabaseCachePort    int    `mapstructure:"DB_CACHE_PORT"`
	DatabaseCacheReset   int    `mapstructure:"DB_CACHE_RESET"`
	CorsAllowOrigins     string `mapstructure:"CORS_ALLOW_ORIGINS"`

	PlaylistURL                   string `mapstructure:"PLAYLIST_URL"`
	PlaylistConnectTimeoutSeconds int    `mapstructure:"PLAYLIST_CONNECT_TIMEOUT_SECONDS"`
	PlaylistReadTimeoutSeconds    int    `mapstructure:"PLAYLIST_READ_TIMEOUT_SECONDS"`

	SchedulerEnabled             bool `mapstructure:"SCHEDULER_ENABLED"`
	SyncIntervalMinutes          int  `mapstructure:"SYNC_INTERVAL_MINUTES"`
	SyncOnStartup                bool `mapstructure:"SYNC_ON_STARTUP"`
	ManualSyncMinIntervalSeconds int  `mapstructure:"MANUAL_SYNC_MIN_INTERVAL_SECONDS"`

	TrackPlayEnabled           bool `mapstructure:"TRACK_PLAY_ENABLED"`
	TrackPlayLogOnly           bool `mapstructure:"TRACK_PLAY_LOG_ONLY"`
	TrackPlayUpdateOccurrences bool `mapstructure:"TRACK_PLAY_UPDATE_OCCURRENCES"`
	TrackPlayRecordHistory     bool `mapstructure:"TRACK_PLAY_RECORD_HISTORY"`
	TrackPlayWorkers           int  `mapstructure:"TRACK_PLAY_WORKERS"`
	TrackPlayQueueSize         int  `mapstructure:"TRACK_PLAY_QUEUE_SIZE"`

	ChatChannel    string `mapstructure:"CHAT_CHANNEL"`
	ChatAnnouncer  string `mapstructure:"CHAT_ANNOUNCER"`
	AdminJWTSecret string `mapstructure:"ADMIN_JWT_SECRET"`
}

// TrackPlayPolicy controls which side effects a detected play performs.
// It is a plain value so a tracker keeps the policy it was built with.
type TrackPlayPolicy struct {
	Enabled           bool
	LogOnly           bool
	UpdateOccurrences bool
	RecordPlayHistory bool
}

func (c Config) TrackPlayPolicy() TrackPlayPolicy {
	return TrackPlayPolicy{
		Enabled:           c.TrackPlayEnabled,
		LogOnly:           c.TrackPlayLogOnly,
		UpdateOccurrences: c.TrackPlayUpdateOccurrences,
		RecordPlayHistory: c.TrackPlayRecordHistory,
	}
}

var ConfigInstance Config

var envVars = []string{
	"GENERAL_VERSION", "ENVIRONMENT", "SERVER_PORT", "DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD",
	"DB_CACHE_ADDRESS", "DB_CACHE_PORT", "DB_CACHE_RESET",
	"CORS_ALLOW_ORIGINS",
	"PLAYLIST_URL", "PLAYLIST_CONNECT_TIMEOUT_SECONDS", "PLAYLIST_READ_TIMEOUT_SECONDS",
	"SCHEDULER_ENABLED", "SYNC_INTERVAL_MINUTES", "SYNC_ON_STARTUP", "MANUAL_SYNC_MIN_INTERVAL_SECONDS",
	"TRACK_PLAY_ENABLED", "TRACK_PLAY_LOG_ONLY", "TRACK_PLAY_UPDATE_OCCURRENCES", "TRACK_PLAY_RECORD_HISTORY",
	"TRACK_PLAY_WORKERS", "TRACK_PLAY_QUEUE_SIZE",
	"CHAT_CHANNEL", "CHAT_ANNOUNCER", "ADMIN_JWT_SECRET",
}

func setDefaults() {
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_CACHE_RESET", 0)
	viper.SetDefault("PLAYLIST_URL", DefaultPlaylistURL)
	viper.SetDefault("PLAYLIST_CONNECT_TIMEOUT_SECONDS", 10)
	viper.SetDefault("PLAYLIST_READ_TIMEOUT_SECONDS", 30)
	viper.SetDefault("SCHEDULER_ENABLED", true)
	viper.SetDefault("SYNC_INTERVAL_MINUTES", 60)
	viper.SetDefault("SYNC_ON_STARTUP", true)
	viper.SetDefault("MANUAL_SYNC_MIN_INTERVAL_SECONDS", 30)
	viper.SetDefault("TRACK_PLAY_ENABLED", true)
	viper.SetDefault("TRACK_PLAY_LOG_ONLY", false)
	viper.SetDefault("TRACK_PLAY_UPDATE_OCCURRENCES", true)
	viper.SetDefault("TRACK_PLAY_RECORD_HISTORY", true)
	viper.SetDefault("TRACK_PLAY_WORKERS", 4)
	viper.SetDefault("TRACK_PLAY_QUEUE_SIZE", 256)
	viper.SetDefault("CHAT_CHANNEL", "fftbattleground")
}

func New() (Config, error) {
	log := logger.New("config").Function("New")
	log.Info("Initializing config")

	viper.AutomaticEnv()
	setDefaults()

	for _, env := range envVars {
		if err := viper.BindEnv(env); err != nil {
			log.Warn("Failed to bind environment variable", "env", env, "error", err)
		}
	}

	envVarsSet := viper.IsSet("SERVER_PORT") && viper.IsSet("DB_HOST")

	if envVarsSet {
		log.Info("Environment variables detected, skipping file loading")
	} else {
		log.Info("Environment variables not found, attempting to load from files")

		viper.SetConfigFile(".env")
		viper.SetConfigType("env")

		if err := viper.ReadInConfig(); err != nil {
			log.Warn("Could not find .env file", "error", err)
		} else {
			log.Info("Loaded .env file")
		}

		viper.SetConfigFile(".env.local")
		if err := viper.MergeInConfig(); err != nil {
			log.Debug("No .env.local file found", "error", err)
		} else {
			log.Info("Loaded .env.local overrides")
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, log.Err("Fatal error: could not unmarshal config", err)
	}

	config, err := validateConfig(config, log)
	if err != nil {
		return Config{}, err
	}

	log.Info("Successfully initialized config",
		"environment", config.Environment,
		"port", config.ServerPort,
		"playlistURL", config.PlaylistURL,
		"schedulerEnabled", config.SchedulerEnabled,
		"trackPlayPolicy", config.TrackPlayPolicy(),
	)
	ConfigInstance = config
	return config, nil
}

func GetConfig() Config {
	return ConfigInstance
}

// validateConfig rejects unusable values and normalizes the rest.
func validateConfig(config Config, log logger.Logger) (Config, error) {
	if config.ServerPort <= 0 {
		return Config{}, log.Error("Fatal error: invalid server port", "port", config.ServerPort)
	}

	if config.PlaylistURL == "" {
		config.PlaylistURL = DefaultPlaylistURL
	}

	if config.PlaylistConnectTimeoutSeconds <= 0 || config.PlaylistReadTimeoutSeconds <= 0 {
		return Config{}, log.Error(
			"Fatal error: playlist timeouts must be positive",
			"connect", config.PlaylistConnectTimeoutSeconds,
			"read", config.PlaylistReadTimeoutSeconds,
		)
	}

	if config.SchedulerEnabled && config.SyncIntervalMinutes <= 0 {
		return Config{}, log.Error(
			"Fatal error: sync interval must be positive",
			"minutes", config.SyncIntervalMinutes,
		)
	}

	if config.ManualSyncMinIntervalSeconds < 0 {
		config.ManualSyncMinIntervalSeconds = 0
	}
	if config.TrackPlayWorkers <= 0 {
		config.TrackPlayWorkers = 1
	}
	if config.TrackPlayQueueSize <= 0 {
		config.TrackPlayQueueSize = 1
	}

	config.ChatChannel = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(config.ChatChannel), "#"))
	config.ChatAnnouncer = strings.TrimSpace(config.ChatAnnouncer)

	return config, nil
}
