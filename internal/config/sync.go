package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// SyncConfig configures the headless schedule client.  Variables carry
// the SCHEDULE_ prefix, e.g. SCHEDULE_SYNC_INTERVAL=30s.
type SyncConfig struct {
	APIBaseURL         string        `envconfig:"API_BASE_URL" default:"http://localhost:8080"`
	APIToken           string        `envconfig:"API_TOKEN"`
	SyncInterval       time.Duration `envconfig:"SYNC_INTERVAL" default:"30s"`
	UpdatePollInterval time.Duration `envconfig:"UPDATE_POLL_INTERVAL" default:"10s"`
	MaxRetries         int           `envconfig:"MAX_RETRIES" default:"3"`
	RetryDelay         time.Duration `envconfig:"RETRY_DELAY" default:"1s"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	StateFile          string        `envconfig:"STATE_FILE" default:".schedule-state.json"`
	StateRedisKey      string        `envconfig:"STATE_REDIS_KEY"`
	StateTTL           time.Duration `envconfig:"STATE_TTL" default:"1h"`
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadSyncConfig reads SCHEDULE_* variables.
func LoadSyncConfig() (SyncConfig, error) {
	var cfg SyncConfig
	if err := envconfig.Process("schedule", &cfg); err != nil {
		return SyncConfig{}, err
	}
	return cfg, nil
}
