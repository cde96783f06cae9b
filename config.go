package rewind

import "time"

type (
	// Config describes how a Controller bounds, compares, and persists its
	// history
	Config struct {
		Persistence         PersistConfig `mapstructure:"persistence" yaml:"persistence"`
		MaxSize             int           `mapstructure:"max_size" yaml:"max_size" validate:"gte=0"`
		ThrottleWindow      time.Duration `mapstructure:"throttle_window" yaml:"throttle_window" validate:"gte=0"`
		KeepFutureByDefault bool          `mapstructure:"keep_future" yaml:"keep_future"`
	}

	// PersistConfig controls how snapshots are written to and read from a
	// Storage
	PersistConfig struct {
		Key          string        `mapstructure:"key" yaml:"key"`
		Version      int           `mapstructure:"version" yaml:"version" validate:"gte=0"`
		QueueSize    int           `mapstructure:"queue_size" yaml:"queue_size" validate:"gte=0"`
		WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"gte=0"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" validate:"gte=0"`
	}
)

const (
	DefaultMaxSize        = 0
	DefaultThrottleWindow = 0
	DefaultPersistKey     = "rewind:history"
	DefaultSchemaVersion  = 1
	DefaultWriteQueueSize = 64
	DefaultWriteTimeout   = 30 * time.Second
	DefaultReadTimeout    = 0
)

// DefaultConfig returns an unbounded, unthrottled configuration that clears
// the redo future on every edit
func DefaultConfig() Config {
	return Config{
		MaxSize:        DefaultMaxSize,
		ThrottleWindow: DefaultThrottleWindow,
		Persistence:    DefaultPersistConfig(),
	}
}

// DefaultPersistConfig returns the persistence defaults used by DefaultConfig
func DefaultPersistConfig() PersistConfig {
	return PersistConfig{
		Key:          DefaultPersistKey,
		Version:      DefaultSchemaVersion,
		QueueSize:    DefaultWriteQueueSize,
		WriteTimeout: DefaultWriteTimeout,
		ReadTimeout:  DefaultReadTimeout,
	}
}
