// Package config loads the rewind CLI's settings from a YAML file, the
// environment and command-line flags
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/kode4food/rewind"
	"github.com/kode4food/rewind/storage/badger"
	"github.com/kode4food/rewind/storage/bolt"
	"github.com/kode4food/rewind/storage/etcd"
	"github.com/kode4food/rewind/storage/postgres"
	"github.com/kode4food/rewind/storage/sqlite"
)

type (
	// Config is the complete CLI configuration
	Config struct {
		History  rewind.Config      `mapstructure:"history" yaml:"history"`
		File     FileConfig         `mapstructure:"file" yaml:"file" validate:"-"`
		Bolt     bolt.Config        `mapstructure:"bolt" yaml:"bolt" validate:"-"`
		Badger   badger.Config      `mapstructure:"badger" yaml:"badger" validate:"-"`
		SQLite   sqlite.Config      `mapstructure:"sqlite" yaml:"sqlite" validate:"-"`
		Redis    rewind.RedisConfig `mapstructure:"redis" yaml:"redis" validate:"-"`
		Postgres postgres.Config    `mapstructure:"postgres" yaml:"postgres" validate:"-"`
		Etcd     etcd.Config        `mapstructure:"etcd" yaml:"etcd" validate:"-"`
		Document string             `mapstructure:"document" yaml:"document" validate:"required"`
		Backend  string             `mapstructure:"backend" yaml:"backend" validate:"required,oneof=memory file bolt badger sqlite redis postgres etcd"`
		Codec    string             `mapstructure:"codec" yaml:"codec" validate:"required,oneof=json yaml toml"`
		Verbose  bool               `mapstructure:"verbose" yaml:"verbose"`
	}

	// FileConfig locates the directory used by the file backend
	FileConfig struct {
		Dir string `mapstructure:"dir" yaml:"dir" validate:"required"`
	}
)

// Backend names accepted by Config.Backend
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendBolt     = "bolt"
	BackendBadger   = "badger"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendEtcd     = "etcd"
)

// Codec names accepted by Config.Codec
const (
	CodecJSON = "json"
	CodecYAML = "yaml"
	CodecTOML = "toml"
)

const (
	// EnvPrefix is prepended to every environment variable override
	EnvPrefix = "REWIND"

	// FileName is the configuration file searched for when none is given
	FileName = "rewind"

	DefaultDocument = "default"
	dataDirName     = ".rewind"
)

var validate = validator.New()

// Default returns the configuration used when nothing overrides it
func Default() Config {
	dataDir := DataDir()
	return Config{
		History:  rewind.DefaultConfig(),
		File:     FileConfig{Dir: filepath.Join(dataDir, "snapshots")},
		Bolt:     bolt.DefaultConfig(filepath.Join(dataDir, "rewind.db")),
		Badger:   badger.Config{Path: filepath.Join(dataDir, "badger")},
		SQLite:   sqlite.Config{Path: filepath.Join(dataDir, "rewind.sqlite")},
		Redis:    rewind.DefaultRedisConfig(),
		Postgres: postgres.Config{Table: postgres.DefaultTable},
		Etcd:     etcd.DefaultConfig(),
		Document: DefaultDocument,
		Backend:  BackendFile,
		Codec:    CodecJSON,
	}
}

// DataDir returns the directory holding local snapshots and the default
// config file, falling back to the working directory without a home
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return dataDirName
	}
	return filepath.Join(home, dataDirName)
}

// NewViper returns a viper instance that reads rewind.yaml from path (or the
// working directory and DataDir when path is empty) and honors REWIND_
// environment overrides
func NewViper(path string) *viper.Viper {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(DataDir())
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration file, if any, and decodes it over Default.
// A missing file is not an error when no explicit path was requested
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Default()
	bindDefaults(v, cfg)
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the top-level settings and the section belonging to the
// selected backend. Sections for other backends are ignored
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	var section any
	switch c.Backend {
	case BackendFile:
		section = c.File
	case BackendBolt:
		section = c.Bolt
	case BackendBadger:
		section = c.Badger
	case BackendSQLite:
		section = c.SQLite
	case BackendRedis:
		section = c.Redis
	case BackendPostgres:
		section = c.Postgres
	case BackendEtcd:
		section = c.Etcd
	default:
		return nil
	}
	if err := validate.Struct(section); err != nil {
		return fmt.Errorf("invalid %s config: %w", c.Backend, err)
	}
	return nil
}

// SnapshotCodec returns the rewind.Codec named by Config.Codec
func (c Config) SnapshotCodec() rewind.Codec {
	switch c.Codec {
	case CodecYAML:
		return rewind.YAMLCodec{}
	case CodecTOML:
		return rewind.TOMLCodec{}
	default:
		return rewind.JSONCodec{}
	}
}

// bindDefaults registers every leaf key so environment overrides are seen
// by Unmarshal even when no config file mentions them
func bindDefaults(v *viper.Viper, cfg Config) {
	defaults := map[string]any{
		"document":                          cfg.Document,
		"backend":                           cfg.Backend,
		"codec":                             cfg.Codec,
		"verbose":                           cfg.Verbose,
		"history.max_size":                  cfg.History.MaxSize,
		"history.throttle_window":           cfg.History.ThrottleWindow,
		"history.keep_future":               cfg.History.KeepFutureByDefault,
		"history.persistence.key":           cfg.History.Persistence.Key,
		"history.persistence.version":       cfg.History.Persistence.Version,
		"history.persistence.queue_size":    cfg.History.Persistence.QueueSize,
		"history.persistence.write_timeout": cfg.History.Persistence.WriteTimeout,
		"history.persistence.read_timeout":  cfg.History.Persistence.ReadTimeout,
		"file.dir":                          cfg.File.Dir,
		"bolt.path":                         cfg.Bolt.Path,
		"bolt.bucket":                       cfg.Bolt.Bucket,
		"bolt.open_timeout":                 cfg.Bolt.OpenTimeout,
		"badger.path":                       cfg.Badger.Path,
		"badger.prefix":                     cfg.Badger.Prefix,
		"badger.in_memory":                  cfg.Badger.InMemory,
		"badger.sync_writes":                cfg.Badger.SyncWrites,
		"sqlite.path":                       cfg.SQLite.Path,
		"sqlite.table":                      cfg.SQLite.Table,
		"redis.addr":                        cfg.Redis.Addr,
		"redis.password":                    cfg.Redis.Password,
		"redis.prefix":                      cfg.Redis.Prefix,
		"redis.db":                          cfg.Redis.DB,
		"postgres.dsn":                      cfg.Postgres.DSN,
		"postgres.table":                    cfg.Postgres.Table,
		"etcd.endpoints":                    cfg.Etcd.Endpoints,
		"etcd.prefix":                       cfg.Etcd.Prefix,
		"etcd.dial_timeout":                 cfg.Etcd.DialTimeout,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}
