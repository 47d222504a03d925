package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/services"
	"github.com/Bjohan23/SDN-STAFF-sub000/internal/platform/database"
)

// EnvPrefix marks the environment overrides; "__" separates nested keys, so
// STANDS_DATABASE__HOST sets database.host.
const EnvPrefix = "STANDS_"

type Config struct {
	Server   ServerConfig          `json:"server"`
	Storage  StorageConfig         `json:"storage"`
	Database database.Config       `json:"database"`
	Redis    RedisConfig           `json:"redis"`
	Kafka    KafkaConfig           `json:"kafka"`
	Scoring  services.ScoreWeights `json:"scoring"`
	Matching services.MatchWeights `json:"matching"`
	Sweep    SweepConfig           `json:"sweep"`
	Log      LogConfig             `json:"log"`
}

type ServerConfig struct {
	Addr            string        `json:"addr"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	RequestTimeout  time.Duration `json:"request_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

func (c *ServerConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 5 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 120 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

type StorageConfig struct {
	Driver string `json:"driver"`
	// Migrate applies the embedded schema on startup when the driver is postgres.
	Migrate bool `json:"migrate"`
	// Seed is a YAML file of events, companies and stands loaded into the
	// memory driver.
	Seed string `json:"seed"`
}

func (c *StorageConfig) SetDefaults() {
	if c.Driver == "" {
		c.Driver = DriverPostgres
	}
}

func (c StorageConfig) Validate() error {
	switch c.Driver {
	case DriverMemory, DriverPostgres:
		return nil
	}

	return fmt.Errorf("storage.driver must be %q or %q, got %q", DriverMemory, DriverPostgres, c.Driver)
}

type RedisConfig struct {
	Enabled     bool          `json:"enabled"`
	Addr        string        `json:"addr"`
	Password    string        `json:"password"`
	DB          int           `json:"db"`
	LockTTL     time.Duration `json:"lock_ttl"`
	LockWait    time.Duration `json:"lock_wait"`
	CacheTTL    time.Duration `json:"cache_ttl"`
	DialTimeout time.Duration `json:"dial_timeout"`
}

func (c *RedisConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.LockTTL == 0 {
		c.LockTTL = 10 * time.Second
	}
	if c.LockWait == 0 {
		c.LockWait = 5 * time.Second
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = time.Minute
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
}

type KafkaConfig struct {
	Enabled      bool          `json:"enabled"`
	Brokers      []string      `json:"brokers"`
	Topic        string        `json:"topic"`
	MaxAttempts  int           `json:"max_attempts"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

func (c *KafkaConfig) SetDefaults() {
	if c.Topic == "" {
		c.Topic = "stand-assignment-events"
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
}

func (c KafkaConfig) Validate() error {
	if c.Enabled && len(c.Brokers) == 0 {
		return errors.New("kafka.brokers is required when kafka is enabled")
	}

	return nil
}

type SweepConfig struct {
	Enabled  bool          `json:"enabled"`
	Interval time.Duration `json:"interval"`
}

func (c *SweepConfig) SetDefaults() {
	if c.Interval == 0 {
		c.Interval = time.Minute
	}
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

func (c *LogConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "json"
	}
}

func (c LogConfig) Validate() error {
	switch c.Format {
	case "json", "console":
		return nil
	}

	return fmt.Errorf("log.format must be json or console, got %q", c.Format)
}

func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.Storage.SetDefaults()
	c.Redis.SetDefaults()
	c.Kafka.SetDefaults()
	c.Sweep.SetDefaults()
	c.Log.SetDefaults()

	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == "" {
		c.Database.Port = "5432"
	}
	if c.Database.User == "" {
		c.Database.User = "postgres"
	}
	if c.Database.DBName == "" {
		c.Database.DBName = "stand_assignment"
	}

	if c.Scoring == (services.ScoreWeights{}) {
		c.Scoring = services.DefaultScoreWeights()
	}
	if c.Matching == (services.MatchWeights{}) {
		c.Matching = services.DefaultMatchWeights()
	}
}

func (c Config) Validate() error {
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Kafka.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if err := c.Matching.Validate(); err != nil {
		return fmt.Errorf("matching: %w", err)
	}

	return nil
}

// Load reads .env (if present), then the optional YAML file at path, then
// STANDS_ environment overrides, and returns the defaulted, validated config.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}

		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}
