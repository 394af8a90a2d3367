// Package config loads the event bot configuration: the shared core settings
// plus storage, sessions, events and event-specific options.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	coreconfig "github.com/m3rciful/eventbot/core/config"
	coredatabase "github.com/m3rciful/eventbot/core/database"
	"github.com/m3rciful/eventbot/internal/storage"
)

// Event modes.
const (
	ModePreRelease = "pre-release"
	ModeRelease    = "release"
)

// Session backends.
const (
	SessionsMemory = "memory"
	SessionsRedis  = "redis"
)

// EventConfig describes the event itself.
type EventConfig struct {
	Mode string `yaml:"mode" envconfig:"EVENT_MODE" validate:"oneof=pre-release release"`
	// ContentFile overrides the embedded copy.
	ContentFile string `yaml:"content_file" envconfig:"EVENT_CONTENT_FILE"`
	// MediaDir is the base of relative media paths in the content file.
	MediaDir string `yaml:"media_dir" envconfig:"EVENT_MEDIA_DIR"`
	// SeedFile loads tours, roster and notifications into an empty store.
	SeedFile string `yaml:"seed_file" envconfig:"EVENT_SEED_FILE"`
	// QuestionsChatID receives user questions; defaults to the moderator.
	QuestionsChatID int64  `yaml:"questions_chat_id" envconfig:"EVENT_QUESTIONS_CHAT_ID"`
	Timezone        string `yaml:"timezone" envconfig:"EVENT_TIMEZONE" validate:"required"`
	PhoneRegion     string `yaml:"phone_region" envconfig:"EVENT_PHONE_REGION" validate:"len=2"`
}

// StorageConfig selects the document store driver.
type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"STORAGE_DRIVER" validate:"oneof=postgres mongo memory"`
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI            string `yaml:"uri" envconfig:"MONGO_URI"`
	Database       string `yaml:"database" envconfig:"MONGO_DATABASE"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"MONGO_TIMEOUT_SECONDS" validate:"gte=0"`
}

// SessionsConfig selects where dialogue sessions live.
type SessionsConfig struct {
	Backend       string `yaml:"backend" envconfig:"SESSIONS_BACKEND" validate:"oneof=memory redis"`
	RedisAddr     string `yaml:"redis_addr" envconfig:"REDIS_ADDR" validate:"required_if=Backend redis"`
	RedisPassword string `yaml:"redis_password" envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" envconfig:"REDIS_DB" validate:"gte=0"`
	Prefix        string `yaml:"prefix" envconfig:"SESSIONS_PREFIX"`
	// TTLSeconds expires idle sessions; zero keeps them.
	TTLSeconds int `yaml:"ttl_seconds" envconfig:"SESSIONS_TTL_SECONDS" validate:"gte=0"`
}

// EventsConfig enables booking events on RabbitMQ.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"EVENTS_ENABLED"`
	URL     string `yaml:"url" envconfig:"RABBITMQ_URL" validate:"required_if=Enabled true"`
	Queue   string `yaml:"queue" envconfig:"EVENTS_QUEUE"`
}

// SenderConfig tunes the outbound message queue.
type SenderConfig struct {
	QueueSize      int `yaml:"queue_size" validate:"gte=0"`
	Workers        int `yaml:"workers" validate:"gte=0"`
	MaxRetries     int `yaml:"max_retries" validate:"gte=0"`
	RetryBackoffMS int `yaml:"retry_backoff_ms" validate:"gte=0"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Event    EventConfig         `yaml:"event"`
	Storage  StorageConfig       `yaml:"storage"`
	Database coredatabase.Config `yaml:"database"`
	Mongo    MongoConfig         `yaml:"mongo"`
	Sessions SessionsConfig      `yaml:"sessions"`
	Events   EventsConfig        `yaml:"events"`
	Sender   SenderConfig        `yaml:"sender"`
}

// CoreConfig exposes the shared core settings.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// Load reads path, overlays the environment and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize applies defaults and validates every section.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	c.applyDefaults()
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.LoadLocation(c.Event.Timezone); err != nil {
		return fmt.Errorf("invalid event.timezone %q: %w", c.Event.Timezone, err)
	}
	switch c.Storage.Driver {
	case storage.DriverPostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("database.host and database.name are required for the postgres driver")
		}
	case storage.DriverMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("mongo.uri is required for the mongo driver")
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.Event.Mode = strings.ToLower(strings.TrimSpace(c.Event.Mode))
	if c.Event.Mode == "" {
		c.Event.Mode = ModeRelease
	}
	if c.Event.Timezone == "" {
		c.Event.Timezone = "Europe/Moscow"
	}
	if c.Event.PhoneRegion == "" {
		c.Event.PhoneRegion = "RU"
	}
	c.Event.PhoneRegion = strings.ToUpper(c.Event.PhoneRegion)
	if c.Event.QuestionsChatID == 0 {
		c.Event.QuestionsChatID = c.Telegram.AdminID
	}
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Storage.Driver == "" {
		c.Storage.Driver = storage.DriverMemory
	}
	if c.Database.Port == "" {
		c.Database.Port = "5432"
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "eventbot"
	}
	c.Sessions.Backend = strings.ToLower(strings.TrimSpace(c.Sessions.Backend))
	if c.Sessions.Backend == "" {
		c.Sessions.Backend = SessionsMemory
	}
	if c.Sessions.Prefix == "" {
		c.Sessions.Prefix = "eventbot:session"
	}
}

// Location returns the event timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Event.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Release reports whether the full menu with tours is enabled.
func (c *Config) Release() bool {
	return c.Event.Mode == ModeRelease
}

// SessionTTL returns the configured session expiry.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Sessions.TTLSeconds) * time.Second
}
