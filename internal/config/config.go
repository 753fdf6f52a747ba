package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/dkeye/chatrelay/internal/domain"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	LogLevel   string        `mapstructure:"log_level"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	SendBuffer int           `mapstructure:"send_buffer"`
	Rooms      []string      `mapstructure:"rooms"`

	Store       StoreConfig       `mapstructure:"store"`
	Media       MediaConfig       `mapstructure:"media"`
	ObjectStore ObjectStoreConfig `mapstructure:"objectstore"`
	Shortener   ShortenerConfig   `mapstructure:"shortener"`
	Presence    PresenceConfig    `mapstructure:"presence"`
	Rate        RateConfig        `mapstructure:"rate"`
}

type StoreConfig struct {
	Driver   string        `mapstructure:"driver"`
	DSN      string        `mapstructure:"dsn"`
	Database string        `mapstructure:"database"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type MediaConfig struct {
	TempDir        string        `mapstructure:"temp_dir"`
	MaxBytes       int64         `mapstructure:"max_bytes"`
	KeyPrefix      string        `mapstructure:"key_prefix"`
	PublicBaseURL  string        `mapstructure:"public_base_url"`
	UploadTimeout  time.Duration `mapstructure:"upload_timeout"`
	ShortenTimeout time.Duration `mapstructure:"shorten_timeout"`
}

type ObjectStoreConfig struct {
	NatsURL string `mapstructure:"nats_url"`
	Bucket  string `mapstructure:"bucket"`
}

type ShortenerConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

type PresenceConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type RateConfig struct {
	Limit    int           `mapstructure:"limit"`
	Interval time.Duration `mapstructure:"interval"`
	// RedisURL shares windows across instances, keyed by client address.
	RedisURL string `mapstructure:"redis_url"`
}

// RoomNames returns the configured seed list as domain names.
func (c *Config) RoomNames() []domain.RoomName {
	out := make([]domain.RoomName, 0, len(c.Rooms))
	for _, r := range c.Rooms {
		out = append(out, domain.RoomName(r))
	}
	return out
}

// WSReadLimit is the largest WebSocket frame accepted. Attachments travel
// base64 encoded inside a JSON event, so the limit follows media.max_bytes
// unless set explicitly.
func (c *Config) WSReadLimit() int64 {
	if c.ReadLimit > 0 {
		return c.ReadLimit
	}
	return c.Media.MaxBytes/3*4 + 64<<10
}

func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFile reads fileName over the defaults; a missing file is not an error.
// Every key can be overridden with CHATRELAY_<KEY>, dots become underscores.
func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	v.SetEnvPrefix("CHATRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 3000)
	v.SetDefault("log_level", "info")
	v.SetDefault("read_limit", 0)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("send_buffer", 64)
	rooms := make([]string, 0, len(domain.SeoulDistricts))
	for _, r := range domain.SeoulDistricts {
		rooms = append(rooms, string(r))
	}
	v.SetDefault("rooms", rooms)

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.database", "chat")
	v.SetDefault("store.timeout", "5s")

	v.SetDefault("media.temp_dir", os.TempDir())
	v.SetDefault("media.max_bytes", 200<<20)
	v.SetDefault("media.key_prefix", "chat")
	v.SetDefault("media.public_base_url", "http://localhost:3000/media")
	v.SetDefault("media.upload_timeout", "2m")
	v.SetDefault("media.shorten_timeout", "5s")

	v.SetDefault("objectstore.nats_url", "nats://127.0.0.1:4222")
	v.SetDefault("objectstore.bucket", "chat-attachments")

	v.SetDefault("shortener.endpoint", "")

	v.SetDefault("presence.interval", "1m")

	v.SetDefault("rate.limit", 20)
	v.SetDefault("rate.interval", "10s")
	v.SetDefault("rate.redis_url", "")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Media.MaxBytes <= 0 {
		return nil, fmt.Errorf("media.max_bytes must be positive, got %d", cfg.Media.MaxBytes)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("store", cfg.Store.Driver).Msg("config ready")
	return &cfg, nil
}
