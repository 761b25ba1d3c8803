package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	Redis         RedisConfig         `yaml:"redis"`
	NATS          NATSConfig          `yaml:"nats"`
	Discord       DiscordConfig       `yaml:"discord"`
	HTTP          HTTPConfig          `yaml:"http"`
	JWT           JWTConfig           `yaml:"jwt"`
	Queue         QueueConfig         `yaml:"queue"`
	Counting      CountingConfig      `yaml:"counting"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig holds Redis configuration. An empty URL selects the in-process
// cache.
type RedisConfig struct {
	URL       string `yaml:"url"`
	KeyPrefix string `yaml:"key_prefix"`
}

// NATSConfig holds NATS configuration. An empty URL selects the in-process bus.
type NATSConfig struct {
	URL        string `yaml:"url"`
	QueueGroup string `yaml:"queue_group"`
}

// DiscordConfig holds Discord configuration. Without a token, outbound
// effects are published on the bus for a separate gateway worker.
type DiscordConfig struct {
	Token string `yaml:"token"`
}

// HTTPConfig holds the operator API listener.
type HTTPConfig struct {
	Address   string  `yaml:"address"`
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	Issuer     string        `yaml:"issuer"`
	DefaultTTL time.Duration `yaml:"default_ttl"`
}

// QueueConfig toggles the River job queue.
type QueueConfig struct {
	Enabled bool `yaml:"enabled"`
}

// CountingConfig holds engine tunables.
type CountingConfig struct {
	StateCacheTTL    time.Duration `yaml:"state_cache_ttl"`
	SettingsCacheTTL time.Duration `yaml:"settings_cache_ttl"`
	StatsCacheTTL    time.Duration `yaml:"stats_cache_ttl"`
	BanCacheTTL      time.Duration `yaml:"ban_cache_ttl"`
	DeleteDelay      time.Duration `yaml:"delete_delay"`
	EditHintWindow   time.Duration `yaml:"edit_hint_window"`
	LaneIdleTimeout  time.Duration `yaml:"lane_idle_timeout"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	ServiceName string `yaml:"service_name"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(filename string) (*Config, error) {
	// Try reading configuration from the file first
	data, err := os.ReadFile(filename)
	if err != nil {
		// If the file is not found, try loading from environment variables
		return loadConfigFromEnv()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// --- OVERRIDE WITH ENV VARS IF PRESENT ---
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("postgres.dsn is required")
	}
	return &cfg, nil
}

// loadConfigFromEnv loads the configuration from environment variables.
func loadConfigFromEnv() (*Config, error) {
	var cfg Config

	cfg.Postgres.DSN = os.Getenv("DATABASE_URL")
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setString(&cfg.Redis.URL, "REDIS_URL")
	setString(&cfg.Redis.KeyPrefix, "REDIS_KEY_PREFIX")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.QueueGroup, "NATS_QUEUE_GROUP")
	setString(&cfg.Discord.Token, "DISCORD_TOKEN")
	setString(&cfg.HTTP.Address, "HTTP_ADDRESS")
	setString(&cfg.JWT.Secret, "JWT_SECRET")
	setString(&cfg.JWT.Issuer, "JWT_ISSUER")
	setString(&cfg.Observability.ServiceName, "SERVICE_NAME")
	setString(&cfg.Observability.Environment, "ENV")
	setString(&cfg.Observability.LogLevel, "LOG_LEVEL")

	if v := os.Getenv("QUEUE_ENABLED"); v != "" {
		cfg.Queue.Enabled = v == "true"
	}
	if v := os.Getenv("HTTP_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid HTTP_RATE_LIMIT value: %w", err)
		}
		cfg.HTTP.RateLimit = f
	}
	if v := os.Getenv("HTTP_RATE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid HTTP_RATE_BURST value: %w", err)
		}
		cfg.HTTP.RateBurst = n
	}

	durations := []struct {
		env string
		dst *time.Duration
	}{
		{"JWT_DEFAULT_TTL", &cfg.JWT.DefaultTTL},
		{"COUNTING_STATE_CACHE_TTL", &cfg.Counting.StateCacheTTL},
		{"COUNTING_SETTINGS_CACHE_TTL", &cfg.Counting.SettingsCacheTTL},
		{"COUNTING_STATS_CACHE_TTL", &cfg.Counting.StatsCacheTTL},
		{"COUNTING_BAN_CACHE_TTL", &cfg.Counting.BanCacheTTL},
		{"COUNTING_DELETE_DELAY", &cfg.Counting.DeleteDelay},
		{"COUNTING_EDIT_HINT_WINDOW", &cfg.Counting.EditHintWindow},
		{"COUNTING_LANE_IDLE_TIMEOUT", &cfg.Counting.LaneIdleTimeout},
		{"COUNTING_SNAPSHOT_INTERVAL", &cfg.Counting.SnapshotInterval},
	}
	for _, d := range durations {
		v := os.Getenv(d.env)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s value: %w", d.env, err)
		}
		*d.dst = parsed
	}
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "counting-bot:"
	}
	if c.NATS.QueueGroup == "" {
		c.NATS.QueueGroup = "counting-bot"
	}
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.HTTP.RateLimit == 0 {
		c.HTTP.RateLimit = 5
	}
	if c.HTTP.RateBurst == 0 {
		c.HTTP.RateBurst = 10
	}
	if c.JWT.DefaultTTL == 0 {
		c.JWT.DefaultTTL = 24 * time.Hour
	}
	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = "counting-bot"
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = "production"
	}
	if c.Observability.LogLevel == "" {
		c.Observability.LogLevel = "info"
	}

	cc := &c.Counting
	setDuration(&cc.StateCacheTTL, 5*time.Minute)
	setDuration(&cc.SettingsCacheTTL, 10*time.Minute)
	setDuration(&cc.StatsCacheTTL, time.Minute)
	setDuration(&cc.BanCacheTTL, 5*time.Minute)
	setDuration(&cc.DeleteDelay, 5*time.Second)
	setDuration(&cc.EditHintWindow, 10*time.Second)
	setDuration(&cc.LaneIdleTimeout, 10*time.Minute)
	setDuration(&cc.SnapshotInterval, 24*time.Hour)
}

func setDuration(dst *time.Duration, def time.Duration) {
	if *dst == 0 {
		*dst = def
	}
}
