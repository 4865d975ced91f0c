package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ModeFanout   = "fanout"
	ModePipeline = "pipeline"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	VisitedMemory = "memory"
	VisitedRedis  = "redis"
)

// Config holds all configuration for the application
type Config struct {
	Crawler CrawlerConfig `mapstructure:"crawler"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Storage StorageConfig `mapstructure:"storage"`
	Visited VisitedConfig `mapstructure:"visited"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
}

// CrawlerConfig holds the crawl shape and concurrency settings
type CrawlerConfig struct {
	BaseURL        string   `mapstructure:"base_url"`
	Seeds          []string `mapstructure:"seeds"`
	MaxPages       int      `mapstructure:"max_pages"`
	MaxConcurrency int      `mapstructure:"max_concurrency"`
	Mode           string   `mapstructure:"mode"`

	// Pipeline mode only
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

// HTTPConfig holds API client and retry settings
type HTTPConfig struct {
	Timeout            time.Duration `mapstructure:"timeout"`
	UserAgent          string        `mapstructure:"user_agent"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	Proxies            []string      `mapstructure:"proxies"`

	MaxAttempts     int           `mapstructure:"max_attempts"`
	RetryBaseDelay  time.Duration `mapstructure:"retry_base_delay"`
	RetryMaxDelay   time.Duration `mapstructure:"retry_max_delay"`
	RetryMultiplier float64       `mapstructure:"retry_multiplier"`
}

// StorageConfig holds the image record database and image sink settings
type StorageConfig struct {
	Driver     string         `mapstructure:"driver"`
	SQLitePath string         `mapstructure:"sqlite_path"`
	Postgres   PostgresConfig `mapstructure:"postgres"`

	// ImagesDir is used when ImagesURL is empty.
	ImagesDir string `mapstructure:"images_dir"`
	// ImagesURL is a gocloud blob URL, e.g. "mem://" or "file:///var/images".
	ImagesURL string `mapstructure:"images_url"`
	ImageExt  string `mapstructure:"image_ext"`
}

// PostgresConfig holds database connection details
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Name, p.SSLMode)
}

// VisitedConfig selects the backend of the visited category set
type VisitedConfig struct {
	Backend string      `mapstructure:"backend"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database"`
	Key      string `mapstructure:"key"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type MetricsConfig struct {
	// ListenAddr enables the /metrics endpoint when non-empty.
	ListenAddr string `mapstructure:"listen_addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads configuration from a YAML file with environment variable overrides.
// An empty path looks for config.yaml in the current directory; a missing
// default file is not an error.
func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate normalizes out-of-range values and rejects unknown enum values.
func (c *Config) Validate() error {
	if c.Crawler.BaseURL == "" {
		return errors.New("crawler.base_url must not be empty")
	}
	c.Crawler.BaseURL = strings.TrimRight(c.Crawler.BaseURL, "/")

	if len(c.Crawler.Seeds) == 0 {
		return errors.New("crawler.seeds must name at least one category")
	}
	if c.Crawler.MaxPages < 1 {
		c.Crawler.MaxPages = 1
	}
	if c.Crawler.MaxConcurrency < 1 {
		c.Crawler.MaxConcurrency = 1
	}
	if c.Crawler.Workers < 1 {
		c.Crawler.Workers = 1
	}
	if c.Crawler.QueueSize < 1 {
		c.Crawler.QueueSize = 1
	}

	switch c.Crawler.Mode {
	case ModeFanout, ModePipeline:
	default:
		return fmt.Errorf("crawler.mode: unknown mode %q", c.Crawler.Mode)
	}

	switch c.Storage.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}

	switch c.Visited.Backend {
	case VisitedMemory, VisitedRedis:
	default:
		return fmt.Errorf("visited.backend: unknown backend %q", c.Visited.Backend)
	}

	if c.HTTP.MaxAttempts < 1 {
		c.HTTP.MaxAttempts = 1
	}
	if c.HTTP.RetryMultiplier < 1 {
		c.HTTP.RetryMultiplier = 1
	}
	if c.Storage.ImageExt == "" {
		c.Storage.ImageExt = ".jpg"
	}
	if !strings.HasPrefix(c.Storage.ImageExt, ".") {
		c.Storage.ImageExt = "." + c.Storage.ImageExt
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("crawler.base_url", "https://api.digikala.com")
	viper.SetDefault("crawler.seeds", []string{"vehicles-spare-parts"})
	viper.SetDefault("crawler.max_pages", 1)
	viper.SetDefault("crawler.max_concurrency", 10)
	viper.SetDefault("crawler.mode", ModeFanout)
	viper.SetDefault("crawler.workers", 5)
	viper.SetDefault("crawler.queue_size", 100)

	viper.SetDefault("http.timeout", 30*time.Second)
	viper.SetDefault("http.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	viper.SetDefault("http.insecure_skip_verify", false)
	viper.SetDefault("http.max_attempts", 5)
	viper.SetDefault("http.retry_base_delay", 4*time.Second)
	viper.SetDefault("http.retry_max_delay", 10*time.Second)
	viper.SetDefault("http.retry_multiplier", 2.0)

	viper.SetDefault("storage.driver", DriverSQLite)
	viper.SetDefault("storage.sqlite_path", "images.db")
	viper.SetDefault("storage.images_dir", "images")
	viper.SetDefault("storage.images_url", "")
	viper.SetDefault("storage.image_ext", ".jpg")
	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", 5432)
	viper.SetDefault("storage.postgres.name", "crawler")
	viper.SetDefault("storage.postgres.user", "crawler")
	viper.SetDefault("storage.postgres.password", "crawler")
	viper.SetDefault("storage.postgres.sslmode", "disable")

	viper.SetDefault("visited.backend", VisitedMemory)
	viper.SetDefault("visited.redis.host", "localhost")
	viper.SetDefault("visited.redis.port", 6379)
	viper.SetDefault("visited.redis.password", "")
	viper.SetDefault("visited.redis.database", 0)
	viper.SetDefault("visited.redis.key", "crawler:visited:categories")

	viper.SetDefault("metrics.listen_addr", "")
	viper.SetDefault("log.level", "info")
}
