// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/tender-crawler/internal/logging"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Cache     CacheConfig     `mapstructure:"cache"`
	DB        DBConfig        `mapstructure:"db"`
	Logging   logging.Config  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	// RequestTimeout bounds one HTTP request, crawl included; 0 disables it.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// CrawlerConfig governs fetching and batching.
type CrawlerConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Width          int           `mapstructure:"width"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	MaxLimit       int           `mapstructure:"max_limit"`
	DefaultLimit   int           `mapstructure:"default_limit"`
	// RateLimitRPS paces page fetches; 0 disables pacing.
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

// ExtractorConfig holds the markup contract for listing rows.
type ExtractorConfig struct {
	Origin        string `mapstructure:"origin"`
	Row           string `mapstructure:"row"`
	Cell          string `mapstructure:"cell"`
	TitleAnchor   string `mapstructure:"title_anchor"`
	Category      string `mapstructure:"category"`
	Description   string `mapstructure:"description"`
	CompanyAnchor string `mapstructure:"company_anchor"`
}

// CacheConfig enables the Redis result cache when RedisAddr is set.
type CacheConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
	Prefix        string        `mapstructure:"prefix"`
}

// DBConfig controls the Postgres sink.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TENDERS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.request_timeout", "120s")
	v.SetDefault("crawler.base_url", "https://www.b2b-center.ru/market")
	v.SetDefault("crawler.width", 5)
	v.SetDefault("crawler.request_timeout", "10s")
	v.SetDefault("crawler.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	v.SetDefault("crawler.max_limit", 1000)
	v.SetDefault("crawler.default_limit", 100)
	v.SetDefault("crawler.rate_limit_rps", 0)
	v.SetDefault("crawler.rate_limit_burst", 5)
	v.SetDefault("extractor.origin", "https://www.b2b-center.ru")
	v.SetDefault("extractor.row", "tr")
	v.SetDefault("extractor.cell", "td")
	v.SetDefault("extractor.title_anchor", "a.search-results-title")
	v.SetDefault("extractor.category", "small")
	v.SetDefault("extractor.description", "div.search-results-title-desc")
	v.SetDefault("extractor.company_anchor", "a")
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.prefix", "tenders")
	v.SetDefault("db.table", "tenders")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeout < 0 {
		return fmt.Errorf("server.request_timeout must be >= 0")
	}
	if c.Crawler.Width <= 0 {
		return fmt.Errorf("crawler.width must be > 0")
	}
	if c.Crawler.RequestTimeout <= 0 {
		return fmt.Errorf("crawler.request_timeout must be > 0")
	}
	if c.Crawler.MaxLimit <= 0 {
		return fmt.Errorf("crawler.max_limit must be > 0")
	}
	if c.Crawler.DefaultLimit < 0 || c.Crawler.DefaultLimit > c.Crawler.MaxLimit {
		return fmt.Errorf("crawler.default_limit must be between 0 and crawler.max_limit")
	}
	if c.Crawler.RateLimitRPS < 0 {
		return fmt.Errorf("crawler.rate_limit_rps must be >= 0")
	}
	if u, err := url.Parse(c.Crawler.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("crawler.base_url must be an absolute URL")
	}
	if c.Extractor.Row == "" || c.Extractor.Cell == "" || c.Extractor.TitleAnchor == "" {
		return fmt.Errorf("extractor.row, extractor.cell and extractor.title_anchor are required")
	}
	if c.Cache.RedisAddr != "" && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be > 0 when the cache is enabled")
	}
	return nil
}
