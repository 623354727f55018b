package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// defaultSummaryTimeoutSecs applies when SUMMARY_TIMEOUT_SECONDS is not positive.
const defaultSummaryTimeoutSecs = 20

// Config stores all configuration for the application.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`
	LogFile    string `mapstructure:"LOG_FILE"`

	UseBedrock          bool    `mapstructure:"USE_BEDROCK"`
	BedrockModelID      string  `mapstructure:"BEDROCK_MODEL_ID"`
	AWSRegion           string  `mapstructure:"AWS_REGION"`
	SummaryTimeoutSecs  int     `mapstructure:"SUMMARY_TIMEOUT_SECONDS"`
	IncludeImagesForLLM bool    `mapstructure:"INCLUDE_IMAGES_FOR_LLM"`
	VisualWeight        float64 `mapstructure:"VISUAL_WEIGHT"`
	VisualBlend         bool    `mapstructure:"VISUAL_BLEND"`
	ScoringStrategy     string  `mapstructure:"SCORING_STRATEGY"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	CacheTTLHours int    `mapstructure:"CACHE_TTL_HOURS"`

	MaxConcurrency      int  `mapstructure:"MAX_CONCURRENCY"`
	CaptureEnabled      bool `mapstructure:"CAPTURE_ENABLED"`
	PageLoadTimeoutSecs int  `mapstructure:"PAGE_LOAD_TIMEOUT_SECONDS"`
}

var defaults = map[string]any{
	"SERVER_PORT":               "8080",
	"LOG_LEVEL":                 "info",
	"LOG_FILE":                  "",
	"USE_BEDROCK":               false,
	"BEDROCK_MODEL_ID":          "anthropic.claude-3-5-sonnet-20240620-v1:0",
	"AWS_REGION":                "us-west-2",
	"SUMMARY_TIMEOUT_SECONDS":   defaultSummaryTimeoutSecs,
	"INCLUDE_IMAGES_FOR_LLM":    false,
	"VISUAL_WEIGHT":             0.3,
	"VISUAL_BLEND":              false,
	"SCORING_STRATEGY":          "goal",
	"REDIS_ADDR":                "localhost:6379",
	"REDIS_PASSWORD":            "",
	"REDIS_DB":                  0,
	"CACHE_TTL_HOURS":           24,
	"MAX_CONCURRENCY":           4,
	"CAPTURE_ENABLED":           false,
	"PAGE_LOAD_TIMEOUT_SECONDS": 60,
}

// Load reads configuration from an optional .env file and environment variables.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit env file path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Attempt to read the .env file, but don't fail if it's not present
	// This allows configuration purely through environment variables in production
	_ = v.ReadInConfig()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if _, err := cfg.SlogLevel(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SummaryTimeout bounds one external summarizer call.
func (c *Config) SummaryTimeout() time.Duration {
	if c.SummaryTimeoutSecs <= 0 {
		return defaultSummaryTimeoutSecs * time.Second
	}
	return time.Duration(c.SummaryTimeoutSecs) * time.Second
}

// CacheTTL is the lifetime of job payloads, results and failure records.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// PageLoadTimeout bounds a single page capture.
func (c *Config) PageLoadTimeout() time.Duration {
	return time.Duration(c.PageLoadTimeoutSecs) * time.Second
}

// SlogLevel parses LOG_LEVEL.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}
