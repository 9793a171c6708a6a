package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Shopping  ShoppingConfig  `mapstructure:"shopping"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	MetricsPort int    `mapstructure:"metrics_port"`
	Host        string `mapstructure:"host"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type ProvidersConfig struct {
	// Description provider: gemini, openai or anthropic.
	Provider string `mapstructure:"provider"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
}

type ShoppingConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	DailyLimit int    `mapstructure:"daily_limit"`
}

type CacheConfig struct {
	SearchTTL     time.Duration `mapstructure:"search_ttl"`
	SectionsTTL   time.Duration `mapstructure:"sections_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type RateLimitConfig struct {
	DefaultLimit int            `mapstructure:"default_limit"`
	Routes       map[string]int `mapstructure:"routes"`
}

var globalConfig Config

func Load(configPath string) error {
	if err := loadConfigFile(configPath, "config", &globalConfig); err != nil {
		return fmt.Errorf("could not load main config file: %w", err)
	}

	setDefaultValues()

	return nil
}

func loadConfigFile(configPath, fileName string, out interface{}) error {
	viper.SetConfigName(fileName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("config file %s.yaml not found, using only environment variables", fileName)
		}
		return fmt.Errorf("error reading config file %s.yaml: %w", fileName, err)
	}

	if err := viper.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to unmarshal %s config: %w", fileName, err)
	}

	return nil
}

func setDefaultValues() {
	if globalConfig.Server.Port == 0 {
		globalConfig.Server.Port = 8080
	}
	if globalConfig.Server.MetricsPort == 0 {
		globalConfig.Server.MetricsPort = 9090
	}
	if globalConfig.Shopping.BaseURL == "" {
		globalConfig.Shopping.BaseURL = "https://serpapi.com/search"
	}
	if globalConfig.Shopping.DailyLimit == 0 {
		globalConfig.Shopping.DailyLimit = 50
	}
	if globalConfig.Cache.SearchTTL == 0 {
		globalConfig.Cache.SearchTTL = 2 * time.Hour
	}
	if globalConfig.Cache.SectionsTTL == 0 {
		globalConfig.Cache.SectionsTTL = time.Hour
	}
	if globalConfig.Cache.SweepInterval == 0 {
		globalConfig.Cache.SweepInterval = 10 * time.Minute
	}
	if globalConfig.RateLimit.DefaultLimit == 0 {
		globalConfig.RateLimit.DefaultLimit = 120
	}
	if globalConfig.RateLimit.Routes == nil {
		globalConfig.RateLimit.Routes = DefaultRouteLimits()
	}
}

// DefaultRouteLimits is the per-minute admission table keyed by route
// prefix; the longest matching prefix wins.
func DefaultRouteLimits() map[string]int {
	return map[string]int{
		"/api/auth/login":           10,
		"/api/auth/register":        5,
		"/api/auth/":                20,
		"/api/search/":              60,
		"/api/chat/":                30,
		"/api/subscription/webhook": 100,
		"/api/":                     120,
	}
}

func GetConfig() *Config {
	return &globalConfig
}
