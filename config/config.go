package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Log           Logger              `mapstructure:"logger"`
	API           API                 `mapstructure:"api"`
	KV            KV                  `mapstructure:"kv"`
	Cache         Cache               `mapstructure:"cache"`
	Scheduler     Scheduler           `mapstructure:"scheduler"`
	Analysis      Analysis            `mapstructure:"analysis"`
	Twitter       TwitterConfig       `mapstructure:"twitter"`
	Gemini        GeminiConfig        `mapstructure:"gemini"`
	Equities      EquitiesConfig      `mapstructure:"equities"`
	GeckoTerminal GeckoTerminalConfig `mapstructure:"geckoterminal"`
	CoinGecko     CoinGeckoConfig     `mapstructure:"coingecko"`
	DexScreener   DexScreenerConfig   `mapstructure:"dexscreener"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type API struct {
	Port int `mapstructure:"port"`
}

type KV struct {
	Driver string `mapstructure:"driver"` // memory | sqlite
	Path   string `mapstructure:"path"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

type Scheduler struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	MaxConcurrency  int           `mapstructure:"max_concurrency"`
	TimeoutDuration time.Duration `mapstructure:"timeout_duration"`
}

type Analysis struct {
	// NeutralThreshold is the absolute performance band (in percent)
	// inside which a call counts as neither win nor loss.
	NeutralThreshold float64       `mapstructure:"neutral_threshold"`
	ConfidenceFloor  float64       `mapstructure:"confidence_floor"`
	FeedSize         int           `mapstructure:"feed_size"`
	HistorySize      int           `mapstructure:"history_size"`
	MarketContextTTL time.Duration `mapstructure:"market_context_ttl"`
}

type TwitterConfig struct {
	BaseURL             string        `mapstructure:"base_url"`
	BearerToken         string        `mapstructure:"bearer_token"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
}

type GeminiConfig struct {
	BaseURL             string        `mapstructure:"base_url"`
	APIKey              string        `mapstructure:"api_key"`
	BaseModel           string        `mapstructure:"base_model"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int           `mapstructure:"max_token_per_minute"`
}

type EquitiesConfig struct {
	BaseURL             string        `mapstructure:"base_url"`
	APIKey              string        `mapstructure:"api_key"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	BarResolution       string        `mapstructure:"bar_resolution"`
	BarWindow           time.Duration `mapstructure:"bar_window"`
}

type CoinGeckoConfig struct {
	BaseURL             string        `mapstructure:"base_url"`
	APIKey              string        `mapstructure:"api_key"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
}

type GeckoTerminalConfig struct {
	BaseURL             string        `mapstructure:"base_url"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
}

type DexScreenerConfig struct {
	BaseURL             string        `mapstructure:"base_url"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
}

func Load() (*Config, error) {
	viper.SetConfigType("yaml")
	viper.SetConfigName("config")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		fmt.Println("No config file loaded:", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "json")

	viper.SetDefault("api.port", 8080)

	viper.SetDefault("kv.driver", "sqlite")
	viper.SetDefault("kv.path", "calltracker.db")

	viper.SetDefault("cache.default_expiration", 5*time.Minute)
	viper.SetDefault("cache.cleanup_interval", 10*time.Minute)

	viper.SetDefault("scheduler.refresh_interval", 15*time.Minute)
	viper.SetDefault("scheduler.max_concurrency", 4)
	viper.SetDefault("scheduler.timeout_duration", 10*time.Minute)

	viper.SetDefault("analysis.neutral_threshold", 0.05)
	viper.SetDefault("analysis.confidence_floor", 0.5)
	viper.SetDefault("analysis.feed_size", 50)
	viper.SetDefault("analysis.history_size", 100)
	viper.SetDefault("analysis.market_context_ttl", 2*time.Minute)

	viper.SetDefault("twitter.base_url", "https://api.twitter.com/2")
	viper.SetDefault("twitter.timeout", 15*time.Second)
	viper.SetDefault("twitter.max_request_per_minute", 60)

	viper.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta/models")
	viper.SetDefault("gemini.base_model", "gemini-2.0-flash")
	viper.SetDefault("gemini.timeout", 60*time.Second)
	viper.SetDefault("gemini.max_request_per_minute", 15)
	viper.SetDefault("gemini.max_token_per_minute", 1000000)

	viper.SetDefault("equities.base_url", "https://finnhub.io/api/v1")
	viper.SetDefault("equities.timeout", 15*time.Second)
	viper.SetDefault("equities.max_request_per_minute", 60)
	viper.SetDefault("equities.bar_resolution", "5")
	viper.SetDefault("equities.bar_window", 72*time.Hour)

	viper.SetDefault("coingecko.base_url", "https://api.coingecko.com/api/v3")
	viper.SetDefault("coingecko.timeout", 15*time.Second)
	viper.SetDefault("coingecko.max_request_per_minute", 30)

	viper.SetDefault("geckoterminal.base_url", "https://api.geckoterminal.com/api/v2")
	viper.SetDefault("geckoterminal.timeout", 15*time.Second)
	viper.SetDefault("geckoterminal.max_request_per_minute", 30)

	viper.SetDefault("dexscreener.base_url", "https://api.dexscreener.com")
	viper.SetDefault("dexscreener.timeout", 15*time.Second)
	viper.SetDefault("dexscreener.max_request_per_minute", 60)
}
