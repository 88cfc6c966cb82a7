package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Browser    BrowserConfig    `yaml:"browser" mapstructure:"browser"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Crawl      CrawlConfig      `yaml:"crawl" mapstructure:"crawl"`
	Agent      AgentConfig      `yaml:"agent" mapstructure:"agent"`
	People     PeopleConfig     `yaml:"people" mapstructure:"people"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// BrowserConfig configures the headless Chrome instance.
type BrowserConfig struct {
	Bin              string `yaml:"bin" mapstructure:"bin"`
	Headless         bool   `yaml:"headless" mapstructure:"headless"`
	NavTimeoutSecs   int    `yaml:"nav_timeout_secs" mapstructure:"nav_timeout_secs"`
	StabilizeDelayMS int    `yaml:"stabilize_delay_ms" mapstructure:"stabilize_delay_ms"`
	UserAgent        string `yaml:"user_agent" mapstructure:"user_agent"`
}

// SearchConfig configures the web search client.
type SearchConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	MaxResults        int     `yaml:"max_results" mapstructure:"max_results"`
}

// CrawlConfig configures the site crawler.
type CrawlConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// AgentConfig configures the lead-generation agent loop.
type AgentConfig struct {
	MaxIterations      int    `yaml:"max_iterations" mapstructure:"max_iterations"`
	PausePollSecs      int    `yaml:"pause_poll_secs" mapstructure:"pause_poll_secs"`
	FlushIntervalSecs  int    `yaml:"flush_interval_secs" mapstructure:"flush_interval_secs"`
	FlushThreshold     int    `yaml:"flush_threshold" mapstructure:"flush_threshold"`
	DefaultCountryCode string `yaml:"default_country_code" mapstructure:"default_country_code"`
}

// PeopleConfig configures the people-enrichment pass.
type PeopleConfig struct {
	MaxCandidates   int `yaml:"max_candidates" mapstructure:"max_candidates"`
	PagesPerCompany int `yaml:"pages_per_company" mapstructure:"pages_per_company"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// ServerConfig configures the job polling API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leadgen.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.nav_timeout_secs", 20)
	v.SetDefault("browser.stabilize_delay_ms", 1500)
	v.SetDefault("search.requests_per_second", 0.5)
	v.SetDefault("search.max_results", 10)
	v.SetDefault("crawl.requests_per_second", 2.0)
	v.SetDefault("agent.max_iterations", 25)
	v.SetDefault("agent.pause_poll_secs", 3)
	v.SetDefault("agent.flush_interval_secs", 5)
	v.SetDefault("agent.flush_threshold", 10)
	v.SetDefault("agent.default_country_code", "+1")
	v.SetDefault("people.max_candidates", 25)
	v.SetDefault("people.pages_per_company", 3)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
