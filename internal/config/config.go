package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/edgeval/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig              `mapstructure:"server"`
	Collectors CollectorsConfig          `mapstructure:"collectors"`
	Validation ValidationConfig          `mapstructure:"validation"`
	Strategies map[string]StrategyConfig `mapstructure:"strategies"`
	Storage    StorageConfig             `mapstructure:"storage"`
	LLM        LLMConfig                 `mapstructure:"llm"`
	Notifiers  map[string]NotifierConfig `mapstructure:"notifiers"`
	Metrics    MetricsConfig             `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	APIKey      string `mapstructure:"api_key"`
	JobTTLHours int    `mapstructure:"job_ttl_hours"`
	MaxJobs     int    `mapstructure:"max_jobs"`
}

type CollectorsConfig struct {
	Default string      `mapstructure:"default"` // "yahoo" or "csv"
	Yahoo   YahooConfig `mapstructure:"yahoo"`
	CSV     CSVConfig   `mapstructure:"csv"`
}

type YahooConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec"`
}

type CSVConfig struct {
	Path string `mapstructure:"path"`
}

// ValidationConfig mirrors the tunables of a validation run
type ValidationConfig struct {
	HoldDays        int     `mapstructure:"hold_days"`
	MonteCarloRuns  int     `mapstructure:"monte_carlo_runs"`
	BootstrapRuns   int     `mapstructure:"bootstrap_runs"`
	ConfidenceLevel float64 `mapstructure:"confidence_level"`
	RandomSeed      *uint64 `mapstructure:"random_seed"`

	MinOutcomes     int     `mapstructure:"min_outcomes"`
	MinHistoryBars  int     `mapstructure:"min_history_bars"`
	InSampleRatio   float64 `mapstructure:"in_sample_ratio"`
	StartingCapital float64 `mapstructure:"starting_capital"`

	MaxPValue         float64 `mapstructure:"max_p_value"`
	MinStdDevs        float64 `mapstructure:"min_std_devs"`
	MaxDegradationPct float64 `mapstructure:"max_degradation_pct"`
	MinStableWinRate  float64 `mapstructure:"min_stable_win_rate"`
	FailOnUnstable    bool    `mapstructure:"fail_on_unstable"`

	Workers          int           `mapstructure:"workers"`
	FetchConcurrency int           `mapstructure:"fetch_concurrency"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
}

type StrategyConfig struct {
	Enabled bool           `mapstructure:"enabled"`
	Params  map[string]any `mapstructure:"params"`
}

type StorageConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type LLMConfig struct {
	Provider string       `mapstructure:"provider"`
	Claude   ClaudeConfig `mapstructure:"claude"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
}

type ClaudeConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// NotifierConfig configures one verdict channel. The map key selects the
// channel: "telegram", "email" or "webhook".
type NotifierConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Telegram notifier fields
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	// Email notifier fields
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
	// Webhook notifier fields
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file. Keys missing from the file keep
// their Defaults values.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v, Defaults())

	// Support environment variable overrides
	v.SetEnvPrefix("EDGEVAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("reading config: %w", err))
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unmarshaling config: %w", err))
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.job_ttl_hours", d.Server.JobTTLHours)
	v.SetDefault("server.max_jobs", d.Server.MaxJobs)

	v.SetDefault("collectors.default", d.Collectors.Default)
	v.SetDefault("collectors.yahoo.base_url", d.Collectors.Yahoo.BaseURL)
	v.SetDefault("collectors.yahoo.timeout", d.Collectors.Yahoo.Timeout)
	v.SetDefault("collectors.yahoo.requests_per_sec", d.Collectors.Yahoo.RequestsPerSec)
	v.SetDefault("collectors.csv.path", d.Collectors.CSV.Path)

	val := d.Validation
	v.SetDefault("validation.hold_days", val.HoldDays)
	v.SetDefault("validation.monte_carlo_runs", val.MonteCarloRuns)
	v.SetDefault("validation.bootstrap_runs", val.BootstrapRuns)
	v.SetDefault("validation.confidence_level", val.ConfidenceLevel)
	v.SetDefault("validation.min_outcomes", val.MinOutcomes)
	v.SetDefault("validation.min_history_bars", val.MinHistoryBars)
	v.SetDefault("validation.in_sample_ratio", val.InSampleRatio)
	v.SetDefault("validation.starting_capital", val.StartingCapital)
	v.SetDefault("validation.max_p_value", val.MaxPValue)
	v.SetDefault("validation.min_std_devs", val.MinStdDevs)
	v.SetDefault("validation.max_degradation_pct", val.MaxDegradationPct)
	v.SetDefault("validation.min_stable_win_rate", val.MinStableWinRate)
	v.SetDefault("validation.fail_on_unstable", val.FailOnUnstable)
	v.SetDefault("validation.workers", val.Workers)
	v.SetDefault("validation.fetch_concurrency", val.FetchConcurrency)
	v.SetDefault("validation.fetch_timeout", val.FetchTimeout)

	v.SetDefault("storage.type", d.Storage.Type)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("llm.claude.model", d.LLM.Claude.Model)
	v.SetDefault("llm.openai.model", d.LLM.OpenAI.Model)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			JobTTLHours: 1,
			MaxJobs:     100,
		},
		Collectors: CollectorsConfig{
			Default: "yahoo",
			Yahoo: YahooConfig{
				BaseURL:        "https://query1.finance.yahoo.com",
				Timeout:        30 * time.Second,
				RequestsPerSec: 2,
			},
			CSV: CSVConfig{Path: "data"},
		},
		Validation: ValidationConfig{
			HoldDays:          5,
			MonteCarloRuns:    1000,
			BootstrapRuns:     10000,
			ConfidenceLevel:   0.95,
			MinOutcomes:       10,
			MinHistoryBars:    30,
			InSampleRatio:     0.7,
			StartingCapital:   10000,
			MaxPValue:         0.05,
			MinStdDevs:        2.0,
			MaxDegradationPct: 20,
			MinStableWinRate:  10,
			Workers:           4,
			FetchConcurrency:  4,
			FetchTimeout:      30 * time.Second,
		},
		Storage: StorageConfig{
			Type: "localfs",
			Path: "reports",
		},
		LLM: LLMConfig{
			Claude: ClaudeConfig{Model: "claude-sonnet-4-20250514"},
			OpenAI: OpenAIConfig{Model: "gpt-4o"},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	switch c.Collectors.Default {
	case "", "yahoo", "csv":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown collector %q", c.Collectors.Default))
	}

	// Validation thresholds
	v := c.Validation
	if v.ConfidenceLevel <= 0 || v.ConfidenceLevel >= 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("confidence_level must be between 0 and 1, got %f", v.ConfidenceLevel))
	}
	if v.InSampleRatio <= 0 || v.InSampleRatio >= 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("in_sample_ratio must be between 0 and 1, got %f", v.InSampleRatio))
	}
	if v.HoldDays < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("hold_days must be positive, got %d", v.HoldDays))
	}

	switch c.Storage.Type {
	case "", "localfs":
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when storage type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown storage type %q", c.Storage.Type))
	}

	// LLM validation - if provider set, check config exists
	if c.LLM.Provider != "" {
		switch c.LLM.Provider {
		case "claude":
			if c.LLM.Claude.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("claude api_key required when provider is claude"))
			}
		case "openai":
			if c.LLM.OpenAI.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("openai api_key required when provider is openai"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
		}
	}

	for name, n := range c.Notifiers {
		if !n.Enabled {
			continue
		}
		if err := n.validate(name); err != nil {
			return err
		}
	}

	return nil
}

func (n NotifierConfig) validate(name string) error {
	var missing bool
	switch name {
	case "telegram":
		missing = n.BotToken == "" || n.ChatID == ""
	case "email":
		missing = n.Host == "" || n.From == "" || len(n.To) == 0
	case "webhook":
		missing = n.URL == ""
	default:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown notifier %q", name))
	}
	if missing {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("notifier %s is enabled but not fully configured", name))
	}
	return nil
}
