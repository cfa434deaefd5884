// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Runner   RunnerConfig   `mapstructure:"runner" yaml:"runner"`
	Recovery RecoveryConfig `mapstructure:"recovery" yaml:"recovery"`
	Replay   ReplayConfig   `mapstructure:"replay" yaml:"replay"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
}

// LoggerConfig configures the zap logger (see internal/observability).
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"` // "console" or "json"
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"` // megabytes, per lumberjack
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig maps log levels to terminal colors for the console encoder.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig describes how to reach the host's remote-debugging endpoint.
// The host picks its port as base + random offset per run, so the locator
// probes PreferredPort first and then FallbackPorts in order.
type BrowserConfig struct {
	DebugHost     string        `mapstructure:"debug_host" yaml:"debug_host"`
	PreferredPort int           `mapstructure:"preferred_port" yaml:"preferred_port"`
	FallbackPorts []int         `mapstructure:"fallback_ports" yaml:"fallback_ports"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout" yaml:"probe_timeout"`
	// ChromeUIFiles are filenames of the host application's own chrome pages,
	// excluded when selecting the automatable target.
	ChromeUIFiles []string `mapstructure:"chrome_ui_files" yaml:"chrome_ui_files"`
}

// RunnerConfig tunes the deterministic scripted step runner.
type RunnerConfig struct {
	// SelectorTimeout bounds the per-candidate visibility/enabled pre-check.
	SelectorTimeout time.Duration `mapstructure:"selector_timeout" yaml:"selector_timeout"`
	// ActionTimeout bounds single-shot actions (navigate, wait).
	ActionTimeout time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	// SettleDelay is the pause after a click used as evidence of success when
	// no URL change occurs.
	SettleDelay time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
}

// RecoveryConfig tunes the autonomous recovery executor.
type RecoveryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	SettlePause time.Duration `mapstructure:"settle_pause" yaml:"settle_pause"`
	// HeuristicFallback enables the last-resort regex tier used when the LLM
	// cannot produce an action plan. Off by default.
	HeuristicFallback bool `mapstructure:"heuristic_fallback" yaml:"heuristic_fallback"`
}

// ReplayConfig tunes the playback driver.
type ReplayConfig struct {
	// ContinueOnFailure keeps the run going past a failed step instead of
	// aborting.
	ContinueOnFailure bool   `mapstructure:"continue_on_failure" yaml:"continue_on_failure"`
	OutputDir         string `mapstructure:"output_dir" yaml:"output_dir"`
}

// LLMConfig configures the model provider used by the AI automator.
type LLMConfig struct {
	APIKey      string            `mapstructure:"api_key" yaml:"api_key"`
	Model       string            `mapstructure:"model" yaml:"model"`
	Endpoint    string            `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration     `mapstructure:"api_timeout" yaml:"api_timeout"`
	MaxTokens   int               `mapstructure:"max_tokens" yaml:"max_tokens"`
	TopP        float32           `mapstructure:"top_p" yaml:"top_p"`
	TopK        int               `mapstructure:"top_k" yaml:"top_k"`
	// RequestsPerMinute caps the call rate against the provider.
	RequestsPerMinute int               `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	SafetyFilters     map[string]string `mapstructure:"safety_filters" yaml:"safety_filters"`
}

// SetDefaults registers default values on the given viper instance. Called
// before unmarshalling so a missing config file still yields a usable Config.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "replay-cli")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	v.SetDefault("browser.debug_host", "127.0.0.1")
	v.SetDefault("browser.preferred_port", 0)
	v.SetDefault("browser.fallback_ports", []int{9222, 9223, 9224, 9225, 9229, 9333})
	v.SetDefault("browser.probe_timeout", 750*time.Millisecond)
	v.SetDefault("browser.chrome_ui_files", []string{"index.html", "app.html", "main.html", "settings.html"})

	v.SetDefault("runner.selector_timeout", 3*time.Second)
	v.SetDefault("runner.action_timeout", 15*time.Second)
	v.SetDefault("runner.settle_delay", 1200*time.Millisecond)

	v.SetDefault("recovery.max_attempts", 5)
	v.SetDefault("recovery.settle_pause", 1500*time.Millisecond)
	v.SetDefault("recovery.heuristic_fallback", false)

	v.SetDefault("replay.continue_on_failure", false)
	v.SetDefault("replay.output_dir", "runs")

	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("llm.api_timeout", 90*time.Second)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.requests_per_minute", 30)
}

// Validate checks cross-field constraints and normalizes obviously invalid
// values instead of failing the whole run for tunables with safe floors.
func (c *Config) Validate() error {
	if c.Recovery.MaxAttempts <= 0 {
		c.Recovery.MaxAttempts = 5
	}
	if c.Runner.SelectorTimeout <= 0 {
		c.Runner.SelectorTimeout = 3 * time.Second
	}
	if c.Runner.ActionTimeout <= 0 {
		c.Runner.ActionTimeout = 15 * time.Second
	}
	if c.Browser.ProbeTimeout <= 0 {
		c.Browser.ProbeTimeout = 750 * time.Millisecond
	}
	if c.Browser.DebugHost == "" {
		c.Browser.DebugHost = "127.0.0.1"
	}
	if c.Browser.PreferredPort == 0 && len(c.Browser.FallbackPorts) == 0 {
		return fmt.Errorf("browser: no preferred port and no fallback ports configured")
	}
	for _, p := range c.Browser.FallbackPorts {
		if p <= 0 || p > 65535 {
			return fmt.Errorf("browser: invalid fallback port %d", p)
		}
	}
	switch c.Logger.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logger: unknown format %q", c.Logger.Format)
	}
	return nil
}

// Load reads configuration from the given viper instance with defaults
// applied, then validates it.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
