// Package config loads tourmesh settings from a YAML file, applies defaults
// and environment overrides, and validates the result at startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvAnthropicKey  = "ANTHROPIC_API_KEY"
	EnvWeatherKey    = "WEATHER_API_KEY"
	EnvModelProvider = "TOURMESH_MODEL_PROVIDER"
	EnvOTLPEndpoint  = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// Config describes everything tourmesh needs at startup.
type Config struct {
	Model     ModelConfig     `yaml:"model"`
	Agent     AgentConfig     `yaml:"agent"`
	Weather   WeatherConfig   `yaml:"weather"`
	Search    SearchConfig    `yaml:"search"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Calendar  CalendarConfig  `yaml:"calendar"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// ModelConfig selects and tunes the language model.
type ModelConfig struct {
	Provider    string  `yaml:"provider"` // openai | anthropic
	Name        string  `yaml:"name"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
}

// AgentConfig bounds the reasoning loop.
type AgentConfig struct {
	MaxIterations       int           `yaml:"max_iterations"`
	MaxExecutionTime    time.Duration `yaml:"max_execution_time"`
	MemoryWindow        int           `yaml:"memory_window"`
	HandleParsingErrors *bool         `yaml:"handle_parsing_errors"`
	Locale              string        `yaml:"locale"` // en | pt
}

// WeatherConfig configures the weatherapi.com client.
type WeatherConfig struct {
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url"`
	Language          string        `yaml:"language"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
}

// SearchConfig configures the web search tools.
type SearchConfig struct {
	Enabled    *bool `yaml:"enabled"`
	MaxResults int   `yaml:"max_results"`
}

// KnowledgeConfig locates the knowledge base.
type KnowledgeConfig struct {
	Path string `yaml:"path"`
	TopK int    `yaml:"top_k"`
}

// CalendarConfig locates the calendar database.
type CalendarConfig struct {
	Path            string `yaml:"path"`
	DefaultTimeZone string `yaml:"default_time_zone"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | text
}

// TracingConfig configures OTLP span export. Tracing is off without an endpoint.
type TracingConfig struct {
	Endpoint    string            `yaml:"endpoint"`
	Protocol    string            `yaml:"protocol"` // grpc | http
	Insecure    bool              `yaml:"insecure"`
	ServiceName string            `yaml:"service_name"`
	Headers     map[string]string `yaml:"headers"`
	SampleRatio float64           `yaml:"sample_ratio"`
}

// Enabled reports whether spans are exported.
func (t TracingConfig) Enabled() bool { return t.Endpoint != "" }

// Load parses the YAML file at path, applies defaults (relative paths are
// resolved against the file's directory) and environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))
	cfg.applyEnv(os.Getenv)

	return &cfg, nil
}

// Default returns the configuration used without a file, rooted at dataDir.
func Default(dataDir string) *Config {
	var cfg Config
	cfg.applyDefaults(dataDir)
	cfg.applyEnv(os.Getenv)

	return &cfg
}

func (c *Config) applyDefaults(baseDir string) {
	if c.Model.Provider == "" {
		c.Model.Provider = "openai"
	}

	if c.Model.MaxTokens == 0 {
		c.Model.MaxTokens = 1024
	}

	if c.Agent.MaxIterations == 0 {
		c.Agent.MaxIterations = 15
	}

	if c.Agent.MemoryWindow == 0 {
		c.Agent.MemoryWindow = 20
	}

	if c.Agent.HandleParsingErrors == nil {
		handle := true
		c.Agent.HandleParsingErrors = &handle
	}

	if c.Agent.Locale == "" {
		c.Agent.Locale = "en"
	}

	if c.Weather.BaseURL == "" {
		c.Weather.BaseURL = "https://api.weatherapi.com/v1"
	}

	if c.Weather.Language == "" {
		c.Weather.Language = c.Agent.Locale
	}

	if c.Weather.RequestsPerMinute == 0 {
		c.Weather.RequestsPerMinute = 30
	}

	if c.Weather.CacheTTL == 0 {
		c.Weather.CacheTTL = 30 * time.Minute
	}

	if c.Search.Enabled == nil {
		enabled := true
		c.Search.Enabled = &enabled
	}

	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = 5
	}

	if c.Knowledge.TopK == 0 {
		c.Knowledge.TopK = 5
	}

	c.Knowledge.Path = resolvePath(baseDir, c.Knowledge.Path, "knowledge.db")
	c.Calendar.Path = resolvePath(baseDir, c.Calendar.Path, "calendar.db")

	if c.Calendar.DefaultTimeZone == "" {
		c.Calendar.DefaultTimeZone = "America/Fortaleza"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	if c.Tracing.Protocol == "" {
		c.Tracing.Protocol = "grpc"
	}

	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "tourmesh"
	}

	if c.Tracing.SampleRatio == 0 {
		c.Tracing.SampleRatio = 1
	}
}

func resolvePath(baseDir, path, fallback string) string {
	switch {
	case path == "":
		return filepath.Join(baseDir, fallback)
	case path == ":memory:" || filepath.IsAbs(path):
		return path
	default:
		return filepath.Join(baseDir, path)
	}
}

func (c *Config) applyEnv(getenv func(string) string) {
	if p := getenv(EnvModelProvider); p != "" {
		c.Model.Provider = strings.ToLower(p)
	}

	if c.Model.APIKey == "" {
		switch c.Model.Provider {
		case "openai":
			c.Model.APIKey = getenv(EnvOpenAIKey)
		case "anthropic":
			c.Model.APIKey = getenv(EnvAnthropicKey)
		}
	}

	if k := getenv(EnvWeatherKey); k != "" && c.Weather.APIKey == "" {
		c.Weather.APIKey = k
	}

	if e := getenv(EnvOTLPEndpoint); e != "" && c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = e
	}
}

// HandleParsingErrors reports the effective recovery policy.
func (c *Config) HandleParsingErrors() bool {
	return c.Agent.HandleParsingErrors == nil || *c.Agent.HandleParsingErrors
}

// SearchEnabled reports whether the web search tools are registered.
func (c *Config) SearchEnabled() bool {
	return c.Search.Enabled == nil || *c.Search.Enabled
}

// Validate reports every misconfiguration found.
func (c *Config) Validate() error {
	var errs []error

	switch c.Model.Provider {
	case "openai", "anthropic":
	default:
		errs = append(errs, fmt.Errorf("model.provider: unsupported provider %q", c.Model.Provider))
	}

	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		errs = append(errs, fmt.Errorf("model.temperature: %v is outside [0, 2]", c.Model.Temperature))
	}

	if c.Agent.MaxIterations < 0 {
		errs = append(errs, errors.New("agent.max_iterations: must not be negative"))
	}

	if c.Agent.MemoryWindow < 0 {
		errs = append(errs, errors.New("agent.memory_window: must not be negative"))
	}

	if c.Agent.Locale != "en" && c.Agent.Locale != "pt" {
		errs = append(errs, fmt.Errorf("agent.locale: unsupported locale %q", c.Agent.Locale))
	}

	if c.Weather.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("weather.requests_per_minute: must not be negative"))
	}

	if _, err := time.LoadLocation(c.Calendar.DefaultTimeZone); err != nil {
		errs = append(errs, fmt.Errorf("calendar.default_time_zone: %w", err))
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unsupported format %q", c.Logging.Format))
	}

	switch c.Tracing.Protocol {
	case "grpc", "http":
	default:
		errs = append(errs, fmt.Errorf("tracing.protocol: unsupported protocol %q", c.Tracing.Protocol))
	}

	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_ratio: %v is outside [0, 1]", c.Tracing.SampleRatio))
	}

	return errors.Join(errs...)
}
