package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "tourmesh.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvOpenAIKey, "sk-test")
	t.Setenv(EnvWeatherKey, "")
	t.Setenv(EnvModelProvider, "")
	t.Setenv(EnvOTLPEndpoint, "")

	path := writeConfig(t, "model:\n  name: gpt-4o-mini\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	dir := filepath.Dir(path)
	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, "sk-test", cfg.Model.APIKey)
	assert.Equal(t, 15, cfg.Agent.MaxIterations)
	assert.Equal(t, 20, cfg.Agent.MemoryWindow)
	assert.True(t, cfg.HandleParsingErrors())
	assert.True(t, cfg.SearchEnabled())
	assert.Equal(t, filepath.Join(dir, "knowledge.db"), cfg.Knowledge.Path)
	assert.Equal(t, filepath.Join(dir, "calendar.db"), cfg.Calendar.Path)
	assert.Equal(t, "America/Fortaleza", cfg.Calendar.DefaultTimeZone)
	assert.Equal(t, 30*time.Minute, cfg.Weather.CacheTTL)
	assert.False(t, cfg.Tracing.Enabled())
	assert.Equal(t, "grpc", cfg.Tracing.Protocol)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRatio)
}

func TestLoad_Tracing(t *testing.T) {
	t.Setenv(EnvOTLPEndpoint, "")

	path := writeConfig(t, `
tracing:
  endpoint: collector:4318
  protocol: http
  insecure: true
  sample_ratio: 0.25
  headers:
    authorization: Bearer abc
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.True(t, cfg.Tracing.Enabled())
	assert.Equal(t, "collector:4318", cfg.Tracing.Endpoint)
	assert.Equal(t, "http", cfg.Tracing.Protocol)
	assert.True(t, cfg.Tracing.Insecure)
	assert.Equal(t, "tourmesh", cfg.Tracing.ServiceName)
	assert.Equal(t, 0.25, cfg.Tracing.SampleRatio)
	assert.Equal(t, map[string]string{"authorization": "Bearer abc"}, cfg.Tracing.Headers)

	cfg.Tracing.Protocol = "udp"
	cfg.Tracing.SampleRatio = 2
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tracing.protocol")
	assert.Contains(t, err.Error(), "tracing.sample_ratio")
}

func TestLoad_TracingEndpointFromEnv(t *testing.T) {
	t.Setenv(EnvOTLPEndpoint, "localhost:4317")

	cfg, err := Load(writeConfig(t, "logging:\n  level: debug\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Tracing.Enabled())
	assert.Equal(t, "localhost:4317", cfg.Tracing.Endpoint)
}

func TestLoad_FileValues(t *testing.T) {
	t.Setenv(EnvModelProvider, "")
	t.Setenv(EnvWeatherKey, "env-weather")

	path := writeConfig(t, `
model:
  provider: anthropic
  api_key: file-key
  temperature: 0.6
agent:
  max_iterations: 8
  max_execution_time: 90s
  memory_window: 4
  handle_parsing_errors: false
  locale: pt
weather:
  api_key: file-weather
  cache_ttl: 10m
search:
  enabled: false
knowledge:
  path: data/kb.db
calendar:
  path: /var/lib/tourmesh/calendar.db
  default_time_zone: America/Recife
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "anthropic", cfg.Model.Provider)
	assert.Equal(t, "file-key", cfg.Model.APIKey)
	assert.Equal(t, 8, cfg.Agent.MaxIterations)
	assert.Equal(t, 90*time.Second, cfg.Agent.MaxExecutionTime)
	assert.False(t, cfg.HandleParsingErrors())
	assert.False(t, cfg.SearchEnabled())
	assert.Equal(t, "pt", cfg.Weather.Language)
	assert.Equal(t, "file-weather", cfg.Weather.APIKey)
	assert.Equal(t, 10*time.Minute, cfg.Weather.CacheTTL)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "data", "kb.db"), cfg.Knowledge.Path)
	assert.Equal(t, "/var/lib/tourmesh/calendar.db", cfg.Calendar.Path)
}

func TestLoad_EnvProviderOverride(t *testing.T) {
	t.Setenv(EnvModelProvider, "Anthropic")
	t.Setenv(EnvAnthropicKey, "ak-test")

	cfg, err := Load(writeConfig(t, "model:\n  provider: openai\n"))
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Model.Provider)
	assert.Equal(t, "ak-test", cfg.Model.APIKey)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "model: [not, a, map"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default(t.TempDir())
	require.NoError(t, cfg.Validate())

	cfg.Model.Provider = "gemini"
	cfg.Agent.Locale = "fr"
	cfg.Calendar.DefaultTimeZone = "Mars/Olympus"
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model.provider")
	assert.Contains(t, err.Error(), "agent.locale")
	assert.Contains(t, err.Error(), "calendar.default_time_zone")
	assert.Contains(t, err.Error(), "logging.format")
}

func TestDefault_MemoryPaths(t *testing.T) {
	cfg := Default("/data")
	cfg.Knowledge.Path = resolvePath("/data", ":memory:", "knowledge.db")
	assert.Equal(t, ":memory:", cfg.Knowledge.Path)
	assert.Equal(t, filepath.Join("/data", "calendar.db"), cfg.Calendar.Path)
}
