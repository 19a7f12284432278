package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullConfigYAML = `
service:
  name: checkout
  environment: production
server:
  host: 127.0.0.1
  port: 9090
  readTimeout: "10s"
  shutdownTimeout: "5s"
logging:
  level: warn
  output: stderr
  disableBuffering: true
health:
  cacheAddr: "localhost:6379"
  probeTimeout: "2s"
  dependencies:
    - name: billing
      type: http
      target: http://billing.internal/ping
      timeout: "2s"
    - name: queue
      type: tcp
      target: "localhost:5672"
`

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfigFile(t, fullConfigYAML)

	config, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, Validate(config))

	assert.Equal(t, "checkout", config.Service.Name)
	assert.Equal(t, "production", config.Service.Environment)
	assert.Equal(t, "127.0.0.1:9090", config.Server.Address())
	assert.Equal(t, 10*time.Second, config.Server.ReadTimeout.Duration())
	assert.Equal(t, 5*time.Second, config.Server.ShutdownTimeout.Duration())
	assert.Equal(t, "warn", config.Logging.Level)
	assert.Equal(t, "stderr", config.Logging.Output)
	assert.True(t, config.Logging.DisableBuffering)
	assert.Equal(t, "localhost:6379", config.Health.CacheAddr)
	require.Len(t, config.Health.Dependencies, 2)
	assert.Equal(t, "billing", config.Health.Dependencies[0].Name)
	assert.Equal(t, 2*time.Second, config.Health.Dependencies[0].Timeout.Duration())
	assert.Equal(t, "tcp", config.Health.Dependencies[1].Type)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadFromReader(t *testing.T) {
	config, err := LoadFromReader(strings.NewReader("service:\n  name: checkout\n"))

	require.NoError(t, err)
	assert.Equal(t, "checkout", config.Service.Name)
}

func TestLoadFromReader_InvalidYAML(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("service: [unclosed"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_OmittedFieldsKeepDefaults(t *testing.T) {
	path := writeConfigFile(t, "service:\n  name: checkout\n")

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "checkout", config.Service.Name)
	assert.Equal(t, "development", config.Service.Environment)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "json", config.Logging.Format)
	assert.Equal(t, "stdout", config.Logging.Output)
}

func TestLoad_EnvSubstitution(t *testing.T) {
	// Not parallel - modifies process environment.
	t.Setenv("REQLOG_TEST_LEVEL", "error")
	t.Setenv("REQLOG_TEST_NAME", "payments")

	path := writeConfigFile(t, `
service:
  name: ${REQLOG_TEST_NAME}
logging:
  level: ${REQLOG_TEST_LEVEL}
  output: ${REQLOG_TEST_OUTPUT:-stderr}
`)

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "payments", config.Service.Name)
	assert.Equal(t, "error", config.Logging.Level)
	assert.Equal(t, "stderr", config.Logging.Output, "unset variable falls back to default")
}

func TestLoad_EnvSubstitutionEmptyDefault(t *testing.T) {
	path := writeConfigFile(t, `
service:
  name: checkout
logging:
  level: "${REQLOG_TEST_UNSET}"
`)

	config, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, config.Logging.Level, "unset variable without default becomes empty")
}

func TestSubstituteEnvVars_EscapedDollar(t *testing.T) {
	// Not parallel - modifies process environment.
	t.Setenv("REQLOG_TEST_TEAM", "core")

	result := substituteEnvVars("name: cost$$center-${REQLOG_TEST_TEAM}")
	assert.Equal(t, "name: cost$center-core", result)
}
