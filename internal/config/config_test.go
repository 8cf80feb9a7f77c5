package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "dealmachine.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 4, cfg.Batch.MaxConcurrent)
	assert.Equal(t, "local", cfg.OCR.Provider)
	assert.Equal(t, "pdftotext", cfg.OCR.PdfToTextPath)
	assert.Equal(t, "mistral-ocr-latest", cfg.OCR.MistralModel)
	assert.InDelta(t, 1.0, cfg.OCR.RateLimit, 0.001)
	assert.Equal(t, 50, cfg.OCR.MaxFileMB)
	assert.Equal(t, 3, cfg.OCR.Retry.MaxAttempts)
	assert.Equal(t, 3, cfg.OCR.Breaker.FailureThreshold)
	assert.Equal(t, "user_defaults.yaml", cfg.Defaults.File)
	assert.Equal(t, "json", cfg.Export.Format)
	assert.Empty(t, cfg.Gradient)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/deals
log:
  level: debug
  format: console
server:
  port: 9090
batch:
  max_concurrent: 8
gradient:
  dscr:
    best: 1.6
  cap_rate:
    worst: 0.02
    neutral: 0.05
    best: 0.09
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/deals", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Batch.MaxConcurrent)
	// Defaults still apply for unset values
	assert.Equal(t, 50, cfg.OCR.MaxFileMB)

	require.Contains(t, cfg.Gradient, "dscr")
	dscr := cfg.Gradient["dscr"]
	require.NotNil(t, dscr.Best)
	assert.InDelta(t, 1.6, *dscr.Best, 1e-9)
	assert.Nil(t, dscr.Worst)

	capRate := cfg.Gradient["cap_rate"]
	require.NotNil(t, capRate.Worst)
	assert.InDelta(t, 0.02, *capRate.Worst, 1e-9)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("DEALMACHINE_STORE_DRIVER", "sqlite")
	t.Setenv("DEALMACHINE_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("DEALMACHINE_SERVER_PORT", "3000")
	t.Setenv("DEALMACHINE_OCR_MISTRAL_API_KEY", "mk-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "mk-test", cfg.OCR.MistralKey)
}

func TestLoadInvalidFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [\n"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.Path = "deals.db"
	cfg.OCR.Provider = "local"
	cfg.OCR.MaxFileMB = 50
	cfg.Batch.MaxConcurrent = 4
	cfg.Export.Format = "json"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate_AllModes(t *testing.T) {
	cfg := validDefaults()
	for _, mode := range []string{"extract", "records", "serve"} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateStore(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"
	err := cfg.Validate("records")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/deals"
	assert.NoError(t, cfg.Validate("records"))

	cfg.Store.Driver = "mysql"
	err = cfg.Validate("records")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be sqlite or postgres")

	cfg = validDefaults()
	cfg.Store.Path = ""
	err = cfg.Validate("records")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.path is required")
}

func TestValidateOCR(t *testing.T) {
	cfg := validDefaults()
	cfg.OCR.Provider = "mistral"
	err := cfg.Validate("extract")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ocr.mistral_api_key is required")

	cfg.OCR.MistralKey = "key"
	assert.NoError(t, cfg.Validate("extract"))

	cfg.OCR.Provider = "tesseract"
	err = cfg.Validate("extract")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be local, mistral or chain")

	// Records mode does not touch OCR.
	assert.NoError(t, cfg.Validate("records"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Batch.MaxConcurrent = 0
	err := cfg.Validate("extract")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent must be between 1 and 32")

	cfg.Batch.MaxConcurrent = 33
	assert.Error(t, cfg.Validate("extract"))

	cfg.Batch.MaxConcurrent = 32
	assert.NoError(t, cfg.Validate("extract"))
}

func TestValidateExportFormat(t *testing.T) {
	cfg := validDefaults()
	cfg.Export.Format = "csv"
	err := cfg.Validate("extract")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export.format")

	cfg.Export.Format = "xlsx"
	assert.NoError(t, cfg.Validate("extract"))
}
