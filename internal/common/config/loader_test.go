package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// ==========================
// Loading Tests
// ==========================

func TestLoadFromFile_AppliesMockupDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: test-app
mockup:
  templates_dir: /srv/templates
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	m := cfg.Mockup
	assert.Equal(t, "/srv/templates", m.TemplatesDir)
	assert.Equal(t, []string{".psd", ".png", ".jpg", ".jpeg"}, m.TemplateExtensions)
	assert.Equal(t, []string{"remoteEditor", "localDocument"}, m.AutoStrategyOrder)
	assert.Equal(t, 180000, m.AttemptTimeout)
	assert.Equal(t, 10000, m.FallbackReserve)
	assert.Equal(t, 3, m.DesignFetch.MaxAttempts)
	assert.Equal(t, 1000, m.DesignFetch.RetryDelay)
	assert.InDelta(t, 0.2, m.Flat.MarginRatio, 1e-9)
	assert.InDelta(t, 1.5, m.Basic.Scale, 1e-9)
	assert.Equal(t, "app", m.RemoteEditor.APIGlobal)
	assert.Equal(t, filepath.Join("/srv/templates", ".remote-cache"), m.RemoteTemplates.CacheDir)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile_ExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_PUBLIC_URL", "https://cdn.example.com")
	path := writeConfig(t, `
mockup:
  public_base_url: ${TEST_PUBLIC_URL}
  remote_templates:
    source: ${TEST_UNSET_TEMPLATE_SOURCE}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com", cfg.Mockup.PublicBaseURL)
	assert.Equal(t, "", cfg.Mockup.RemoteTemplates.Source)
}

func TestLoadFromFile_WorkerDefaults(t *testing.T) {
	path := writeConfig(t, `
workers:
  generate-mockup:
    enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	w := GetWorkerConfig(cfg, "generate-mockup")
	assert.True(t, w.Enabled)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 600000, w.Timeout)
	assert.True(t, IsWorkerEnabled(cfg, "unknown-worker"))
}

// ==========================
// Validation Tests
// ==========================

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "unknown strategy",
			body:    "mockup:\n  auto_strategy_order: [flat]\n",
			wantErr: "unknown strategy",
		},
		{
			name:    "margin too large",
			body:    "mockup:\n  flat:\n    margin_ratio: 0.6\n",
			wantErr: "margin_ratio",
		},
		{
			name:    "remote templates without source",
			body:    "mockup:\n  remote_templates:\n    enabled: true\n",
			wantErr: "remote_templates.source",
		},
		{
			name:    "job timeout shorter than the strategy budget",
			body:    "workers:\n  generate-mockup:\n    timeout: 300000\nmockup:\n  attempt_timeout: 180000\n",
			wantErr: "workers.generate-mockup.timeout",
		},
		{
			name:    "negative fallback reserve",
			body:    "mockup:\n  fallback_reserve: -1\n",
			wantErr: "fallback_reserve",
		},
		{
			name:    "redis without address",
			body:    "database:\n  redis:\n    enabled: true\n",
			wantErr: "redis.address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("REDIS_ADDRESS", "")
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}
