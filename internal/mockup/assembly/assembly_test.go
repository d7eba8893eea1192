package assembly

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/disintegration/imaging"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mockup-workers/internal/common/config"
	"mockup-workers/internal/common/logger"
	"mockup-workers/internal/mockup/remoteeditor"
	"mockup-workers/internal/mockup/templates"
	"mockup-workers/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

type failingLauncher struct{ calls int }

func (l *failingLauncher) Launch(context.Context) (remoteeditor.Session, error) {
	l.calls++
	return nil, errors.New("no browser binary found")
}

func loadConfig(t *testing.T, templatesDir, extra string) *config.Config {
	t.Helper()
	root := t.TempDir()
	body := fmt.Sprintf(`
app:
  name: mockup-test
mockup:
  templates_dir: %s
  work_dir: %s
  output_dir: %s
  design_fetch:
    retry_delay: 10
%s`, templatesDir, filepath.Join(root, "work"), filepath.Join(root, "out"), extra)
	path := filepath.Join(root, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := config.LoadFromFile(path)
	require.NoError(t, err)
	return cfg
}

func designURL(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(64, 32, color.Black), imaging.PNG))
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "image/png")
		_, _ = rw.Write(buf.Bytes())
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/d.png"
}

// ==========================
// Build Tests
// ==========================

func TestBuild_RemoteEditorEnabled(t *testing.T) {
	templatesDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(templatesDir, "default.psd"), []byte("broken"), 0o644))
	cfg := loadConfig(t, templatesDir, `
  remote_editor:
    enabled: true
`)
	launcher := &failingLauncher{}

	o, err := Build(cfg, Options{Launcher: launcher}, logger.NewTestLogger(t))
	require.NoError(t, err)

	result, err := o.Run(context.Background(), models.MockupRequest{
		DesignID:       "d",
		ProductID:      "tee",
		DesignImageURL: designURL(t),
	})
	require.NoError(t, err)

	n := len(cfg.Mockup.LayerCandidates)
	assert.Equal(t, n, launcher.calls)
	require.Len(t, result.Attempts, 2*n+1)
	assert.Equal(t, models.StrategyRemoteEditor, result.Attempts[0].Strategy)
	assert.Equal(t, models.StrategyLocalDocument, result.Attempts[n].Strategy)
	assert.True(t, result.FallbackUsed)
}

func TestBuild_RemoteEditorDisabledSkipsStrategy(t *testing.T) {
	templatesDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(templatesDir, "default.psd"), []byte("broken"), 0o644))
	cfg := loadConfig(t, templatesDir, "")

	o, err := Build(cfg, Options{}, logger.NewTestLogger(t))
	require.NoError(t, err)

	result, err := o.Run(context.Background(), models.MockupRequest{
		DesignID:       "d",
		ProductID:      "tee",
		DesignImageURL: designURL(t),
		Mode:           models.ModeRemoteEditor,
	})
	require.NoError(t, err)
	require.Len(t, result.Attempts, 1)
	assert.Equal(t, models.StrategyBasic, result.StrategyUsed)
}

func TestBuild_RedisIndexUsedForRemoteTemplates(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cacheDir := t.TempDir()
	cached := filepath.Join(cacheDir, "tee.png")
	require.NoError(t, imaging.Save(imaging.New(100, 100, color.White), cached))
	require.NoError(t, mr.Set(templates.Key("tee"), cached))

	cfg := loadConfig(t, t.TempDir(), fmt.Sprintf(`
  remote_templates:
    enabled: true
    source: http://127.0.0.1:1/templates
    cache_dir: %s
`, cacheDir))

	o, err := Build(cfg, Options{Redis: rdb}, logger.NewTestLogger(t))
	require.NoError(t, err)

	result, err := o.Run(context.Background(), models.MockupRequest{
		DesignID:       "d",
		ProductID:      "tee",
		DesignImageURL: designURL(t),
	})
	require.NoError(t, err)
	assert.Equal(t, models.TemplateSourceRemote, result.Template.Source)
	assert.Equal(t, cached, result.Template.Path)
	assert.Equal(t, models.StrategyFlat, result.StrategyUsed)
}

func TestBuild_InvalidBackground(t *testing.T) {
	cfg := loadConfig(t, t.TempDir(), "")
	cfg.Mockup.Basic.Background = "grey"

	_, err := Build(cfg, Options{}, logger.NewTestLogger(t))
	assert.Error(t, err)
}
