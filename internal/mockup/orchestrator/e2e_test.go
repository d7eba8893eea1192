package orchestrator

import (
	"bytes"
	"context"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpclient "mockup-workers/internal/common/http"
	"mockup-workers/internal/common/logger"
	"mockup-workers/internal/mockup/compositor"
	"mockup-workers/internal/mockup/fetch"
	"mockup-workers/internal/mockup/templates"
	"mockup-workers/internal/models"
)

// ==========================
// End-to-End Scenarios
// ==========================

func designServer(t *testing.T, w, h int) *httptest.Server {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(w, h, color.NRGBA{R: 200, A: 255}), imaging.PNG))
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "image/png")
		_, _ = rw.Write(buf.Bytes())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func createPipeline(t *testing.T, templatesDir string) (*Orchestrator, Config) {
	t.Helper()
	log := logger.NewTestLogger(t)
	client := httpclient.NewClient(5 * time.Second)
	cfg := createTestConfig(t)

	resolver := templates.NewResolver(templates.Options{Dir: templatesDir}, client, nil, log)
	fetcher := fetch.NewFetcher(fetch.Options{MaxAttempts: 3, RetryDelay: 10 * time.Millisecond, Timeout: 5 * time.Second}, client, log)

	o := New(cfg, Dependencies{
		Templates: resolver,
		Fetcher:   fetcher,
		Compositors: []compositor.Compositor{
			compositor.NewLayered(compositor.NewPSDParser(false)),
			compositor.NewFlat(0.2),
			compositor.NewBasic(1.5, compositor.DefaultBackground),
		},
	}, log)
	return o, cfg
}

func TestEndToEnd_FlatTemplate(t *testing.T) {
	templatesDir := t.TempDir()
	require.NoError(t, imaging.Save(imaging.New(800, 800, color.White), filepath.Join(templatesDir, "tee.png")))
	srv := designServer(t, 300, 200)

	o, _ := createPipeline(t, templatesDir)
	result, err := o.Run(context.Background(), models.MockupRequest{
		DesignID:       "d-42",
		ProductID:      "tee",
		DesignImageURL: srv.URL + "/design.png",
		Mode:           models.ModeAuto,
	})
	require.NoError(t, err)

	assert.Equal(t, models.StrategyFlat, result.StrategyUsed)
	assert.False(t, result.FallbackUsed)
	assert.Equal(t, models.TemplateKindFlatImage, result.Template.Kind)

	img, err := imaging.Open(result.OutputImagePath)
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 800, img.Bounds().Dy())

	details := result.Details()
	assert.True(t, details.TemplateFound)
	assert.Equal(t, models.TemplateKindFlatImage, details.TemplateType)
}

func TestEndToEnd_NoTemplate(t *testing.T) {
	srv := designServer(t, 200, 200)

	o, cfg := createPipeline(t, t.TempDir())
	result, err := o.Run(context.Background(), models.MockupRequest{
		DesignID:       "d-7",
		ProductID:      "mug",
		DesignImageURL: srv.URL + "/design.png",
	})
	require.NoError(t, err)

	assert.Equal(t, models.StrategyBasic, result.StrategyUsed)
	assert.True(t, result.FallbackUsed)
	assert.Equal(t, models.TemplateKindNone, result.Template.Kind)

	img, err := imaging.Open(result.OutputImagePath)
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
	assert.Equal(t, 300, img.Bounds().Dy())

	entries, err := os.ReadDir(cfg.WorkDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEndToEnd_UnparsableLayeredTemplateFallsBack(t *testing.T) {
	templatesDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(templatesDir, "default.psd"), []byte("not a psd"), 0o644))
	srv := designServer(t, 40, 40)

	o, cfg := createPipeline(t, templatesDir)
	result, err := o.Run(context.Background(), models.MockupRequest{
		DesignID:       "d-9",
		ProductID:      "hoodie",
		DesignImageURL: srv.URL + "/design.png",
	})
	require.NoError(t, err)

	assert.Equal(t, models.TemplateSourceLocalDefault, result.Template.Source)
	assert.True(t, result.FallbackUsed)
	// remoteEditor is not registered, so only the local document strategy ran.
	assert.Len(t, result.Attempts, len(cfg.LayerCandidates)+1)
}
