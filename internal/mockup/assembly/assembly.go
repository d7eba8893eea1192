// Package assembly builds the mockup pipeline from application config.
package assembly

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"mockup-workers/internal/common/config"
	httpclient "mockup-workers/internal/common/http"
	"mockup-workers/internal/common/logger"
	"mockup-workers/internal/common/observability"
	"mockup-workers/internal/mockup/compositor"
	"mockup-workers/internal/mockup/fetch"
	"mockup-workers/internal/mockup/orchestrator"
	"mockup-workers/internal/mockup/remoteeditor"
	"mockup-workers/internal/mockup/templates"
	"mockup-workers/internal/models"
)

// Options carries the process-level collaborators of the pipeline. All are optional.
type Options struct {
	// Redis backs the remote template cache index.
	Redis         redis.Cmdable
	Observability *observability.Observability
	// Launcher overrides the rod launcher used by the remote editor.
	Launcher remoteeditor.Launcher
}

// Build wires resolver, fetcher and the enabled compositors into an orchestrator.
func Build(cfg *config.Config, opts Options, log logger.Logger) (*orchestrator.Orchestrator, error) {
	m := cfg.Mockup

	background, err := compositor.ParseHexColor(m.Basic.Background)
	if err != nil {
		return nil, fmt.Errorf("mockup.basic.background: %w", err)
	}

	client := httpclient.New(httpclient.Options{
		Timeout:    config.GetDuration(m.DesignFetch.Timeout),
		PreferIPv4: true,
	})

	var index templates.CacheIndex = templates.NopIndex{}
	if opts.Redis != nil && m.RemoteTemplates.Enabled {
		index = templates.NewRedisIndex(opts.Redis, config.GetDuration(m.RemoteTemplates.IndexTTL), log)
	}

	resolver := templates.NewResolver(templates.Options{
		Dir:         m.TemplatesDir,
		Extensions:  m.TemplateExtensions,
		DefaultName: m.DefaultTemplate,
		Remote: templates.RemoteOptions{
			Enabled:  m.RemoteTemplates.Enabled,
			Source:   m.RemoteTemplates.Source,
			CacheDir: m.RemoteTemplates.CacheDir,
			Timeout:  config.GetDuration(m.RemoteTemplates.DownloadTimeout),
		},
	}, client, index, log)

	fetcher := fetch.NewFetcher(fetch.Options{
		MaxAttempts: m.DesignFetch.MaxAttempts,
		RetryDelay:  config.GetDuration(m.DesignFetch.RetryDelay),
		Timeout:     config.GetDuration(m.DesignFetch.Timeout),
	}, client, log)

	compositors := []compositor.Compositor{
		compositor.NewLayered(compositor.NewPSDParser(m.LocalDocument.FlattenLayers)),
		compositor.NewFlat(m.Flat.MarginRatio),
		compositor.NewBasic(m.Basic.Scale, background),
	}
	if m.RemoteEditor.Enabled {
		compositors = append(compositors, newRemoteEditor(m.RemoteEditor, opts.Launcher, log))
	}

	order := make([]models.Strategy, 0, len(m.AutoStrategyOrder))
	for _, s := range m.AutoStrategyOrder {
		order = append(order, models.Strategy(s))
	}

	return orchestrator.New(orchestrator.Config{
		LayerCandidates:   m.LayerCandidates,
		AutoStrategyOrder: order,
		AttemptTimeout:    config.GetDuration(m.AttemptTimeout),
		FallbackReserve:   config.GetDuration(m.FallbackReserve),
		WorkDir:           m.WorkDir,
		OutputDir:         m.OutputDir,
	}, orchestrator.Dependencies{
		Templates:     resolver,
		Fetcher:       fetcher,
		Compositors:   compositors,
		Observability: opts.Observability,
	}, log), nil
}

func newRemoteEditor(rc config.RemoteEditorConfig, launcher remoteeditor.Launcher, log logger.Logger) *remoteeditor.Compositor {
	if launcher == nil {
		launcher = remoteeditor.NewRodLauncher(remoteeditor.RodOptions{
			BrowserBin: rc.BrowserBin,
			Headless:   rc.Headless,
			NoSandbox:  rc.NoSandbox,
		}, log)
	}
	return remoteeditor.New(remoteeditor.Options{
		URL:               rc.URL,
		APIGlobal:         rc.APIGlobal,
		NavigationTimeout: config.GetDuration(rc.NavigationTimeout),
		PollAttempts:      rc.PollAttempts,
		PollInterval:      config.GetDuration(rc.PollInterval),
		DocumentWait:      config.GetDuration(rc.DocumentWait),
		ExportTimeout:     config.GetDuration(rc.ExportTimeout),
		MaxSessions:       rc.MaxSessions,
	}, launcher, log)
}
