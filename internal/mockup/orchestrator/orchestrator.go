// Package orchestrator runs the mockup pipeline: template resolution, design
// fetch, ordered composition attempts and the basic fallback.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"mockup-workers/internal/common/errors"
	"mockup-workers/internal/common/logger"
	"mockup-workers/internal/common/metrics"
	"mockup-workers/internal/common/observability"
	"mockup-workers/internal/mockup/compositor"
	"mockup-workers/internal/models"
)

type TemplateResolver interface {
	Resolve(ctx context.Context, productID string) models.ResolvedTemplate
}

type DesignFetcher interface {
	Fetch(ctx context.Context, url, dir string) (string, error)
}

type Config struct {
	LayerCandidates   []string
	AutoStrategyOrder []models.Strategy
	AttemptTimeout    time.Duration
	WorkDir           string
	OutputDir         string

	// FallbackReserve is held back from the request deadline for the basic
	// fallback. It is capped at a quarter of the time left.
	FallbackReserve time.Duration
}

// Dependencies are the pipeline stages. Compositors are registered by their
// Strategy; a basic compositor is always present.
type Dependencies struct {
	Templates     TemplateResolver
	Fetcher       DesignFetcher
	Compositors   []compositor.Compositor
	Observability *observability.Observability
}

type Orchestrator struct {
	cfg         Config
	templates   TemplateResolver
	fetcher     DesignFetcher
	compositors map[models.Strategy]compositor.Compositor
	obs         *observability.Observability
	logger      logger.Logger
}

func New(cfg Config, deps Dependencies, log logger.Logger) *Orchestrator {
	if len(cfg.LayerCandidates) == 0 {
		cfg.LayerCandidates = []string{"Design", "Your Design Here", "Artwork", "Placeholder"}
	}
	if len(cfg.AutoStrategyOrder) == 0 {
		cfg.AutoStrategyOrder = []models.Strategy{models.StrategyRemoteEditor, models.StrategyLocalDocument}
	}
	if cfg.FallbackReserve == 0 {
		cfg.FallbackReserve = 10 * time.Second
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = cfg.WorkDir
	}

	registry := make(map[models.Strategy]compositor.Compositor, len(deps.Compositors)+1)
	for _, c := range deps.Compositors {
		registry[c.Strategy()] = c
	}
	if _, ok := registry[models.StrategyBasic]; !ok {
		registry[models.StrategyBasic] = compositor.NewBasic(1.5, compositor.DefaultBackground)
	}

	return &Orchestrator{
		cfg:         cfg,
		templates:   deps.Templates,
		fetcher:     deps.Fetcher,
		compositors: registry,
		obs:         deps.Observability,
		logger:      log.WithFields(map[string]interface{}{"component": "mockup-orchestrator"}),
	}
}

// StrategiesFor returns the layered strategies tried for mode, in order.
func (o *Orchestrator) StrategiesFor(mode models.Mode) []models.Strategy {
	switch mode {
	case models.ModeRemoteEditor:
		return []models.Strategy{models.StrategyRemoteEditor}
	case models.ModeLocalDocument:
		return []models.Strategy{models.StrategyLocalDocument}
	default:
		return o.cfg.AutoStrategyOrder
	}
}

// Run produces a mockup for req. The only errors it returns are an invalid
// request, a failed design fetch and a failed basic fallback; every other
// failure is recorded as an attempt and recovered from.
func (o *Orchestrator) Run(ctx context.Context, req models.MockupRequest) (*models.MockupResult, error) {
	start := time.Now()
	ctx, span := o.obs.StartSpan(ctx, "mockup.run",
		attribute.String("design.id", req.DesignID),
		attribute.String("product.id", req.ProductID),
		attribute.String("mode", string(req.Mode)),
	)
	defer span.End()

	log := o.logger.WithFields(map[string]interface{}{
		"design_id":  req.DesignID,
		"product_id": req.ProductID,
		"trace_id":   observability.TraceID(ctx),
	})

	result, err := o.run(ctx, req, log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.obs.RecordRun(ctx, time.Since(start), "", "error")
		log.Error("Mockup generation failed", map[string]interface{}{
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil, err
	}

	status := "success"
	if result.FallbackUsed {
		status = "fallback"
	}
	span.SetAttributes(
		attribute.String("strategy", string(result.StrategyUsed)),
		attribute.Bool("fallback", result.FallbackUsed),
	)
	o.obs.RecordRun(ctx, time.Since(start), string(result.StrategyUsed), status)
	metrics.MockupsGenerated.WithLabelValues(string(result.StrategyUsed), fmt.Sprintf("%t", result.FallbackUsed)).Inc()

	log.Info("Mockup generated", map[string]interface{}{
		"strategy":      result.StrategyUsed,
		"fallback_used": result.FallbackUsed,
		"template_kind": result.Template.Kind,
		"attempts":      len(result.Attempts),
		"filename":      result.Filename,
		"duration_ms":   time.Since(start).Milliseconds(),
	})
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, req models.MockupRequest, log logger.Logger) (*models.MockupResult, error) {
	mode, ok := models.ParseMode(string(req.Mode))
	if !ok {
		return nil, errors.NewInvalidMockupRequestError(fmt.Sprintf("unknown mode %q", req.Mode))
	}
	if req.DesignImageURL == "" {
		return nil, errors.NewInvalidMockupRequestError("designImageUrl is required")
	}

	runID := uuid.NewString()
	jobDir := filepath.Join(o.cfg.WorkDir, "job-"+runID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return nil, errors.NewInternalError(fmt.Errorf("create job directory: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(jobDir); err != nil {
			log.Warn("Failed to remove job directory", map[string]interface{}{"dir": jobDir, "error": err.Error()})
		}
	}()

	tpl := o.templates.Resolve(ctx, req.ProductID)
	log.Debug("Template resolved", map[string]interface{}{
		"kind":   tpl.Kind,
		"source": tpl.Source,
		"path":   tpl.Path,
	})

	designPath, err := o.fetcher.Fetch(ctx, req.DesignImageURL, jobDir)
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("mockup_%s_%s_%s.png", safeToken(req.DesignID), safeToken(req.ProductID), runID)
	result := &models.MockupResult{
		OutputImagePath: filepath.Join(o.cfg.OutputDir, filename),
		Filename:        filename,
		Template:        tpl,
	}
	in := compositor.Input{
		TemplatePath: tpl.Path,
		DesignPath:   designPath,
		OutputPath:   result.OutputImagePath,
	}

	switch {
	case tpl.Found() && tpl.Kind == models.TemplateKindLayeredDocument:
		strategies := o.StrategiesFor(mode)
		for i, strategy := range strategies {
			c, ok := o.compositors[strategy]
			if !ok {
				log.Warn("Strategy not available, skipping", map[string]interface{}{"strategy": strategy})
				continue
			}
			if o.tryCandidates(ctx, len(strategies)-i, result, c, in, log) {
				return result, nil
			}
		}
	case tpl.Found() && tpl.Kind == models.TemplateKindFlatImage:
		if c, ok := o.compositors[models.StrategyFlat]; ok {
			if err := o.attempt(ctx, result, c, in, log); err == nil {
				return result, nil
			}
		}
	}

	in.LayerName = ""
	result.FallbackUsed = true
	if err := o.attempt(ctx, result, o.compositors[models.StrategyBasic], in, log); err != nil {
		return nil, err
	}
	return result, nil
}

// tryCandidates runs c once per layer candidate inside the strategy's share of
// the request deadline. remaining counts this strategy and those after it.
func (o *Orchestrator) tryCandidates(ctx context.Context, remaining int, result *models.MockupResult, c compositor.Compositor, in compositor.Input, log logger.Logger) bool {
	strategyCtx, cancel := o.strategyContext(ctx, remaining)
	defer cancel()

	for _, name := range o.cfg.LayerCandidates {
		if strategyCtx.Err() != nil {
			log.Warn("Strategy budget exhausted, skipping remaining candidates", map[string]interface{}{
				"strategy":  c.Strategy(),
				"candidate": name,
			})
			return false
		}
		in.LayerName = name
		if err := o.attempt(strategyCtx, result, c, in, log); err == nil {
			return true
		}
	}
	return false
}

// strategyContext splits the time left before the request deadline evenly
// across the remaining strategies, after holding back the fallback reserve.
// Without a deadline it only adds cancellation.
func (o *Orchestrator) strategyContext(ctx context.Context, remaining int) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok || remaining < 1 {
		return context.WithCancel(ctx)
	}
	left := time.Until(deadline)
	reserve := o.cfg.FallbackReserve
	if reserve > left/4 {
		reserve = left / 4
	}
	return context.WithTimeout(ctx, (left-reserve)/time.Duration(remaining))
}

// attempt runs one composition under the per-attempt timeout and records it.
func (o *Orchestrator) attempt(ctx context.Context, result *models.MockupResult, c compositor.Compositor, in compositor.Input, log logger.Logger) error {
	strategy := c.Strategy()
	attemptCtx := ctx
	var cancel context.CancelFunc = func() {}
	if o.cfg.AttemptTimeout > 0 && strategy != models.StrategyBasic {
		attemptCtx, cancel = context.WithTimeout(ctx, o.cfg.AttemptTimeout)
	}
	defer cancel()

	attemptCtx, span := o.obs.StartSpan(attemptCtx, "mockup.attempt",
		attribute.String("strategy", string(strategy)),
		attribute.String("candidate", in.LayerName),
	)
	defer span.End()

	start := time.Now()
	err := c.Compose(attemptCtx, in)
	elapsed := time.Since(start)

	rec := models.CompositionAttempt{
		Strategy:           strategy,
		LayerNameCandidate: in.LayerName,
		Outcome:            outcomeOf(attemptCtx, err),
		Duration:           elapsed,
	}
	if err != nil {
		rec.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, string(rec.Outcome))
	}
	result.Attempts = append(result.Attempts, rec)

	metrics.CompositionAttempts.WithLabelValues(string(strategy), string(rec.Outcome)).Inc()
	metrics.CompositionAttemptDuration.WithLabelValues(string(strategy)).Observe(elapsed.Seconds())

	fields := map[string]interface{}{
		"strategy":    strategy,
		"candidate":   in.LayerName,
		"outcome":     rec.Outcome,
		"duration_ms": elapsed.Milliseconds(),
	}
	if err != nil {
		fields["error"] = err.Error()
		log.Warn("Composition attempt failed", fields)
		return err
	}
	log.Debug("Composition attempt succeeded", fields)
	result.StrategyUsed = strategy
	return nil
}

func outcomeOf(ctx context.Context, err error) models.Outcome {
	switch {
	case err == nil:
		return models.OutcomeSuccess
	case errors.CodeOf(err) == errors.ErrCodeLayerNotFound:
		return models.OutcomeNotFound
	case errors.CodeOf(err) == errors.ErrCodeAutomationTimeout, ctx.Err() == context.DeadlineExceeded:
		return models.OutcomeTimeout
	default:
		return models.OutcomeError
	}
}

var unsafeToken = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func safeToken(s string) string {
	s = unsafeToken.ReplaceAllString(s, "-")
	if s == "" {
		return "unknown"
	}
	return s
}
