package remoteeditor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/semaphore"

	"mockup-workers/internal/common/errors"
	"mockup-workers/internal/common/logger"
	"mockup-workers/internal/common/metrics"
	"mockup-workers/internal/mockup/compositor"
	"mockup-workers/internal/models"
)

// Options configures the editor page and the bounded waits of an attempt.
type Options struct {
	URL               string
	APIGlobal         string
	NavigationTimeout time.Duration
	PollAttempts      int
	PollInterval      time.Duration
	DocumentWait      time.Duration
	ExportTimeout     time.Duration
	MaxSessions       int
}

func (o Options) withDefaults() Options {
	if o.APIGlobal == "" {
		o.APIGlobal = "app"
	}
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = 60 * time.Second
	}
	if o.PollAttempts <= 0 {
		o.PollAttempts = 30
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.DocumentWait <= 0 {
		o.DocumentWait = 30 * time.Second
	}
	if o.ExportTimeout <= 0 {
		o.ExportTimeout = 30 * time.Second
	}
	if o.MaxSessions <= 0 {
		o.MaxSessions = 1
	}
	return o
}

// Compositor runs one candidate per Compose call through a fresh browser
// session. The number of concurrent sessions is capped by MaxSessions.
type Compositor struct {
	opts     Options
	launcher Launcher
	sessions *semaphore.Weighted
	logger   logger.Logger

	// observe, when set, sees every state the attempt enters.
	observe func(State)
}

func New(opts Options, launcher Launcher, log logger.Logger) *Compositor {
	opts = opts.withDefaults()
	return &Compositor{
		opts:     opts,
		launcher: launcher,
		sessions: semaphore.NewWeighted(int64(opts.MaxSessions)),
		logger:   log,
	}
}

func (c *Compositor) Strategy() models.Strategy { return models.StrategyRemoteEditor }

func (c *Compositor) Compose(ctx context.Context, in compositor.Input) error {
	if err := c.sessions.Acquire(ctx, 1); err != nil {
		return errors.NewAutomationTimeoutError("session", err)
	}
	defer c.sessions.Release(1)

	metrics.RemoteEditorSessionsActive.Inc()
	defer metrics.RemoteEditorSessionsActive.Dec()

	a := &attempt{
		opts:    c.opts,
		in:      in,
		observe: c.observe,
		logger: c.logger.WithFields(map[string]interface{}{
			"strategy":  models.StrategyRemoteEditor,
			"candidate": in.LayerName,
		}),
	}
	return a.run(ctx, c.launcher)
}

type attempt struct {
	opts    Options
	in      compositor.Input
	logger  logger.Logger
	observe func(State)
	state   State
}

func (a *attempt) enter(s State) {
	a.state = s
	if a.observe != nil {
		a.observe(s)
	}
	a.logger.Debug("Remote editor state", map[string]interface{}{"state": s.String()})
}

func (a *attempt) run(ctx context.Context, launcher Launcher) (err error) {
	a.enter(StateLaunching)
	sess, err := launcher.Launch(ctx)
	if err != nil {
		a.enter(StateFailed)
		if ctx.Err() != nil {
			return errors.NewAutomationTimeoutError(StateLaunching.String(), err)
		}
		return errors.NewAutomationLaunchFailedError(err)
	}

	defer func() {
		if cerr := sess.Close(); cerr != nil {
			a.logger.Warn("Failed to close browser session", map[string]interface{}{"error": cerr.Error()})
		}
		if err != nil {
			a.logger.Warn("Remote editor attempt failed", map[string]interface{}{
				"state": a.state.String(),
				"error": err.Error(),
			})
			a.enter(StateFailed)
			return
		}
		a.enter(StateClosed)
	}()

	steps := []struct {
		next State
		fn   func(context.Context, Session) error
	}{
		{StatePageReady, a.loadPage},
		{StateEditorLoaded, a.waitForEditor},
		{StateTemplateOpen, a.openTemplate},
		{StateDesignOpen, a.openDesign},
		{StateComposited, a.paste},
		{StateExported, a.export},
	}
	for _, step := range steps {
		if err := step.fn(ctx, sess); err != nil {
			if ctx.Err() != nil && errors.CodeOf(err) != errors.ErrCodeAutomationTimeout {
				return errors.NewAutomationTimeoutError(step.next.String(), err)
			}
			return err
		}
		a.enter(step.next)
	}
	return nil
}

func (a *attempt) loadPage(ctx context.Context, s Session) error {
	navCtx, cancel := context.WithTimeout(ctx, a.opts.NavigationTimeout)
	err := s.Navigate(navCtx, a.opts.URL, false)
	cancel()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}

	a.logger.Warn("Editor navigation failed, retrying with relaxed wait", map[string]interface{}{
		"url":   a.opts.URL,
		"error": err.Error(),
	})
	navCtx, cancel = context.WithTimeout(ctx, a.opts.NavigationTimeout)
	defer cancel()
	if err := s.Navigate(navCtx, a.opts.URL, true); err != nil {
		return errors.NewAutomationTimeoutError(StatePageReady.String(), err)
	}
	return nil
}

// waitForEditor polls for the scripting API, reloading the page once before
// giving up.
func (a *attempt) waitForEditor(ctx context.Context, s Session) error {
	for cycle := 0; cycle < 2; cycle++ {
		if cycle > 0 {
			a.logger.Warn("Editor API not available, reloading page", map[string]interface{}{
				"api": a.opts.APIGlobal,
			})
			reloadCtx, cancel := context.WithTimeout(ctx, a.opts.NavigationTimeout)
			err := s.Reload(reloadCtx)
			cancel()
			if err != nil && ctx.Err() != nil {
				return err
			}
		}

		for i := 0; i < a.opts.PollAttempts; i++ {
			var ready bool
			if err := evalInto(ctx, s, &ready, scriptReady, a.opts.APIGlobal); err == nil && ready {
				return nil
			}
			if err := sleep(ctx, a.opts.PollInterval); err != nil {
				return err
			}
		}
	}
	return errors.NewAutomationTimeoutError(StateEditorLoaded.String(),
		fmt.Errorf("scripting API %q not available after %d polls", a.opts.APIGlobal, 2*a.opts.PollAttempts))
}

func (a *attempt) openDocument(ctx context.Context, s Session, path, name string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.NewEncodeDecodeFailedError(path, err)
	}
	var before int
	return evalInto(ctx, s, &before, scriptOpen, a.opts.APIGlobal, base64.StdEncoding.EncodeToString(data), name)
}

func (a *attempt) openTemplate(ctx context.Context, s Session) error {
	if err := a.openDocument(ctx, s, a.in.TemplatePath, "template"); err != nil {
		return err
	}
	err := a.waitFor(ctx, func(st docState) bool { return st.Documents >= 1 && st.Layers > 0 }, s)
	if err != nil {
		return errors.NewAutomationTimeoutError(StateTemplateOpen.String(), err)
	}
	return nil
}

func (a *attempt) openDesign(ctx context.Context, s Session) error {
	if err := a.openDocument(ctx, s, a.in.DesignPath, "design"); err != nil {
		return err
	}
	err := a.waitFor(ctx, func(st docState) bool { return st.Documents >= 2 && st.Layers > 0 }, s)
	if err != nil {
		return errors.NewAutomationTimeoutError(StateDesignOpen.String(), err)
	}
	var remaining int
	return evalInto(ctx, s, &remaining, scriptCopyDesign, a.opts.APIGlobal)
}

func (a *attempt) paste(ctx context.Context, s Session) error {
	var res pasteResult
	if err := evalInto(ctx, s, &res, scriptPaste, a.opts.APIGlobal, a.in.LayerName); err != nil {
		return err
	}
	if !res.Found {
		return errors.NewLayerNotFoundError(a.in.LayerName)
	}
	a.logger.Debug("Design pasted into layer", map[string]interface{}{"layer": res.Name})
	return nil
}

func (a *attempt) export(ctx context.Context, s Session) error {
	exportCtx, cancel := context.WithTimeout(ctx, a.opts.ExportTimeout)
	defer cancel()

	var encoded string
	if err := evalInto(exportCtx, s, &encoded, scriptExport, a.opts.APIGlobal); err != nil {
		if ctx.Err() != nil {
			return err
		}
		return errors.NewExportFailedError(err)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return errors.NewExportFailedError(fmt.Errorf("decode export payload: %w", err))
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return errors.NewExportFailedError(fmt.Errorf("decode exported image: %w", err))
	}
	if err := os.MkdirAll(filepath.Dir(a.in.OutputPath), 0o755); err != nil {
		return errors.NewExportFailedError(err)
	}
	if err := imaging.Save(img, a.in.OutputPath); err != nil {
		return errors.NewExportFailedError(err)
	}
	return nil
}

// waitFor polls the active document state until done holds or DocumentWait
// elapses.
func (a *attempt) waitFor(ctx context.Context, done func(docState) bool, s Session) error {
	wctx, cancel := context.WithTimeout(ctx, a.opts.DocumentWait)
	defer cancel()

	var lastErr error
	for {
		var st docState
		err := evalInto(wctx, s, &st, scriptState, a.opts.APIGlobal)
		if err == nil && done(st) {
			return nil
		}
		if err != nil {
			lastErr = err
		}
		if err := sleep(wctx, a.opts.PollInterval); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
			return err
		}
	}
}

func evalInto(ctx context.Context, s Session, out interface{}, script Script, args ...interface{}) error {
	raw, err := s.Eval(ctx, script, args...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("eval %s: unexpected result %s: %w", script.Name, raw, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
