package remoteeditor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"mockup-workers/internal/common/logger"
)

// RodOptions configures the local Chromium used for sessions.
type RodOptions struct {
	// BrowserBin is the browser executable. Empty means look it up on PATH.
	BrowserBin string
	Headless   bool
	NoSandbox  bool
}

// RodLauncher starts a dedicated browser process per session.
type RodLauncher struct {
	opts   RodOptions
	logger logger.Logger
}

func NewRodLauncher(opts RodOptions, log logger.Logger) *RodLauncher {
	return &RodLauncher{opts: opts, logger: log}
}

func (l *RodLauncher) browserBin() (string, error) {
	if l.opts.BrowserBin != "" {
		return l.opts.BrowserBin, nil
	}
	if bin, ok := launcher.LookPath(); ok {
		return bin, nil
	}
	return "", fmt.Errorf("no browser binary found")
}

func (l *RodLauncher) Launch(ctx context.Context) (Session, error) {
	bin, err := l.browserBin()
	if err != nil {
		return nil, err
	}

	lc := launcher.New().
		Context(ctx).
		Bin(bin).
		Headless(l.opts.Headless).
		NoSandbox(l.opts.NoSandbox).
		Leakless(false)

	controlURL, err := lc.Launch()
	if err != nil {
		lc.Kill()
		lc.Cleanup()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		lc.Kill()
		lc.Cleanup()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	s := &rodSession{launcher: lc, browser: browser}

	incognito, err := browser.Incognito()
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("incognito context: %w", err)
	}
	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}
	s.page = page

	l.logger.Debug("Browser session started", map[string]interface{}{
		"bin":      bin,
		"headless": l.opts.Headless,
	})
	return s, nil
}

type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page

	closeOnce sync.Once
	closeErr  error
}

func (s *rodSession) Navigate(ctx context.Context, url string, relaxed bool) error {
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return err
	}
	if relaxed {
		return nil
	}
	return p.WaitLoad()
}

func (s *rodSession) Reload(ctx context.Context) error {
	p := s.page.Context(ctx)
	if err := p.Reload(); err != nil {
		return err
	}
	return p.WaitLoad()
}

func (s *rodSession) Eval(ctx context.Context, script Script, args ...interface{}) (json.RawMessage, error) {
	res, err := s.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           script.JS,
		JSArgs:       args,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return nil, fmt.Errorf("eval %s: %w", script.Name, err)
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("eval %s: %w", script.Name, err)
	}
	return raw, nil
}

// Close tears down the page, the browser and its process. Safe to call twice.
func (s *rodSession) Close() error {
	s.closeOnce.Do(func() {
		if s.page != nil {
			_ = s.page.Close()
		}
		s.closeErr = s.browser.Close()
		s.launcher.Kill()
		s.launcher.Cleanup()
	})
	return s.closeErr
}
