// Package fetch downloads the user's design image with bounded retries.
package fetch

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"mockup-workers/internal/common/errors"
	"mockup-workers/internal/common/logger"
	"mockup-workers/internal/common/metrics"
)

type Downloader interface {
	DownloadToFile(ctx context.Context, url, path string) (string, error)
}

type Options struct {
	MaxAttempts int
	RetryDelay  time.Duration
	Timeout     time.Duration // per attempt
}

// Fetcher retries a download a fixed number of times with a fixed delay.
type Fetcher struct {
	opts       Options
	downloader Downloader
	logger     logger.Logger
}

func NewFetcher(opts Options, downloader Downloader, log logger.Logger) *Fetcher {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	return &Fetcher{
		opts:       opts,
		downloader: downloader,
		logger:     log.WithFields(map[string]interface{}{"component": "design-fetcher"}),
	}
}

// Fetch downloads rawURL into dir and returns the local path. The file is named
// design{ext}, with ext taken from the response content type, then the URL
// path, then ".png". After MaxAttempts failures it returns DESIGN_FETCH_FAILED.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.NewDesignFetchFailedError(rawURL, 0, err)
	}
	staging := filepath.Join(dir, "design.download")

	var lastErr error
	for attempt := 1; attempt <= f.opts.MaxAttempts; attempt++ {
		contentType, err := f.attempt(ctx, rawURL, staging)
		if err == nil {
			final := filepath.Join(dir, "design"+Extension(contentType, rawURL))
			if err := os.Rename(staging, final); err != nil {
				return "", errors.NewDesignFetchFailedError(rawURL, attempt, err)
			}
			f.logger.Debug("design fetched", map[string]interface{}{
				"url":     rawURL,
				"path":    final,
				"attempt": attempt,
			})
			return final, nil
		}

		lastErr = err
		f.logger.Warn("design fetch attempt failed", map[string]interface{}{
			"url":         rawURL,
			"attempt":     attempt,
			"maxAttempts": f.opts.MaxAttempts,
			"error":       err.Error(),
		})

		if attempt == f.opts.MaxAttempts {
			break
		}
		metrics.DesignFetchRetries.Inc()

		select {
		case <-time.After(f.opts.RetryDelay):
		case <-ctx.Done():
			return "", errors.NewDesignFetchFailedError(rawURL, attempt, ctx.Err())
		}
	}

	return "", errors.NewDesignFetchFailedError(rawURL, f.opts.MaxAttempts, lastErr)
}

func (f *Fetcher) attempt(ctx context.Context, rawURL, dest string) (string, error) {
	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}
	ct, err := f.downloader.DownloadToFile(ctx, rawURL, dest)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	return ct, nil
}

var contentTypeExt = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
	"image/tiff": ".tiff",
}

var knownExt = map[string]string{
	".png":  ".png",
	".jpg":  ".jpg",
	".jpeg": ".jpg",
	".gif":  ".gif",
	".webp": ".webp",
	".bmp":  ".bmp",
	".tif":  ".tiff",
	".tiff": ".tiff",
}

// Extension picks the file extension for a downloaded design.
func Extension(contentType, rawURL string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		if ext, ok := contentTypeExt[strings.ToLower(mt)]; ok {
			return ext
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		if ext, ok := knownExt[strings.ToLower(path.Ext(u.Path))]; ok {
			return ext
		}
	}
	return ".png"
}
