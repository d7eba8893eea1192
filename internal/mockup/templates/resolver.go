// Package templates resolves the product template used for a mockup.
package templates

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"mockup-workers/internal/common/errors"
	"mockup-workers/internal/common/logger"
	"mockup-workers/internal/common/metrics"
	"mockup-workers/internal/models"
)

// Downloader fetches url into a local file. *http.Client from internal/common/http satisfies it.
type Downloader interface {
	DownloadToFile(ctx context.Context, url, path string) (string, error)
}

type Options struct {
	Dir         string
	Extensions  []string // preference order
	DefaultName string
	Remote      RemoteOptions
}

type RemoteOptions struct {
	Enabled  bool
	Source   string
	CacheDir string
	Timeout  time.Duration
}

// Resolver finds a template for a product: local file, local default, then the
// remote source. It never fails; when nothing is usable it returns models.NoTemplate.
type Resolver struct {
	opts       Options
	downloader Downloader
	index      CacheIndex
	logger     logger.Logger
}

func NewResolver(opts Options, downloader Downloader, index CacheIndex, log logger.Logger) *Resolver {
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".psd", ".png", ".jpg", ".jpeg"}
	}
	for i, ext := range opts.Extensions {
		if !strings.HasPrefix(ext, ".") {
			opts.Extensions[i] = "." + ext
		}
	}
	if opts.DefaultName == "" {
		opts.DefaultName = "default"
	}
	if opts.Remote.Timeout <= 0 {
		opts.Remote.Timeout = 30 * time.Second
	}
	if index == nil {
		index = NopIndex{}
	}
	return &Resolver{
		opts:       opts,
		downloader: downloader,
		index:      index,
		logger:     log.WithFields(map[string]interface{}{"component": "template-resolver"}),
	}
}

// Resolve returns the template for productID.
func (r *Resolver) Resolve(ctx context.Context, productID string) models.ResolvedTemplate {
	resolved := r.resolve(ctx, productID)
	metrics.TemplateResolutions.WithLabelValues(string(resolved.Kind), string(resolved.Source)).Inc()

	r.logger.Info("template resolved", map[string]interface{}{
		"productId": productID,
		"path":      resolved.Path,
		"kind":      resolved.Kind,
		"source":    resolved.Source,
	})
	return resolved
}

func (r *Resolver) resolve(ctx context.Context, productID string) models.ResolvedTemplate {
	safeID := isSafeName(productID)
	if !safeID {
		r.logger.Warn("product id is not a safe file name, skipping product lookups", map[string]interface{}{
			"productId": productID,
		})
	}

	if safeID {
		if p, ok := r.findLocal(productID); ok {
			return models.ResolvedTemplate{Path: p, Kind: KindOf(p), Source: models.TemplateSourceLocal}
		}
	}
	if p, ok := r.findLocal(r.opts.DefaultName); ok {
		return models.ResolvedTemplate{Path: p, Kind: KindOf(p), Source: models.TemplateSourceLocalDefault}
	}

	if r.opts.Remote.Enabled && r.opts.Remote.Source != "" && r.downloader != nil {
		if p, ok := r.resolveRemote(ctx, productID, safeID); ok {
			return models.ResolvedTemplate{Path: p, Kind: KindOf(p), Source: models.TemplateSourceRemote}
		}
	}

	return models.NoTemplate
}

func (r *Resolver) findLocal(name string) (string, bool) {
	for _, ext := range r.opts.Extensions {
		p := filepath.Join(r.opts.Dir, name+ext)
		if fileExists(p) {
			return p, true
		}
	}
	return "", false
}

func (r *Resolver) resolveRemote(ctx context.Context, productID string, safeID bool) (string, bool) {
	source := r.opts.Remote.Source

	if IsDirectSource(source) {
		if !safeID {
			return "", false
		}
		return r.fetchCached(ctx, productID, source)
	}

	base := strings.TrimRight(source, "/")
	if safeID {
		if p, ok := r.fetchCached(ctx, productID, base+"/"+url.PathEscape(productID)+".psd"); ok {
			return p, true
		}
	}
	return r.fetchCached(ctx, r.opts.DefaultName, base+"/"+url.PathEscape(r.opts.DefaultName)+".psd")
}

// fetchCached returns {cacheDir}/{name}.psd, downloading it from src only
// when neither the index nor the cache directory already has it.
func (r *Resolver) fetchCached(ctx context.Context, name, src string) (string, bool) {
	if p, ok := r.index.Lookup(ctx, name); ok && fileExists(p) {
		return p, true
	}

	dest := filepath.Join(r.opts.Remote.CacheDir, name+".psd")
	if fileExists(dest) {
		r.index.Remember(ctx, name, dest)
		return dest, true
	}

	dlCtx, cancel := context.WithTimeout(ctx, r.opts.Remote.Timeout)
	defer cancel()

	if _, err := r.downloader.DownloadToFile(dlCtx, src, dest); err != nil {
		stdErr := errors.NewTemplateUnavailableError(name, err)
		r.logger.Warn("remote template download failed", map[string]interface{}{
			"url":       src,
			"errorCode": string(stdErr.Code),
			"error":     err.Error(),
		})
		return "", false
	}

	r.index.Remember(ctx, name, dest)
	return dest, true
}

// KindOf classifies a template file by extension.
func KindOf(p string) models.TemplateKind {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".psd":
		return models.TemplateKindLayeredDocument
	case ".png", ".jpg", ".jpeg":
		return models.TemplateKindFlatImage
	default:
		return models.TemplateKindNone
	}
}

// IsDirectSource reports whether source points at a single layered document
// rather than a directory of per-product documents.
func IsDirectSource(source string) bool {
	p := source
	if u, err := url.Parse(source); err == nil && u.Path != "" {
		p = u.Path
	}
	return strings.EqualFold(path.Ext(p), ".psd")
}

func isSafeName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
