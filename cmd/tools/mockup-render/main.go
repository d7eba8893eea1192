// cmd/tools/mockup-render/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"mockup-workers/internal/common/config"
	"mockup-workers/internal/common/logger"
	"mockup-workers/internal/common/observability"
	"mockup-workers/internal/mockup/assembly"
	gm "mockup-workers/internal/workers/mockup/generate-mockup"
)

type options struct {
	DesignURL   string
	DesignID    string
	SKUs        []string
	Mode        string
	ConfigPath  string
	Format      string
	Concurrency int
}

// Rendered is the per-SKU line of the report. Output mirrors the job worker's
// variables; Error is set only when the request itself was rejected.
type Rendered struct {
	SKU    string     `json:"sku" yaml:"sku"`
	Output *gm.Output `json:"output,omitempty" yaml:"output,omitempty"`
	Error  string     `json:"error,omitempty" yaml:"error,omitempty"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "mockup-render",
		Short: "Render product mockups for one design locally",
		Long: `Runs the mockup pipeline outside of Zeebe for one design and one or
more product SKUs, printing the same response the generate-mockup worker returns.`,
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.DesignURL, "design-url", "", "absolute http(s) URL of the design image")
	f.StringVar(&opts.DesignID, "design-id", "local", "design identifier used in output names")
	f.StringArrayVar(&opts.SKUs, "sku", nil, "product SKU to render (repeatable)")
	f.StringVar(&opts.Mode, "mode", "auto", "strategy mode (auto|remoteEditor|localDocument)")
	f.StringVar(&opts.ConfigPath, "config", "", "config file (defaults to the worker manager lookup)")
	f.StringVar(&opts.Format, "format", "json", "output format (json|yaml)")
	f.IntVar(&opts.Concurrency, "concurrency", 2, "SKUs rendered at the same time")
	_ = cmd.MarkFlagRequired("design-url")
	_ = cmd.MarkFlagRequired("sku")

	return cmd
}

func (o *options) validate() error {
	if o.Format != "json" && o.Format != "yaml" {
		return fmt.Errorf("invalid format %q: must be json or yaml", o.Format)
	}
	if o.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}
	if len(o.SKUs) == 0 {
		return fmt.Errorf("at least one --sku is required")
	}
	return nil
}

func run(ctx context.Context, opts *options, out io.Writer) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.NewFromConfig(cfg.Logging)

	obs := observability.New(cfg.Metrics.ServiceName)
	defer obs.Shutdown()

	pipeline, err := assembly.Build(cfg, assembly.Options{Observability: obs}, log)
	if err != nil {
		return err
	}

	handler := gm.NewHandler(gm.LoadConfig(cfg), pipeline, log)
	results, err := render(ctx, handler, opts)
	if err != nil {
		return err
	}
	return write(out, opts.Format, results)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

type executor interface {
	Execute(ctx context.Context, input *gm.Input) (*gm.Output, error)
}

// render runs one pipeline per SKU, at most opts.Concurrency at a time. A
// rejected request is reported in its row and does not stop the other SKUs.
func render(ctx context.Context, h executor, opts *options) ([]Rendered, error) {
	results := make([]Rendered, len(opts.SKUs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, sku := range opts.SKUs {
		i, sku := i, sku
		g.Go(func() error {
			results[i].SKU = sku
			output, err := h.Execute(gctx, &gm.Input{
				DesignID:       opts.DesignID,
				SKU:            sku,
				DesignImageURL: opts.DesignURL,
				Mode:           opts.Mode,
			})
			if err != nil {
				results[i].Error = err.Error()
				return nil
			}
			results[i].Output = output
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, ctx.Err()
}

func write(out io.Writer, format string, results []Rendered) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(results)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
