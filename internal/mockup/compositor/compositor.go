// Package compositor places a design image onto a product template.
package compositor

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"mockup-workers/internal/common/errors"
	"mockup-workers/internal/models"
)

// Input describes one composition. LayerName is only used by layer-aware strategies.
type Input struct {
	TemplatePath string
	DesignPath   string
	LayerName    string
	OutputPath   string
}

// Compositor writes a PNG mockup to Input.OutputPath.
type Compositor interface {
	Strategy() models.Strategy
	Compose(ctx context.Context, in Input) error
}

func openImage(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.NewEncodeDecodeFailedError(path, err)
	}
	return img, nil
}

func savePNG(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewEncodeDecodeFailedError(path, err)
	}
	if err := imaging.Save(img, path); err != nil {
		return errors.NewEncodeDecodeFailedError(path, err)
	}
	return nil
}

// fitSize scales (w, h) to the largest size that fits inside (maxW, maxH)
// keeping the aspect ratio. Unlike imaging.Fit it also scales up.
func fitSize(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 || maxW <= 0 || maxH <= 0 {
		return 0, 0
	}
	scale := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	fw := int(math.Round(float64(w) * scale))
	fh := int(math.Round(float64(h) * scale))
	if fw < 1 {
		fw = 1
	}
	if fh < 1 {
		fh = 1
	}
	if fw > maxW {
		fw = maxW
	}
	if fh > maxH {
		fh = maxH
	}
	return fw, fh
}

// ParseHexColor parses "#RRGGBB" or "#RRGGBBAA".
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	if len(hex) == 6 {
		return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("composition cancelled: %w", err)
	}
	return nil
}
