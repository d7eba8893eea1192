package compositor

import (
	"context"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"mockup-workers/internal/models"
)

// Flat places the design inside a centred region of a flat template image.
// The region is the template rectangle inset by MarginRatio of each dimension.
type Flat struct {
	MarginRatio float64
}

func NewFlat(marginRatio float64) *Flat {
	return &Flat{MarginRatio: marginRatio}
}

func (f *Flat) Strategy() models.Strategy { return models.StrategyFlat }

// Region returns the design area for a template of the given size.
func (f *Flat) Region(width, height int) image.Rectangle {
	mx := int(math.Round(float64(width) * f.MarginRatio))
	my := int(math.Round(float64(height) * f.MarginRatio))
	return image.Rect(mx, my, width-mx, height-my)
}

func (f *Flat) Compose(ctx context.Context, in Input) error {
	tpl, err := openImage(in.TemplatePath)
	if err != nil {
		return err
	}
	design, err := openImage(in.DesignPath)
	if err != nil {
		return err
	}
	if err := checkContext(ctx); err != nil {
		return err
	}

	size := tpl.Bounds().Size()
	region := f.Region(size.X, size.Y)
	db := design.Bounds()
	w, h := fitSize(db.Dx(), db.Dy(), region.Dx(), region.Dy())

	canvas := imaging.Clone(tpl)
	if w > 0 && h > 0 {
		scaled := imaging.Resize(design, w, h, imaging.Lanczos)
		pos := image.Pt(
			region.Min.X+(region.Dx()-w)/2,
			region.Min.Y+(region.Dy()-h)/2,
		)
		canvas = imaging.Overlay(canvas, scaled, pos, 1.0)
	}

	return savePNG(canvas, in.OutputPath)
}
