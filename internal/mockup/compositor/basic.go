package compositor

import (
	"context"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"mockup-workers/internal/models"
)

var DefaultBackground = color.NRGBA{R: 0xF2, G: 0xF2, B: 0xF2, A: 0xFF}

// Basic is the last resort: the design, unmodified, centred on a plain canvas
// Scale times its size. Its only failures are image I/O errors.
type Basic struct {
	Scale      float64
	Background color.NRGBA
}

func NewBasic(scale float64, background color.NRGBA) *Basic {
	if scale < 1 {
		scale = 1.5
	}
	return &Basic{Scale: scale, Background: background}
}

func (b *Basic) Strategy() models.Strategy { return models.StrategyBasic }

// Compose ignores the template and layer name.
func (b *Basic) Compose(ctx context.Context, in Input) error {
	design, err := openImage(in.DesignPath)
	if err != nil {
		return err
	}

	size := design.Bounds().Size()
	w := int(math.Round(float64(size.X) * b.Scale))
	h := int(math.Round(float64(size.Y) * b.Scale))

	canvas := imaging.New(w, h, b.Background)
	canvas = imaging.OverlayCenter(canvas, design, 1.0)

	return savePNG(canvas, in.OutputPath)
}
