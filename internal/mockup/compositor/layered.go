package compositor

import (
	"context"
	"image"

	"github.com/disintegration/imaging"

	"mockup-workers/internal/common/errors"
	"mockup-workers/internal/mockup/layers"
	"mockup-workers/internal/models"
)

// Document is a parsed layered template: its layer hierarchy and the
// flattened base raster the design is composited onto.
type Document struct {
	Tree *layers.Tree
	Base image.Image
}

// Parser reads a layered template document.
type Parser interface {
	Parse(ctx context.Context, path string) (*Document, error)
}

// Layered stretches the design over the bounding box of the named layer.
type Layered struct {
	parser Parser
}

func NewLayered(parser Parser) *Layered {
	return &Layered{parser: parser}
}

func (l *Layered) Strategy() models.Strategy { return models.StrategyLocalDocument }

func (l *Layered) Compose(ctx context.Context, in Input) error {
	doc, err := l.parser.Parse(ctx, in.TemplatePath)
	if err != nil {
		return err
	}

	id, ok := layers.Find(doc.Tree, in.LayerName)
	if !ok {
		return errors.NewLayerNotFoundError(in.LayerName)
	}
	box := doc.Tree.Node(id).Box
	if box.Empty() {
		return errors.NewLayerNotFoundError(in.LayerName).WithMetadata("reason", "empty bounding box")
	}

	design, err := openImage(in.DesignPath)
	if err != nil {
		return err
	}
	if err := checkContext(ctx); err != nil {
		return err
	}

	scaled := imaging.Resize(design, box.Width, box.Height, imaging.Lanczos)
	out := imaging.Overlay(doc.Base, scaled, image.Pt(box.Left, box.Top), 1.0)

	return savePNG(out, in.OutputPath)
}
