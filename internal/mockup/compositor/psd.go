package compositor

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	"github.com/oov/psd"

	"mockup-workers/internal/common/errors"
	"mockup-workers/internal/mockup/layers"
)

// PSDParser reads Photoshop documents with github.com/oov/psd.
//
// With FlattenLayers set the merged image stored in the file is skipped and the
// base raster is rebuilt from the visible layers. Files saved without
// "maximize compatibility" carry a blank merged image.
type PSDParser struct {
	FlattenLayers bool
}

func NewPSDParser(flattenLayers bool) *PSDParser {
	return &PSDParser{FlattenLayers: flattenLayers}
}

func (p *PSDParser) Parse(ctx context.Context, path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewEncodeDecodeFailedError(path, err)
	}
	defer f.Close()

	doc, _, err := psd.Decode(bufio.NewReader(f), &psd.DecodeOptions{SkipMergedImage: p.FlattenLayers})
	if err != nil {
		return nil, errors.NewEncodeDecodeFailedError(path, fmt.Errorf("decode psd: %w", err))
	}
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	tree := layers.NewTree()
	addPSDLayers(tree, layers.Root, doc.Layer)

	base := doc.Picker
	if base == nil {
		base = compositeVisible(doc.Config.Rect, doc.Layer)
	}

	return &Document{Tree: tree, Base: base}, nil
}

// oov/psd lists siblings bottom-most first; the tree wants panel order.
func addPSDLayers(tree *layers.Tree, parent layers.NodeID, ls []psd.Layer) {
	for i := len(ls) - 1; i >= 0; i-- {
		l := &ls[i]
		name := l.UnicodeName
		if name == "" {
			name = l.Name
		}
		id := tree.Add(parent, name, layers.BoxFromRect(l.Rect), l.Folder())
		if len(l.Layer) > 0 {
			addPSDLayers(tree, id, l.Layer)
		}
	}
}

// compositeVisible flattens visible layers bottom-up when the document has no
// merged image.
func compositeVisible(rect image.Rectangle, ls []psd.Layer) image.Image {
	canvas := imaging.New(rect.Dx(), rect.Dy(), image.Transparent)
	var draw func(ls []psd.Layer)
	draw = func(ls []psd.Layer) {
		for i := range ls {
			l := &ls[i]
			if !l.Visible() {
				continue
			}
			if len(l.Layer) > 0 {
				draw(l.Layer)
			}
			if l.Picker == nil || l.Rect.Empty() {
				continue
			}
			canvas = imaging.Overlay(canvas, l.Picker, l.Rect.Min.Sub(rect.Min), float64(l.Opacity)/255)
		}
	}
	draw(ls)
	return canvas
}
