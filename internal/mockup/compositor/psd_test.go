package compositor

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mockuperrors "mockup-workers/internal/common/errors"
	"mockup-workers/internal/mockup/layers"
)

// testdata/group_layer.psd is a 64x64 RGB document. Panel order, top first:
//
//	グループ 1            group
//	  レイヤー 2          (4,33)-(64,64), opaque black
//	  グループ 2          group
//	    レイヤー 3        (0,2)-(64,64), white
//	レイヤー 1            (10,8)-(64,64)
//	レイヤー 0            (0,0)-(64,64)
const groupLayerPSD = "testdata/group_layer.psd"

var black = color.NRGBA{A: 255}

func findNode(t *testing.T, tree *layers.Tree, name string) layers.Node {
	t.Helper()
	id, ok := layers.Find(tree, name)
	require.True(t, ok, "layer %q", name)
	return tree.Node(id)
}

// ==========================
// PSD Parser Tests
// ==========================

func TestPSDParser_LayerTree(t *testing.T) {
	doc, err := NewPSDParser(false).Parse(context.Background(), groupLayerPSD)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"グループ 1",
		"レイヤー 2",
		"グループ 2",
		"レイヤー 3",
		"レイヤー 1",
		"レイヤー 0",
	}, doc.Tree.Names())
	assert.Len(t, doc.Tree.Roots(), 3)

	group := findNode(t, doc.Tree, "グループ 1")
	assert.True(t, group.IsGroup)
	assert.True(t, group.Box.Empty())
	require.Len(t, group.Children, 2)
	assert.Equal(t, "レイヤー 2", doc.Tree.Node(group.Children[0]).Name)

	nested := doc.Tree.Node(group.Children[1])
	assert.Equal(t, "グループ 2", nested.Name)
	assert.True(t, nested.IsGroup)
	require.Len(t, nested.Children, 1)
	assert.Equal(t, "レイヤー 3", doc.Tree.Node(nested.Children[0]).Name)

	assert.Equal(t, layers.Box{Left: 4, Top: 33, Width: 60, Height: 31}, findNode(t, doc.Tree, "レイヤー 2").Box)
	assert.Equal(t, layers.Box{Left: 10, Top: 8, Width: 54, Height: 56}, findNode(t, doc.Tree, "レイヤー 1").Box)
	assert.False(t, findNode(t, doc.Tree, "レイヤー 0").IsGroup)
}

func TestPSDParser_BaseRaster(t *testing.T) {
	tests := []struct {
		name    string
		flatten bool
	}{
		{name: "merged image", flatten: false},
		{name: "flattened from visible layers", flatten: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := NewPSDParser(tt.flatten).Parse(context.Background(), groupLayerPSD)
			require.NoError(t, err)
			require.NotNil(t, doc.Base)

			assert.Equal(t, image.Rect(0, 0, 64, 64), doc.Base.Bounds())
			assert.Equal(t, red, nrgbaAt(doc.Base, 0, 0), "only the bottom layer covers the first row")
			assert.Equal(t, white, nrgbaAt(doc.Base, 32, 32), "nested group layer above the lower layers")
			assert.Equal(t, black, nrgbaAt(doc.Base, 20, 40), "top layer of the outer group wins")
			assert.Equal(t, black, nrgbaAt(doc.Base, 60, 60))
		})
	}
}

func TestPSDParser_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.psd")
	require.NoError(t, os.WriteFile(bad, []byte("8BPS not really"), 0o644))

	tests := []struct {
		name string
		path string
	}{
		{name: "missing file", path: filepath.Join(dir, "missing.psd")},
		{name: "corrupt document", path: bad},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPSDParser(false).Parse(context.Background(), tt.path)
			assert.True(t, errors.Is(err, mockuperrors.ErrEncodeDecodeFailed))
		})
	}
}

func TestLayered_WithPSDTemplate(t *testing.T) {
	dir := t.TempDir()
	green := color.NRGBA{G: 255, A: 255}
	design := writeImage(t, dir, "design.png", 30, 30, green)
	out := filepath.Join(dir, "out.png")

	c := NewLayered(NewPSDParser(false))
	require.NoError(t, c.Compose(context.Background(), Input{
		TemplatePath: groupLayerPSD,
		DesignPath:   design,
		LayerName:    "レイヤー 2",
		OutputPath:   out,
	}))

	img := openOutput(t, out)
	assert.Equal(t, image.Rect(0, 0, 64, 64), img.Bounds())
	assert.Equal(t, green, nrgbaAt(img, 4, 33))
	assert.Equal(t, green, nrgbaAt(img, 63, 63))
	assert.Equal(t, white, nrgbaAt(img, 32, 32))
	assert.Equal(t, red, nrgbaAt(img, 0, 0))

	// Groups carry no pixels, so their box is empty.
	err := c.Compose(context.Background(), Input{
		TemplatePath: groupLayerPSD,
		DesignPath:   design,
		LayerName:    "グループ 1",
		OutputPath:   filepath.Join(dir, "group.png"),
	})
	assert.True(t, errors.Is(err, mockuperrors.ErrLayerNotFound))
}
