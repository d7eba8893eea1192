package layers

import (
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

// buildTree creates:
//
//	Background
//	Mockup (group)
//	  Shadow
//	  Art Group (group)
//	    your design here
//	    DESIGN
//	Design Area
func buildTree() *Tree {
	t := NewTree()
	t.Add(Root, "Background", Box{0, 0, 800, 800}, false)
	mockup := t.Add(Root, "Mockup", Box{}, true)
	t.Add(mockup, "Shadow", Box{10, 10, 100, 100}, false)
	art := t.Add(mockup, "Art Group", Box{}, true)
	t.Add(art, "your design here", Box{100, 100, 300, 300}, false)
	t.Add(art, "DESIGN", Box{120, 120, 200, 200}, false)
	t.Add(Root, "Design Area", Box{50, 50, 400, 400}, false)
	return t
}

func nameOf(t *Tree, id NodeID) string {
	return t.Node(id).Name
}

// ==========================
// Tree Tests
// ==========================

func TestTree_WalkIsPreOrder(t *testing.T) {
	tree := buildTree()

	assert.Equal(t, []string{
		"Background", "Mockup", "Shadow", "Art Group", "your design here", "DESIGN", "Design Area",
	}, tree.Names())
	assert.Equal(t, 7, tree.Len())
	assert.Len(t, tree.Roots(), 3)
}

func TestTree_WalkStops(t *testing.T) {
	tree := buildTree()
	visited := 0
	tree.Walk(func(_ NodeID, n Node) bool {
		visited++
		return n.Name != "Shadow"
	})
	assert.Equal(t, 3, visited)
}

func TestBox(t *testing.T) {
	b := BoxFromRect(image.Rect(10, 20, 60, 70))
	assert.Equal(t, Box{Left: 10, Top: 20, Width: 50, Height: 50}, b)
	assert.Equal(t, image.Rect(10, 20, 60, 70), b.Rect())
	assert.False(t, b.Empty())
	assert.True(t, Box{Width: 0, Height: 10}.Empty())
}

// ==========================
// Find Tests
// ==========================

func TestFind_TierOrdering(t *testing.T) {
	tests := []struct {
		name         string
		candidate    string
		expectedName string
		expectedTier Tier
	}{
		{
			name:         "exact match beats earlier case-insensitive match",
			candidate:    "DESIGN",
			expectedName: "DESIGN",
			expectedTier: TierExact,
		},
		{
			name:         "case-insensitive exact beats earlier substring match",
			candidate:    "Design",
			expectedName: "DESIGN",
			expectedTier: TierCaseInsensitive,
		},
		{
			name:         "case-insensitive exact inside nested group",
			candidate:    "Your Design Here",
			expectedName: "your design here",
			expectedTier: TierCaseInsensitive,
		},
		{
			name:         "substring picks first in traversal order",
			candidate:    "area",
			expectedName: "Design Area",
			expectedTier: TierSubstring,
		},
		{
			name:         "candidate containing the layer name",
			candidate:    "Drop Shadow Layer",
			expectedName: "Shadow",
			expectedTier: TierSubstring,
		},
		{
			name:         "group names are matchable",
			candidate:    "art group",
			expectedName: "Art Group",
			expectedTier: TierCaseInsensitive,
		},
	}

	tree := buildTree()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, tier := FindWithTier(tree, tt.candidate)
			require.Equal(t, tt.expectedTier, tier)
			assert.Equal(t, tt.expectedName, nameOf(tree, id))
		})
	}
}

func TestFind_NoMatch(t *testing.T) {
	tree := buildTree()

	_, ok := Find(tree, "Placeholder")
	assert.False(t, ok)

	_, ok = Find(tree, "")
	assert.False(t, ok)

	_, ok = Find(nil, "Design")
	assert.False(t, ok)
}

func TestFind_UnnamedLayersIgnoredForSubstring(t *testing.T) {
	tree := NewTree()
	tree.Add(Root, "", Box{0, 0, 10, 10}, false)
	tree.Add(Root, "Artwork", Box{0, 0, 10, 10}, false)

	id, ok := Find(tree, "art")
	require.True(t, ok)
	assert.Equal(t, "Artwork", nameOf(tree, id))
}

func TestFindAny(t *testing.T) {
	tree := buildTree()

	id, candidate, ok := FindAny(tree, []string{"Placeholder", "Artwork", "Shadow"})
	require.True(t, ok)
	assert.Equal(t, "Shadow", candidate)
	assert.Equal(t, "Shadow", nameOf(tree, id))

	_, _, ok = FindAny(tree, []string{"Nothing", "Else"})
	assert.False(t, ok)
}

func TestTier_String(t *testing.T) {
	assert.Equal(t, "exact", TierExact.String())
	assert.Equal(t, "substring", TierSubstring.String())
	assert.Equal(t, "none", TierNone.String())
}

// ==========================
// Embedded Script Tests
// ==========================

func TestLocateScript_Embedded(t *testing.T) {
	require.NotEmpty(t, LocateScript)
	assert.True(t, strings.Contains(LocateScript, "function "+LocateFunctionName+"("))
}
