// Package layers models the layer hierarchy of a layered template document and
// locates the layer a design should be inserted into.
package layers

import "image"

// NodeID indexes a node inside a Tree.
type NodeID int

// Root is the parent id of top-level nodes.
const Root NodeID = -1

// Box is a layer's bounding box in document pixel coordinates.
type Box struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// BoxFromRect converts an image.Rectangle to a Box.
func BoxFromRect(r image.Rectangle) Box {
	r = r.Canon()
	return Box{Left: r.Min.X, Top: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

func (b Box) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

func (b Box) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Left+b.Width, b.Top+b.Height)
}

// Node is one layer or group. Children are listed top to bottom as they
// appear in the editor's layer panel.
type Node struct {
	Name     string
	Box      Box
	IsGroup  bool
	Parent   NodeID
	Children []NodeID
}

// Tree is an arena of layer nodes. It is built once and then read-only.
type Tree struct {
	nodes []Node
	roots []NodeID
}

func NewTree() *Tree {
	return &Tree{}
}

// Add appends a node under parent (Root for top level) and returns its id.
// Siblings keep insertion order.
func (t *Tree) Add(parent NodeID, name string, box Box, isGroup bool) NodeID {
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, Node{Name: name, Box: box, IsGroup: isGroup, Parent: parent})
	if parent == Root {
		t.roots = append(t.roots, id)
	} else {
		t.nodes[parent].Children = append(t.nodes[parent].Children, id)
	}
	return id
}

func (t *Tree) Node(id NodeID) Node {
	return t.nodes[id]
}

func (t *Tree) Len() int {
	return len(t.nodes)
}

func (t *Tree) Roots() []NodeID {
	return t.roots
}

// Walk visits every node in pre-order (a group before its children, siblings
// top to bottom). Returning false from fn stops the walk.
func (t *Tree) Walk(fn func(id NodeID, n Node) bool) {
	var visit func(ids []NodeID) bool
	visit = func(ids []NodeID) bool {
		for _, id := range ids {
			n := t.nodes[id]
			if !fn(id, n) {
				return false
			}
			if !visit(n.Children) {
				return false
			}
		}
		return true
	}
	visit(t.roots)
}

// Names returns all node names in traversal order.
func (t *Tree) Names() []string {
	names := make([]string, 0, len(t.nodes))
	t.Walk(func(_ NodeID, n Node) bool {
		names = append(names, n.Name)
		return true
	})
	return names
}
