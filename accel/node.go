package accel

import "github.com/achilleasa/sahtrace/types"

// NodeKind distinguishes leafs from branches.
type NodeKind int32

const (
	KindBranch NodeKind = 0
	KindLeaf   NodeKind = 1
)

// Node is a single BVH tree node. Each node occupies a 40 byte record when
// persisted. The payload stored in data is only accessible through the Leaf
// and Branch accessors which check the node kind.
type Node struct {
	// Bounding box extents.
	Min types.Vec3
	Max types.Vec3

	kind NodeKind

	// Split axis; only meaningful for branches.
	axis int32

	// Branch: left and right child offsets.
	// Leaf: triangle count and offset into the index permutation.
	data [2]uint32
}

// BBox returns the node bounding box.
func (n *Node) BBox() [2]types.Vec3 {
	return [2]types.Vec3{n.Min, n.Max}
}

// Kind returns the node kind.
func (n *Node) Kind() NodeKind {
	return n.kind
}

// IsLeaf returns true if this is a leaf node.
func (n *Node) IsLeaf() bool {
	return n.kind == KindLeaf
}

// Axis returns the split axis of a branch node.
func (n *Node) Axis() int {
	return int(n.axis)
}

// Leaf returns the triangle count and index permutation offset of a leaf
// node. The last return value is false if this is a branch node.
func (n *Node) Leaf() (count, offset uint32, ok bool) {
	if n.kind != KindLeaf {
		return 0, 0, false
	}
	return n.data[0], n.data[1], true
}

// Branch returns the split axis and child node offsets of a branch node.
// The last return value is false if this is a leaf node.
func (n *Node) Branch() (axis int, left, right uint32, ok bool) {
	if n.kind != KindBranch {
		return 0, 0, 0, false
	}
	return int(n.axis), n.data[0], n.data[1], true
}

// Setup node as a leaf.
func (n *Node) setLeaf(count, offset uint32) {
	n.kind = KindLeaf
	n.axis = 0
	n.data = [2]uint32{count, offset}
}

// Setup node as a branch.
func (n *Node) setBranch(axis int, left, right uint32) {
	n.kind = KindBranch
	n.axis = int32(axis)
	n.data = [2]uint32{left, right}
}
