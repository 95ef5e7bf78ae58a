// Package accel implements a bounding volume hierarchy over a triangle mesh.
// Trees are partitioned using a binned surface area heuristic and are
// immutable once built or loaded, so a single tree can be shared by any
// number of concurrent traversals.
package accel

import (
	"fmt"
	"time"

	"github.com/achilleasa/sahtrace/log"
	"github.com/achilleasa/sahtrace/mesh"
	"github.com/achilleasa/sahtrace/types"
)

// BVH is a flattened bounding volume hierarchy. Nodes are stored depth-first
// and node 0 is the root. Leafs reference contiguous ranges of the index
// permutation.
type BVH struct {
	nodes   []Node
	indices []uint32

	options Options
	stats   Stats

	// Max depth of the stored tree; used to size traversal stacks.
	depth int
}

// Nodes returns the flattened node list. The returned slice must not be
// modified.
func (bvh *BVH) Nodes() []Node {
	return bvh.nodes
}

// Indices returns the triangle index permutation. The returned slice must
// not be modified.
func (bvh *BVH) Indices() []uint32 {
	return bvh.indices
}

// Options returns the options used for building the tree. The persisted
// format does not record them so trees restored by Load or Read return
// zero options.
func (bvh *BVH) Options() Options {
	return bvh.options
}

// Stats returns the build statistics.
func (bvh *BVH) Stats() Stats {
	return bvh.stats
}

// Depth returns the max depth of the tree. An empty tree has depth 0.
func (bvh *BVH) Depth() int {
	return bvh.depth
}

// Empty returns true if the tree contains no nodes.
func (bvh *BVH) Empty() bool {
	return len(bvh.nodes) == 0
}

// BBox returns the root bounding box. The second return value is false for
// empty trees.
func (bvh *BVH) BBox() ([2]types.Vec3, bool) {
	if len(bvh.nodes) == 0 {
		return types.EmptyBBox(), false
	}
	return bvh.nodes[0].BBox(), true
}

// ValidateMesh checks that the tree was built for m. The index permutation
// must contain every face index of m exactly once and each leaf box must
// enclose the triangles it references.
func (bvh *BVH) ValidateMesh(m *mesh.Mesh) error {
	if m == nil {
		return ErrNilMesh
	}

	numFaces := m.NumFaces()
	if len(bvh.indices) != numFaces {
		return fmt.Errorf("%w: tree indexes %d triangles; mesh has %d", ErrMeshMismatch, len(bvh.indices), numFaces)
	}

	seen := make([]bool, numFaces)
	for pos, face := range bvh.indices {
		if int(face) >= numFaces {
			return fmt.Errorf("%w: index %d references triangle %d; mesh has %d", ErrMeshMismatch, pos, face, numFaces)
		}
		if seen[face] {
			return fmt.Errorf("%w: triangle %d is indexed more than once", ErrMeshMismatch, face)
		}
		seen[face] = true
	}

	return bvh.validateLeafBounds(m)
}

// Check that every leaf box encloses its triangles. Boxes are compared with
// epsilon slack to match the padding applied while building.
func (bvh *BVH) validateLeafBounds(m *mesh.Mesh) error {
	for nodeIndex := range bvh.nodes {
		node := &bvh.nodes[nodeIndex]
		count, offset, ok := node.Leaf()
		if !ok {
			continue
		}

		for _, face := range bvh.indices[offset : offset+count] {
			v0, v1, v2 := m.Triangle(face)
			for _, v := range [3]types.Vec3{v0, v1, v2} {
				for axis := 0; axis < 3; axis++ {
					if v[axis] < node.Min[axis]-epsilon || v[axis] > node.Max[axis]+epsilon {
						return fmt.Errorf("%w: triangle %d lies outside the bounds of leaf %d", ErrMeshMismatch, face, nodeIndex)
					}
				}
			}
		}
	}
	return nil
}

type builder struct {
	logger log.Logger

	mesh    *mesh.Mesh
	options Options

	nodes   []Node
	indices []uint32
	bins    *binBuffer

	stats Stats
}

// Build partitions the triangles of m into a new BVH. The mesh is only read
// and must not be modified while the returned tree is in use.
func Build(m *mesh.Mesh, options Options) (*BVH, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNilMesh
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("bvh: %w", err)
	}

	numFaces := m.NumFaces()
	b := &builder{
		logger:  log.New("bvh builder"),
		mesh:    m,
		options: options,
		nodes:   make([]Node, 0, 2*numFaces/options.MinLeafPrimitives+1),
		indices: make([]uint32, numFaces),
		bins:    newBinBuffer(options.BinCount),
		stats: Stats{
			Triangles: numFaces,
		},
	}
	for i := range b.indices {
		b.indices[i] = uint32(i)
	}

	start := time.Now()
	if numFaces > 0 {
		b.buildRange(0, uint32(numFaces), 0)
	}
	b.stats.BuildTime = time.Since(start)

	b.logger.Debugf(
		"BVH tree build time: %d ms, maxDepth: %d, branches: %d, leafs: %d",
		b.stats.BuildTime.Nanoseconds()/1e6,
		b.stats.MaxDepth, b.stats.Branches, b.stats.Leaves,
	)

	bvh := &BVH{
		nodes:   b.nodes,
		indices: b.indices,
		options: options,
		stats:   b.stats,
	}
	if numFaces > 0 {
		bvh.depth = b.stats.MaxDepth
	}
	return bvh, nil
}

// Partition the [left, right) range of the index permutation and return the
// offset of the emitted node.
func (b *builder) buildRange(left, right uint32, depth int) uint32 {
	if depth > b.stats.MaxDepth {
		b.stats.MaxDepth = depth
	}

	offset := uint32(len(b.nodes))
	bbox := b.rangeBBox(left, right)
	count := right - left

	// A single triangle can never be split
	if count <= 1 || int(count) < b.options.MinLeafPrimitives || depth >= b.options.MaxTreeDepth {
		leaf := Node{Min: bbox[0], Max: bbox[1]}
		leaf.setLeaf(count, left)
		b.nodes = append(b.nodes, leaf)
		b.stats.Leaves++
		return offset
	}

	b.bins.fill(b.mesh, b.indices[left:right], bbox[0], bbox[1])
	axis, cutPos := b.bins.findCut(bbox[0], bbox[1], int(count), b.options.CostTaabb)

	// If all triangles land on the same side fall back to an object median split
	mid := b.partition(left, right, axis, cutPos[axis])
	if mid == left || mid == right {
		mid = left + count>>1
	}

	// Emit a placeholder and patch it once both subtrees are built
	b.nodes = append(b.nodes, Node{})
	leftChild := b.buildRange(left, mid, depth+1)
	rightChild := b.buildRange(mid, right, depth+1)

	node := &b.nodes[offset]
	bbox = types.UnionBBox(b.nodes[leftChild].BBox(), b.nodes[rightChild].BBox())
	node.Min, node.Max = bbox[0], bbox[1]
	node.setBranch(axis, leftChild, rightChild)
	b.stats.Branches++

	return offset
}

// Calculate the bbox of the triangles in [left, right). Each vertex is grown
// by epsilon so that axis aligned triangles never produce flat boxes.
func (b *builder) rangeBBox(left, right uint32) [2]types.Vec3 {
	bbox := types.EmptyBBox()
	grow := types.Splat3(epsilon)
	for _, face := range b.indices[left:right] {
		v0, v1, v2 := b.mesh.Triangle(face)
		for _, v := range [3]types.Vec3{v0, v1, v2} {
			bbox[0] = types.MinVec3(bbox[0], v.Sub(grow))
			bbox[1] = types.MaxVec3(bbox[1], v.Add(grow))
		}
	}
	return bbox
}

// Reorder [left, right) in place so that triangles whose centroid lies
// before pos along axis come first. Returns the index of the first triangle
// in the second group.
func (b *builder) partition(left, right uint32, axis int, pos float32) uint32 {
	goesLeft := func(face uint32) bool {
		v0, v1, v2 := b.mesh.Triangle(face)
		return v0[axis]+v1[axis]+v2[axis] < 3*pos
	}

	indices := b.indices
	first := left
	for i := left; i < right; i++ {
		if goesLeft(indices[i]) {
			indices[first], indices[i] = indices[i], indices[first]
			first++
		}
	}
	return first
}
