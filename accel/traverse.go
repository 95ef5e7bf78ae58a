package accel

import (
	"github.com/achilleasa/sahtrace/mesh"
	"github.com/achilleasa/sahtrace/types"
	"github.com/chewxy/math32"
)

// Ray is a half-line starting at Origin. Dir does not need to be normalized;
// hit distances are expressed in multiples of Dir.
type Ray struct {
	Origin types.Vec3
	Dir    types.Vec3

	// Hits further than MaxT are ignored. A zero value means no limit.
	MaxT float32
}

// Intersection holds the closest hit found by a traversal.
type Intersection struct {
	// Hit distance and barycentric coordinates.
	T    float32
	U, V float32

	// The hit triangle or -1 if nothing was hit.
	FaceID int32

	// Vertex indices of the hit triangle.
	F0, F1, F2 uint32

	Position types.Vec3

	// Normalized (v1 - v0) x (v2 - v0). It is not flipped to face the ray.
	GeometricNormal types.Vec3

	// Shading normal; the mesh carries no vertex normals so this is
	// always the geometric normal.
	Normal types.Vec3

	MaterialID uint32
}

// Reset the intersection to the no-hit state.
func (isect *Intersection) Reset() {
	*isect = Intersection{
		T:      math32.Inf(1),
		FaceID: -1,
	}
}

// Hit returns true if the intersection refers to a triangle.
func (isect *Intersection) Hit() bool {
	return isect.FaceID >= 0
}

// Stack is a bounded traversal stack together with counters describing the
// work performed by the last traversals. A Stack must not be shared between
// concurrent traversals.
type Stack struct {
	entries []uint32

	NodesVisited    int
	LeavesTested    int
	TrianglesTested int
}

// NewStack allocates a traversal stack with a fixed capacity.
func NewStack(capacity int) *Stack {
	return &Stack{
		entries: make([]uint32, 0, capacity),
	}
}

// NewStack allocates a traversal stack large enough for this tree.
func (bvh *BVH) NewStack() *Stack {
	return NewStack(bvh.options.stackCapacity(bvh.depth))
}

// Cap returns the stack capacity.
func (s *Stack) Cap() int {
	return cap(s.entries)
}

// ResetCounters zeroes the instrumentation counters.
func (s *Stack) ResetCounters() {
	s.NodesVisited = 0
	s.LeavesTested = 0
	s.TrianglesTested = 0
}

func (s *Stack) push(nodeIndex uint32) {
	if len(s.entries) == cap(s.entries) {
		panic(ErrStackOverflow)
	}
	s.entries = append(s.entries, nodeIndex)
}

func (s *Stack) pop() uint32 {
	last := len(s.entries) - 1
	nodeIndex := s.entries[last]
	s.entries = s.entries[:last]
	return nodeIndex
}

// Trace is a convenience wrapper around Traverse that allocates its own
// stack.
func (bvh *BVH) Trace(ray Ray, m *mesh.Mesh) (Intersection, bool) {
	var isect Intersection
	hit := bvh.Traverse(ray, m, bvh.NewStack(), &isect)
	return isect, hit
}

// Traverse finds the closest triangle of m hit by ray and stores it in
// isect. The tree is walked front to back using stack; if stack is nil a
// new one is allocated. Traverse only reads from the tree and the mesh so it
// may be called concurrently as long as each caller uses its own stack and
// intersection.
//
// Traverse panics with ErrStackOverflow if the tree is deeper than the stack
// allows; this can only happen with a stack smaller than the one returned by
// NewStack.
func (bvh *BVH) Traverse(ray Ray, m *mesh.Mesh, stack *Stack, isect *Intersection) bool {
	isect.Reset()
	if len(bvh.nodes) == 0 {
		return false
	}
	if stack == nil {
		stack = bvh.NewStack()
	}

	hitT := ray.MaxT
	if hitT <= 0 {
		hitT = math32.Inf(1)
	}

	// Parallel axes produce infinite reciprocals which the slab test
	// handles. Signbit also catches -0.
	var invDir types.Vec3
	var dirSign [3]int
	for axis := 0; axis < 3; axis++ {
		invDir[axis] = 1.0 / ray.Dir[axis]
		if math32.Signbit(ray.Dir[axis]) {
			dirSign[axis] = 1
		}
	}

	hit := false
	stack.entries = stack.entries[:0]
	stack.push(0)
	for len(stack.entries) > 0 {
		node := &bvh.nodes[stack.pop()]
		stack.NodesVisited++

		tmin, tmax := intersectBBox(node, ray.Origin, invDir, dirSign)
		if !(tmax > 0 && tmin <= tmax && tmin <= hitT) {
			continue
		}

		if node.kind == KindBranch {
			// Visit near child first
			near, far := node.data[0], node.data[1]
			if dirSign[node.axis] == 1 {
				near, far = far, near
			}
			stack.push(far)
			stack.push(near)
			continue
		}

		stack.LeavesTested++
		count, offset := node.data[0], node.data[1]
		for _, face := range bvh.indices[offset : offset+count] {
			stack.TrianglesTested++
			v0, v1, v2 := m.Triangle(face)
			t, u, v, ok := intersectTriangle(ray.Origin, ray.Dir, v0, v1, v2, hitT)
			if !ok {
				continue
			}

			// Replace the current hit only by strictly closer ones
			if t < hitT || (!hit && t == hitT) {
				hit = true
				hitT = t
				isect.T, isect.U, isect.V = t, u, v
				isect.FaceID = int32(face)
			}
		}
	}

	if !hit {
		return false
	}

	face := uint32(isect.FaceID)
	isect.Position = ray.Origin.Add(ray.Dir.Mul(isect.T))
	isect.F0, isect.F1, isect.F2 = m.FaceIndices(face)
	v0, v1, v2 := m.Vertex(isect.F0), m.Vertex(isect.F1), m.Vertex(isect.F2)
	isect.GeometricNormal = v1.Sub(v0).Cross(v2.Sub(v0)).Normalize()
	isect.Normal = isect.GeometricNormal
	isect.MaterialID = m.MaterialID(face)
	return true
}

// Intersect ray with a node bbox using the slab method. The near and far
// corners for each axis are picked using the ray direction sign. NaN values
// produced by 0 * inf never tighten the [tmin, tmax] interval.
func intersectBBox(node *Node, origin, invDir types.Vec3, dirSign [3]int) (tmin, tmax float32) {
	bounds := [2]types.Vec3{node.Min, node.Max}

	tmin = math32.Inf(-1)
	tmax = math32.Inf(1)
	for axis := 0; axis < 3; axis++ {
		t0 := (bounds[dirSign[axis]][axis] - origin[axis]) * invDir[axis]
		t1 := (bounds[1-dirSign[axis]][axis] - origin[axis]) * invDir[axis]
		if t0 > tmin {
			tmin = t0
		}
		if t1 < tmax {
			tmax = t1
		}
	}
	return tmin, tmax
}

// Intersect a ray with a triangle using the Moller-Trumbore algorithm. Both
// triangle orientations are accepted. Edge-on and degenerate triangles are
// rejected as are hits further than maxT.
func intersectTriangle(origin, dir, v0, v1, v2 types.Vec3, maxT float32) (t, u, v float32, ok bool) {
	e1 := v1.Sub(v0)
	e2 := v2.Sub(v0)
	p := dir.Cross(e2)
	det := e1.Dot(p)
	if math32.Abs(det) < epsilon {
		return 0, 0, 0, false
	}

	invDet := 1.0 / det
	s := origin.Sub(v0)
	q := s.Cross(e1)

	u = s.Dot(p) * invDet
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}

	v = dir.Dot(q) * invDet
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}

	t = e2.Dot(q) * invDet
	if t < 0 || t > maxT {
		return 0, 0, 0, false
	}
	return t, u, v, true
}
