package accel

import (
	"io/ioutil"
	"math/rand"

	"github.com/achilleasa/sahtrace/log"
	"github.com/achilleasa/sahtrace/mesh"
	"github.com/achilleasa/sahtrace/types"
	"github.com/chewxy/math32"
)

func init() {
	log.SetSink(ioutil.Discard)
}

// Generate a soup of small random triangles inside [-extent, extent]^3.
func randomMesh(rng *rand.Rand, numFaces int, extent, size float32) *mesh.Mesh {
	m := &mesh.Mesh{}
	randVec := func(scale float32) types.Vec3 {
		return types.Vec3{
			(2*rng.Float32() - 1) * scale,
			(2*rng.Float32() - 1) * scale,
			(2*rng.Float32() - 1) * scale,
		}
	}
	for i := 0; i < numFaces; i++ {
		center := randVec(extent)
		m.AddTriangle(
			center.Add(randVec(size)),
			center.Add(randVec(size)),
			center.Add(randVec(size)),
			uint32(i%4),
		)
	}
	return m
}

// Generate a ray from a point outside the mesh towards a random target inside it.
func randomRay(rng *rand.Rand, extent float32) Ray {
	origin := types.Vec3{
		(2*rng.Float32() - 1) * 3 * extent,
		(2*rng.Float32() - 1) * 3 * extent,
		(2*rng.Float32() - 1) * 3 * extent,
	}
	target := types.Vec3{
		(2*rng.Float32() - 1) * extent,
		(2*rng.Float32() - 1) * extent,
		(2*rng.Float32() - 1) * extent,
	}
	return Ray{Origin: origin, Dir: target.Sub(origin).Normalize()}
}

// Test the ray against every triangle in the mesh.
func bruteForce(ray Ray, m *mesh.Mesh) (faceID int32, hitT float32) {
	faceID = -1
	hitT = math32.Inf(1)
	for face := 0; face < m.NumFaces(); face++ {
		v0, v1, v2 := m.Triangle(uint32(face))
		t, _, _, ok := intersectTriangle(ray.Origin, ray.Dir, v0, v1, v2, hitT)
		if ok && t < hitT {
			faceID = int32(face)
			hitT = t
		}
	}
	return faceID, hitT
}

// Walk the tree depth-first invoking fn for each node.
func walk(bvh *BVH, fn func(index uint32, node *Node, depth int)) {
	if bvh.Empty() {
		return
	}
	var visit func(index uint32, depth int)
	visit = func(index uint32, depth int) {
		node := &bvh.nodes[index]
		fn(index, node, depth)
		if _, left, right, ok := node.Branch(); ok {
			visit(left, depth+1)
			visit(right, depth+1)
		}
	}
	visit(0, 0)
}

func bboxContains(outer, inner [2]types.Vec3) bool {
	for axis := 0; axis < 3; axis++ {
		if inner[0][axis] < outer[0][axis] || inner[1][axis] > outer[1][axis] {
			return false
		}
	}
	return true
}
