// Package mesh defines the flat triangle soup consumed by the acceleration
// structure. A Mesh is owned by its creator; the accel and scene packages
// only ever read from it.
package mesh

import (
	"errors"
	"fmt"

	"github.com/achilleasa/sahtrace/types"
)

var (
	ErrNilMesh         = errors.New("mesh: nil mesh")
	ErrMalformedArrays = errors.New("mesh: malformed geometry arrays")
	ErrFaceIndex       = errors.New("mesh: face references a missing vertex")
)

// Mesh is a triangle soup stored as three flat arrays.
type Mesh struct {
	// Vertex positions; [xyz] * numVertices.
	Vertices []float32

	// Vertex indices; 3 * numFaces.
	Faces []uint32

	// Material index per face. May be empty, in which case every face
	// uses material 0.
	MaterialIDs []uint32
}

// Number of vertices in the mesh.
func (m *Mesh) NumVertices() int {
	return len(m.Vertices) / 3
}

// Number of triangles in the mesh.
func (m *Mesh) NumFaces() int {
	return len(m.Faces) / 3
}

// Validate checks that the arrays are consistent and that every face index
// points to a valid vertex.
func (m *Mesh) Validate() error {
	if m == nil {
		return ErrNilMesh
	}
	if len(m.Vertices)%3 != 0 {
		return fmt.Errorf("%w: vertex array length %d is not a multiple of 3", ErrMalformedArrays, len(m.Vertices))
	}
	if len(m.Faces)%3 != 0 {
		return fmt.Errorf("%w: face array length %d is not a multiple of 3", ErrMalformedArrays, len(m.Faces))
	}
	if len(m.MaterialIDs) != 0 && len(m.MaterialIDs) != m.NumFaces() {
		return fmt.Errorf("%w: got %d material ids for %d faces", ErrMalformedArrays, len(m.MaterialIDs), m.NumFaces())
	}

	numVertices := uint32(m.NumVertices())
	for i, vi := range m.Faces {
		if vi >= numVertices {
			return fmt.Errorf("%w: face %d uses vertex %d; mesh has %d vertices", ErrFaceIndex, i/3, vi, numVertices)
		}
	}
	return nil
}

// Vertex returns the position of vertex i.
func (m *Mesh) Vertex(i uint32) types.Vec3 {
	return types.Vec3{m.Vertices[3*i+0], m.Vertices[3*i+1], m.Vertices[3*i+2]}
}

// FaceIndices returns the three vertex indices of a face.
func (m *Mesh) FaceIndices(face uint32) (f0, f1, f2 uint32) {
	return m.Faces[3*face+0], m.Faces[3*face+1], m.Faces[3*face+2]
}

// Triangle returns the three vertex positions of a face.
func (m *Mesh) Triangle(face uint32) (v0, v1, v2 types.Vec3) {
	f0, f1, f2 := m.FaceIndices(face)
	return m.Vertex(f0), m.Vertex(f1), m.Vertex(f2)
}

// TriangleBBox returns the tight bounding box of a face.
func (m *Mesh) TriangleBBox(face uint32) [2]types.Vec3 {
	v0, v1, v2 := m.Triangle(face)
	return [2]types.Vec3{
		types.MinVec3(types.MinVec3(v0, v1), v2),
		types.MaxVec3(types.MaxVec3(v0, v1), v2),
	}
}

// MaterialID returns the material index for a face.
func (m *Mesh) MaterialID(face uint32) uint32 {
	if int(face) >= len(m.MaterialIDs) {
		return 0
	}
	return m.MaterialIDs[face]
}

// BBox returns the bounding box of all referenced vertices. The second return
// value is false for meshes without faces.
func (m *Mesh) BBox() ([2]types.Vec3, bool) {
	bbox := types.EmptyBBox()
	if m.NumFaces() == 0 {
		return bbox, false
	}
	for _, vi := range m.Faces {
		bbox = types.GrowBBox(bbox, m.Vertex(vi))
	}
	return bbox, true
}

// Scale multiplies all vertex positions in place.
func (m *Mesh) Scale(s float32) {
	for i := range m.Vertices {
		m.Vertices[i] *= s
	}
}

// AddTriangle appends a triangle with its own three vertices and returns its
// face index.
func (m *Mesh) AddTriangle(v0, v1, v2 types.Vec3, materialID uint32) uint32 {
	base := uint32(m.NumVertices())
	face := uint32(m.NumFaces())
	m.Vertices = append(m.Vertices, v0[0], v0[1], v0[2], v1[0], v1[1], v1[2], v2[0], v2[1], v2[2])
	m.Faces = append(m.Faces, base, base+1, base+2)

	// Backfill implicit material ids
	for len(m.MaterialIDs) < int(face) {
		m.MaterialIDs = append(m.MaterialIDs, 0)
	}
	m.MaterialIDs = append(m.MaterialIDs, materialID)
	return face
}
