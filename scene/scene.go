// Package scene ties together a triangle mesh, its materials, a camera and
// the acceleration structure used for tracing rays against the mesh.
package scene

import (
	"bytes"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/achilleasa/sahtrace/accel"
	"github.com/achilleasa/sahtrace/log"
	"github.com/achilleasa/sahtrace/mesh"
	"github.com/achilleasa/sahtrace/types"
	"github.com/olekukonko/tablewriter"
)

var (
	ErrNoMesh = errors.New("scene: no mesh")
)

type Scene struct {
	logger log.Logger

	Mesh      *mesh.Mesh
	Materials []Material
	Camera    *Camera

	// The published acceleration structure. Traversals load it once
	// and keep using the same tree even if a new one is swapped in.
	bvh atomic.Pointer[accel.BVH]
}

// Create a new scene. The mesh is owned by the caller and must not be
// modified while the scene is in use.
func New(m *mesh.Mesh, materials []Material, camera *Camera) *Scene {
	return &Scene{
		logger:    log.New("scene"),
		Mesh:      m,
		Materials: materials,
		Camera:    camera,
	}
}

// Build a new BVH for the scene mesh and publish it.
func (sc *Scene) BuildAccel(opts accel.Options) error {
	if sc.Mesh == nil {
		return ErrNoMesh
	}

	bvh, err := accel.Build(sc.Mesh, opts)
	if err != nil {
		return err
	}
	sc.bvh.Store(bvh)

	stats := bvh.Stats()
	sc.logger.Infof("built BVH for %d triangles in %d ms (depth %d)", stats.Triangles, stats.BuildTime.Nanoseconds()/1e6, stats.MaxDepth)
	return nil
}

// Load a persisted BVH and publish it. If the tree cannot be loaded or does
// not match the scene mesh, the current tree is left in place.
func (sc *Scene) LoadAccel(path string) error {
	bvh, err := accel.Load(path)
	if err != nil {
		return err
	}
	return sc.SetAccel(bvh)
}

// Publish a BVH after checking that it indexes the scene mesh.
func (sc *Scene) SetAccel(bvh *accel.BVH) error {
	if sc.Mesh == nil {
		return ErrNoMesh
	}
	if err := bvh.ValidateMesh(sc.Mesh); err != nil {
		return err
	}
	sc.bvh.Store(bvh)
	return nil
}

// Get the published BVH or nil if none has been set.
func (sc *Scene) Accel() *accel.BVH {
	return sc.bvh.Load()
}

// Trace a ray through the scene using the published BVH. The stack must be
// private to the caller; passing nil allocates a new one.
func (sc *Scene) Trace(ray accel.Ray, stack *accel.Stack, isect *accel.Intersection) bool {
	bvh := sc.bvh.Load()
	if bvh == nil {
		isect.Reset()
		return false
	}
	return bvh.Traverse(ray, sc.Mesh, stack, isect)
}

// Lookup the material for a hit. Unknown material ids map to the default
// material.
func (sc *Scene) Material(isect *accel.Intersection) Material {
	if !isect.Hit() || int(isect.MaterialID) >= len(sc.Materials) {
		return DefaultMaterial()
	}
	return sc.Materials[isect.MaterialID]
}

// Get the scene bounding box from the published BVH root. Returns false if
// the scene is empty or no BVH has been published.
func (sc *Scene) BoundingBox() ([2]types.Vec3, bool) {
	bvh := sc.bvh.Load()
	if bvh == nil {
		return types.EmptyBBox(), false
	}
	return bvh.BBox()
}

// Build a tabular representation of scene statistics.
func (sc *Scene) Stats() string {
	var numVertices, numFaces int
	if sc.Mesh != nil {
		numVertices, numFaces = sc.Mesh.NumVertices(), sc.Mesh.NumFaces()
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Asset Type", "Asset", "Count"})
	table.Append([]string{"Geometry", "Vertices", fmt.Sprintf("%d", numVertices)})
	table.Append([]string{"", "Triangles", fmt.Sprintf("%d", numFaces)})
	table.Append([]string{"Materials", "---", fmt.Sprintf("%d", len(sc.Materials))})
	for _, mat := range sc.Materials {
		table.Append([]string{"", mat.Name, fmt.Sprintf("(%.2f, %.2f, %.2f)", mat.Diffuse[0], mat.Diffuse[1], mat.Diffuse[2])})
	}

	if bvh := sc.bvh.Load(); bvh != nil {
		stats := bvh.Stats()
		table.Append([]string{"BVH", "Branches", fmt.Sprintf("%d", stats.Branches)})
		table.Append([]string{"", "Leaves", fmt.Sprintf("%d", stats.Leaves)})
		table.Append([]string{"", "Max depth", fmt.Sprintf("%d", stats.MaxDepth)})
	} else {
		table.Append([]string{"BVH", "---", "not built"})
	}
	table.Render()
	return buf.String()
}
