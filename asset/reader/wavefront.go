package reader

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/achilleasa/sahtrace/asset"
	"github.com/achilleasa/sahtrace/log"
	"github.com/achilleasa/sahtrace/mesh"
	"github.com/achilleasa/sahtrace/scene"
	"github.com/achilleasa/sahtrace/types"
)

type wavefrontMaterial struct {
	scene.Material

	// True if this material is used by at least one face.
	Used bool
}

type wavefrontSceneReader struct {
	logger log.Logger

	// The triangle soup that all parsed faces are appended to. The mesh
	// vertex list doubles as the wavefront vertex list.
	mesh *mesh.Mesh

	// Face material indices into the materials list.
	faceMaterials []int

	// A map of material names to parsed wavefront materials
	matNameToIndex map[string]int

	// Currently selected material or -1 if none is selected.
	curMaterial int

	// Parsed wavefront materials.
	materials []*wavefrontMaterial

	// Camera settings.
	camera    *scene.Camera
	hasCamera bool

	// An error stack that provides additional error information when
	// scene files include other files (models, mat libs e.t.c)
	errStack []string
}

// Create a new wavefront scene reader.
func newWavefrontReader() *wavefrontSceneReader {
	return &wavefrontSceneReader{
		logger:         log.New("wavefront scene reader"),
		mesh:           &mesh.Mesh{},
		matNameToIndex: make(map[string]int),
		curMaterial:    -1,
		camera:         scene.NewCamera(types.Vec3{0, 0, 0}, types.Vec3{0, 0, -1}, types.Vec3{0, 1, 0}, 45),
		errStack:       make([]string, 0),
	}
}

// Read scene definition.
func (r *wavefrontSceneReader) Read(sceneRes *asset.Resource) (*scene.Scene, error) {
	r.logger.Noticef(`parsing scene from "%s"`, sceneRes.Path())
	start := time.Now()

	err := r.parse(sceneRes)
	if err != nil {
		return nil, err
	}

	materials := r.processMaterials()
	if !r.hasCamera {
		r.frameMesh()
	}

	r.logger.Noticef("parsed %d vertices and %d triangles in %d ms", r.mesh.NumVertices(), r.mesh.NumFaces(), time.Since(start).Nanoseconds()/1e6)
	return scene.New(r.mesh, materials, r.camera), nil
}

// Generate scene materials for material entries that are in use and assign
// the final material indices to all parsed faces.
func (r *wavefrontSceneReader) processMaterials() []scene.Material {
	wfMaterialToSceneMaterial := make(map[int]uint32)
	materials := make([]scene.Material, 0)
	pruned := 0
	for wfIndex, wfMat := range r.materials {
		if !wfMat.Used {
			r.logger.Infof("skipping unused material %q", wfMat.Name)
			pruned++
			continue
		}

		materials = append(materials, wfMat.Material)
		wfMaterialToSceneMaterial[wfIndex] = uint32(len(materials) - 1)
	}

	r.mesh.MaterialIDs = make([]uint32, len(r.faceMaterials))
	for face, wfIndex := range r.faceMaterials {
		r.mesh.MaterialIDs[face] = wfMaterialToSceneMaterial[wfIndex]
	}

	if pruned > 0 {
		r.logger.Noticef("pruned %d unused materials", pruned)
	}
	return materials
}

// Point the camera at the mesh center from a distance that fits the mesh
// inside the view.
func (r *wavefrontSceneReader) frameMesh() {
	bbox, ok := r.mesh.BBox()
	if !ok {
		return
	}
	center := bbox[0].Add(bbox[1]).Mul(0.5)
	extent := bbox[1].Sub(bbox[0]).MaxComponent()
	r.camera.LookAt = center
	r.camera.Eye = center.Add(types.Vec3{0, 0, 1.5 * extent})
}

// Generate an error message that also includes any data in the error stack.
func (r *wavefrontSceneReader) emitError(file string, line int, msgFormat string, args ...interface{}) error {
	msg := fmt.Sprintf(msgFormat, args...)

	var errMsg string
	if file != "" {
		errMsg = fmt.Sprintf("[%s: %d] error: %s\n%s", file, line, msg, strings.Join(r.errStack, "\n"))
	} else {
		errMsg = fmt.Sprintf("error: %s\n%s", msg, strings.Join(r.errStack, "\n"))
	}

	return fmt.Errorf("%s", strings.Trim(errMsg, "\n"))
}

// Push a frame to the error stack.
func (r *wavefrontSceneReader) pushFrame(msg string) {
	r.errStack = append([]string{msg}, r.errStack...)
}

// Pop a frame from the error stack.
func (r *wavefrontSceneReader) popFrame() {
	r.errStack = r.errStack[1:]
}

// Select the default material for faces not using one, creating it if needed.
func (r *wavefrontSceneReader) defaultMaterial() int {
	defMat := scene.DefaultMaterial()
	matIndex, exists := r.matNameToIndex[defMat.Name]
	if !exists {
		r.materials = append(r.materials, &wavefrontMaterial{Material: defMat})
		matIndex = len(r.materials) - 1
		r.matNameToIndex[defMat.Name] = matIndex
	}
	return matIndex
}

// Parse wavefront object scene format.
func (r *wavefrontSceneReader) parse(res *asset.Resource) error {
	var lineNum int = 0
	var err error

	// The main obj file may include (call) several other object files. Each
	// object file contains 1-based indices (when they are positive). By
	// tracking the current vertex offset we can apply it while parsing
	// faces to select the correct coordinates.
	relVertexOffset := r.mesh.NumVertices()

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "call", "mtllib":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
			}

			r.pushFrame(fmt.Sprintf("referenced from %s:%d [%s]", res.Path(), lineNum, lineTokens[0]))

			incRes, err := asset.NewResource(lineTokens[1], res)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}

			switch lineTokens[0] {
			case "call":
				err = r.parse(incRes)
			case "mtllib":
				err = r.parseMaterials(incRes)
			}
			incRes.Close()

			if err != nil {
				return err
			}
			r.popFrame()
		case "usemtl":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for 'usemtl'; expected 1 argument; got %d`, len(lineTokens)-1)
			}

			matIndex, exists := r.matNameToIndex[lineTokens[1]]
			if !exists {
				return r.emitError(res.Path(), lineNum, `undefined material with name "%s"`, lineTokens[1])
			}
			r.curMaterial = matIndex
		case "v":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.mesh.Vertices = append(r.mesh.Vertices, v[0], v[1], v[2])
		case "f":
			if err = r.parseFace(lineTokens, relVertexOffset); err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
		case "camera_fov":
			r.camera.FOV, err = parseFloat32(lineTokens)
			r.hasCamera = true
		case "camera_eye":
			r.camera.Eye, err = parseVec3(lineTokens)
			r.hasCamera = true
		case "camera_look":
			r.camera.LookAt, err = parseVec3(lineTokens)
			r.hasCamera = true
		case "camera_up":
			r.camera.Up, err = parseVec3(lineTokens)
			r.hasCamera = true
		}

		// Report camera parse errors
		if err != nil {
			return r.emitError(res.Path(), lineNum, "%s", err.Error())
		}
	}

	if err = scanner.Err(); err != nil {
		return r.emitError(res.Path(), lineNum, "%s", err.Error())
	}
	return nil
}

// Parse face definition. Each face definition consists of 3 or more
// arguments, one for each vertex. Each one of the vertex arguments is
// comprised of 1, 2 or 3 args separated by a slash character:
// - vertexIndex
// - vertexIndex/uvIndex
// - vertexIndex//normalIndex
// - vertexIndex/uvIndex/normalIndex
//
// Only the vertex index is used. Indices start from 1 and may be negative to
// indicate an offset off the end of the vertex list. Polygons are split into
// a triangle fan.
func (r *wavefrontSceneReader) parseFace(lineTokens []string, relVertexOffset int) error {
	if len(lineTokens) < 4 {
		return fmt.Errorf(`unsupported syntax for "f"; expected at least 3 arguments; got %d`, len(lineTokens)-1)
	}

	numVertices := r.mesh.NumVertices()
	indices := make([]uint32, len(lineTokens)-1)
	for arg := range indices {
		vTokens := strings.Split(lineTokens[arg+1], "/")
		if vTokens[0] == "" {
			return fmt.Errorf("face argument %d does not include a vertex index", arg)
		}

		vOffset, err := selectFaceCoordIndex(vTokens[0], numVertices, relVertexOffset)
		if err != nil {
			return fmt.Errorf("could not parse vertex coord for face argument %d: %s", arg, err.Error())
		}
		indices[arg] = uint32(vOffset)
	}

	// If no material is defined select the default. Also flag the current
	// material as being in use so we don't prune it later.
	if r.curMaterial == -1 {
		r.curMaterial = r.defaultMaterial()
	}
	r.materials[r.curMaterial].Used = true

	for i := 2; i < len(indices); i++ {
		r.mesh.Faces = append(r.mesh.Faces, indices[0], indices[i-1], indices[i])
		r.faceMaterials = append(r.faceMaterials, r.curMaterial)
	}
	return nil
}

// Parse a wavefront material library. Only the diffuse color of each
// material is used; other material properties are ignored.
func (r *wavefrontSceneReader) parseMaterials(res *asset.Resource) error {
	var lineNum int = 0
	var err error

	r.logger.Infof(`parsing material library "%s"`, res.Path())

	scanner := bufio.NewScanner(res)

	var curMaterial *wavefrontMaterial = nil
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "newmtl":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "newmtl"; expected 1 argument; got %d`, len(lineTokens)-1)
			}

			matName := lineTokens[1]
			if _, exists := r.matNameToIndex[matName]; exists {
				return r.emitError(res.Path(), lineNum, `material "%s" already defined`, matName)
			}

			curMaterial = &wavefrontMaterial{Material: scene.DefaultMaterial()}
			curMaterial.Name = matName
			r.materials = append(r.materials, curMaterial)
			r.matNameToIndex[matName] = len(r.materials) - 1
		case "Kd":
			if curMaterial == nil {
				return r.emitError(res.Path(), lineNum, `got "%s" without a "newmtl"`, lineTokens[0])
			}
			if curMaterial.Diffuse, err = parseVec3(lineTokens); err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
		default:
			if curMaterial == nil {
				return r.emitError(res.Path(), lineNum, `got "%s" without a "newmtl"`, lineTokens[0])
			}
		}
	}

	return scanner.Err()
}

// Given an index for a face coord calculate the proper offset into the coord
// list. Wavefront format can also use negative indices to reference elements
// from the end of the coord list.
func selectFaceCoordIndex(indexToken string, coordListLen int, relOffset int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var vOffset int = 0
	if index < 0 {
		vOffset = coordListLen + int(index)
	} else {
		vOffset = relOffset + int(index-1)
	}
	if vOffset < 0 || vOffset >= coordListLen {
		return -1, fmt.Errorf("index out of bounds")
	}
	return vOffset, nil
}

// Parse a float scalar value.
func parseFloat32(lineTokens []string) (float32, error) {
	if len(lineTokens) < 2 {
		return 0, fmt.Errorf(`unsupported syntax for '%s'; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	val, err := strconv.ParseFloat(lineTokens[1], 32)
	if err != nil {
		return 0, err
	}

	return float32(val), nil
}

// Parse a Vec3 row.
func parseVec3(lineTokens []string) (types.Vec3, error) {
	if len(lineTokens) < 4 {
		return types.Vec3{}, fmt.Errorf(`unsupported syntax for '%s'; expected 3 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	var v types.Vec3
	for i := 0; i < 3; i++ {
		val, err := strconv.ParseFloat(lineTokens[i+1], 32)
		if err != nil {
			return types.Vec3{}, err
		}
		v[i] = float32(val)
	}
	return v, nil
}
