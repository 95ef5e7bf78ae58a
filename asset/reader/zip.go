package reader

import (
	"archive/zip"
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"io/ioutil"
	"time"

	"github.com/achilleasa/sahtrace/accel"
	"github.com/achilleasa/sahtrace/asset"
	"github.com/achilleasa/sahtrace/log"
	"github.com/achilleasa/sahtrace/mesh"
	"github.com/achilleasa/sahtrace/scene"
)

const (
	meshFile      = "mesh.bin"
	materialsFile = "materials.bin"
	cameraFile    = "camera.bin"
	bvhFile       = "bvh.bin"
)

type zipSceneReader struct {
	logger log.Logger
}

// Create a new zip scene reader
func newZipSceneReader() *zipSceneReader {
	return &zipSceneReader{
		logger: log.New("zip reader"),
	}
}

// Read compiled scene from zip file. If the archive contains a BVH it is
// checked against the mesh and published to the returned scene.
func (p *zipSceneReader) Read(sceneRes *asset.Resource) (*scene.Scene, error) {
	p.logger.Noticef(`parsing compiled scene from "%s"`, sceneRes.Path())
	start := time.Now()

	// zip package requires a reader implementing ReaderAt. To work around
	// this requirement we read the entire zip file into memory and create
	// a reader from the bytes package that implements ReaderAt
	data, err := ioutil.ReadAll(sceneRes)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	var (
		m         *mesh.Mesh
		materials []scene.Material
		camera    *scene.Camera
		bvh       *accel.BVH
	)
	for _, f := range zr.File {
		var decodeFn func(io.Reader) error
		switch f.Name {
		case meshFile:
			decodeFn = func(r io.Reader) error { return gob.NewDecoder(r).Decode(&m) }
		case materialsFile:
			decodeFn = func(r io.Reader) error { return gob.NewDecoder(r).Decode(&materials) }
		case cameraFile:
			decodeFn = func(r io.Reader) error { return gob.NewDecoder(r).Decode(&camera) }
		case bvhFile:
			decodeFn = func(r io.Reader) (err error) {
				bvh, err = accel.Read(r)
				return err
			}
		default:
			p.logger.Warningf("unknown file %s in scene zip file; skipping", f.Name)
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		err = decodeFn(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("zipSceneReader: failed to load %s: %w", f.Name, err)
		}
	}

	if m == nil {
		return nil, fmt.Errorf("zipSceneReader: %s is missing from the archive", meshFile)
	}
	if err = m.Validate(); err != nil {
		return nil, fmt.Errorf("zipSceneReader: %w", err)
	}

	sc := scene.New(m, materials, camera)
	if bvh != nil {
		if err = sc.SetAccel(bvh); err != nil {
			return nil, fmt.Errorf("zipSceneReader: %w", err)
		}
	}

	p.logger.Noticef("loaded scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return sc, nil
}
