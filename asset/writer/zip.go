// Package writer stores compiled scenes as zip archives.
package writer

import (
	"archive/zip"
	"encoding/gob"
	"io"
	"os"
	"time"

	"github.com/achilleasa/sahtrace/log"
	"github.com/achilleasa/sahtrace/scene"
)

const (
	meshFile      = "mesh.bin"
	materialsFile = "materials.bin"
	cameraFile    = "camera.bin"
	bvhFile       = "bvh.bin"
)

type zipSceneWriter struct {
	logger    log.Logger
	sceneFile string
}

// Create a new zip scene writer
func newZipSceneWriter(sceneFile string) *zipSceneWriter {
	return &zipSceneWriter{
		logger:    log.New("zip writer"),
		sceneFile: sceneFile,
	}
}

// Write scene to a zip archive. The mesh, materials and camera are gob
// encoded; the published BVH, if any, is stored in its flat binary format.
func (w *zipSceneWriter) Write(sc *scene.Scene) error {
	if sc.Mesh == nil {
		return scene.ErrNoMesh
	}

	w.logger.Noticef("writing compressed scene to %s", w.sceneFile)
	start := time.Now()

	zipFile, err := os.Create(w.sceneFile)
	if err != nil {
		return err
	}

	err = w.writeEntries(zip.NewWriter(zipFile), sc)
	if closeErr := zipFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	w.logger.Noticef("compressed scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return nil
}

type zipEntry struct {
	name    string
	writeFn func(io.Writer) error
}

func gobEntry(name string, v interface{}) zipEntry {
	return zipEntry{
		name:    name,
		writeFn: func(out io.Writer) error { return gob.NewEncoder(out).Encode(v) },
	}
}

func (w *zipSceneWriter) writeEntries(zw *zip.Writer, sc *scene.Scene) error {
	entries := []zipEntry{gobEntry(meshFile, sc.Mesh)}
	if len(sc.Materials) > 0 {
		entries = append(entries, gobEntry(materialsFile, sc.Materials))
	}
	if sc.Camera != nil {
		entries = append(entries, gobEntry(cameraFile, sc.Camera))
	}
	if bvh := sc.Accel(); bvh != nil {
		entries = append(entries, zipEntry{
			name: bvhFile,
			writeFn: func(out io.Writer) error {
				_, err := bvh.WriteTo(out)
				return err
			},
		})
	}

	for _, entry := range entries {
		ew, err := zw.Create(entry.name)
		if err != nil {
			return err
		}
		if err = entry.writeFn(ew); err != nil {
			return err
		}
		w.logger.Debugf("wrote archive entry %s", entry.name)
	}
	return zw.Close()
}
