// Package reader loads scenes from Wavefront object files or from compiled
// scene archives.
package reader

import (
	"errors"
	"fmt"

	"github.com/achilleasa/sahtrace/asset"
	"github.com/achilleasa/sahtrace/scene"
)

var (
	ErrUnsupportedFormat = errors.New("reader: unsupported file format")
)

// The Reader interface is implemented by all scene readers.
type Reader interface {
	// Read scene definition from a resource.
	Read(*asset.Resource) (*scene.Scene, error)
}

// Read scene from a local file or URL. The reader is selected based on the
// file extension.
func ReadScene(filename string) (*scene.Scene, error) {
	res, err := asset.NewResource(filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	reader, err := readerFor(res)
	if err != nil {
		return nil, err
	}
	return reader.Read(res)
}

func readerFor(res *asset.Resource) (Reader, error) {
	switch res.Ext() {
	case ".obj":
		return newWavefrontReader(), nil
	case ".zip":
		return newZipSceneReader(), nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnsupportedFormat, res.Ext())
}
