package reader

import (
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestReadSceneFromFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "sahtrace-reader")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	objFile := filepath.Join(dir, "tri.obj")
	if err = ioutil.WriteFile(objFile, []byte("v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"), 0644); err != nil {
		t.Fatal(err)
	}

	sc, err := ReadScene(objFile)
	if err != nil {
		t.Fatal(err)
	}
	if sc.Mesh.NumFaces() != 1 {
		t.Fatalf("expected 1 triangle; got %d", sc.Mesh.NumFaces())
	}
	if sc.Accel() != nil {
		t.Fatal("expected wavefront scenes to have no BVH")
	}
}

func TestReadSceneUnsupportedFormat(t *testing.T) {
	dir, err := ioutil.TempDir("", "sahtrace-reader")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	file := filepath.Join(dir, "scene.ply")
	if err = ioutil.WriteFile(file, []byte("ply"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err = ReadScene(file); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat; got %v", err)
	}
}
