package writer

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/achilleasa/sahtrace/accel"
	"github.com/achilleasa/sahtrace/asset/reader"
	"github.com/achilleasa/sahtrace/log"
	"github.com/achilleasa/sahtrace/mesh"
	"github.com/achilleasa/sahtrace/scene"
	"github.com/achilleasa/sahtrace/types"
)

func init() {
	log.SetSink(ioutil.Discard)
}

func testScene() *scene.Scene {
	m := &mesh.Mesh{}
	for i := 0; i < 8; i++ {
		o := types.Vec3{float32(i), float32(i % 3), float32(-i)}
		m.AddTriangle(o, o.Add(types.Vec3{1, 0, 0}), o.Add(types.Vec3{0, 1, 0}), uint32(i%2))
	}

	materials := []scene.Material{
		{Name: "red", Diffuse: types.Vec3{1, 0, 0}},
		{Name: "blue", Diffuse: types.Vec3{0, 0, 1}},
	}
	camera := scene.NewCamera(types.Vec3{0, 0, 10}, types.Vec3{0, 0, 0}, types.Vec3{0, 1, 0}, 45)
	return scene.New(m, materials, camera)
}

func TestZipRoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "sahtrace-writer")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	sc := testScene()
	opts := accel.DefaultOptions()
	opts.MinLeafPrimitives = 2
	if err = sc.BuildAccel(opts); err != nil {
		t.Fatal(err)
	}

	zipFile := filepath.Join(dir, "scene.zip")
	if err = WriteScene(sc, zipFile); err != nil {
		t.Fatal(err)
	}

	loaded, err := reader.ReadScene(zipFile)
	if err != nil {
		t.Fatal(err)
	}

	if loaded.Mesh.NumFaces() != sc.Mesh.NumFaces() {
		t.Fatalf("expected %d faces; got %d", sc.Mesh.NumFaces(), loaded.Mesh.NumFaces())
	}
	for i, v := range sc.Mesh.Vertices {
		if loaded.Mesh.Vertices[i] != v {
			t.Fatalf("vertex data mismatch at %d", i)
		}
	}
	for i, id := range sc.Mesh.MaterialIDs {
		if loaded.Mesh.MaterialIDs[i] != id {
			t.Fatalf("material id mismatch at face %d", i)
		}
	}

	if len(loaded.Materials) != 2 || loaded.Materials[1] != sc.Materials[1] {
		t.Fatalf("expected materials %v; got %v", sc.Materials, loaded.Materials)
	}
	if loaded.Camera == nil || loaded.Camera.Eye != sc.Camera.Eye || loaded.Camera.FOV != 45 {
		t.Fatalf("expected camera %+v; got %+v", sc.Camera, loaded.Camera)
	}

	exp, got := sc.Accel(), loaded.Accel()
	if got == nil {
		t.Fatal("expected loaded scene to include a BVH")
	}
	if len(got.Nodes()) != len(exp.Nodes()) {
		t.Fatalf("expected %d nodes; got %d", len(exp.Nodes()), len(got.Nodes()))
	}
	for i, n := range exp.Nodes() {
		if got.Nodes()[i] != n {
			t.Fatalf("node %d mismatch: expected %+v; got %+v", i, n, got.Nodes()[i])
		}
	}

	// Both trees must produce the same hits.
	ray := accel.Ray{Origin: types.Vec3{3.25, 0.25, 10}, Dir: types.Vec3{0, 0, -1}}
	expHit, expOK := exp.Trace(ray, sc.Mesh)
	gotHit, gotOK := got.Trace(ray, loaded.Mesh)
	if expOK != gotOK || expHit.FaceID != gotHit.FaceID || expHit.T != gotHit.T {
		t.Fatalf("expected hit %v (%+v); got %v (%+v)", expOK, expHit, gotOK, gotHit)
	}
}

func TestZipWithoutAccel(t *testing.T) {
	dir, err := ioutil.TempDir("", "sahtrace-writer")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	sc := scene.New(testScene().Mesh, nil, nil)
	zipFile := filepath.Join(dir, "scene.zip")
	if err = WriteScene(sc, zipFile); err != nil {
		t.Fatal(err)
	}

	loaded, err := reader.ReadScene(zipFile)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Accel() != nil || loaded.Camera != nil || len(loaded.Materials) != 0 {
		t.Fatalf("expected a bare mesh scene; got %+v", loaded)
	}
}

func TestWriteWithoutMesh(t *testing.T) {
	if err := WriteScene(scene.New(nil, nil, nil), filepath.Join(os.TempDir(), "never-written.zip")); err != scene.ErrNoMesh {
		t.Fatalf("expected ErrNoMesh; got %v", err)
	}
}
