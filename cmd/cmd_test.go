package cmd

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/achilleasa/sahtrace/accel"
	"github.com/achilleasa/sahtrace/config"
	"github.com/achilleasa/sahtrace/log"
	"github.com/achilleasa/sahtrace/types"
)

func init() {
	log.SetSink(ioutil.Discard)
}

func TestParseModuleLevel(t *testing.T) {
	type spec struct {
		in        string
		expModule string
		expLevel  string
		expErr    bool
	}
	specs := []spec{
		{"bvh builder=debug", "bvh builder", "debug", false},
		{" renderer =warning", "renderer", "warning", false},
		{"a=b=info", "a=b", "info", false},
		{"renderer", "", "", true},
		{"=debug", "", "", true},
		{"renderer=", "", "", true},
	}

	for index, s := range specs {
		module, level, err := parseModuleLevel(s.in)
		if s.expErr {
			if err == nil {
				t.Fatalf("[spec %d] expected an error", index)
			}
			continue
		}
		if err != nil {
			t.Fatalf("[spec %d] expected no error; got %v", index, err)
		}
		if module != s.expModule || level != s.expLevel {
			t.Fatalf("[spec %d] expected %q=%q; got %q=%q", index, s.expModule, s.expLevel, module, level)
		}
	}
}

func TestParseVec3Flag(t *testing.T) {
	type spec struct {
		in     string
		exp    types.Vec3
		expErr bool
	}
	specs := []spec{
		{"1,2,3", types.Vec3{1, 2, 3}, false},
		{" -1.5, 0 ,2e1", types.Vec3{-1.5, 0, 20}, false},
		{"1,2", types.Vec3{}, true},
		{"a,b,c", types.Vec3{}, true},
	}

	for index, s := range specs {
		v, err := parseVec3Flag(s.in)
		if s.expErr {
			if err == nil {
				t.Fatalf("[spec %d] expected an error", index)
			}
			continue
		}
		if err != nil || v != s.exp {
			t.Fatalf("[spec %d] expected %v; got %v (%v)", index, s.exp, v, err)
		}
	}
}

func TestImageEncoder(t *testing.T) {
	for _, name := range []string{"a.png", "a.BMP", "a.tif", "a.tiff"} {
		if _, err := imageEncoder(name); err != nil {
			t.Fatalf("expected an encoder for %s; got %v", name, err)
		}
	}
	if _, err := imageEncoder("a.jpg"); err == nil {
		t.Fatal("expected an error for jpg output")
	}
}

func TestLoadSceneWithBVHCache(t *testing.T) {
	dir, err := ioutil.TempDir("", "sahtrace-cmd")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	objFile := filepath.Join(dir, "quad.obj")
	if err = ioutil.WriteFile(objFile, []byte("v 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nf 1 2 3 4\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.SceneScale = 2
	cfg.BVHCache = filepath.Join(dir, "quad.bvh")

	// First load builds the tree and populates the cache
	sc, err := loadScene(objFile, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = os.Stat(cfg.BVHCache); err != nil {
		t.Fatalf("expected BVH cache to be written; got %v", err)
	}
	bbox, ok := sc.BoundingBox()
	if !ok || bbox[1][0] < 2 {
		t.Fatalf("expected scaled scene bounds; got %v", bbox)
	}

	// Second load uses the cache
	sc2, err := loadScene(objFile, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(sc2.Accel().Nodes()) != len(sc.Accel().Nodes()) {
		t.Fatalf("expected cached tree with %d nodes; got %d", len(sc.Accel().Nodes()), len(sc2.Accel().Nodes()))
	}

	// A corrupt cache is ignored and rebuilt
	if err = ioutil.WriteFile(cfg.BVHCache, []byte{1, 2, 3}, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err = loadScene(objFile, cfg); err != nil {
		t.Fatalf("expected corrupt cache to be replaced; got %v", err)
	}
}

func TestLoadSceneRebuildsStaleBVHCache(t *testing.T) {
	dir, err := ioutil.TempDir("", "sahtrace-cmd")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	objFile := filepath.Join(dir, "tri.obj")
	if err = ioutil.WriteFile(objFile, []byte("v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.BVHCache = filepath.Join(dir, "tri.bvh")
	if _, err = loadScene(objFile, cfg); err != nil {
		t.Fatal(err)
	}

	// The cached tree was built for the unscaled triangle
	cfg.SceneScale = 10
	sc, err := loadScene(objFile, cfg)
	if err != nil {
		t.Fatal(err)
	}

	bbox, ok := sc.BoundingBox()
	if !ok || bbox[1][0] < 10 || bbox[1][1] < 10 {
		t.Fatalf("expected bounds of the scaled triangle; got %v", bbox)
	}

	var isect accel.Intersection
	ray := accel.Ray{Origin: types.Vec3{5, 2, -1}, Dir: types.Vec3{0, 0, 1}}
	if !sc.Trace(ray, nil, &isect) {
		t.Fatal("expected ray to hit the scaled triangle")
	}
	if isect.FaceID != 0 || isect.T < 0.9999 || isect.T > 1.0001 {
		t.Fatalf("expected hit on face 0 at t=1; got face %d at t=%f", isect.FaceID, isect.T)
	}

	// The rebuilt tree replaced the stale cache
	sc2, err := loadScene(objFile, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if bbox2, _ := sc2.BoundingBox(); bbox2 != bbox {
		t.Fatalf("expected refreshed cache bounds %v; got %v", bbox, bbox2)
	}
}
