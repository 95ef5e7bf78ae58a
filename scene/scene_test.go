package scene

import (
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/achilleasa/sahtrace/accel"
	"github.com/achilleasa/sahtrace/log"
	"github.com/achilleasa/sahtrace/mesh"
	"github.com/achilleasa/sahtrace/types"
)

func init() {
	log.SetSink(ioutil.Discard)
}

// A 4x4 grid of unit quads on the z = 0 plane; each quad uses a different
// material (mod 3).
func gridScene() *Scene {
	m := &mesh.Mesh{}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			fx, fy := float32(x), float32(y)
			matID := uint32((y*4 + x) % 3)
			m.AddTriangle(types.Vec3{fx, fy, 0}, types.Vec3{fx + 1, fy, 0}, types.Vec3{fx + 1, fy + 1, 0}, matID)
			m.AddTriangle(types.Vec3{fx, fy, 0}, types.Vec3{fx + 1, fy + 1, 0}, types.Vec3{fx, fy + 1, 0}, matID)
		}
	}

	materials := []Material{
		{Name: "red", Diffuse: types.Vec3{1, 0, 0}},
		{Name: "green", Diffuse: types.Vec3{0, 1, 0}},
	}
	return New(m, materials, NewCamera(types.Vec3{2, 2, 5}, types.Vec3{2, 2, 0}, types.Vec3{0, 1, 0}, 45))
}

func TestTraceWithoutAccel(t *testing.T) {
	sc := gridScene()

	var isect accel.Intersection
	if sc.Trace(accel.Ray{Origin: types.Vec3{0.75, 0.25, 1}, Dir: types.Vec3{0, 0, -1}}, nil, &isect) {
		t.Fatal("expected no hit without a published BVH")
	}
	if _, ok := sc.BoundingBox(); ok {
		t.Fatal("expected no bbox without a published BVH")
	}
}

func TestTraceAndMaterials(t *testing.T) {
	sc := gridScene()
	if err := sc.BuildAccel(accel.DefaultOptions()); err != nil {
		t.Fatal(err)
	}

	type spec struct {
		x, y   float32
		expMat string
	}
	specs := []spec{
		{0.75, 0.25, "red"},
		{1.75, 0.25, "green"},
		// Material 2 is not defined
		{2.75, 0.25, "default"},
		{0.75, 1.25, "green"},
	}

	stack := sc.Accel().NewStack()
	for index, s := range specs {
		var isect accel.Intersection
		ray := accel.Ray{Origin: types.Vec3{s.x, s.y, 1}, Dir: types.Vec3{0, 0, -1}}
		if !sc.Trace(ray, stack, &isect) {
			t.Fatalf("[spec %d] expected hit", index)
		}
		if isect.T != 1 {
			t.Fatalf("[spec %d] expected t = 1; got %f", index, isect.T)
		}
		if mat := sc.Material(&isect); mat.Name != s.expMat {
			t.Fatalf("[spec %d] expected material %q; got %q", index, s.expMat, mat.Name)
		}
	}

	var miss accel.Intersection
	if sc.Trace(accel.Ray{Origin: types.Vec3{10, 10, 1}, Dir: types.Vec3{0, 0, -1}}, stack, &miss) {
		t.Fatal("expected miss")
	}
	if mat := sc.Material(&miss); mat != DefaultMaterial() {
		t.Fatalf("expected default material for misses; got %+v", mat)
	}

	bbox, ok := sc.BoundingBox()
	if !ok || bbox[0][0] > 0 || bbox[1][0] < 4 || bbox[0][1] > 0 || bbox[1][1] < 4 {
		t.Fatalf("expected bbox to cover the grid; got %v", bbox)
	}
}

func TestSetAccelRejectsMismatch(t *testing.T) {
	sc := gridScene()
	if err := sc.BuildAccel(accel.DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	current := sc.Accel()

	other := &mesh.Mesh{}
	other.AddTriangle(types.Vec3{0, 0, 0}, types.Vec3{1, 0, 0}, types.Vec3{0, 1, 0}, 0)
	otherBVH, err := accel.Build(other, accel.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	if err = sc.SetAccel(otherBVH); !errors.Is(err, accel.ErrMeshMismatch) {
		t.Fatalf("expected ErrMeshMismatch; got %v", err)
	}
	if sc.Accel() != current {
		t.Fatal("expected previous BVH to remain published")
	}

	if err = sc.LoadAccel(filepath.Join(os.TempDir(), "sahtrace-missing", "tree.bin")); err == nil {
		t.Fatal("expected load error")
	}
	if sc.Accel() != current {
		t.Fatal("expected previous BVH to remain published after a failed load")
	}
}

func TestLoadAccel(t *testing.T) {
	sc := gridScene()
	if err := sc.BuildAccel(accel.DefaultOptions()); err != nil {
		t.Fatal(err)
	}

	dir, err := ioutil.TempDir("", "sahtrace-scene")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "grid.bvh")
	if err = sc.Accel().Dump(path); err != nil {
		t.Fatal(err)
	}

	loaded := gridScene()
	if err = loaded.LoadAccel(path); err != nil {
		t.Fatal(err)
	}
	if len(loaded.Accel().Nodes()) != len(sc.Accel().Nodes()) {
		t.Fatal("expected loaded BVH to match")
	}
}

func TestSwapDuringTraversal(t *testing.T) {
	sc := gridScene()
	if err := sc.BuildAccel(accel.DefaultOptions()); err != nil {
		t.Fatal(err)
	}

	alt := accel.DefaultOptions()
	alt.MinLeafPrimitives = 1
	altBVH, err := accel.Build(sc.Mesh, alt)
	if err != nil {
		t.Fatal(err)
	}
	origBVH := sc.Accel()

	var wg sync.WaitGroup
	errCh := make(chan error, 4)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var isect accel.Intersection
			for i := 0; i < 2000; i++ {
				x := 0.1 + float32(i%16)*0.23
				ray := accel.Ray{Origin: types.Vec3{x, 1.5, 1}, Dir: types.Vec3{0, 0, -1}}
				// A fresh stack sized for whichever tree is published
				if !sc.Trace(ray, nil, &isect) || isect.T != 1 {
					errCh <- errors.New("expected hit at t = 1")
					return
				}
			}
		}()
	}

	for i := 0; i < 100; i++ {
		target := altBVH
		if i%2 == 1 {
			target = origBVH
		}
		if err := sc.SetAccel(target); err != nil {
			t.Fatal(err)
		}
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Fatal(err)
	}
}

func TestStats(t *testing.T) {
	sc := gridScene()
	out := sc.Stats()
	if !strings.Contains(out, "not built") {
		t.Fatalf("expected stats to report missing BVH; got:\n%s", out)
	}

	if err := sc.BuildAccel(accel.DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	out = sc.Stats()
	for _, exp := range []string{"Triangles", "32", "red", "green", "Leaves"} {
		if !strings.Contains(out, exp) {
			t.Fatalf("expected stats table to contain %q; got:\n%s", exp, out)
		}
	}
}
