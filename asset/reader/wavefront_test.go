package reader

import (
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/achilleasa/sahtrace/asset"
	"github.com/achilleasa/sahtrace/log"
	"github.com/achilleasa/sahtrace/types"
)

func init() {
	log.SetSink(ioutil.Discard)
}

func mockResource(payload string) *asset.Resource {
	return asset.NewResourceFromStream("embedded.obj", strings.NewReader(payload))
}

func TestFloat32Parser(t *testing.T) {
	expError := "unsupported syntax for 'v'; expected 1 argument; got 0"
	_, err := parseFloat32([]string{"v"})
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get %s; got %v", expError, err)
	}

	_, err = parseFloat32([]string{"v", "not-a-float"})
	if err == nil {
		t.Fatal("expected to get a parse error")
	}

	v, err := parseFloat32([]string{"v", "3.14"})
	if err != nil {
		t.Fatal(err)
	}

	if v != 3.14 {
		t.Fatalf("expected parsed value to be 3.14; got %f", v)
	}
}

func TestVec3Parser(t *testing.T) {
	expError := "unsupported syntax for 'v'; expected 3 arguments; got 0"
	_, err := parseVec3([]string{"v"})
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get %s; got %v", expError, err)
	}

	_, err = parseVec3([]string{"v", "not-a-float", "2", "3"})
	if err == nil {
		t.Fatal("expected to get a parse error")
	}

	v, err := parseVec3([]string{"v", "3.14", "0", "0.4"})
	if err != nil {
		t.Fatal(err)
	}

	expVal := types.Vec3{3.14, 0, 0.4}
	if v != expVal {
		t.Fatalf("expected parsed value to be %v; got %v", expVal, v)
	}
}

func TestSelectFaceCoordinate(t *testing.T) {
	expError := "index out of bounds"
	type spec struct {
		in        string
		listLen   int
		relOffset int
		out       int
		expError  string
	}
	specs := []spec{
		{"2", 1, 0, -1, expError},
		{"-2", 1, 0, -1, expError},
		{"0", 10, 0, -1, expError},
		{"1", 10, 0, 0, ""}, // indices are 1-based
		{"-1", 10, 0, 9, ""},
		{"1", 10, 4, 4, ""},
	}

	for idx, s := range specs {
		v, err := selectFaceCoordIndex(s.in, s.listLen, s.relOffset)
		if s.expError != "" && (err == nil || err.Error() != s.expError) {
			t.Fatalf("[spec %d] expected error %s; got %v", idx, s.expError, err)
		} else if v != s.out {
			t.Fatalf("[spec %d] expected index to be %d; got %d", idx, s.out, v)
		}
	}
}

func TestParseFaces(t *testing.T) {
	payload := `
o testObj
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
v 0.5 1.5 0
vn 0 0 1
vt 0 0
# Triangle, quad and pentagon
f 1/1/1 2/1/1 3/1/1
f 1//1 2//1 3//1 4//1
f -5 -4 -3 -1 -2
`

	r := newWavefrontReader()
	sc, err := r.Read(mockResource(payload))
	if err != nil {
		t.Fatal(err)
	}

	m := sc.Mesh
	if m.NumVertices() != 5 {
		t.Fatalf("expected 5 vertices; got %d", m.NumVertices())
	}
	if m.NumFaces() != 6 {
		t.Fatalf("expected 6 triangles; got %d", m.NumFaces())
	}
	if err = m.Validate(); err != nil {
		t.Fatal(err)
	}

	expFaces := []uint32{0, 1, 2, 0, 1, 2, 0, 2, 3, 0, 1, 2, 0, 2, 4, 0, 4, 3}
	for i, exp := range expFaces {
		if m.Faces[i] != exp {
			t.Fatalf("expected faces %v; got %v", expFaces, m.Faces)
		}
	}

	// All faces use the default material
	if len(sc.Materials) != 1 || sc.Materials[0].Name != "default" {
		t.Fatalf("expected a single default material; got %+v", sc.Materials)
	}
	for face, matID := range m.MaterialIDs {
		if matID != 0 {
			t.Fatalf("expected face %d to use material 0; got %d", face, matID)
		}
	}

	// The camera should be framing the mesh
	if sc.Camera.LookAt != (types.Vec3{0.5, 0.75, 0}) {
		t.Fatalf("expected camera to look at the mesh center; got %v", sc.Camera.LookAt)
	}
}

func TestParseErrors(t *testing.T) {
	type spec struct {
		payload  string
		expError string
	}
	specs := []spec{
		{"v 0 0", "expected 3 arguments"},
		{"v 0 0 0\nf 1 1", `expected at least 3 arguments`},
		{"v 0 0 0\nf 1 2 3", "index out of bounds"},
		{"usemtl foo", `undefined material with name "foo"`},
		{"usemtl", "expected 1 argument"},
		{"camera_fov abc", "invalid syntax"},
		{"mtllib", `expected 1 argument`},
	}

	for index, s := range specs {
		_, err := newWavefrontReader().Read(mockResource(s.payload))
		if err == nil || !strings.Contains(err.Error(), s.expError) {
			t.Fatalf("[spec %d] expected error containing %q; got %v", index, s.expError, err)
		}
	}
}

func TestCameraDirectives(t *testing.T) {
	payload := `
camera_fov 60
camera_eye 0 2 10
camera_look 0 1 0
camera_up 0 1 0
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
`
	sc, err := newWavefrontReader().Read(mockResource(payload))
	if err != nil {
		t.Fatal(err)
	}

	cam := sc.Camera
	if cam.FOV != 60 || cam.Eye != (types.Vec3{0, 2, 10}) || cam.LookAt != (types.Vec3{0, 1, 0}) || cam.Up != (types.Vec3{0, 1, 0}) {
		t.Fatalf("unexpected camera settings %+v", cam)
	}
}

func TestRemoteMaterialLibrary(t *testing.T) {
	objPayload := `
mtllib materials.mtl
v 0 0 0
v 1 0 0
v 0 1 0
v 0 0 1
usemtl red
f 1 2 3
usemtl blue
f 1 2 4
f 1 3 4
`
	mtlPayload := `
# Materials
newmtl red
Kd 1 0 0
Ks 1 1 1
newmtl unused
Kd 0 1 0
newmtl blue
Kd 0 0 1
`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/scenes/test.obj":
			w.Write([]byte(objPayload))
		case "/scenes/materials.mtl":
			w.Write([]byte(mtlPayload))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	sc, err := ReadScene(server.URL + "/scenes/test.obj")
	if err != nil {
		t.Fatal(err)
	}

	// Unused materials are pruned
	if len(sc.Materials) != 2 {
		t.Fatalf("expected 2 materials; got %d", len(sc.Materials))
	}
	if sc.Materials[0].Name != "red" || sc.Materials[0].Diffuse != (types.Vec3{1, 0, 0}) {
		t.Fatalf("unexpected material 0: %+v", sc.Materials[0])
	}
	if sc.Materials[1].Name != "blue" || sc.Materials[1].Diffuse != (types.Vec3{0, 0, 1}) {
		t.Fatalf("unexpected material 1: %+v", sc.Materials[1])
	}

	expIDs := []uint32{0, 1, 1}
	for face, exp := range expIDs {
		if got := sc.Mesh.MaterialID(uint32(face)); got != exp {
			t.Fatalf("expected face %d to use material %d; got %d", face, exp, got)
		}
	}
}

func TestMaterialLibraryErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/dup.obj":
			w.Write([]byte("mtllib dup.mtl"))
		case "/dup.mtl":
			w.Write([]byte("newmtl a\nnewmtl a"))
		case "/orphan.obj":
			w.Write([]byte("mtllib orphan.mtl"))
		case "/orphan.mtl":
			w.Write([]byte("Kd 1 1 1"))
		case "/missing.obj":
			w.Write([]byte("mtllib nope.mtl"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	type spec struct {
		path     string
		expError string
	}
	specs := []spec{
		{"/dup.obj", `material "a" already defined`},
		{"/orphan.obj", `without a "newmtl"`},
		{"/missing.obj", "status 404"},
	}
	for index, s := range specs {
		_, err := ReadScene(server.URL + s.path)
		if err == nil || !strings.Contains(err.Error(), s.expError) {
			t.Fatalf("[spec %d] expected error containing %q; got %v", index, s.expError, err)
		}
		if !strings.Contains(err.Error(), "referenced from") {
			t.Fatalf("[spec %d] expected error to include the include stack; got %v", index, err)
		}
	}
}
