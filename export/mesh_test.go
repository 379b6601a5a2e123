package export

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"

	"github.com/Adam-Noble-01/glbexport/config"
	"github.com/Adam-Noble-01/glbexport/flatten"
	"github.com/Adam-Noble-01/glbexport/scene"
	"github.com/Adam-Noble-01/glbexport/texture"
)

func newTestSession(t *testing.T, cfg *config.Config) *Session {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	cache, err := texture.NewCache(cfg.Textures)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { cache.Close() })
	return NewSession(cfg, cache, nil)
}

func quadTriangles(layer string, m *scene.Material) []flatten.Triangle {
	n := mgl64.Vec3{0, 0, 1}
	return []flatten.Triangle{
		{
			Pos:      [3]mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}},
			Normal:   [3]mgl64.Vec3{n, n, n},
			Layer:    layer,
			Material: m,
		},
		{
			Pos:      [3]mgl64.Vec3{{0, 0, 0}, {1, 1, 0}, {0, 1, 0}},
			Normal:   [3]mgl64.Vec3{n, n, n},
			Layer:    layer,
			Material: m,
		},
	}
}

func TestBuildMeshWeldsSharedVertices(t *testing.T) {
	mat := &scene.Material{Name: "Red", Color: [4]float64{1, 0, 0, 1}}
	s := newTestSession(t, nil)

	g := &Group{Layer: "10_Wall", Material: mat, Tris: quadTriangles("10_Wall", mat)}
	if err := s.BuildMesh(g); err != nil {
		t.Fatal(err)
	}

	doc := s.Doc
	if len(doc.Meshes) != 1 {
		t.Fatalf("meshes = %d; expected 1", len(doc.Meshes))
	}
	prim := doc.Meshes[0].Primitives[0]

	posAcc := doc.Accessors[prim.Attributes["POSITION"]]
	if posAcc.Count != 4 {
		t.Errorf("position count = %d; expected 4 welded vertices", posAcc.Count)
	}
	idxAcc := doc.Accessors[*prim.Indices]
	if idxAcc.Count != 6 {
		t.Errorf("index count = %d; expected 6", idxAcc.Count)
	}
	if idxAcc.ComponentType != gltf.ComponentUshort {
		t.Errorf("index component = %v; expected UNSIGNED_SHORT", idxAcc.ComponentType)
	}
}

func TestBuildMeshUnitConversion(t *testing.T) {
	mat := &scene.Material{Name: "M", Color: [4]float64{1, 1, 1, 1}}
	s := newTestSession(t, nil)

	n := mgl64.Vec3{0, 0, 1}
	g := &Group{Layer: "10_Wall", Material: mat, Tris: []flatten.Triangle{{
		Pos:      [3]mgl64.Vec3{{39.3701, 0, 0}, {0, 39.3701, 0}, {0, 0, 0}},
		Normal:   [3]mgl64.Vec3{n, n, n},
		Layer:    "10_Wall",
		Material: mat,
	}}}
	if err := s.BuildMesh(g); err != nil {
		t.Fatal(err)
	}

	prim := s.Doc.Meshes[0].Primitives[0]
	posAcc := s.Doc.Accessors[prim.Attributes["POSITION"]]
	if len(posAcc.Max) == 0 {
		t.Fatal("POSITION accessor has no bounds")
	}
	if math.Abs(float64(posAcc.Max[0])-1.0) > 1e-5 {
		t.Errorf("max X = %v; expected 1.0 m for 39.3701 in", posAcc.Max[0])
	}
}

func TestBuildMeshNormalsNotScaled(t *testing.T) {
	mat := &scene.Material{Name: "M", Color: [4]float64{1, 1, 1, 1}}
	s := newTestSession(t, nil)

	g := &Group{Layer: "10_Wall", Material: mat, Tris: quadTriangles("10_Wall", mat)}
	if err := s.BuildMesh(g); err != nil {
		t.Fatal(err)
	}
	normAcc := s.Doc.Accessors[s.Doc.Meshes[0].Primitives[0].Attributes["NORMAL"]]
	if normAcc.Count != 4 {
		t.Errorf("normal count = %d; expected 4", normAcc.Count)
	}
}

func TestBuildMeshTexcoordOnlyWhenTextured(t *testing.T) {
	cfg := config.Default()
	cfg.Textures.SolidColorFallback = false

	mat := &scene.Material{Name: "Plain", Color: [4]float64{1, 1, 1, 1}}
	s := newTestSession(t, cfg)
	if err := s.BuildMesh(&Group{Layer: "10_A", Material: mat, Tris: quadTriangles("10_A", mat)}); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Doc.Meshes[0].Primitives[0].Attributes["TEXCOORD_0"]; ok {
		t.Error("untextured group emitted TEXCOORD_0")
	}
}

func TestIndexWidthBoundary(t *testing.T) {
	tests := []struct {
		vertexCount int
		component   gltf.ComponentType
	}{
		{65535, gltf.ComponentUshort},
		{65536, gltf.ComponentUint},
	}
	for _, test := range tests {
		doc := gltf.NewDocument()
		indices := make([]uint32, test.vertexCount)
		for i := range indices {
			indices[i] = uint32(i % test.vertexCount)
		}
		acc := writeIndices(doc, indices, test.vertexCount)
		if got := doc.Accessors[acc].ComponentType; got != test.component {
			t.Errorf("%d vertices: component = %v; expected %v", test.vertexCount, got, test.component)
		}
	}
}

func TestGroupTrianglesKeysOnIdentity(t *testing.T) {
	a := &scene.Material{Name: "Same", Color: [4]float64{1, 0, 0, 1}}
	b := &scene.Material{Name: "Same", Color: [4]float64{1, 0, 0, 1}}

	tris := append(quadTriangles("10_Wall", a), quadTriangles("10_Wall", b)...)
	groups := GroupTriangles(tris)
	if len(groups) != 2 {
		t.Errorf("groups = %d; expected 2 (identity, not value, keyed)", len(groups))
	}

	tris = append(quadTriangles("10_Wall", a), quadTriangles("12_Roof", a)...)
	groups = GroupTriangles(tris)
	if len(groups) != 2 {
		t.Errorf("groups = %d; expected 2 (split by layer)", len(groups))
	}
}

func TestRootRotationConvertsZUpToYUp(t *testing.T) {
	q := mgl64.Quat{
		W: float64(rootRotation[3]),
		V: mgl64.Vec3{float64(rootRotation[0]), float64(rootRotation[1]), float64(rootRotation[2])},
	}
	// The float32 literal is not exactly unit-norm; normalize before use.
	got := q.Normalize().Rotate(mgl64.Vec3{0, 1, 0})
	want := mgl64.Vec3{0, 0, -1}
	if math.Abs(got[0]-want[0]) > 1e-6 ||
		math.Abs(got[1]-want[1]) > 1e-6 ||
		math.Abs(got[2]-want[2]) > 1e-6 {
		t.Errorf("rotated Y-forward = %v; expected %v", got, want)
	}
}

func TestAppendNodeTransforms(t *testing.T) {
	s := newTestSession(t, nil)

	// Decomposable: TRS with converted translation.
	trs := mgl64.Translate3D(100, 0, 0).Mul4(mgl64.Scale3D(2, 2, 2))
	idx := s.AppendNode("placed", nil, trs)
	node := s.Doc.Nodes[idx]
	if math.Abs(float64(node.Translation[0])-2.54) > 1e-6 {
		t.Errorf("translation X = %v; expected 2.54 m", node.Translation[0])
	}
	if node.Scale != [3]float32{2, 2, 2} {
		t.Errorf("scale = %v", node.Scale)
	}
	if node.Matrix != [16]float32{} {
		t.Error("TRS node also carries a matrix")
	}

	// Sheared: raw matrix with converted translation entries.
	shear := mgl64.Ident4()
	shear.Set(0, 1, 0.5)
	shear.Set(0, 3, 100)
	idx = s.AppendNode("sheared", nil, shear)
	node = s.Doc.Nodes[idx]
	if math.Abs(float64(node.Matrix[12])-2.54) > 1e-6 {
		t.Errorf("matrix translation X = %v; expected 2.54 m", node.Matrix[12])
	}

	// Every appended node hangs under the Y-up root.
	root := s.Doc.Nodes[s.root]
	if len(root.Children) != 2 {
		t.Errorf("root children = %d; expected 2", len(root.Children))
	}
}
