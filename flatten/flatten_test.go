package flatten

import (
	"math"
	"regexp"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Adam-Noble-01/glbexport/scene"
)

var red = &scene.Material{Name: "Red", Color: [4]float64{1, 0, 0, 1}}
var blue = &scene.Material{Name: "Blue", Color: [4]float64{0, 0, 1, 1}}

func quad(layer string, front *scene.Material) *scene.Face {
	return &scene.Face{
		Loop:  []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		Front: front,
		Layer: layer,
	}
}

func TestFlattenComposesTransforms(t *testing.T) {
	child := &scene.Node{
		Name:      "Child",
		Transform: mgl64.Translate3D(0, 10, 0),
		Layer:     "10_Wall",
		Faces:     []*scene.Face{quad("10_Wall", red)},
	}
	root := &scene.Node{
		Name:      "Root",
		Transform: mgl64.Translate3D(100, 0, 0),
		Children:  []*scene.Node{child},
	}

	tris, err := Flatten([]*scene.Node{root}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(tris) != 2 {
		t.Fatalf("triangles = %d; expected 2", len(tris))
	}
	for _, tri := range tris {
		for _, p := range tri.Pos {
			if p[0] < 100 || p[0] > 101 || p[1] < 10 || p[1] > 11 {
				t.Errorf("vertex %v outside composed frame", p)
			}
		}
	}
}

func TestFlattenRotatedNormals(t *testing.T) {
	// Rotate the +Z quad 90° about X; normals must follow.
	node := &scene.Node{
		Transform: mgl64.HomogRotate3DX(math.Pi / 2),
		Faces:     []*scene.Face{quad("10_Wall", red)},
	}
	tris, err := Flatten([]*scene.Node{node}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := mgl64.Vec3{0, -1, 0}
	for _, tri := range tris {
		for _, n := range tri.Normal {
			// Component-wise: vector epsilon helpers square the tolerance
			// near zero and reject exact results.
			if math.Abs(n[0]-want[0]) > 1e-9 ||
				math.Abs(n[1]-want[1]) > 1e-9 ||
				math.Abs(n[2]-want[2]) > 1e-9 {
				t.Errorf("normal = %v; expected %v", n, want)
			}
		}
	}
}

func TestFlattenExclusionIsTransitiveButNotBlocking(t *testing.T) {
	hidden := &scene.Node{
		Layer: "90_Guides_NoExport",
		Faces: []*scene.Face{quad("", red)},
		Children: []*scene.Node{
			// Child on an exportable layer must still be pruned.
			{Layer: "10_Wall", Faces: []*scene.Face{quad("10_Wall", red)}},
		},
	}
	visible := &scene.Node{
		Layer: "10_Wall",
		Faces: []*scene.Face{quad("10_Wall", blue)},
	}
	root := &scene.Node{Children: []*scene.Node{hidden, visible}}

	tris, err := Flatten([]*scene.Node{root}, Options{
		Exclude: regexp.MustCompile(`(?i)_noexport$`),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(tris) != 2 {
		t.Fatalf("triangles = %d; expected 2 (visible sibling only)", len(tris))
	}
	for _, tri := range tris {
		if tri.Material != blue {
			t.Errorf("material = %v; expected the sibling's", tri.Material.Name)
		}
	}
}

func TestFlattenMaterialPrecedence(t *testing.T) {
	faceOnly := quad("10_Wall", red)
	backOnly := &scene.Face{
		Loop:  []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		Back:  red,
		Layer: "10_Wall",
	}
	bare := &scene.Face{
		Loop:  []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		Layer: "10_Wall",
	}
	defaultMat := &scene.Material{Name: "Default", Color: [4]float64{1, 1, 1, 1}}

	tests := []struct {
		name     string
		node     *scene.Node
		expected *scene.Material
	}{
		{"instance override wins", &scene.Node{Material: blue, Faces: []*scene.Face{faceOnly}}, blue},
		{"front material", &scene.Node{Faces: []*scene.Face{faceOnly}}, red},
		{"back material fallback", &scene.Node{Faces: []*scene.Face{backOnly}}, red},
		{"default material", &scene.Node{Faces: []*scene.Face{bare}}, defaultMat},
	}
	for _, test := range tests {
		tris, err := Flatten([]*scene.Node{test.node}, Options{DefaultMaterial: defaultMat})
		if err != nil {
			t.Fatal(err)
		}
		for _, tri := range tris {
			if tri.Material != test.expected {
				t.Errorf("%s: material = %v; expected %v", test.name, tri.Material, test.expected)
			}
		}
	}
}

func TestFlattenOverrideReachesNestedFaces(t *testing.T) {
	inner := &scene.Node{Faces: []*scene.Face{quad("10_Wall", red)}}
	outer := &scene.Node{Kind: scene.InstanceNode, Material: blue, Children: []*scene.Node{inner}}

	tris, err := Flatten([]*scene.Node{outer}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	for _, tri := range tris {
		if tri.Material != blue {
			t.Error("instance override did not propagate to nested faces")
		}
	}
}

func TestFlattenSkipsDegenerateFaces(t *testing.T) {
	node := &scene.Node{
		Layer: "10_Wall",
		Faces: []*scene.Face{
			{Loop: []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}}, Front: red, Layer: "10_Wall"},
			quad("10_Wall", red),
		},
	}
	tris, err := Flatten([]*scene.Node{node}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(tris) != 2 {
		t.Errorf("triangles = %d; expected 2 from the valid quad only", len(tris))
	}
}

func TestFlattenDepthGuard(t *testing.T) {
	leaf := &scene.Node{Faces: []*scene.Face{quad("10_Wall", red)}}
	node := leaf
	for i := 0; i < 25; i++ {
		node = &scene.Node{Transform: mgl64.Ident4(), Children: []*scene.Node{node}}
	}
	if _, err := Flatten([]*scene.Node{node}, Options{MaxDepth: 20}); err == nil {
		t.Error("runaway nesting not reported")
	}
}

func TestFlattenWorldMapping(t *testing.T) {
	face := quad("10_Wall", red)
	face.Mapping = scene.PlanarMapping(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0})
	node := &scene.Node{
		Transform: mgl64.Translate3D(7, 0, 0),
		Faces:     []*scene.Face{face},
	}
	tris, err := Flatten([]*scene.Node{node}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	// Object point (1, 0, 0) is world (8, 0, 0) and must still map to u=1.
	u, v, q := tris[0].Mapping.UVQAt(mgl64.Vec3{8, 0, 0})
	if math.Abs(u-1) > 1e-9 || math.Abs(v) > 1e-9 || math.Abs(q-1) > 1e-9 {
		t.Errorf("uvq = (%v, %v, %v); expected (1, 0, 1)", u, v, q)
	}
}
