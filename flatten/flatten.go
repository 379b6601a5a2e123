// Package flatten walks the nested scene graph and produces world-space
// triangles tagged with their layer and effective material. Traversal is
// non-destructive: transforms are composed while descending, the snapshot
// is never mutated.
package flatten

import (
	"math"
	"regexp"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/Adam-Noble-01/glbexport/internal/logger"
	"github.com/Adam-Noble-01/glbexport/scene"
)

const degenerateAreaEpsilon = 1e-14

// Triangle is one world-space triangle ready for grouping.
type Triangle struct {
	Pos    [3]mgl64.Vec3
	Normal [3]mgl64.Vec3

	Layer    string
	Material *scene.Material

	// Mapping is the face's texture projection re-expressed in world
	// space; nil when the face has none.
	Mapping *scene.TextureMapping
}

// Options configures a flattening pass.
type Options struct {
	// Exclude matches layer names that must never be exported. Exclusion
	// is transitive: children of an excluded node are not visited.
	Exclude *regexp.Regexp

	// MaxDepth bounds nesting; deeper subtrees are reported as an error.
	MaxDepth int

	// DefaultMaterial substitutes for faces with no material at all.
	DefaultMaterial *scene.Material
}

// Flatten traverses the roots and returns the world-space triangle soup.
func Flatten(roots []*scene.Node, opt Options) ([]Triangle, error) {
	if opt.MaxDepth <= 0 {
		opt.MaxDepth = 20
	}
	w := &walker{opt: opt}
	for _, root := range roots {
		if err := w.node(root, mgl64.Ident4(), nil, 0); err != nil {
			return nil, err
		}
	}
	return w.out, nil
}

type walker struct {
	opt Options
	out []Triangle
}

func (w *walker) excluded(layer string) bool {
	return layer != "" && w.opt.Exclude != nil && w.opt.Exclude.MatchString(layer)
}

func (w *walker) node(n *scene.Node, parent mgl64.Mat4, override *scene.Material, depth int) error {
	if w.excluded(n.Layer) {
		return nil
	}
	if depth > w.opt.MaxDepth {
		return errors.Errorf("node %q exceeds max nesting depth %d", n.Name, w.opt.MaxDepth)
	}

	local := n.Transform
	if local == (mgl64.Mat4{}) {
		// Tolerate snapshots that omit the transform entirely.
		local = mgl64.Ident4()
	}
	world := parent.Mul4(local)

	// The nearest ancestor instance override wins over face materials.
	if n.Material != nil {
		override = n.Material
	}

	for _, face := range n.Faces {
		w.face(face, n.Layer, world, override)
	}
	for _, child := range n.Children {
		if err := w.node(child, world, override, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) face(f *scene.Face, nodeLayer string, world mgl64.Mat4, override *scene.Material) {
	layer := f.Layer
	if layer == "" {
		layer = nodeLayer
	}
	if w.excluded(layer) {
		return
	}

	material := override
	if material == nil {
		material = f.Front
	}
	if material == nil {
		material = f.Back
	}
	if material == nil {
		material = w.opt.DefaultMaterial
	}

	tris := f.Tessellate()
	if len(tris) == 0 {
		logger.Sugar.Debugw("skipping degenerate face", "layer", layer)
		return
	}

	var mapping *scene.TextureMapping
	if f.Mapping != nil {
		mapping = f.Mapping.Transformed(world)
	}
	normalMat, normalOK := normalMatrix(world)

	for _, t := range tris {
		var out Triangle
		for i := 0; i < 3; i++ {
			out.Pos[i] = mgl64.TransformCoordinate(t.Pos[i], world)
		}
		if degenerate(out.Pos) {
			continue
		}
		for i := 0; i < 3; i++ {
			if normalOK {
				out.Normal[i] = normalMat.Mul3x1(t.Normal[i]).Normalize()
			} else {
				out.Normal[i] = faceNormal(out.Pos)
			}
		}
		out.Layer = layer
		out.Material = material
		out.Mapping = mapping
		w.out = append(w.out, out)
	}
}

// normalMatrix is the inverse transpose of the upper 3x3, used to carry
// normals through non-uniform scaling.
func normalMatrix(world mgl64.Mat4) (mgl64.Mat3, bool) {
	m := world.Mat3()
	if math.Abs(m.Det()) < 1e-12 {
		return mgl64.Ident3(), false
	}
	return m.Inv().Transpose(), true
}

func degenerate(pos [3]mgl64.Vec3) bool {
	a := pos[1].Sub(pos[0])
	b := pos[2].Sub(pos[0])
	return a.Cross(b).Len() < degenerateAreaEpsilon
}

func faceNormal(pos [3]mgl64.Vec3) mgl64.Vec3 {
	n := pos[1].Sub(pos[0]).Cross(pos[2].Sub(pos[0]))
	l := n.Len()
	if l < 1e-12 {
		return mgl64.Vec3{0, 0, 1}
	}
	return n.Mul(1 / l)
}
