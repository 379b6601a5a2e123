package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Face is a planar polygon primitive.
type Face struct {
	// Loop is the outer boundary, object space, counter-clockwise around
	// the face normal.
	Loop []mgl64.Vec3

	// Triangles is the host-provided tessellation, when available.
	// When nil, Tessellate triangulates Loop itself.
	Triangles []Triangle

	Front *Material
	Back  *Material
	Layer string

	// Mapping carries the face's texture projection; nil for faces with
	// no meaningful UVs.
	Mapping *TextureMapping
}

// Triangle is one tessellated triangle with per-vertex normals.
type Triangle struct {
	Pos    [3]mgl64.Vec3
	Normal [3]mgl64.Vec3
}

// TextureMapping maps an object-space position to homogeneous UVQ texture
// coordinates: uvq = (U·p, V·p, Q·p) with p = (x, y, z, 1). A plain planar
// projection has Q = (0, 0, 0, 1) so q is always 1; positioned (rotated,
// scaled or skewed) textures carry a general Q row.
type TextureMapping struct {
	U mgl64.Vec4
	V mgl64.Vec4
	Q mgl64.Vec4
}

// PlanarMapping builds a standard projection from an origin and two texture
// axis vectors. The axis lengths set the texture tile size.
func PlanarMapping(origin, uAxis, vAxis mgl64.Vec3) *TextureMapping {
	mkRow := func(axis mgl64.Vec3) mgl64.Vec4 {
		l2 := axis.Dot(axis)
		if l2 == 0 {
			return mgl64.Vec4{}
		}
		d := axis.Mul(1 / l2)
		return mgl64.Vec4{d[0], d[1], d[2], -d.Dot(origin)}
	}
	return &TextureMapping{
		U: mkRow(uAxis),
		V: mkRow(vAxis),
		Q: mgl64.Vec4{0, 0, 0, 1},
	}
}

// UVQAt evaluates the mapping at a point.
func (m *TextureMapping) UVQAt(p mgl64.Vec3) (u, v, q float64) {
	hp := p.Vec4(1)
	return m.U.Dot(hp), m.V.Dot(hp), m.Q.Dot(hp)
}

// Transformed returns the mapping re-expressed for points already
// transformed by world. Rows compose with the inverse: u = U·(world⁻¹·p).
// Returns nil when world is singular.
func (m *TextureMapping) Transformed(world mgl64.Mat4) *TextureMapping {
	if math.Abs(world.Det()) < 1e-12 {
		return nil
	}
	inv := world.Inv()
	row := func(r mgl64.Vec4) mgl64.Vec4 {
		// r as a row vector times inv.
		return mgl64.Vec4{
			r.Dot(inv.Col(0)),
			r.Dot(inv.Col(1)),
			r.Dot(inv.Col(2)),
			r.Dot(inv.Col(3)),
		}
	}
	return &TextureMapping{U: row(m.U), V: row(m.V), Q: row(m.Q)}
}

// Normal computes the face plane normal over the boundary loop using
// Newell's method. Returns false for degenerate (zero-area) loops.
func (f *Face) PlaneNormal() (mgl64.Vec3, bool) {
	if len(f.Loop) < 3 {
		return mgl64.Vec3{}, false
	}
	var n mgl64.Vec3
	for i, cur := range f.Loop {
		next := f.Loop[(i+1)%len(f.Loop)]
		n[0] += (cur[1] - next[1]) * (cur[2] + next[2])
		n[1] += (cur[2] - next[2]) * (cur[0] + next[0])
		n[2] += (cur[0] - next[0]) * (cur[1] + next[1])
	}
	l := n.Len()
	if l < 1e-12 {
		return mgl64.Vec3{}, false
	}
	return n.Mul(1 / l), true
}

// Tessellate returns the face triangles, triangulating the boundary loop
// when the host did not provide a tessellation. Degenerate faces yield nil.
func (f *Face) Tessellate() []Triangle {
	if f.Triangles != nil {
		return f.Triangles
	}
	normal, ok := f.PlaneNormal()
	if !ok {
		return nil
	}
	idx := triangulate(f.Loop, normal)
	tris := make([]Triangle, 0, len(idx)/3)
	for i := 0; i+2 < len(idx); i += 3 {
		t := Triangle{
			Pos:    [3]mgl64.Vec3{f.Loop[idx[i]], f.Loop[idx[i+1]], f.Loop[idx[i+2]]},
			Normal: [3]mgl64.Vec3{normal, normal, normal},
		}
		tris = append(tris, t)
	}
	return tris
}
