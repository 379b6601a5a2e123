package export

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Adam-Noble-01/glbexport/flatten"
	"github.com/Adam-Noble-01/glbexport/scene"
	"github.com/Adam-Noble-01/glbexport/utils"
)

// Group is the triangle soup for one (layer, material) pair.
type Group struct {
	Layer    string
	Material *scene.Material
	Tris     []flatten.Triangle
}

type groupKey struct {
	layer    string
	material *scene.Material
}

// GroupTriangles buckets triangles by (layer, material identity), keeping
// first-seen order so output is deterministic.
func GroupTriangles(tris []flatten.Triangle) []*Group {
	byKey := map[groupKey]*Group{}
	var order []*Group
	for _, t := range tris {
		key := groupKey{layer: t.Layer, material: t.Material}
		g, ok := byKey[key]
		if !ok {
			g = &Group{Layer: t.Layer, Material: t.Material}
			byKey[key] = g
			order = append(order, g)
		}
		g.Tris = append(g.Tris, t)
	}
	return order
}

// vertexKey welds identical corners so shared vertices are emitted once.
type vertexKey struct {
	pos    [3]float32
	normal [3]float32
	uv     [2]float32
}

// BuildMesh emits one mesh with a single TRIANGLES primitive for a group:
// POSITION and NORMAL always, TEXCOORD_0 iff the material resolved to a
// texture, indices in the narrowest sufficient width, positions converted
// to meters.
func (s *Session) BuildMesh(g *Group) error {
	if len(g.Tris) == 0 {
		return nil
	}

	matIdx := s.MaterialIndex(g.Material)
	textured := s.Textured(g.Material)

	var (
		positions [][3]float32
		normals   [][3]float32
		uvs       [][2]float32
		indices   []uint32
		seen      = map[vertexKey]uint32{}
	)

	for _, t := range g.Tris {
		positioned := positionedMapping(t.Mapping, t.Pos[:])
		for i := 0; i < 3; i++ {
			key := vertexKey{
				pos:    utils.Vec3to32(t.Pos[i].Mul(inchToMeter)),
				normal: utils.Vec3to32(t.Normal[i]),
			}
			if textured {
				key.uv = resolveUV(t.Mapping, t.Pos[i], positioned)
			}
			idx, ok := seen[key]
			if !ok {
				idx = uint32(len(positions))
				seen[key] = idx
				positions = append(positions, key.pos)
				normals = append(normals, key.normal)
				if textured {
					uvs = append(uvs, key.uv)
				}
			}
			indices = append(indices, idx)
		}
	}

	if len(positions) == 0 {
		return errors.Errorf("group %s/%s produced no vertices", g.Layer, g.Material.Name)
	}

	doc := s.Doc
	attributes := map[string]uint32{
		"POSITION": modeler.WritePosition(doc, positions),
		"NORMAL":   modeler.WriteNormal(doc, normals),
	}
	if textured {
		attributes["TEXCOORD_0"] = modeler.WriteTextureCoord(doc, uvs)
	}

	indicesAccessor := writeIndices(doc, indices, len(positions))

	name := fmt.Sprintf("%s_%s", utils.SanitizeName(g.Layer), utils.SanitizeName(g.Material.Name))
	mesh := &gltf.Mesh{
		Name: name,
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(indicesAccessor),
			Attributes: attributes,
			Material:   gltf.Index(matIdx),
		}},
	}
	meshIdx := uint32(len(doc.Meshes))
	doc.Meshes = append(doc.Meshes, mesh)

	s.AppendNode(name, gltf.Index(meshIdx), mgl64.Ident4())
	return nil
}

// writeIndices picks UNSIGNED_SHORT while every index fits in 16 bits,
// UNSIGNED_INT otherwise. Narrower widths are never used.
func writeIndices(doc *gltf.Document, indices []uint32, vertexCount int) uint32 {
	if vertexCount <= 65535 {
		short := make([]uint16, len(indices))
		for i, v := range indices {
			short[i] = uint16(v)
		}
		return modeler.WriteIndices(doc, short)
	}
	return modeler.WriteIndices(doc, indices)
}
