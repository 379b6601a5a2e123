// Package export turns flattened world-space triangles into GLB documents:
// material/texture deduplication, UV resolution, accessor emission and the
// per-file orchestration.
package export

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"

	"github.com/Adam-Noble-01/glbexport/config"
	"github.com/Adam-Noble-01/glbexport/scene"
	"github.com/Adam-Noble-01/glbexport/texture"
	"github.com/Adam-Noble-01/glbexport/utils"
)

// Every emitted node hangs under a synthetic root carrying a -90° rotation
// about X, converting the source's Z-up frame to glTF's Y-up.
var rootRotation = [4]float32{-0.7071068, 0, 0, 0.7071068}

// inchToMeter converts source inches to glTF meters at emission time.
const inchToMeter = 0.0254

// Session is the per-document export state: the glTF document under
// construction plus the identity-keyed deduplication maps. A fresh Session
// is built for every output file; nothing survives between runs.
type Session struct {
	Doc *gltf.Document

	root uint32

	materials map[*scene.Material]uint32
	textured  map[*scene.Material]bool
	textures  map[*scene.Texture]uint32
	sampler   *uint32

	cache *texture.Cache
	bulk  scene.TextureWriter
	cfg   *config.Config
}

// NewSession creates the document with its Y-up root node in place.
func NewSession(cfg *config.Config, cache *texture.Cache, bulk scene.TextureWriter) *Session {
	doc := gltf.NewDocument()

	s := &Session{
		Doc:       doc,
		materials: map[*scene.Material]uint32{},
		textured:  map[*scene.Material]bool{},
		textures:  map[*scene.Texture]uint32{},
		cache:     cache,
		bulk:      bulk,
		cfg:       cfg,
	}

	s.root = uint32(len(doc.Nodes))
	doc.Nodes = append(doc.Nodes, &gltf.Node{
		Name:     "ZUpToYUp",
		Rotation: rootRotation,
	})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, s.root)
	return s
}

// AppendNode adds a node under the root. Decomposable transforms are
// emitted as TRS with the translation unit-converted; sheared or reflected
// transforms fall back to a raw column-major matrix.
func (s *Session) AppendNode(name string, mesh *uint32, transform mgl64.Mat4) uint32 {
	node := &gltf.Node{Name: name, Mesh: mesh}

	if !utils.IsIdentity(transform) {
		if t, r, sc, ok := utils.DecomposeTRS(transform); ok {
			node.Translation = utils.Vec3to32(t.Mul(inchToMeter))
			node.Rotation = utils.QuatTo32(r)
			node.Scale = utils.Vec3to32(sc)
		} else {
			m := transform
			m[12] *= inchToMeter
			m[13] *= inchToMeter
			m[14] *= inchToMeter
			node.Matrix = utils.Mat4to32(m)
		}
	}

	idx := uint32(len(s.Doc.Nodes))
	s.Doc.Nodes = append(s.Doc.Nodes, node)
	s.Doc.Nodes[s.root].Children = append(s.Doc.Nodes[s.root].Children, idx)
	return idx
}
