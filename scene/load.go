package scene

import (
	"encoding/json"
	"io"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// JSON snapshot format. The host-side companion serializes its live scene
// into this shape; the exporter never talks to the authoring API directly.

type jsonScene struct {
	Materials map[string]*jsonMaterial `json:"materials"`
	Nodes     []*jsonNode              `json:"nodes"`
}

type jsonMaterial struct {
	Color   [4]float64   `json:"color"`
	Texture *jsonTexture `json:"texture,omitempty"`
}

type jsonTexture struct {
	Filename string `json:"filename"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Path     string `json:"path,omitempty"`
}

type jsonNode struct {
	Name      string      `json:"name"`
	Kind      string      `json:"kind"` // "group" | "instance"
	Layer     string      `json:"layer,omitempty"`
	Material  string      `json:"material,omitempty"`
	Transform []float64   `json:"transform,omitempty"` // 16 values, column-major
	Children  []*jsonNode `json:"children,omitempty"`
	Faces     []*jsonFace `json:"faces,omitempty"`
}

type jsonFace struct {
	Loop    [][3]float64 `json:"loop"`
	Front   string       `json:"front,omitempty"`
	Back    string       `json:"back,omitempty"`
	Layer   string       `json:"layer,omitempty"`
	Mapping *jsonMapping `json:"mapping,omitempty"`
}

type jsonMapping struct {
	// Planar form.
	Origin *[3]float64 `json:"origin,omitempty"`
	UAxis  *[3]float64 `json:"u_axis,omitempty"`
	VAxis  *[3]float64 `json:"v_axis,omitempty"`
	// General homogeneous form, overrides the planar fields.
	U *[4]float64 `json:"u,omitempty"`
	V *[4]float64 `json:"v,omitempty"`
	Q *[4]float64 `json:"q,omitempty"`
}

// Load reads a scene snapshot from r.
func Load(r io.Reader) (*Scene, error) {
	var js jsonScene
	if err := json.NewDecoder(r).Decode(&js); err != nil {
		return nil, errors.Wrap(err, "failed to decode scene snapshot")
	}

	materials := make(map[string]*Material, len(js.Materials))
	for name, jm := range js.Materials {
		m := &Material{Name: name, Color: jm.Color}
		if jm.Texture != nil {
			m.Texture = &Texture{
				Filename: jm.Texture.Filename,
				Width:    jm.Texture.Width,
				Height:   jm.Texture.Height,
				Path:     jm.Texture.Path,
				Valid:    jm.Texture.Width > 0 && jm.Texture.Height > 0,
			}
		}
		materials[name] = m
	}

	sc := &Scene{}
	for _, jn := range js.Nodes {
		node, err := buildNode(jn, materials)
		if err != nil {
			return nil, err
		}
		sc.Roots = append(sc.Roots, node)
	}
	return sc, nil
}

// LoadFile reads a scene snapshot from disk.
func LoadFile(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open scene %q", path)
	}
	defer f.Close()
	return Load(f)
}

func buildNode(jn *jsonNode, materials map[string]*Material) (*Node, error) {
	node := &Node{
		Name:      jn.Name,
		Layer:     jn.Layer,
		Transform: mgl64.Ident4(),
	}

	switch jn.Kind {
	case "", "group":
		node.Kind = GroupNode
	case "instance":
		node.Kind = InstanceNode
	default:
		return nil, errors.Errorf("unknown node kind %q", jn.Kind)
	}

	if jn.Material != "" {
		m, ok := materials[jn.Material]
		if !ok {
			return nil, errors.Errorf("node %q references unknown material %q", jn.Name, jn.Material)
		}
		node.Material = m
	}

	if jn.Transform != nil {
		if len(jn.Transform) != 16 {
			return nil, errors.Errorf("node %q transform has %d values, want 16", jn.Name, len(jn.Transform))
		}
		copy(node.Transform[:], jn.Transform)
	}

	for _, jf := range jn.Faces {
		face, err := buildFace(jf, materials)
		if err != nil {
			return nil, errors.Wrapf(err, "node %q", jn.Name)
		}
		node.Faces = append(node.Faces, face)
	}

	for _, jc := range jn.Children {
		child, err := buildNode(jc, materials)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

func buildFace(jf *jsonFace, materials map[string]*Material) (*Face, error) {
	face := &Face{Layer: jf.Layer}
	for _, p := range jf.Loop {
		face.Loop = append(face.Loop, mgl64.Vec3{p[0], p[1], p[2]})
	}

	var err error
	if face.Front, err = lookupMaterial(jf.Front, materials); err != nil {
		return nil, err
	}
	if face.Back, err = lookupMaterial(jf.Back, materials); err != nil {
		return nil, err
	}

	if jm := jf.Mapping; jm != nil {
		if jm.U != nil && jm.V != nil && jm.Q != nil {
			face.Mapping = &TextureMapping{
				U: mgl64.Vec4(*jm.U),
				V: mgl64.Vec4(*jm.V),
				Q: mgl64.Vec4(*jm.Q),
			}
		} else if jm.Origin != nil && jm.UAxis != nil && jm.VAxis != nil {
			face.Mapping = PlanarMapping(
				mgl64.Vec3(*jm.Origin),
				mgl64.Vec3(*jm.UAxis),
				mgl64.Vec3(*jm.VAxis),
			)
		} else {
			return nil, errors.New("mapping needs either u/v/q rows or origin/u_axis/v_axis")
		}
	}
	return face, nil
}

func lookupMaterial(name string, materials map[string]*Material) (*Material, error) {
	if name == "" {
		return nil, nil
	}
	m, ok := materials[name]
	if !ok {
		return nil, errors.Errorf("face references unknown material %q", name)
	}
	return m, nil
}
