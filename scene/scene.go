// Package scene is the read-only snapshot of the host authoring scene that
// the exporter consumes: nested group/instance nodes, planar faces,
// materials and textures. Materials and textures are deduplicated by object
// identity (pointer), never by value, so two materials with identical
// appearance stay distinct.
package scene

import (
	"image"

	"github.com/go-gl/mathgl/mgl64"
)

// NodeKind discriminates the closed set of container entities.
type NodeKind int

const (
	// GroupNode is a plain group of child entities.
	GroupNode NodeKind = iota
	// InstanceNode is a placed component instance; it may carry a
	// per-instance material override for faces using the default material.
	InstanceNode
)

// Node is a group or component instance in the source scene.
type Node struct {
	Name      string
	Kind      NodeKind
	Transform mgl64.Mat4 // local, relative to parent
	Layer     string
	Material  *Material // optional per-node override
	Children  []*Node
	Faces     []*Face
}

// Material is an identity-keyed handle to a source material.
type Material struct {
	Name    string
	Color   [4]float64 // RGBA, 0..1
	Texture *Texture
}

// Alpha returns the material opacity.
func (m *Material) Alpha() float64 {
	return m.Color[3]
}

// Texture describes a source texture and the ways its pixels may be
// obtained. Extraction strategies are tried in field order: the in-memory
// pixel buffer, then the source file on disk, then the scene's bulk writer.
type Texture struct {
	Filename string
	Width    int
	Height   int
	Valid    bool

	// Image is the host-provided pixel buffer, when available.
	Image image.Image
	// Path is the on-disk source file, when available.
	Path string
}

// TextureWriter is the host's bulk texture-writer utility, the last-resort
// extraction strategy. It writes the texture's pixels to dst.
type TextureWriter interface {
	WriteTexture(t *Texture, dst string) error
}

// Scene is the root snapshot handed to the exporter.
type Scene struct {
	Roots []*Node

	// BulkWriter is the host's bulk texture writer; nil for snapshots
	// loaded from disk.
	BulkWriter TextureWriter
}
