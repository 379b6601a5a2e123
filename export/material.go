package export

import (
	"bytes"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Adam-Noble-01/glbexport/internal/logger"
	"github.com/Adam-Noble-01/glbexport/scene"
	"github.com/Adam-Noble-01/glbexport/texture"
)

// MaterialIndex returns the document index for a material, emitting it on
// first sight. Deduplication is keyed on object identity: two materials
// with identical name and color still get distinct entries.
func (s *Session) MaterialIndex(m *scene.Material) uint32 {
	if idx, ok := s.materials[m]; ok {
		return idx
	}

	color := new([4]float32)
	for i, c := range m.Color {
		color[i] = float32(c)
	}
	var metallic float32 = 0.0
	var roughness float32 = 0.5

	gm := &gltf.Material{
		Name:        m.Name,
		DoubleSided: true,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: color,
			MetallicFactor:  &metallic,
			RoughnessFactor: &roughness,
		},
	}
	if m.Alpha() < 1 {
		gm.AlphaMode = gltf.AlphaBlend
	}

	if texIdx, ok := s.baseColorTexture(m); ok {
		gm.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: texIdx}
		s.textured[m] = true
	}

	idx := uint32(len(s.Doc.Materials))
	s.Doc.Materials = append(s.Doc.Materials, gm)
	s.materials[m] = idx
	return idx
}

// Textured reports whether the material resolved to a base-color texture,
// which decides TEXCOORD_0 emission for its mesh groups.
func (s *Session) Textured(m *scene.Material) bool {
	return s.textured[m]
}

// baseColorTexture resolves a material to a texture index. A real source
// texture is extracted through the fallback chain; when that fails, or the
// material has none, a 1x1 solid-color texture is synthesized if the
// configuration asks for one.
func (s *Session) baseColorTexture(m *scene.Material) (uint32, bool) {
	if t := m.Texture; t != nil && t.Valid {
		if idx, ok := s.textures[t]; ok {
			return idx, true
		}
		data, err := s.cache.Extract(t, s.bulk)
		if err == nil {
			idx, werr := s.writeTexture(t.Filename, data)
			if werr == nil {
				s.textures[t] = idx
				return idx, true
			}
			err = werr
		}
		logger.Sugar.Warnw("texture extraction failed, falling back to solid color",
			"material", m.Name, "texture", t.Filename, "err", err)
	}

	if !s.cfg.Textures.SolidColorFallback {
		return 0, false
	}
	data, err := texture.SolidColorPNG(m.Color)
	if err != nil {
		logger.Sugar.Warnw("failed to synthesize fallback texture", "material", m.Name, "err", err)
		return 0, false
	}
	idx, err := s.writeTexture(m.Name+"_solid", data)
	if err != nil {
		logger.Sugar.Warnw("failed to embed fallback texture", "material", m.Name, "err", err)
		return 0, false
	}
	return idx, true
}

// writeTexture embeds PNG bytes as an image and wraps it in a texture
// using the shared LINEAR/REPEAT sampler.
func (s *Session) writeTexture(name string, pngBytes []byte) (uint32, error) {
	doc := s.Doc

	imgIdx, err := modeler.WriteImage(doc, name, "image/png", bytes.NewReader(pngBytes))
	if err != nil {
		return 0, err
	}
	// Keep the buffer length in sync after the image write.
	doc.Buffers[0].ByteLength = uint32(len(doc.Buffers[0].Data))

	if s.sampler == nil {
		s.sampler = gltf.Index(uint32(len(doc.Samplers)))
		doc.Samplers = append(doc.Samplers, &gltf.Sampler{
			MagFilter: gltf.MagLinear,
			MinFilter: gltf.MinLinear,
			WrapS:     gltf.WrapRepeat,
			WrapT:     gltf.WrapRepeat,
		})
	}

	texIdx := uint32(len(doc.Textures))
	doc.Textures = append(doc.Textures, &gltf.Texture{
		Name:    name,
		Sampler: s.sampler,
		Source:  gltf.Index(imgIdx),
	})
	return texIdx, nil
}
