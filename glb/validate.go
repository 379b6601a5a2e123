package glb

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

const (
	glbMagic      = 0x46546C67 // "glTF"
	glbVersion    = 2
	chunktypeJSON = 0x4E4F534A // "JSON"
	chunktypeBIN  = 0x004E4942 // "BIN\0"
)

// Chunk describes one container chunk encountered during validation.
type Chunk struct {
	Type   uint32
	Length uint32
}

// Info is the validation report for a written file.
type Info struct {
	TotalLength uint32
	Chunks      []Chunk
	// Warnings lists structural problems. The file is already on disk;
	// these are diagnostics for the caller, not errors.
	Warnings []string
}

func (i *Info) warnf(format string, a ...interface{}) {
	i.Warnings = append(i.Warnings, fmt.Sprintf(format, a...))
}

// Validate re-opens a written GLB, walks the container byte layout with an
// independent parser, and cross-checks the document's index references.
// An error means the file could not be read at all; structural mismatches
// are reported as warnings in Info.
func Validate(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to re-open %q", path)
	}
	info := &Info{}

	if len(data) < 12 {
		info.warnf("file is %d bytes, shorter than the 12-byte header", len(data))
		return info, nil
	}
	le := binary.LittleEndian
	if magic := le.Uint32(data[0:4]); magic != glbMagic {
		info.warnf("bad magic 0x%08X, want 0x%08X", magic, uint32(glbMagic))
	}
	if version := le.Uint32(data[4:8]); version != glbVersion {
		info.warnf("bad version %d, want %d", version, glbVersion)
	}
	info.TotalLength = le.Uint32(data[8:12])
	if info.TotalLength != uint32(len(data)) {
		info.warnf("header totalLength %d != file size %d", info.TotalLength, len(data))
	}

	var jsonChunk []byte
	offset := 12
	for offset < len(data) {
		if offset+8 > len(data) {
			info.warnf("trailing %d bytes are not a full chunk header", len(data)-offset)
			break
		}
		length := le.Uint32(data[offset : offset+4])
		ctype := le.Uint32(data[offset+4 : offset+8])
		offset += 8
		if offset+int(length) > len(data) {
			info.warnf("chunk 0x%08X declares %d bytes but only %d remain", ctype, length, len(data)-offset)
			break
		}
		if length%4 != 0 {
			info.warnf("chunk 0x%08X length %d is not 4-byte aligned", ctype, length)
		}
		info.Chunks = append(info.Chunks, Chunk{Type: ctype, Length: length})
		if ctype == chunktypeJSON && jsonChunk == nil {
			jsonChunk = data[offset : offset+int(length)]
		}
		offset += int(length)
	}

	if len(info.Chunks) == 0 || info.Chunks[0].Type != chunktypeJSON {
		info.warnf("first chunk is not JSON")
	}
	if len(info.Chunks) > 1 && info.Chunks[1].Type != chunktypeBIN {
		info.warnf("second chunk is not BIN")
	}

	if jsonChunk != nil {
		var doc gltf.Document
		if err := json.Unmarshal(jsonChunk, &doc); err != nil {
			info.warnf("JSON chunk does not parse: %v", err)
		} else {
			checkReferences(&doc, info)
		}
	}
	return info, nil
}

// checkReferences asserts every cross-index resolves in bounds and every
// bufferView offset keeps the 4-byte alignment invariant.
func checkReferences(doc *gltf.Document, info *Info) {
	for i, bv := range doc.BufferViews {
		if bv.ByteOffset%4 != 0 {
			info.warnf("bufferView %d byteOffset %d is not 4-byte aligned", i, bv.ByteOffset)
		}
		if int(bv.Buffer) >= len(doc.Buffers) {
			info.warnf("bufferView %d references buffer %d of %d", i, bv.Buffer, len(doc.Buffers))
		}
	}
	for i, acc := range doc.Accessors {
		if acc.BufferView != nil && int(*acc.BufferView) >= len(doc.BufferViews) {
			info.warnf("accessor %d references bufferView %d of %d", i, *acc.BufferView, len(doc.BufferViews))
		}
	}
	for i, mesh := range doc.Meshes {
		for j, prim := range mesh.Primitives {
			if prim.Material != nil && int(*prim.Material) >= len(doc.Materials) {
				info.warnf("mesh %d primitive %d references material %d of %d", i, j, *prim.Material, len(doc.Materials))
			}
			if prim.Indices != nil && int(*prim.Indices) >= len(doc.Accessors) {
				info.warnf("mesh %d primitive %d references indices accessor %d of %d", i, j, *prim.Indices, len(doc.Accessors))
			}
			for name, acc := range prim.Attributes {
				if int(acc) >= len(doc.Accessors) {
					info.warnf("mesh %d primitive %d attribute %s references accessor %d of %d", i, j, name, acc, len(doc.Accessors))
				}
			}
		}
	}
	for i, tex := range doc.Textures {
		if tex.Source != nil && int(*tex.Source) >= len(doc.Images) {
			info.warnf("texture %d references image %d of %d", i, *tex.Source, len(doc.Images))
		}
		if tex.Sampler != nil && int(*tex.Sampler) >= len(doc.Samplers) {
			info.warnf("texture %d references sampler %d of %d", i, *tex.Sampler, len(doc.Samplers))
		}
	}
	for i, img := range doc.Images {
		if img.BufferView != nil && int(*img.BufferView) >= len(doc.BufferViews) {
			info.warnf("image %d references bufferView %d of %d", i, *img.BufferView, len(doc.BufferViews))
		}
	}
	for i, node := range doc.Nodes {
		if node.Mesh != nil && int(*node.Mesh) >= len(doc.Meshes) {
			info.warnf("node %d references mesh %d of %d", i, *node.Mesh, len(doc.Meshes))
		}
		for _, child := range node.Children {
			if int(child) >= len(doc.Nodes) {
				info.warnf("node %d references child %d of %d", i, child, len(doc.Nodes))
			}
		}
	}
}
