// Package glb writes glTF 2.0 binary containers and re-validates them on
// disk after writing.
package glb

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

// FileName appends the .glb extension unless it is already present.
func FileName(base string) string {
	if strings.HasSuffix(strings.ToLower(base), ".glb") {
		return base
	}
	return base + ".glb"
}

// Write serializes doc as a GLB container at path. The file is written to a
// temp sibling and renamed into place only after the encoder succeeds, so a
// failed export never leaves a half-written file behind.
func Write(doc *gltf.Document, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".glbexport-*")
	if err != nil {
		return errors.Wrapf(err, "failed to create temp file for %q", path)
	}
	tmpName := tmp.Name()

	enc := gltf.NewEncoder(tmp)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrapf(err, "failed to encode %q", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "failed to flush %q", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "failed to move %q into place", path)
	}
	return nil
}
