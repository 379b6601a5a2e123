// Package texture extracts source textures to PNG bytes, with a per-run
// cache and a chain of fallback strategies. Extraction failures never abort
// an export; the caller degrades to a solid-color material.
package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	"github.com/Adam-Noble-01/glbexport/config"
	"github.com/Adam-Noble-01/glbexport/internal/logger"
	"github.com/Adam-Noble-01/glbexport/scene"
	"github.com/Adam-Noble-01/glbexport/utils"
)

// Cache holds extracted texture bytes for one export run. The on-disk side
// lives in a temp directory removed by Close, so nothing leaks across runs.
type Cache struct {
	dir   string
	byKey map[string][]byte
	opts  config.TextureConfig
}

// NewCache creates a fresh per-run cache.
func NewCache(opts config.TextureConfig) (*Cache, error) {
	dir, err := os.MkdirTemp("", "glbexport-tex-")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create texture cache dir")
	}
	if opts.ScaleFactor == 0 {
		opts.ScaleFactor = 1.0
	}
	return &Cache{dir: dir, byKey: map[string][]byte{}, opts: opts}, nil
}

// Close releases the cache's temp files.
func (c *Cache) Close() error {
	return os.RemoveAll(c.dir)
}

// Extract produces PNG bytes for a texture. Strategies, in order: the
// host-provided pixel buffer, the source file on disk, the host's bulk
// texture writer. Results are cached under a sanitized filename key.
func (c *Cache) Extract(t *scene.Texture, bulk scene.TextureWriter) ([]byte, error) {
	if t == nil || !t.Valid {
		return nil, errors.New("texture is missing or invalid")
	}
	key := utils.SanitizeName(t.Filename)
	if data, ok := c.byKey[key]; ok {
		return data, nil
	}

	img, err := c.decode(t, bulk)
	if err != nil {
		return nil, err
	}
	img = c.downscale(img)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Wrapf(err, "failed to encode %q", t.Filename)
	}
	data := buf.Bytes()

	c.byKey[key] = data
	if err := os.WriteFile(filepath.Join(c.dir, key), data, 0644); err != nil {
		logger.Sugar.Warnw("failed to write texture cache file", "key", key, "err", err)
	}
	return data, nil
}

func (c *Cache) decode(t *scene.Texture, bulk scene.TextureWriter) (image.Image, error) {
	if t.Image != nil {
		return t.Image, nil
	}

	if t.Path != "" {
		img, err := decodeFile(t.Path)
		if err == nil {
			return img, nil
		}
		logger.Sugar.Warnw("texture file extraction failed, trying bulk writer",
			"texture", t.Filename, "err", err)
	}

	if bulk != nil {
		dst := filepath.Join(c.dir, "bulk_"+utils.SanitizeName(t.Filename))
		if err := bulk.WriteTexture(t, dst); err != nil {
			return nil, errors.Wrapf(err, "bulk writer failed for %q", t.Filename)
		}
		return decodeFile(dst)
	}

	return nil, errors.Errorf("no extraction strategy succeeded for %q", t.Filename)
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open texture %q", path)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode texture %q", path)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, errors.Errorf("texture %q has zero dimensions", path)
	}
	return img, nil
}

func (c *Cache) downscale(img image.Image) image.Image {
	if !c.opts.Downscale {
		return img
	}
	rect := img.Bounds()
	scale := c.opts.ScaleFactor
	if c.opts.MaxDimension > 0 {
		longest := rect.Dx()
		if rect.Dy() > longest {
			longest = rect.Dy()
		}
		if scaled := float64(longest) * scale; scaled > float64(c.opts.MaxDimension) {
			scale *= float64(c.opts.MaxDimension) / scaled
		}
	}
	if scale >= 1.0 {
		return img
	}
	w := int(float64(rect.Dx()) * scale)
	h := int(float64(rect.Dy()) * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, rect, draw.Over, nil)
	return dst
}

// SolidColorPNG synthesizes a 1x1 PNG of the given RGBA color, the fallback
// used when a material's texture cannot be extracted.
func SolidColorPNG(rgba [4]float64) ([]byte, error) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{
		R: clamp8(rgba[0]),
		G: clamp8(rgba[1]),
		B: clamp8(rgba[2]),
		A: clamp8(rgba[3]),
	})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Wrap(err, "failed to encode fallback texture")
	}
	return buf.Bytes(), nil
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
