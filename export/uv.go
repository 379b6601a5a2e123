package export

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Adam-Noble-01/glbexport/scene"
)

const (
	// positionedUVLimit: raw coordinates beyond a small multiple of the
	// unit square mark a user-positioned texture.
	positionedUVLimit = 2.0
	// positionedUVClamp bounds positioned UVs, which legitimately extend
	// outside [0, 1].
	positionedUVClamp = 10.0

	uvAffineEpsilon = 1e-6
)

// positionedMapping is the best-effort detector for textures the user has
// rotated, scaled or skewed. Two tests, sampled at the given corners: the
// raw U/V magnitude test, and the homogeneous Q test (an affine planar
// projection always evaluates to q = 1, so q ≠ 1 means the UVs are not a
// simple affine function of position). Large intentional tiling can
// misclassify; there is no ground-truth flag to consult.
func positionedMapping(m *scene.TextureMapping, corners []mgl64.Vec3) bool {
	if m == nil {
		return false
	}
	for _, c := range corners {
		u, v, q := m.UVQAt(c)
		if !finite(u) || !finite(v) || !finite(q) {
			continue
		}
		if math.Abs(q-1) > uvAffineEpsilon {
			return true
		}
		if math.Abs(u) > positionedUVLimit || math.Abs(v) > positionedUVLimit {
			return true
		}
	}
	return false
}

// resolveUV evaluates the mapping at a world-space point and converts to
// glTF convention (top-left origin, V down). Positioned textures get the
// UVQ perspective division and a generous clamp. Any numeric failure
// yields (0, 0) for the vertex instead of aborting the triangle.
func resolveUV(m *scene.TextureMapping, p mgl64.Vec3, positioned bool) [2]float32 {
	if m == nil {
		return [2]float32{0, 0}
	}
	u, v, q := m.UVQAt(p)
	if !finite(u) || !finite(v) || !finite(q) {
		return [2]float32{0, 0}
	}

	if positioned {
		if q != 0 && q != 1 {
			u /= q
			v /= q
			if !finite(u) || !finite(v) {
				return [2]float32{0, 0}
			}
		}
		v = 1 - v
		u = clamp(u, -positionedUVClamp, positionedUVClamp)
		v = clamp(v, -positionedUVClamp, positionedUVClamp)
	} else {
		v = 1 - v
	}
	return [2]float32{float32(u), float32(v)}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func clamp(f, lo, hi float64) float64 {
	if f < lo {
		return lo
	}
	if f > hi {
		return hi
	}
	return f
}
