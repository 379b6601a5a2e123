package utils

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const axisOrthoEpsilon = 1e-6

// DecomposeTRS splits an affine matrix into translation, rotation and scale.
// ok is false when the basis is sheared or reflected (negative determinant),
// in which case the matrix cannot be represented as TRS.
func DecomposeTRS(m mgl64.Mat4) (t mgl64.Vec3, r mgl64.Quat, s mgl64.Vec3, ok bool) {
	t = m.Col(3).Vec3()

	ax := m.Col(0).Vec3()
	ay := m.Col(1).Vec3()
	az := m.Col(2).Vec3()

	s = mgl64.Vec3{ax.Len(), ay.Len(), az.Len()}
	if s[0] < axisOrthoEpsilon || s[1] < axisOrthoEpsilon || s[2] < axisOrthoEpsilon {
		return t, mgl64.QuatIdent(), s, false
	}

	ax = ax.Mul(1 / s[0])
	ay = ay.Mul(1 / s[1])
	az = az.Mul(1 / s[2])

	if math.Abs(ax.Dot(ay)) > axisOrthoEpsilon ||
		math.Abs(ay.Dot(az)) > axisOrthoEpsilon ||
		math.Abs(az.Dot(ax)) > axisOrthoEpsilon {
		return t, mgl64.QuatIdent(), s, false
	}

	if ax.Cross(ay).Dot(az) < 0 {
		return t, mgl64.QuatIdent(), s, false
	}

	rot := mgl64.Mat4FromCols(ax.Vec4(0), ay.Vec4(0), az.Vec4(0), mgl64.Vec4{0, 0, 0, 1})
	r = mgl64.Mat4ToQuat(rot).Normalize()

	return t, r, s, true
}

// IsIdentity reports whether m is the identity matrix within epsilon.
func IsIdentity(m mgl64.Mat4) bool {
	return m.ApproxEqualThreshold(mgl64.Ident4(), 1e-9)
}

func Vec3to32(v mgl64.Vec3) [3]float32 {
	return [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
}

func QuatTo32(q mgl64.Quat) [4]float32 {
	return [4]float32{float32(q.V[0]), float32(q.V[1]), float32(q.V[2]), float32(q.W)}
}

func Mat4to32(m mgl64.Mat4) [16]float32 {
	var out [16]float32
	for i, v := range m {
		out[i] = float32(v)
	}
	return out
}
