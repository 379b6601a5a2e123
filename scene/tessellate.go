package scene

import "github.com/go-gl/mathgl/mgl64"

// triangulate ear-clips a simple polygon loop into triangle indices.
// The polygon is projected onto the plane given by normal; winding follows
// the loop order. Falls back to a fan when clipping stalls (self-touching
// or numerically flat input).
func triangulate(loop []mgl64.Vec3, normal mgl64.Vec3) []int {
	n := len(loop)
	if n < 3 {
		return nil
	}
	if n == 3 {
		return []int{0, 1, 2}
	}

	u, v := planeBasis(normal)
	pts := make([]mgl64.Vec2, n)
	for i, p := range loop {
		pts[i] = mgl64.Vec2{p.Dot(u), p.Dot(v)}
	}

	// Ensure counter-clockwise in the projected plane.
	if signedArea(pts) < 0 {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
		idx := triangulate2D(pts)
		for i := range idx {
			idx[i] = n - 1 - idx[i]
		}
		return idx
	}
	return triangulate2D(pts)
}

func triangulate2D(pts []mgl64.Vec2) []int {
	remaining := make([]int, len(pts))
	for i := range remaining {
		remaining[i] = i
	}

	var out []int
	guard := 0
	for len(remaining) > 3 {
		clipped := false
		for i := 0; i < len(remaining); i++ {
			prev := remaining[(i+len(remaining)-1)%len(remaining)]
			cur := remaining[i]
			next := remaining[(i+1)%len(remaining)]
			if isEar(pts, remaining, prev, cur, next) {
				out = append(out, prev, cur, next)
				remaining = append(remaining[:i], remaining[i+1:]...)
				clipped = true
				break
			}
		}
		guard++
		if !clipped || guard > len(pts)*len(pts) {
			// Stalled; fan the remainder so export still proceeds.
			for i := 1; i+1 < len(remaining); i++ {
				out = append(out, remaining[0], remaining[i], remaining[i+1])
			}
			return out
		}
	}
	out = append(out, remaining[0], remaining[1], remaining[2])
	return out
}

func isEar(pts []mgl64.Vec2, remaining []int, a, b, c int) bool {
	if cross2(pts[a], pts[b], pts[c]) <= 1e-12 {
		return false
	}
	for _, i := range remaining {
		if i == a || i == b || i == c {
			continue
		}
		if pointInTriangle(pts[i], pts[a], pts[b], pts[c]) {
			return false
		}
	}
	return true
}

func cross2(a, b, c mgl64.Vec2) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func pointInTriangle(p, a, b, c mgl64.Vec2) bool {
	d1 := cross2(a, b, p)
	d2 := cross2(b, c, p)
	d3 := cross2(c, a, p)
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}

func signedArea(pts []mgl64.Vec2) float64 {
	var area float64
	for i, cur := range pts {
		next := pts[(i+1)%len(pts)]
		area += cur[0]*next[1] - next[0]*cur[1]
	}
	return area / 2
}

// planeBasis returns two unit vectors spanning the plane orthogonal to n.
func planeBasis(n mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	var ref mgl64.Vec3
	if n[0]*n[0] <= n[1]*n[1] && n[0]*n[0] <= n[2]*n[2] {
		ref = mgl64.Vec3{1, 0, 0}
	} else if n[1]*n[1] <= n[2]*n[2] {
		ref = mgl64.Vec3{0, 1, 0}
	} else {
		ref = mgl64.Vec3{0, 0, 1}
	}
	u := n.Cross(ref).Normalize()
	v := n.Cross(u)
	return u, v
}
