package render

import (
	gomath "math"

	"github.com/halcyox/gsplat/pkg/math"
)

// Transform2 is the projected screen-space footprint of one splat: a
// 2x2 linear map carrying a unit-circle displacement to a pixel-space
// offset, already scaled by one radius unit. Columns are the scaled
// major and minor ellipse axes.
type Transform2 struct {
	MajorX, MajorY float32
	MinorX, MinorY float32
}

// Apply maps a unit offset through the transform.
func (t Transform2) Apply(v math.Vec2) math.Vec2 {
	return math.Vec2{
		X: t.MajorX*v.X + t.MinorX*v.Y,
		Y: t.MajorY*v.X + t.MinorY*v.Y,
	}
}

// projectRange runs the covariance projection kernel over a splat index
// range. One invocation per splat; indices at or beyond the splat count
// are no-ops.
func (p *Pipeline) projectRange(start, end int) {
	for id := start; id < end; id++ {
		p.projectOne(id)
	}
}

// projectOne computes the 2D screen-space footprint of splat id using
// the EWA affine approximation: the 3D covariance is pushed through the
// Jacobian of the perspective projection at the splat center, and the
// resulting 2x2 covariance is eigen-decomposed in closed form.
func (p *Pipeline) projectOne(id int) {
	if id >= p.scene.NumSplats {
		return
	}

	pos := p.scene.Position(id)
	view := p.params.LocalToView.MulVec4(math.Vec4{pos.X, pos.Y, pos.Z, 1})
	z := view[2]

	// At or behind the camera plane the footprint is undefined; emit a
	// collapsed transform. The distance kernel marks these splats
	// invisible, so nothing downstream reads the zeros.
	if z > -1e-6 {
		p.transforms[id] = Transform2{}
		return
	}

	cov := p.scene.Covariance(id)

	// J·W without forming the 3x2 Jacobian explicitly: the perspective
	// Jacobian rows are (1, 0, -x/z) and (0, 1, -y/z) up to the focal
	// scale deferred below, so J·W collapses to two row combinations of
	// the view rotation.
	w := p.params.LocalToView.Mat3()
	scaleX := -view[0] / z
	scaleY := -view[1] / z
	a0 := w.Row(0).Add(w.Row(2).Scale(scaleX))
	a1 := w.Row(1).Add(w.Row(2).Scale(scaleY))

	// Projected 2x2 covariance; symmetric, so three entries suffice.
	ca0 := cov.MulVec3(a0)
	s00 := a0.Dot(ca0)
	s01 := a1.Dot(ca0)
	s11 := a1.Dot(cov.MulVec3(a1))

	l0, l1, ev := eigen2x2(s00, s01, s11)
	sigma0 := sqrt32(l0)
	sigma1 := sqrt32(l1)

	// Defer the perspective divide and focal scale to a single factor:
	// 2*focal/z converts view-space standard deviations into the
	// pixel-sized basis the quad stage divides by resolution.
	kx := p.params.TwoFocalLength.X / z
	ky := p.params.TwoFocalLength.Y / z

	minor := ev.Perp()
	p.transforms[id] = Transform2{
		MajorX: ev.X * sigma0 * kx,
		MajorY: ev.Y * sigma0 * ky,
		MinorX: minor.X * sigma1 * kx,
		MinorY: minor.Y * sigma1 * ky,
	}
}

// eigen2x2 returns the eigenvalues (larger first) and the unit
// eigenvector of the larger eigenvalue for the symmetric matrix
// [[s00, s01], [s01, s11]].
//
// A valid covariance always has a non-negative discriminant, but a
// degenerate packed input can undershoot; the floors keep both square
// roots defined so a corrupt splat collapses instead of going NaN.
func eigen2x2(s00, s01, s11 float32) (l0, l1 float32, ev math.Vec2) {
	trace := s00 + s11
	det := s00*s11 - s01*s01
	disc := trace*trace - 4*det
	if disc < 0 {
		disc = 0
	}
	root := sqrt32(disc)

	// 2*lambda = trace +- root; halve once at the end.
	l0 = 0.5 * (trace + root)
	l1 = 0.5 * (trace - root)
	if l0 < 0 {
		l0 = 0
	}
	if l1 < 0 {
		l1 = 0
	}

	// The minor axis is the perpendicular of ev. An isotropic footprint
	// leaves the direction unconstrained, so any unit vector does.
	ev = math.Vec2{X: s01, Y: l0 - s00}
	if l := ev.Length(); l > 1e-12 {
		ev = ev.Scale(1 / l)
	} else {
		ev = math.Vec2{X: 1}
	}
	return l0, l1, ev
}

func sqrt32(v float32) float32 {
	return float32(gomath.Sqrt(float64(v)))
}
