package render

import "github.com/halcyox/gsplat/pkg/math"

// Depth keys are quantized to DistancePrecision bits. The top two codes
// are reserved: DistanceNotVisible marks splats outside the frustum and
// must sort to the end, and the code below it is headroom so a visible
// splat can never collide with the sentinel.
const (
	DistancePrecision = 16

	// DistanceNotVisible is the sentinel key for culled splats.
	DistanceNotVisible = 1<<DistancePrecision - 1

	// distanceScale maps normalized depth onto [0, 2^16-3].
	distanceScale = 1<<DistancePrecision - 3
)

// distanceRange runs the visibility and sort-key kernel over a splat
// index range.
func (p *Pipeline) distanceRange(start, end int) {
	for id := start; id < end; id++ {
		p.distanceOne(id)
	}
}

// distanceOne classifies splat id against the frustum and emits its
// (index, key) pair. Every splat gets an entry: invisible splats carry
// the sentinel key so an external depth sort pushes them to one end.
func (p *Pipeline) distanceOne(id int) {
	if id >= p.scene.NumSplats {
		return
	}

	pos := p.scene.Position(id)
	clip := p.params.LocalToClip.MulVec4(math.Vec4{pos.X, pos.Y, pos.Z, 1})

	p.indices[id] = uint32(id)
	if !insideFrustum(clip) {
		p.keys[id] = DistanceNotVisible
		return
	}

	// Normalized depth, clamped to [0, 1], truncated into the key
	// range. Closer splats get numerically smaller keys.
	depth := clip[2] / clip[3]
	if depth < 0 {
		depth = 0
	}
	if depth > 1 {
		depth = 1
	}
	p.keys[id] = uint16(depth * distanceScale)
}

// insideFrustum tests a clip-space position against the view frustum:
// |x| <= w, |y| <= w and z <= w. A position behind the camera has a
// negative w and fails the |x| test outright.
func insideFrustum(clip math.Vec4) bool {
	x, y, z, w := clip[0], clip[1], clip[2], clip[3]
	return x <= w && -x <= w &&
		y <= w && -y <= w &&
		z <= w
}
