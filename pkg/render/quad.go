package render

import (
	"github.com/halcyox/gsplat/pkg/math"
	"github.com/halcyox/gsplat/pkg/splat"
)

// VerticesPerSplat is the number of quad corners emitted per splat: two
// triangles laid out directly, with the shared corners duplicated, so
// no index buffer is needed.
const VerticesPerSplat = 6

// quadCorners is the fixed corner table in unit offsets. Each entry is
// scaled by radiusSigma/sqrt(2) at expansion time.
var quadCorners = [VerticesPerSplat]math.Vec2{
	{X: -1, Y: -1},
	{X: 1, Y: -1},
	{X: 1, Y: 1},
	{X: -1, Y: -1},
	{X: 1, Y: 1},
	{X: -1, Y: 1},
}

// Vertex is one expanded quad corner: a clip-space position, the corner
// offset in sigma/sqrt(2) units (interpolated across the quad to feed
// the Gaussian evaluation), and the splat's flat color.
type Vertex struct {
	Position math.Vec4
	Offset   math.Vec2
	Color    splat.RGBA
}

// expandRange runs the quad expansion kernel over a vertex index range.
// One invocation per (splat, corner) pair, six per splat.
func (p *Pipeline) expandRange(start, end int) {
	for vid := start; vid < end; vid++ {
		p.expandOne(vid)
	}
}

// expandOne emits quad corner vid. The splat is resolved through the
// externally sorted index buffer, so vertex order is draw order.
func (p *Pipeline) expandOne(vid int) {
	slot := vid / VerticesPerSplat
	if slot >= p.scene.NumSplats {
		return
	}
	id := int(p.indices[slot])

	pos := p.scene.Position(id)
	clip := p.params.LocalToClip.MulVec4(math.Vec4{pos.X, pos.Y, pos.Z, 1})

	// Same frustum test as the distance kernel. Out-of-frustum splats
	// collapse to a zero-size primitive: culled without breaking the
	// draw's fixed vertex count.
	if !insideFrustum(clip) {
		p.verts[vid] = Vertex{}
		return
	}

	corner := quadCorners[vid%VerticesPerSplat].Scale(p.cornerScale)

	// The projected transform yields a pixel-space offset; divide by
	// the resolution for normalized device units, then scale by w so
	// the perspective divide restores the intended screen size.
	offset := p.transforms[id].Apply(corner).Div(p.params.Resolution)
	clip[0] += offset.X * clip[3]
	clip[1] += offset.Y * clip[3]

	p.verts[vid] = Vertex{
		Position: clip,
		Offset:   corner,
		Color:    p.scene.Colors[id],
	}
}
