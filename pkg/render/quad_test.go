package render

import (
	"testing"

	"github.com/halcyox/gsplat/pkg/math"
	"github.com/halcyox/gsplat/pkg/splat"
)

// prepare runs the pipeline stages up to quad expansion.
func prepare(t *testing.T, p *Pipeline, params Params) {
	t.Helper()
	p.params = params
	n := p.scene.NumSplats
	p.projectRange(0, n)
	p.distanceRange(0, n)
	p.sorter.Sort(p.indices, p.keys)
	p.expandRange(0, n*VerticesPerSplat)
}

func TestExpandVisibleSplat(t *testing.T) {
	scene := buildScene(t, []math.Vec3{{}}, []splat.RGBA{opaque(10, 20, 30)})
	p := New(scene, Config{Width: 64, Height: 64, Workers: 1})
	prepare(t, p, frameParams(math.Vec3{Z: 3}, math.Vec3{}, 64, 64))

	for vid, v := range p.verts {
		corner := quadCorners[vid%VerticesPerSplat].Scale(p.cornerScale)
		if v.Offset != corner {
			t.Errorf("vertex %d offset = %v, want scaled corner %v", vid, v.Offset, corner)
		}
		if v.Color != (splat.RGBA{R: 10, G: 20, B: 30, A: 255}) {
			t.Errorf("vertex %d color = %v, want splat color", vid, v.Color)
		}
		if v.Position[3] == 0 {
			t.Errorf("vertex %d has zero w", vid)
		}
	}

	// The two triangles share corners 0/3 and 2/4 exactly, so the quad
	// is watertight.
	if p.verts[0] != p.verts[3] || p.verts[2] != p.verts[4] {
		t.Error("shared quad corners differ between triangles")
	}

	// Opposite corners must be symmetric about the splat center in
	// normalized device coordinates.
	center := p.params.LocalToClip.MulVec4(math.Vec4{0, 0, 0, 1})
	for _, pair := range [][2]int{{0, 2}, {1, 5}} {
		a, b := p.verts[pair[0]].Position, p.verts[pair[1]].Position
		mid := math.Vec2{
			X: (a[0]/a[3] + b[0]/b[3]) / 2,
			Y: (a[1]/a[3] + b[1]/b[3]) / 2,
		}
		if !closeTol(mid.X, center[0]/center[3], 1e-4) ||
			!closeTol(mid.Y, center[1]/center[3], 1e-4) {
			t.Errorf("corners %v midpoint = %v, want splat center", pair, mid)
		}
	}
}

func TestExpandCulledSplat(t *testing.T) {
	// One visible splat, one far outside the frustum. The culled splat
	// still occupies six vertex slots, all zero, so a fixed-size draw
	// skips it as a degenerate primitive.
	scene := buildScene(t,
		[]math.Vec3{{}, {X: 50}},
		[]splat.RGBA{opaque(255, 255, 255), opaque(255, 255, 255)},
	)
	p := New(scene, Config{Width: 64, Height: 64, Workers: 1})
	prepare(t, p, frameParams(math.Vec3{Z: 3}, math.Vec3{}, 64, 64))

	// The culled splat sorts to the last slot.
	if got := p.indices[1]; got != 1 {
		t.Fatalf("last slot holds splat %d, want the culled one", got)
	}
	for vid := VerticesPerSplat; vid < 2*VerticesPerSplat; vid++ {
		if p.verts[vid] != (Vertex{}) {
			t.Fatalf("culled vertex %d = %+v, want zero", vid, p.verts[vid])
		}
	}
}

func TestExpandDrawOrder(t *testing.T) {
	// Vertices come out in sorted slot order: the near splat's quad
	// occupies the first six slots even though it is second in the
	// scene buffers.
	scene := buildScene(t,
		[]math.Vec3{{Z: -1}, {}},
		[]splat.RGBA{opaque(0, 255, 0), opaque(255, 0, 0)},
	)
	p := New(scene, Config{Width: 64, Height: 64, Workers: 1})
	prepare(t, p, frameParams(math.Vec3{Z: 3}, math.Vec3{}, 64, 64))

	if p.verts[0].Color != (splat.RGBA{R: 255, A: 255}) {
		t.Fatalf("first quad color = %v, want the near splat's", p.verts[0].Color)
	}
	if p.verts[VerticesPerSplat].Color != (splat.RGBA{G: 255, A: 255}) {
		t.Fatalf("second quad color = %v, want the far splat's", p.verts[VerticesPerSplat].Color)
	}
}

func TestExpandRangeBounds(t *testing.T) {
	scene := buildScene(t, []math.Vec3{{}}, []splat.RGBA{opaque(255, 255, 255)})
	p := New(scene, Config{Width: 64, Height: 64, Workers: 1})
	p.params = frameParams(math.Vec3{Z: 3}, math.Vec3{}, 64, 64)
	p.distanceRange(0, 1)

	p.expandRange(0, 3*VerticesPerSplat)
}
