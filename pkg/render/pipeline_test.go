package render

import (
	gomath "math"
	"testing"

	"github.com/halcyox/gsplat/pkg/math"
	"github.com/halcyox/gsplat/pkg/splat"
)

// buildScene packs test splats with identity rotation and an isotropic
// 0.25 sigma radius.
func buildScene(t *testing.T, positions []math.Vec3, colors []splat.RGBA) *splat.Scene {
	t.Helper()

	n := len(positions)
	rotations := make([]math.Quat, n)
	scales := make([]math.Vec3, n)
	for i := range rotations {
		rotations[i] = math.QuatIdentity()
		scales[i] = math.Vec3{X: 0.25, Y: 0.25, Z: 0.25}
	}

	scene, err := splat.Build(positions, rotations, scales, colors)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return scene
}

// frameParams assembles one frame's constants for a camera at eye
// looking at center, with a 90 degree vertical field of view.
func frameParams(eye, center math.Vec3, width, height int) Params {
	resolution := math.Vec2{X: float32(width), Y: float32(height)}
	view := math.LookAt(eye, center, math.Vec3{Y: 1})
	proj := math.Perspective(gomath.Pi/2, resolution.X/resolution.Y, 0.1, 100)

	return Params{
		LocalToView:    view,
		LocalToClip:    proj.Mul(view),
		TwoFocalLength: FocalLengths(proj, resolution),
		Resolution:     resolution,
	}
}

func opaque(r, g, b uint8) splat.RGBA {
	return splat.RGBA{R: r, G: g, B: b, A: 255}
}

func TestRenderCenteredSplat(t *testing.T) {
	scene := buildScene(t,
		[]math.Vec3{{}},
		[]splat.RGBA{opaque(255, 0, 0)},
	)
	p := New(scene, Config{Width: 101, Height: 101, Workers: 1})

	params := frameParams(math.Vec3{Z: 3}, math.Vec3{}, 101, 101)
	fb := p.Render(params, [4]float32{})

	// The splat center lands exactly on the middle pixel's center, so
	// the Gaussian evaluates at distance zero and the full base alpha
	// comes through.
	center := fb.At(50, 50)
	if center[0] < 0.99 || center[3] < 0.99 {
		t.Fatalf("center pixel = %v, want opaque red", center)
	}

	// Corners sit past the cutoff radius and stay background.
	corner := fb.At(0, 0)
	if corner != ([4]float32{}) {
		t.Fatalf("corner pixel = %v, want untouched background", corner)
	}
}

func TestRenderBehindCamera(t *testing.T) {
	scene := buildScene(t,
		[]math.Vec3{{}},
		[]splat.RGBA{opaque(255, 0, 0)},
	)
	p := New(scene, Config{Width: 32, Height: 32, Workers: 1})

	// Camera looks away from the splat.
	params := frameParams(math.Vec3{Z: 3}, math.Vec3{Z: 6}, 32, 32)
	background := [4]float32{0.1, 0.2, 0.3, 1}
	fb := p.Render(params, background)

	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if fb.At(x, y) != background {
				t.Fatalf("pixel (%d, %d) = %v, want background", x, y, fb.At(x, y))
			}
		}
	}
}

func TestRenderDepthOrder(t *testing.T) {
	// Back splat first in the buffers; the depth sort must still draw
	// it before the front one, so the opaque front splat wins.
	scene := buildScene(t,
		[]math.Vec3{{Z: -1}, {}},
		[]splat.RGBA{opaque(0, 255, 0), opaque(255, 0, 0)},
	)
	p := New(scene, Config{Width: 101, Height: 101, Workers: 1})

	params := frameParams(math.Vec3{Z: 3}, math.Vec3{}, 101, 101)
	fb := p.Render(params, [4]float32{})

	center := fb.At(50, 50)
	if center[0] < 0.99 || center[1] > 0.01 {
		t.Fatalf("center pixel = %v, want the front splat's red", center)
	}
}

func TestRenderParallelMatchesSerial(t *testing.T) {
	positions := []math.Vec3{
		{X: -0.5, Y: -0.5}, {X: 0.5, Y: -0.5},
		{X: -0.5, Y: 0.5}, {X: 0.5, Y: 0.5, Z: -0.5},
	}
	colors := []splat.RGBA{
		opaque(255, 0, 0), opaque(0, 255, 0),
		opaque(0, 0, 255), {R: 255, G: 255, B: 255, A: 128},
	}
	params := frameParams(math.Vec3{Z: 3}, math.Vec3{}, 64, 64)

	serial := New(buildScene(t, positions, colors), Config{Width: 64, Height: 64, Workers: 1})
	parallel := New(buildScene(t, positions, colors), Config{Width: 64, Height: 64, Workers: 4})

	a := serial.Render(params, [4]float32{})
	b := parallel.Render(params, [4]float32{})

	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			t.Fatalf("pixel float %d: serial %v, parallel %v", i, a.Pix[i], b.Pix[i])
		}
	}
}

func TestPipelineResize(t *testing.T) {
	scene := buildScene(t, []math.Vec3{{}}, []splat.RGBA{opaque(255, 255, 255)})
	p := New(scene, Config{Width: 16, Height: 16})

	p.Resize(32, 24)
	fb := p.Framebuffer()
	if fb.Width != 32 || fb.Height != 24 {
		t.Fatalf("framebuffer = %dx%d, want 32x24", fb.Width, fb.Height)
	}
}
