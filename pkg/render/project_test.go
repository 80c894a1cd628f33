package render

import (
	gomath "math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/halcyox/gsplat/pkg/math"
	"github.com/halcyox/gsplat/pkg/splat"
)

func TestEigen2x2(t *testing.T) {
	tests := []struct {
		name          string
		s00, s01, s11 float32
		wantL0        float32
		wantL1        float32
		wantEV        math.Vec2
	}{
		{
			name: "axis aligned",
			s00:  4, s01: 0, s11: 1,
			wantL0: 4, wantL1: 1,
			wantEV: math.Vec2{X: 1},
		},
		{
			name: "diagonal",
			s00:  2.5, s01: 1.5, s11: 2.5,
			wantL0: 4, wantL1: 1,
			wantEV: math.Vec2{X: 0.7071068, Y: 0.7071068},
		},
		{
			name: "isotropic",
			s00:  3, s01: 0, s11: 3,
			wantL0: 3, wantL1: 3,
			wantEV: math.Vec2{X: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l0, l1, ev := eigen2x2(tt.s00, tt.s01, tt.s11)
			if !close32(l0, tt.wantL0) || !close32(l1, tt.wantL1) {
				t.Fatalf("eigenvalues = %v, %v, want %v, %v", l0, l1, tt.wantL0, tt.wantL1)
			}
			if !close32(ev.X, tt.wantEV.X) || !close32(ev.Y, tt.wantEV.Y) {
				t.Fatalf("eigenvector = %v, want %v", ev, tt.wantEV)
			}
		})
	}
}

func TestEigen2x2AgainstGonum(t *testing.T) {
	tests := [][3]float32{
		{1, 0.5, 2},
		{10, -3, 0.5},
		{0.001, 0.0005, 0.002},
		{7, 6.9, 7},
		{2, -1.9999, 2},
		{100, 0, 0.0001},
	}

	for _, tt := range tests {
		s00, s01, s11 := tt[0], tt[1], tt[2]
		l0, l1, _ := eigen2x2(s00, s01, s11)

		var es mat.EigenSym
		sym := mat.NewSymDense(2, []float64{
			float64(s00), float64(s01),
			float64(s01), float64(s11),
		})
		if !es.Factorize(sym, false) {
			t.Fatalf("Factorize(%v, %v, %v) failed", s00, s01, s11)
		}
		want := es.Values(nil) // ascending

		if !close32(l0, float32(want[1])) || !close32(l1, float32(want[0])) {
			t.Errorf("eigen2x2(%v, %v, %v) = %v, %v, want %v, %v",
				s00, s01, s11, l0, l1, want[1], want[0])
		}
	}
}

func TestEigen2x2Degenerate(t *testing.T) {
	// Zero matrix, rank-one matrix and an indefinite input from a
	// corrupt decode. None may produce NaN, and the small eigenvalue is
	// floored at zero.
	tests := [][3]float32{
		{0, 0, 0},
		{1, 1, 1},
		{0, 1, 0},
		{-1, 0, -1},
	}

	for _, tt := range tests {
		l0, l1, ev := eigen2x2(tt[0], tt[1], tt[2])
		for _, v := range []float32{l0, l1, ev.X, ev.Y} {
			if gomath.IsNaN(float64(v)) {
				t.Fatalf("eigen2x2(%v) produced NaN", tt)
			}
		}
		if l1 < 0 {
			t.Fatalf("eigen2x2(%v) small eigenvalue = %v, want >= 0", tt, l1)
		}
		if l := ev.Length(); !close32(l, 1) {
			t.Fatalf("eigen2x2(%v) eigenvector length = %v, want 1", tt, l)
		}
	}
}

func TestProjectIsotropicSplat(t *testing.T) {
	scene := buildScene(t, []math.Vec3{{}}, []splat.RGBA{opaque(255, 255, 255)})
	p := New(scene, Config{Width: 100, Height: 100, Workers: 1})
	p.params = frameParams(math.Vec3{Z: 3}, math.Vec3{}, 100, 100)

	p.projectRange(0, scene.NumSplats)

	// An isotropic splat on the view axis projects to a circle: both
	// axes carry sigma * 2*focal/z in magnitude and stay orthogonal.
	tr := p.transforms[0]
	major := math.Vec2{X: tr.MajorX, Y: tr.MajorY}
	minor := math.Vec2{X: tr.MinorX, Y: tr.MinorY}

	want := 0.25 * p.params.TwoFocalLength.X / 3
	if !closeTol(major.Length(), want, 0.02*want) {
		t.Errorf("major axis length = %v, want about %v", major.Length(), want)
	}
	if !closeTol(minor.Length(), want, 0.02*want) {
		t.Errorf("minor axis length = %v, want about %v", minor.Length(), want)
	}
	if dot := major.Dot(minor); !closeTol(dot, 0, 0.01*want*want) {
		t.Errorf("major . minor = %v, want 0", dot)
	}
}

func TestProjectBehindCamera(t *testing.T) {
	scene := buildScene(t, []math.Vec3{{}}, []splat.RGBA{opaque(255, 255, 255)})
	p := New(scene, Config{Width: 100, Height: 100, Workers: 1})
	p.params = frameParams(math.Vec3{Z: 3}, math.Vec3{Z: 6}, 100, 100)

	p.transforms[0] = Transform2{MajorX: 99}
	p.projectRange(0, scene.NumSplats)

	if p.transforms[0] != (Transform2{}) {
		t.Fatalf("transform = %+v, want collapsed", p.transforms[0])
	}
}

func TestProjectRangeBounds(t *testing.T) {
	scene := buildScene(t, []math.Vec3{{}}, []splat.RGBA{opaque(255, 255, 255)})
	p := New(scene, Config{Width: 100, Height: 100, Workers: 1})
	p.params = frameParams(math.Vec3{Z: 3}, math.Vec3{}, 100, 100)

	// Indices past the splat count must be ignored, not panic.
	p.projectRange(0, scene.NumSplats+8)
}

func close32(got, want float32) bool {
	return closeTol(got, want, 1e-4)
}

func closeTol(got, want, tol float32) bool {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	return diff <= tol
}
