package splat

import (
	gomath "math"
	"testing"

	"github.com/halcyox/gsplat/pkg/math"
)

func TestUnpackPositionRaw(t *testing.T) {
	// Raw field values scale directly: no 2^n-1 normalization.
	packed := uint32(100) | uint32(200)<<11 | uint32(300)<<22
	p := UnpackPosition(packed, math.Vec3{X: 1, Y: 1, Z: 1}, math.Vec3{})

	if p != (math.Vec3{X: 100, Y: 200, Z: 300}) {
		t.Errorf("UnpackPosition = %v, want (100, 200, 300)", p)
	}
}

func TestUnpackPositionScaleOffset(t *testing.T) {
	packed := uint32(10) | uint32(20)<<11 | uint32(30)<<22
	scale := math.Vec3{X: 0.5, Y: 2, Z: 4}
	offset := math.Vec3{X: -1, Y: -2, Z: -3}

	p := UnpackPosition(packed, scale, offset)
	want := math.Vec3{X: 4, Y: 38, Z: 117}
	if p != want {
		t.Errorf("UnpackPosition = %v, want %v", p, want)
	}
}

func TestPositionRoundTrip(t *testing.T) {
	min := math.Vec3{X: -10, Y: -5, Z: 0}
	max := math.Vec3{X: 10, Y: 5, Z: 8}
	scale := math.Vec3{
		X: (max.X - min.X) / (1 << 11),
		Y: (max.Y - min.Y) / (1 << 11),
		Z: (max.Z - min.Z) / (1 << 10),
	}

	points := []math.Vec3{
		min,
		max,
		{X: 0, Y: 0, Z: 4},
		{X: -3.21, Y: 4.99, Z: 7.5},
		{X: 9.999, Y: -4.999, Z: 0.001},
	}

	for _, p := range points {
		packed := PackPosition(p, scale, min)
		got := UnpackPosition(packed, scale, min)

		// Each axis must land within one quantization step.
		if abs(got.X-p.X) > scale.X || abs(got.Y-p.Y) > scale.Y || abs(got.Z-p.Z) > scale.Z {
			t.Errorf("round trip of %v = %v, step %v", p, got, scale)
		}
	}
}

func TestPackPositionClamps(t *testing.T) {
	min := math.Vec3{}
	scale := math.Vec3{X: 1, Y: 1, Z: 1}

	packed := PackPosition(math.Vec3{X: -5, Y: 1e6, Z: -5}, scale, min)
	p := UnpackPosition(packed, scale, min)

	if p.X != 0 {
		t.Errorf("below-range X should clamp to 0, got %f", p.X)
	}
	if p.Y != float32(1<<11-1) {
		t.Errorf("above-range Y should clamp to %d, got %f", 1<<11-1, p.Y)
	}
}

func TestHalfFieldUnsignedAtOffsetZero(t *testing.T) {
	// 1.0 as binary16 is 0x3C00: exponent 15, mantissa 0. With a 6-bit
	// mantissa field the packed form is 0x3C00 >> 4 = 0x03C0.
	word := uint32(0x03C0)
	got := halfField(0, 5, 6, word, 0)
	if got != 1.0 {
		t.Errorf("halfField(1.0 pattern) = %f, want 1.0", got)
	}
}

func TestHalfFieldSigned(t *testing.T) {
	field := packHalfField(-2.5, 1, 5, 5)
	got := halfField(1, 5, 5, field, 0)
	if got != -2.5 {
		t.Errorf("signed half field round trip = %f, want -2.5", got)
	}
}

func TestHalfFieldMasksNeighbors(t *testing.T) {
	// Garbage in the neighboring field must not leak into the decode.
	field := packHalfField(3.0, 0, 5, 6)
	word := field | 0xFFFFF800
	got := halfField(0, 5, 6, word, 0)
	if got != 3.0 {
		t.Errorf("halfField with dirty neighbors = %f, want 3.0", got)
	}
}

func TestCovarianceRoundTrip(t *testing.T) {
	cases := []math.Mat3{
		// Identity.
		math.Identity3(),
		// Anisotropic diagonal.
		math.Diagonal3(math.Vec3{X: 4, Y: 0.25, Z: 1}),
		// Full symmetric with negative cross terms.
		{
			2, -0.5, 0.25,
			-0.5, 3, -0.125,
			0.25, -0.125, 1.5,
		},
	}

	for _, cov := range cases {
		w0, w1 := PackCovariance(cov)
		got := UnpackCovariance(w0, w1)

		for i := range got {
			want := cov[i]
			// Worst field keeps 4 mantissa bits.
			tol := abs(want) / 16
			if tol < 1e-4 {
				tol = 1e-4
			}
			if abs(got[i]-want) > tol {
				t.Errorf("covariance[%d] = %f, want %f (tol %f)", i, got[i], want, tol)
			}
		}
	}
}

func TestUnpackCovarianceSymmetric(t *testing.T) {
	w0, w1 := PackCovariance(math.Mat3{
		1, 0.5, -0.25,
		0.5, 2, 0.75,
		-0.25, 0.75, 3,
	})
	c := UnpackCovariance(w0, w1)

	if c[1] != c[3] || c[2] != c[6] || c[5] != c[7] {
		t.Errorf("unpacked covariance not symmetric: %v", c)
	}
}

func TestPackCovarianceClampsNegativeVariance(t *testing.T) {
	w0, w1 := PackCovariance(math.Mat3{
		-1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
	c := UnpackCovariance(w0, w1)
	if c[0] != 0 {
		t.Errorf("negative variance should clamp to 0, got %f", c[0])
	}
}

func TestCovarianceFromRotationScale(t *testing.T) {
	// Σ = (R·S)(R·S)ᵀ keeps its eigenvalues equal to the squared scales
	// regardless of rotation; the packed trace must agree.
	rot := math.QuatFromAxisAngle(math.Vec3{X: 1, Y: 1, Z: 0}.Normalize(), 0.7)
	scales := math.Vec3{X: 2, Y: 1, Z: 0.5}

	m := rot.ToMat3().ScaleColumns(scales)
	cov := m.Mul(m.Transpose())

	w0, w1 := PackCovariance(cov)
	got := UnpackCovariance(w0, w1)

	wantTrace := scales.X*scales.X + scales.Y*scales.Y + scales.Z*scales.Z
	gotTrace := got[0] + got[4] + got[8]
	if abs(gotTrace-wantTrace) > wantTrace/16 {
		t.Errorf("trace = %f, want %f", gotTrace, wantTrace)
	}
}

func abs(v float32) float32 {
	return float32(gomath.Abs(float64(v)))
}
