package splat

import (
	"errors"
	"fmt"

	"github.com/halcyox/gsplat/pkg/math"
)

// Scene build errors.
var (
	ErrNoSplats       = errors.New("scene has no splats")
	ErrLengthMismatch = errors.New("splat attribute slices differ in length")
)

// RGBA is an 8-bit color with the opacity pre-converted to a base alpha.
type RGBA struct {
	R, G, B, A uint8
}

// Scene holds the packed, index-addressed splat buffers. All slices
// share the same splat index domain [0, NumSplats). Splats are never
// allocated individually; the whole scene lives in these flat arrays.
type Scene struct {
	NumSplats int

	// Positions holds one packed 11/11/10-bit position word per splat.
	Positions []uint32

	// Covariances holds two packed covariance words per splat.
	Covariances [][2]uint32

	// Colors holds one RGBA per splat.
	Colors []RGBA

	// Decode constants derived from the scene bounding box:
	// position = raw * PosScale + PosMin.
	PosScale math.Vec3
	PosMin   math.Vec3
}

// Build packs converted splat attributes into a Scene. Positions are
// quantized against the axis-aligned bounding box of the input; the 3D
// covariance of each splat is formed from its rotation and scale as
// Σ = (R·S)·(R·S)ᵀ and packed as mixed-precision half floats.
func Build(positions []math.Vec3, rotations []math.Quat, scales []math.Vec3, colors []RGBA) (*Scene, error) {
	n := len(positions)
	if n == 0 {
		return nil, ErrNoSplats
	}
	if len(rotations) != n || len(scales) != n || len(colors) != n {
		return nil, fmt.Errorf("%w: %d positions, %d rotations, %d scales, %d colors",
			ErrLengthMismatch, n, len(rotations), len(scales), len(colors))
	}

	min, max := positions[0], positions[0]
	for _, p := range positions[1:] {
		min = min.Min(p)
		max = max.Max(p)
	}

	bx, by, bz := PositionBits()
	scale := math.Vec3{
		X: axisScale(min.X, max.X, bx),
		Y: axisScale(min.Y, max.Y, by),
		Z: axisScale(min.Z, max.Z, bz),
	}

	s := &Scene{
		NumSplats:   n,
		Positions:   make([]uint32, n),
		Covariances: make([][2]uint32, n),
		Colors:      make([]RGBA, n),
		PosScale:    scale,
		PosMin:      min,
	}

	for i := 0; i < n; i++ {
		s.Positions[i] = PackPosition(positions[i], scale, min)

		m := rotations[i].ToMat3().ScaleColumns(scales[i])
		cov := m.Mul(m.Transpose())
		s.Covariances[i][0], s.Covariances[i][1] = PackCovariance(cov)

		s.Colors[i] = colors[i]
	}

	return s, nil
}

// axisScale returns (max-min)/2^bits, or a unit step for a degenerate
// axis so decode still recovers min exactly.
func axisScale(min, max float32, bits uint) float32 {
	extent := max - min
	if extent <= 0 {
		return 1
	}
	return extent / float32(uint32(1)<<bits)
}

// Position decodes the packed position of splat i.
func (s *Scene) Position(i int) math.Vec3 {
	return UnpackPosition(s.Positions[i], s.PosScale, s.PosMin)
}

// Covariance decodes the packed covariance of splat i as a full
// symmetric matrix.
func (s *Scene) Covariance(i int) math.Mat3 {
	return UnpackCovariance(s.Covariances[i][0], s.Covariances[i][1])
}
