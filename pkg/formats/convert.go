package formats

import (
	gomath "math"
	"os"

	"github.com/halcyox/gsplat/pkg/math"
	"github.com/halcyox/gsplat/pkg/splat"
)

// SplatSet holds converted splat attributes in render conventions,
// ready to be packed into a splat.Scene.
type SplatSet struct {
	Positions []math.Vec3
	Rotations []math.Quat
	Scales    []math.Vec3
	Colors    []splat.RGBA
}

// ColorFromDC converts a degree-0 spherical harmonic coefficient (DC)
// to a linear 8-bit color channel: 0.5 + 0.2820948*dc in sRGB, then a
// 2.2 gamma to linear space. Blending happens in linear space before
// the engine's sRGB conversion, so storing sRGB directly would apply
// gamma twice.
func ColorFromDC(dc float32) uint8 {
	srgb := 0.5 + 0.2820948*float64(dc)
	linear := gomath.Pow(srgb, 2.2)
	return clampByte(linear * 255)
}

// AlphaFromOpacity converts a raw opacity to an 8-bit alpha, assuming
// the inverse logistic encoding used by 3DGS training.
func AlphaFromOpacity(opacity float32) uint8 {
	return clampByte(1 / (1 + gomath.Exp(-float64(opacity))) * 255)
}

// ScaleFromLog converts a logarithmic scale factor to linear.
func ScaleFromLog(s float32) float32 {
	return float32(gomath.Exp(float64(s)))
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

// ConvertSplat extracts one splat through get and writes its converted
// attributes at index into out.
//
// Axes are remapped from the asset convention (Z+ forward, X+ right,
// Y- up) to the render convention (X+ forward, Y+ right, Z+ up). The
// handedness swap negates the imaginary parts of the quaternion.
func ConvertSplat(index uint64, get GetPropertyFunc, out *SplatSet) {
	out.Positions[index] = math.Vec3{
		X: get(PropZ),
		Y: get(PropX),
		Z: -get(PropY),
	}

	out.Rotations[index] = math.Quat{
		X: -get(PropRotationZ),
		Y: -get(PropRotationX),
		Z: get(PropRotationY), // -1 * -Y
		W: get(PropRotationW),
	}.Normalize()

	// Sign does not matter for scale; covariance squares it away.
	out.Scales[index] = math.Vec3{
		X: ScaleFromLog(get(PropScaleZ)),
		Y: ScaleFromLog(get(PropScaleX)),
		Z: ScaleFromLog(get(PropScaleY)),
	}

	out.Colors[index] = splat.RGBA{
		R: ColorFromDC(get(PropDCRed)),
		G: ColorFromDC(get(PropDCGreen)),
		B: ColorFromDC(get(PropDCBlue)),
		A: AlphaFromOpacity(get(PropOpacity)),
	}
}

// Import parses a splat asset with the given parser, validates that all
// required properties are present and converts every splat. No partial
// result is returned on failure.
func Import(parser SplatParser, buf []byte) (*SplatSet, error) {
	md, err := parser.ParseMetadata(buf)
	if err != nil {
		return nil, err
	}
	if err := ValidateMetadata(md); err != nil {
		return nil, err
	}

	n := md.NumSplats
	out := &SplatSet{
		Positions: make([]math.Vec3, n),
		Rotations: make([]math.Quat, n),
		Scales:    make([]math.Vec3, n),
		Colors:    make([]splat.RGBA, n),
	}

	err = parser.ParseData(func(index uint64, get GetPropertyFunc) {
		ConvertSplat(index, get, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ImportPLY is the convenience path for `.ply` assets: parse, validate,
// convert and pack into a renderable scene.
func ImportPLY(buf []byte) (*splat.Scene, error) {
	set, err := Import(&PLYParser{}, buf)
	if err != nil {
		return nil, err
	}
	return splat.Build(set.Positions, set.Rotations, set.Scales, set.Colors)
}

// ImportPLYFile reads and imports a `.ply` asset from disk.
func ImportPLYFile(path string) (*splat.Scene, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ImportPLY(buf)
}
