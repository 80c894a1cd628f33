// Package splat holds the scene data model for 3D Gaussian splatting:
// the packed per-splat buffers and the codec that encodes and decodes them.
package splat

import (
	"github.com/x448/float16"

	"github.com/halcyox/gsplat/pkg/math"
)

// Packed position bit layout: three unsigned fields at offsets 0/11/22.
const (
	posBitsX = 11
	posBitsY = 11
	posBitsZ = 10

	posShiftY = posBitsX
	posShiftZ = posBitsX + posBitsY

	posMaskX = 1<<posBitsX - 1
	posMaskY = 1<<posBitsY - 1
	posMaskZ = 1<<posBitsZ - 1
)

// Packed covariance bit layout. Word 0 carries the variance (diagonal)
// terms, which are never negative, so their sign bit is omitted. Word 1
// carries the signed cross terms. All fields keep the full 5-bit
// half-float exponent and truncate the mantissa to fit.
const (
	covExpBits = 5

	// Word 0: c00 | c11 | c22 at offsets 0/11/22, mantissa 6/6/5.
	varMant0 = 6
	varMant1 = 6
	varMant2 = 5

	// Word 1: c01 | c02 | c12 at offsets 0/11/22, sign + mantissa 5/5/4.
	covMant0 = 5
	covMant1 = 5
	covMant2 = 4

	covShift1 = 11
	covShift2 = 22
)

// PositionBits returns the field widths used to quantize positions,
// in axis order. Scene bounds are divided by 2^bits per axis.
func PositionBits() (x, y, z uint) {
	return posBitsX, posBitsY, posBitsZ
}

// UnpackPosition decodes a packed 11/11/10-bit position. Each field is
// taken as a raw integer, multiplied by the per-axis scale and offset by
// the scene minimum.
func UnpackPosition(packed uint32, scale, offset math.Vec3) math.Vec3 {
	raw := math.Vec3{
		X: float32(packed & posMaskX),
		Y: float32(packed >> posShiftY & posMaskY),
		Z: float32(packed >> posShiftZ & posMaskZ),
	}
	return raw.MulElem(scale).Add(offset)
}

// PackPosition quantizes a position into the 11/11/10-bit layout.
// scale and min are the scene decode constants; values outside the
// bounds clamp to the nearest representable field value.
func PackPosition(p math.Vec3, scale, min math.Vec3) uint32 {
	x := quantize(p.X, min.X, scale.X, posMaskX)
	y := quantize(p.Y, min.Y, scale.Y, posMaskY)
	z := quantize(p.Z, min.Z, scale.Z, posMaskZ)
	return x | y<<posShiftY | z<<posShiftZ
}

func quantize(v, min, scale float32, mask uint32) uint32 {
	if scale == 0 {
		return 0
	}
	q := int64((v-min)/scale + 0.5)
	if q < 0 {
		q = 0
	}
	if q > int64(mask) {
		q = int64(mask)
	}
	return uint32(q)
}

// UnpackCovariance decodes the two packed covariance words into the full
// symmetric 3x3 matrix, with the off-diagonal entries duplicated.
func UnpackCovariance(w0, w1 uint32) math.Mat3 {
	c00 := halfField(0, covExpBits, varMant0, w0, 0)
	c11 := halfField(0, covExpBits, varMant1, w0, covShift1)
	c22 := halfField(0, covExpBits, varMant2, w0, covShift2)

	c01 := halfField(1, covExpBits, covMant0, w1, 0)
	c02 := halfField(1, covExpBits, covMant1, w1, covShift1)
	c12 := halfField(1, covExpBits, covMant2, w1, covShift2)

	return math.Mat3{
		c00, c01, c02,
		c01, c11, c12,
		c02, c12, c22,
	}
}

// PackCovariance encodes the six independent entries of a symmetric 3x3
// covariance into two words. Diagonal entries must be non-negative;
// negative variances are clamped to zero before encoding.
func PackCovariance(c math.Mat3) (w0, w1 uint32) {
	w0 = packHalfField(nonNegative(c[0]), 0, covExpBits, varMant0) |
		packHalfField(nonNegative(c[4]), 0, covExpBits, varMant1)<<covShift1 |
		packHalfField(nonNegative(c[8]), 0, covExpBits, varMant2)<<covShift2

	w1 = packHalfField(c[3], 1, covExpBits, covMant0) |
		packHalfField(c[6], 1, covExpBits, covMant1)<<covShift1 |
		packHalfField(c[7], 1, covExpBits, covMant2)<<covShift2

	return w0, w1
}

func nonNegative(v float32) float32 {
	if v < 0 {
		return 0
	}
	return v
}

// halfField extracts a truncated half-float field from a packed word and
// aligns it into a canonical IEEE 754 binary16 pattern: the exponent
// lands at bit 10, the mantissa keeps its top bits, and the sign (when
// present) moves to bit 15. The 5-bit exponent shares the binary16 bias,
// so no rebias is needed.
func halfField(signBits, expBits, mantBits, word uint32, offset uint) float32 {
	width := signBits + expBits + mantBits
	raw := word >> offset & (1<<width - 1)

	bits := uint16(raw&(1<<(expBits+mantBits)-1)) << (10 - mantBits)
	if signBits != 0 {
		bits |= uint16(raw>>(expBits+mantBits)) << 15
	}
	return float16.Frombits(bits).Float32()
}

// packHalfField truncates a float32 into a narrow half-float field laid
// out as [sign][exponent][mantissa]. The mantissa is truncated toward
// zero, so decode returns a value within one field ulp of the input.
func packHalfField(v float32, signBits, expBits, mantBits uint32) uint32 {
	bits := uint32(float16.Fromfloat32(v).Bits())

	field := bits >> (10 - mantBits) & (1<<(expBits+mantBits) - 1)
	if signBits != 0 {
		field |= bits >> 15 << (expBits + mantBits)
	}
	return field
}
