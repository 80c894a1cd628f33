// Package formats provides parsers for 3D Gaussian splat asset formats.
//
// A format parser implements SplatParser: ParseMetadata reads only the
// asset's declared properties and splat count, letting the caller decide
// how to convert the data, then ParseData walks every splat and hands
// the caller a property accessor. New formats plug in behind the same
// interface without the renderer's knowledge.
package formats

import (
	"errors"
	"fmt"
)

// Parse errors shared by all splat formats.
var (
	ErrInvalidMagic        = errors.New("invalid magic number")
	ErrMalformedHeader     = errors.New("malformed header")
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
	ErrUnknownHeaderField  = errors.New("unknown header element")
	ErrMultipleElements    = errors.New("more than one vertex element")
	ErrZeroSplats          = errors.New("zero splats declared")
	ErrDuplicateProperty   = errors.New("duplicate property")
	ErrMissingProperty     = errors.New("missing required property")
	ErrSizeMismatch        = errors.New("splat data size mismatch")
	ErrInvalidPropertyType = errors.New("invalid property type")
)

// Property identifies the splat attributes that may appear in a 3DGS
// asset. PropIgnore marks declared properties the importer skips over.
type Property int

const (
	PropIgnore Property = iota
	PropX
	PropY
	PropZ
	PropRotationX
	PropRotationY
	PropRotationZ
	PropRotationW
	PropScaleX
	PropScaleY
	PropScaleZ
	PropDCRed
	PropDCGreen
	PropDCBlue
	PropOpacity
)

// PropertyFormat is the on-disk encoding of a property value.
type PropertyFormat int

const (
	FormatUnknown PropertyFormat = iota
	FormatF32
)

// Metadata describes the properties available in a splat asset and the
// total number of splats.
type Metadata struct {
	Properties map[Property]PropertyFormat
	NumSplats  uint64
}

// GetPropertyFunc yields the decoded value of a property for the splat
// currently being visited.
type GetPropertyFunc func(Property) float32

// ParseSplatFunc is called once per splat with the splat's index and an
// accessor for its raw property values.
type ParseSplatFunc func(index uint64, get GetPropertyFunc)

// SplatParser is the interface to 3DGS file parsers.
type SplatParser interface {
	// ParseMetadata reads only the asset metadata from buf. The caller
	// can inspect it to configure conversion before calling ParseData.
	ParseMetadata(buf []byte) (*Metadata, error)

	// ParseData visits every splat in the asset, invoking parse with a
	// property accessor. ParseMetadata must have succeeded first.
	ParseData(parse ParseSplatFunc) error
}

// requiredProperties is what the importer needs to reconstruct a splat:
// position, rotation, scale, opacity and the degree-0 SH color.
var requiredProperties = []Property{
	PropX, PropY, PropZ,
	PropRotationX, PropRotationY, PropRotationZ, PropRotationW,
	PropScaleX, PropScaleY, PropScaleZ,
	PropDCRed, PropDCGreen, PropDCBlue,
	PropOpacity,
}

// ValidateMetadata reports whether the asset declares every property the
// importer requires. It fails on the first missing property.
func ValidateMetadata(md *Metadata) error {
	for _, p := range requiredProperties {
		if _, ok := md.Properties[p]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingProperty, p)
		}
	}
	return nil
}

var propertyNames = map[Property]string{
	PropIgnore:    "ignore",
	PropX:         "x",
	PropY:         "y",
	PropZ:         "z",
	PropRotationX: "rotation x",
	PropRotationY: "rotation y",
	PropRotationZ: "rotation z",
	PropRotationW: "rotation w",
	PropScaleX:    "scale x",
	PropScaleY:    "scale y",
	PropScaleZ:    "scale z",
	PropDCRed:     "dc red",
	PropDCGreen:   "dc green",
	PropDCBlue:    "dc blue",
	PropOpacity:   "opacity",
}

// String returns a human-readable property name.
func (p Property) String() string {
	if name, ok := propertyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("property(%d)", int(p))
}
