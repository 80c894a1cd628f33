package formats

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// plyEncoding is the body encoding declared in the PLY header.
type plyEncoding int

const (
	plyUnknown plyEncoding = iota
	plyASCII
	plyBinaryBigEndian
	plyBinaryLittleEndian
)

// Static header lookup tables, built once at init.
var (
	plyEncodingNames = map[string]plyEncoding{
		"ascii":                plyASCII,
		"binary_big_endian":    plyBinaryBigEndian,
		"binary_little_endian": plyBinaryLittleEndian,
	}

	plyPropertyNames = map[string]Property{
		"x":       PropX,
		"y":       PropY,
		"z":       PropZ,
		"f_dc_0":  PropDCRed,
		"f_dc_1":  PropDCGreen,
		"f_dc_2":  PropDCBlue,
		"opacity": PropOpacity,
		"rot_0":   PropRotationW,
		"rot_1":   PropRotationX,
		"rot_2":   PropRotationY,
		"rot_3":   PropRotationZ,
		"scale_0": PropScaleX,
		"scale_1": PropScaleY,
		"scale_2": PropScaleZ,
	}

	plyTypeNames = map[string]PropertyFormat{
		"float":   FormatF32,
		"float32": FormatF32,
	}

	plyTypeSizes = map[PropertyFormat]int{
		FormatF32: 4,
	}
)

// propertyDesc locates one property inside a binary splat record.
type propertyDesc struct {
	offset int
	format PropertyFormat
}

// PLYParser parses `.ply` Gaussian splat assets. Zero value is ready;
// call ParseMetadata before ParseData.
type PLYParser struct {
	body      []byte
	encoding  plyEncoding
	layout    map[Property]propertyDesc
	splatSize int
	numSplats uint64
}

var _ SplatParser = (*PLYParser)(nil)

// ParseMetadata parses the PLY header from buf and returns the declared
// properties and splat count. The whole import aborts on the first
// malformed or unsupported header line.
func (p *PLYParser) ParseMetadata(buf []byte) (*Metadata, error) {
	p.layout = make(map[Property]propertyDesc)
	p.splatSize = 0
	p.numSplats = 0

	if err := p.parseHeader(buf); err != nil {
		return nil, err
	}

	remaining := uint64(len(p.body))
	expected := p.numSplats * uint64(p.splatSize)
	if remaining != expected {
		return nil, fmt.Errorf("%w: %d bytes expected but %d bytes remaining",
			ErrSizeMismatch, expected, remaining)
	}

	md := &Metadata{
		Properties: make(map[Property]PropertyFormat, len(p.layout)),
		NumSplats:  p.numSplats,
	}
	for prop, desc := range p.layout {
		md.Properties[prop] = desc.format
	}
	return md, nil
}

// ParseData visits every splat in declaration order. ASCII bodies are
// explicitly unsupported.
func (p *PLYParser) ParseData(parse ParseSplatFunc) error {
	var order binary.ByteOrder
	switch p.encoding {
	case plyBinaryLittleEndian:
		order = binary.LittleEndian
	case plyBinaryBigEndian:
		order = binary.BigEndian
	case plyASCII:
		return fmt.Errorf("%w: ascii", ErrUnsupportedEncoding)
	default:
		return fmt.Errorf("%w: metadata not parsed", ErrMalformedHeader)
	}

	record := p.body
	get := func(prop Property) float32 {
		desc, ok := p.layout[prop]
		if !ok {
			return 0
		}
		return math.Float32frombits(order.Uint32(record[desc.offset:]))
	}

	for i := uint64(0); i < p.numSplats; i++ {
		parse(i, get)
		record = record[p.splatSize:]
	}
	return nil
}

// addProperty appends a property to the record layout. Ignored
// properties still advance the record offset.
func (p *PLYParser) addProperty(prop Property, format PropertyFormat) error {
	if prop != PropIgnore {
		if _, exists := p.layout[prop]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateProperty, prop)
		}
		p.layout[prop] = propertyDesc{offset: p.splatSize, format: format}
	}
	p.splatSize += plyTypeSizes[format]
	return nil
}

// parseHeader consumes header lines up to end_header and leaves the
// splat records in p.body.
func (p *PLYParser) parseHeader(buf []byte) error {
	text := string(buf)

	// `ply`.
	line, rest, ok := popLine(text)
	if !ok {
		return fmt.Errorf("%w: unable to read magic number", ErrInvalidMagic)
	}
	if line != "ply" {
		return fmt.Errorf("%w: %q", ErrInvalidMagic, line)
	}
	text = rest

	// `format <encoding> 1.0`.
	line, rest, ok = popLine(text)
	if !ok {
		return fmt.Errorf("%w: missing format line", ErrMalformedHeader)
	}
	text = rest

	fields := strings.Fields(line)
	if len(fields) != 3 || fields[0] != "format" {
		return fmt.Errorf("%w: format line %q", ErrMalformedHeader, line)
	}
	encoding, ok := plyEncodingNames[fields[1]]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedEncoding, fields[1])
	}
	// An unexpected version ("1.0" is the only one in the wild) is not
	// fatal; the body layout is fully described by the header either way.
	p.encoding = encoding

	// Iterate until `end_header`.
	for {
		line, rest, ok = popLine(text)
		if !ok {
			return fmt.Errorf("%w: missing end_header", ErrMalformedHeader)
		}
		text = rest

		fields = strings.Fields(line)
		if len(fields) == 0 {
			return fmt.Errorf("%w: empty header line", ErrMalformedHeader)
		}

		switch fields[0] {
		case "comment":
			continue

		case "element":
			if err := p.parseElement(fields); err != nil {
				return err
			}

		case "property":
			if err := p.parseProperty(fields); err != nil {
				return err
			}

		case "end_header":
			p.body = buf[len(buf)-len(text):]
			return nil

		default:
			return fmt.Errorf("%w: %q", ErrUnknownHeaderField, fields[0])
		}
	}
}

// parseElement handles `element vertex <count>`. Only a single vertex
// element may appear in the file.
func (p *PLYParser) parseElement(fields []string) error {
	if p.numSplats != 0 {
		return ErrMultipleElements
	}
	if len(fields) != 3 {
		return fmt.Errorf("%w: element line %v", ErrMalformedHeader, fields)
	}
	if fields[1] != "vertex" {
		return fmt.Errorf("%w: element type %q", ErrMalformedHeader, fields[1])
	}

	count, err := strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: vertex count %q", ErrMalformedHeader, fields[2])
	}
	if count == 0 {
		return ErrZeroSplats
	}
	p.numSplats = count
	return nil
}

// parseProperty handles `property <type> <name>`.
func (p *PLYParser) parseProperty(fields []string) error {
	if p.numSplats == 0 {
		return fmt.Errorf("%w: property before element", ErrMalformedHeader)
	}
	if len(fields) != 3 {
		return fmt.Errorf("%w: property line %v", ErrMalformedHeader, fields)
	}

	format, ok := plyTypeNames[fields[1]]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPropertyType, fields[1])
	}

	prop, ok := plyPropertyNames[fields[2]]
	if !ok {
		prop = PropIgnore
	}
	return p.addProperty(prop, format)
}

// popLine returns the next '\n'-delimited line with surrounding
// whitespace trimmed, plus the remaining text.
func popLine(text string) (line, rest string, ok bool) {
	if len(text) == 0 {
		return "", "", false
	}
	idx := strings.IndexByte(text, '\n')
	if idx < 0 {
		return strings.Trim(text, " \t\r"), "", true
	}
	return strings.Trim(text[:idx], " \t\r"), text[idx+1:], true
}
