package render

import gomath "math"

// Framebuffer is a float32 RGBA render target. Pixels are stored
// row-major, top-left origin, four floats per pixel.
type Framebuffer struct {
	Width  int
	Height int
	Pix    []float32
}

// NewFramebuffer allocates a cleared framebuffer.
func NewFramebuffer(width, height int) *Framebuffer {
	return &Framebuffer{
		Width:  width,
		Height: height,
		Pix:    make([]float32, width*height*4),
	}
}

// Clear fills the framebuffer with a color.
func (fb *Framebuffer) Clear(color [4]float32) {
	for i := 0; i < len(fb.Pix); i += 4 {
		fb.Pix[i+0] = color[0]
		fb.Pix[i+1] = color[1]
		fb.Pix[i+2] = color[2]
		fb.Pix[i+3] = color[3]
	}
}

// At returns the RGBA value at (x, y).
func (fb *Framebuffer) At(x, y int) [4]float32 {
	i := (y*fb.Width + x) * 4
	return [4]float32{fb.Pix[i], fb.Pix[i+1], fb.Pix[i+2], fb.Pix[i+3]}
}

// Resolve converts the framebuffer to 8-bit RGBA, clamped.
func (fb *Framebuffer) Resolve(dst []byte) []byte {
	if len(dst) < len(fb.Pix) {
		dst = make([]byte, len(fb.Pix))
	}
	for i, v := range fb.Pix {
		switch {
		case v <= 0:
			dst[i] = 0
		case v >= 1:
			dst[i] = 255
		default:
			dst[i] = byte(v*255 + 0.5)
		}
	}
	return dst[:len(fb.Pix)]
}

// gaussianAlpha evaluates the Gaussian falloff for an interpolated
// corner offset in sigma/sqrt(2) units. dot(v, v) is already the
// squared distance over two, so the conventional 1/2 factor in the
// exponent must not be applied again here. At or beyond the cutoff the
// sample is fully transparent; at the center the base alpha passes
// through exactly.
func (p *Pipeline) gaussianAlpha(offsetX, offsetY, baseAlpha float32) float32 {
	d2 := offsetX*offsetX + offsetY*offsetY
	if d2 >= p.cutoff {
		return 0
	}
	if d2 == 0 {
		return baseAlpha
	}
	return baseAlpha / float32(gomath.Exp(float64(d2)))
}

// rasterize draws the expanded quads back to front. Splats were sorted
// ascending by depth key, so walking the vertex buffer from the end
// draws farthest first; sentinel-keyed splats sit at the very end as
// zero-size quads and contribute nothing.
//
// Work is split by horizontal pixel bands: each band walks every splat
// in the same order but only touches its own rows, which keeps the
// per-pixel blend order identical to a serial pass.
func (p *Pipeline) rasterize() {
	bands := p.workers
	if bands > p.fb.Height {
		bands = p.fb.Height
	}
	if bands <= 1 {
		p.rasterizeBand(0, p.fb.Height)
		return
	}

	p.dispatchBands(bands)
}

func (p *Pipeline) rasterizeBand(yMin, yMax int) {
	for slot := p.scene.NumSplats - 1; slot >= 0; slot-- {
		base := slot * VerticesPerSplat
		p.rasterTriangle(p.verts[base+0], p.verts[base+1], p.verts[base+2], yMin, yMax)
		p.rasterTriangle(p.verts[base+3], p.verts[base+4], p.verts[base+5], yMin, yMax)
	}
}

// rasterTriangle evaluates the Gaussian falloff for every covered pixel
// of one triangle within the row range [yMin, yMax) and blends the
// result over the framebuffer.
func (p *Pipeline) rasterTriangle(a, b, c Vertex, yMin, yMax int) {
	// Collapsed quads carry w = 0.
	if a.Position[3] == 0 || b.Position[3] == 0 || c.Position[3] == 0 {
		return
	}

	ax, ay := p.toScreen(a.Position)
	bx, by := p.toScreen(b.Position)
	cx, cy := p.toScreen(c.Position)

	// Signed doubled area; zero means a degenerate triangle.
	area := (bx-ax)*(cy-ay) - (by-ay)*(cx-ax)
	if area == 0 {
		return
	}
	invArea := 1 / area

	minX := int(floor32(min32(ax, min32(bx, cx))))
	maxX := int(ceil32(max32(ax, max32(bx, cx))))
	minY := int(floor32(min32(ay, min32(by, cy))))
	maxY := int(ceil32(max32(ay, max32(by, cy))))

	if minX < 0 {
		minX = 0
	}
	if maxX > p.fb.Width {
		maxX = p.fb.Width
	}
	if minY < yMin {
		minY = yMin
	}
	if maxY > yMax {
		maxY = yMax
	}

	baseAlpha := float32(a.Color.A) / 255
	r := float32(a.Color.R) / 255
	g := float32(a.Color.G) / 255
	bl := float32(a.Color.B) / 255

	for py := minY; py < maxY; py++ {
		sy := float32(py) + 0.5
		row := py * p.fb.Width
		for px := minX; px < maxX; px++ {
			sx := float32(px) + 0.5

			// Barycentric weights from edge functions. All vertices of
			// a quad share the same w, so linear interpolation in
			// screen space is already perspective correct.
			w0 := ((bx-sx)*(cy-sy) - (by-sy)*(cx-sx)) * invArea
			w1 := ((cx-sx)*(ay-sy) - (cy-sy)*(ax-sx)) * invArea
			w2 := 1 - w0 - w1
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			ox := w0*a.Offset.X + w1*b.Offset.X + w2*c.Offset.X
			oy := w0*a.Offset.Y + w1*b.Offset.Y + w2*c.Offset.Y

			alpha := p.gaussianAlpha(ox, oy, baseAlpha)
			if alpha == 0 {
				continue
			}

			i := (row + px) * 4
			inv := 1 - alpha
			p.fb.Pix[i+0] = r*alpha + p.fb.Pix[i+0]*inv
			p.fb.Pix[i+1] = g*alpha + p.fb.Pix[i+1]*inv
			p.fb.Pix[i+2] = bl*alpha + p.fb.Pix[i+2]*inv
			p.fb.Pix[i+3] = alpha + p.fb.Pix[i+3]*inv
		}
	}
}

// toScreen maps a clip-space position to pixel coordinates, top-left
// origin.
func (p *Pipeline) toScreen(clip [4]float32) (x, y float32) {
	invW := 1 / clip[3]
	x = (clip[0]*invW*0.5 + 0.5) * float32(p.fb.Width)
	y = (0.5 - clip[1]*invW*0.5) * float32(p.fb.Height)
	return x, y
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func floor32(v float32) float32 {
	return float32(gomath.Floor(float64(v)))
}

func ceil32(v float32) float32 {
	return float32(gomath.Ceil(float64(v)))
}
