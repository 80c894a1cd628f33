// Package render implements the splat projection and rasterization
// pipeline: per-splat covariance projection, visibility and depth-key
// generation, quad expansion and per-pixel Gaussian evaluation.
//
// The five stages run as data-parallel dispatches over the splat index
// domain with a full barrier between producer and consumer stages, the
// same contract a GPU compute pipeline would give. Kernels have no
// error paths: failure modes are encoded as data (a sentinel depth key,
// a collapsed quad, a zero alpha).
package render

import (
	gomath "math"
	"runtime"

	"github.com/halcyox/gsplat/pkg/math"
	"github.com/halcyox/gsplat/pkg/splat"
)

// DefaultRadiusSigma is the quad radius in standard deviations. At
// sqrt(8) sigma the Gaussian has fallen to exp(-4), under 2% alpha.
const DefaultRadiusSigma = 2.8284271247461903

// Params holds the per-dispatch constants supplied by the host for one
// frame. The same values feed every stage of that frame.
type Params struct {
	// LocalToView transforms splat positions into view space.
	LocalToView math.Mat4

	// LocalToClip transforms splat positions into clip space, with a
	// [0, 1] depth range (z/w is 0 at the near plane).
	LocalToClip math.Mat4

	// TwoFocalLength is twice the focal length in pixels per axis.
	TwoFocalLength math.Vec2

	// Resolution is the render target size in pixels.
	Resolution math.Vec2
}

// FocalLengths derives TwoFocalLength from a projection matrix and the
// render target resolution.
func FocalLengths(proj math.Mat4, resolution math.Vec2) math.Vec2 {
	return math.Vec2{
		X: proj[0] * resolution.X,
		Y: proj[5] * resolution.Y,
	}
}

// Config configures a Pipeline.
type Config struct {
	Width  int
	Height int

	// RadiusSigma is the quad radius as a multiple of sigma.
	// Defaults to DefaultRadiusSigma.
	RadiusSigma float32

	// Workers is the number of goroutines per stage dispatch.
	// Defaults to runtime.NumCPU().
	Workers int

	// Sorter orders the index buffer by depth key between the distance
	// and quad-expansion stages. Defaults to a counting sort.
	Sorter DepthSorter
}

// Pipeline renders a splat scene into its framebuffer. The intermediate
// buffers are allocated once and reused every frame; all of them are
// indexed by the same splat id domain [0, scene.NumSplats).
type Pipeline struct {
	scene  *splat.Scene
	fb     *Framebuffer
	sorter DepthSorter

	workers     int
	radiusSigma float32
	cornerScale float32 // radiusSigma / sqrt(2), the corner offset unit
	cutoff      float32 // radiusSigma^2 / 2, squared-distance alpha cutoff

	// Stage outputs. transforms is written by the projection stage and
	// read by quad expansion; indices and keys are written by the
	// distance stage, reordered by the sorter, then read by quad
	// expansion; verts is written by quad expansion and consumed by
	// rasterization.
	transforms []Transform2
	indices    []uint32
	keys       []uint16
	verts      []Vertex

	// Current-frame constants, set at the top of Render.
	params Params
}

// New creates a pipeline for the given scene.
func New(scene *splat.Scene, cfg Config) *Pipeline {
	if cfg.RadiusSigma <= 0 {
		cfg.RadiusSigma = DefaultRadiusSigma
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Sorter == nil {
		cfg.Sorter = NewCountingSorter(scene.NumSplats)
	}

	n := scene.NumSplats
	return &Pipeline{
		scene:       scene,
		fb:          NewFramebuffer(cfg.Width, cfg.Height),
		sorter:      cfg.Sorter,
		workers:     cfg.Workers,
		radiusSigma: cfg.RadiusSigma,
		cornerScale: cfg.RadiusSigma / float32(gomath.Sqrt2),
		cutoff:      cfg.RadiusSigma * cfg.RadiusSigma / 2,
		transforms:  make([]Transform2, n),
		indices:     make([]uint32, n),
		keys:        make([]uint16, n),
		verts:       make([]Vertex, n*VerticesPerSplat),
	}
}

// Framebuffer returns the pipeline's render target.
func (p *Pipeline) Framebuffer() *Framebuffer {
	return p.fb
}

// Resize replaces the framebuffer with one of the given size.
func (p *Pipeline) Resize(width, height int) {
	p.fb = NewFramebuffer(width, height)
}

// Render runs the full per-frame stage sequence and returns the
// framebuffer. Each dispatch completes fully before the next stage
// starts; the depth sort runs between the distance and expansion
// stages.
func (p *Pipeline) Render(params Params, background [4]float32) *Framebuffer {
	p.params = params
	n := p.scene.NumSplats

	p.dispatch(n, p.projectRange)
	p.dispatch(n, p.distanceRange)
	p.sorter.Sort(p.indices, p.keys)
	p.dispatch(n*VerticesPerSplat, p.expandRange)

	p.fb.Clear(background)
	p.rasterize()

	return p.fb
}
