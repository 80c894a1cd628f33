// splattool is a CLI utility for working with Gaussian splat PLY assets.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	gomath "math"
	"os"

	"github.com/halcyox/gsplat/pkg/formats"
	"github.com/halcyox/gsplat/pkg/math"
	"github.com/halcyox/gsplat/pkg/render"
	"github.com/halcyox/gsplat/pkg/splat"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "validate":
		cmdValidate(args)
	case "render":
		cmdRender(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`splattool - Gaussian splat asset utility

Usage:
  splattool <command> [options]

Commands:
  info <file.ply>              Show asset information
  validate <file.ply>          Check that the asset imports cleanly
  render [options] <file.ply>  Render the asset to a PNG

Examples:
  splattool info garden.ply
  splattool validate garden.ply
  splattool render -o garden.png -width 1920 -height 1080 garden.ply`)
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: splattool info <file.ply>")
		os.Exit(1)
	}

	buf, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	parser := &formats.PLYParser{}
	md, err := parser.ParseMetadata(buf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Asset:  %s\n", args[0])
	fmt.Printf("Size:   %.2f MB\n", float64(len(buf))/(1024*1024))
	fmt.Printf("Splats: %d\n", md.NumSplats)

	if err := formats.ValidateMetadata(md); err != nil {
		fmt.Printf("Layout: incomplete (%v)\n", err)
		return
	}
	fmt.Println("Layout: complete")

	scene, err := formats.ImportPLY(buf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	min, max := sceneBounds(scene)
	fmt.Printf("Bounds: (%.3f, %.3f, %.3f) .. (%.3f, %.3f, %.3f)\n",
		min.X, min.Y, min.Z, max.X, max.Y, max.Z)
	packed := scene.NumSplats * (4 + 8 + 4)
	fmt.Printf("Packed: %.2f MB (%.1f%% of input)\n",
		float64(packed)/(1024*1024), 100*float64(packed)/float64(len(buf)))
}

func cmdValidate(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: splattool validate <file.ply>")
		os.Exit(1)
	}

	scene, err := formats.ImportPLYFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: INVALID: %v\n", args[0], err)
		os.Exit(1)
	}

	fmt.Printf("%s: OK (%d splats)\n", args[0], scene.NumSplats)
}

func cmdRender(args []string) {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	output := fs.String("o", "out.png", "Output PNG path")
	width := fs.Int("width", 1280, "Image width")
	height := fs.Int("height", 720, "Image height")
	yaw := fs.Float64("yaw", 0, "Camera yaw around the scene center (degrees)")
	pitch := fs.Float64("pitch", 15, "Camera pitch above the scene center (degrees)")
	distance := fs.Float64("distance", 0, "Camera distance (0 = fit to bounds)")
	radius := fs.Float64("radius-sigma", 0, "Splat quad radius in sigmas (0 = default)")
	workers := fs.Int("workers", 0, "Worker goroutines (0 = one per CPU)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: splattool render [options] <file.ply>")
		os.Exit(1)
	}

	scene, err := formats.ImportPLYFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	p := render.New(scene, render.Config{
		Width:       *width,
		Height:      *height,
		RadiusSigma: float32(*radius),
		Workers:     *workers,
	})

	fb := p.Render(frameParams(scene, *width, *height, *yaw, *pitch, *distance), [4]float32{0, 0, 0, 1})

	img := image.NewRGBA(image.Rect(0, 0, *width, *height))
	copy(img.Pix, fb.Resolve(nil))

	file, err := os.Create(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s: %dx%d, %d splats\n", *output, *width, *height, scene.NumSplats)
}

// frameParams places the camera on an orbit around the scene bounds.
func frameParams(scene *splat.Scene, width, height int, yawDeg, pitchDeg, distance float64) render.Params {
	min, max := sceneBounds(scene)
	center := min.Add(max).Scale(0.5)

	if distance <= 0 {
		size := max.Sub(min)
		maxSize := size.X
		if size.Y > maxSize {
			maxSize = size.Y
		}
		if size.Z > maxSize {
			maxSize = size.Z
		}
		distance = float64(maxSize) * 1.2
		if distance <= 0 {
			distance = 1
		}
	}

	yaw := yawDeg * gomath.Pi / 180
	pitch := pitchDeg * gomath.Pi / 180
	eye := center.Add(math.Vec3{
		X: float32(distance * gomath.Cos(pitch) * gomath.Sin(yaw)),
		Y: float32(distance * gomath.Sin(pitch)),
		Z: float32(distance * gomath.Cos(pitch) * gomath.Cos(yaw)),
	})

	resolution := math.Vec2{X: float32(width), Y: float32(height)}
	view := math.LookAt(eye, center, math.Vec3{Y: 1})
	proj := math.Perspective(gomath.Pi/3, resolution.X/resolution.Y, 0.01, 1000)

	return render.Params{
		LocalToView:    view,
		LocalToClip:    proj.Mul(view),
		TwoFocalLength: render.FocalLengths(proj, resolution),
		Resolution:     resolution,
	}
}

func sceneBounds(s *splat.Scene) (math.Vec3, math.Vec3) {
	min := s.Position(0)
	max := min
	for i := 1; i < s.NumSplats; i++ {
		p := s.Position(i)
		min = min.Min(p)
		max = max.Max(p)
	}
	return min, max
}
