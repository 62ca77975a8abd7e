// Package sdfaux provides auxiliary tooling to get started with sdfrast: one-shot
// image renders, an interactive viewer, TOML scene configuration and debug images.
// Applications with specific needs should drive [glrender] directly.
package sdfaux

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"time"

	math "github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfrast"
	"github.com/soypat/sdfrast/gleval"
	"github.com/soypat/sdfrast/glrender"
)

// RenderConfig configures [Render].
type RenderConfig struct {
	Width  int
	Height int
	Camera glrender.Camera
	Params glrender.RenderParams
	// Materials resolves node material references. May be nil.
	Materials glrender.MaterialLookup
	// UseGPU renders with a [glrender.Pipeline] in a hidden window instead of the CPU emulation.
	UseGPU bool
	// Annotate stamps render information on the top left corner of the image.
	Annotate bool
	// DistanceOutput receives a PNG of the distance traveled by camera rays if not nil.
	DistanceOutput io.Writer
	// IDOutput receives a PNG of the nodes hit by camera rays colored with [NodeColor] if not nil.
	IDOutput io.Writer
	// Logger receives progress messages. Nil uses [slog.Default].
	Logger *slog.Logger
}

// Render is an auxiliary function to aid users in getting setup in using sdfrast quickly.
func Render(scene glrender.Scene, cfg RenderConfig) (*image.RGBA, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", cfg.Width, cfg.Height)
	} else if scene == nil || scene.Tree() == nil {
		return nil, errors.New("nil scene or scene tree")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	img := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	var aux auxBuffers
	if cfg.DistanceOutput != nil {
		aux.dist = make([]float32, cfg.Width*cfg.Height)
	}
	if cfg.IDOutput != nil {
		aux.ids = make([]int32, cfg.Width*cfg.Height)
	}
	backend := "CPU"
	watch := stopwatch()
	var err error
	if cfg.UseGPU {
		backend = "GPU"
		err = renderGPU(img, &aux, scene, &cfg, log)
	} else {
		err = renderCPU(img, &aux, scene, &cfg)
	}
	if err != nil {
		return nil, err
	}
	elapsed := watch()
	log.Info("rendered scene", slog.String("backend", backend), slog.Int("nodes", scene.Tree().Len()),
		slog.Int("width", cfg.Width), slog.Int("height", cfg.Height), slog.Duration("elapsed", elapsed))

	if cfg.DistanceOutput != nil {
		err = png.Encode(cfg.DistanceOutput, DistanceImage(aux.dist, cfg.Width, cfg.Height, cfg.Params.MaxDistance))
		if err != nil {
			return nil, fmt.Errorf("writing distance image: %w", err)
		}
	}
	if cfg.IDOutput != nil {
		err = png.Encode(cfg.IDOutput, IDImage(aux.ids, cfg.Width, cfg.Height))
		if err != nil {
			return nil, fmt.Errorf("writing node ID image: %w", err)
		}
	}
	if cfg.Annotate {
		ann, err := NewAnnotator(12)
		if err != nil {
			return nil, err
		}
		err = ann.Annotate(img, 4, 4,
			fmt.Sprintf("%s %dx%d %s", backend, cfg.Width, cfg.Height, elapsed.Round(time.Millisecond)),
			fmt.Sprintf("nodes %d iterations %d/%d", scene.Tree().Len(), cfg.Params.Iterations, cfg.Params.ShadowIterations),
		)
		if err != nil {
			return nil, err
		}
	}
	return img, nil
}

// auxBuffers hold per-pixel ray results requested besides the image, row by row
// starting at the top. Nil buffers are not filled.
type auxBuffers struct {
	dist []float32
	ids  []int32
}

func renderGPU(img *image.RGBA, aux *auxBuffers, scene glrender.Scene, cfg *RenderConfig, log *slog.Logger) error {
	terminate, err := gleval.Init1x1GLFW()
	if err != nil {
		return err
	}
	defer terminate()
	plcfg := glrender.DefaultConfig()
	plcfg.Logger = log
	plcfg.Materials = cfg.Materials
	pl, err := glrender.NewPipeline(plcfg)
	if err != nil {
		return err
	}
	defer pl.Delete()
	tree := scene.Tree()
	if tree.Bounds == nil {
		tree.Bounds = pl
		defer func() { tree.Bounds = nil }()
	}
	film, err := glrender.NewFilm(cfg.Width, cfg.Height)
	if err != nil {
		return err
	}
	defer film.Delete()
	err = pl.RenderScene(film, scene, cfg.Camera, cfg.Params)
	if err != nil {
		return err
	}
	err = film.ReadImage(img)
	if err != nil {
		return err
	}
	if aux.dist != nil {
		err = film.ReadDistances(aux.dist)
		if err != nil {
			return err
		}
		flipRows(aux.dist, cfg.Width, cfg.Height)
	}
	if aux.ids != nil {
		err = film.ReadIDs(aux.ids)
		if err != nil {
			return err
		}
		flipRows(aux.ids, cfg.Width, cfg.Height)
	}
	return nil
}

func renderCPU(img *image.RGBA, aux *auxBuffers, scene glrender.Scene, cfg *RenderConfig) error {
	cr := glrender.CPURenderer{Materials: cfg.Materials}
	err := cr.Render(img, scene, cfg.Camera, cfg.Params)
	if err != nil || (aux.dist == nil && aux.ids == nil) {
		return err
	}
	w, h := cfg.Width, cfg.Height
	aspect := float32(w) / float32(h)
	for j := 0; j < h; j++ {
		ndcY := 1 - 2*(float32(j)+0.5)/float32(h)
		for i := 0; i < w; i++ {
			ndcX := 2*(float32(i)+0.5)/float32(w) - 1
			o, d := cfg.Camera.Ray(aspect, ndcX, ndcY)
			r, err := glrender.EmulateRay(scene.Tree(), ms3.Vec{X: o[0], Y: o[1], Z: o[2]}, ms3.Vec{X: d[0], Y: d[1], Z: d[2]}, cfg.Params)
			if err != nil {
				return err
			}
			traveled, id := cfg.Params.MaxDistance, int32(-1)
			if r.Status == glrender.RayHit {
				traveled, id = r.Traveled, int32(r.ID)
			}
			if aux.dist != nil {
				aux.dist[j*w+i] = traveled
			}
			if aux.ids != nil {
				aux.ids[j*w+i] = id
			}
		}
	}
	return nil
}

// RenderPNGFile renders scene and saves the result to a PNG file with said filename.
func RenderPNGFile(filename string, scene glrender.Scene, cfg RenderConfig) error {
	img, err := Render(scene, cfg)
	if err != nil {
		return err
	}
	return SavePNG(filename, img)
}

// SavePNG encodes img as PNG into the named file, creating or truncating it.
func SavePNG(filename string, img image.Image) error {
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer fp.Close()
	err = png.Encode(fp, img)
	if err != nil {
		return err
	}
	return fp.Sync()
}

// DistanceImage visualizes the distances traveled by camera rays, stored row by row
// starting at the top. Near surfaces are white fading to black at far.
func DistanceImage(dist []float32, width, height int, far float32) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	conv := ColorConversionLinearGradient(far, color.White, color.Black)
	for j := 0; j < height; j++ {
		for i := 0; i < width; i++ {
			img.Set(i, j, conv(dist[j*width+i]-far/2))
		}
	}
	return img
}

// SliceImage renders the signed distance of tree on the xy plane through the center of bb,
// spanning bb's x and y extents. Image width is chosen to preserve the aspect ratio.
// If conv is nil [ColorConversionInigoQuilez] is used.
func SliceImage(tree *sdfrast.Tree, bb ms3.Box, height int, conv func(float32) color.Color) (*image.RGBA, error) {
	sz := bb.Size()
	if sz.X <= 0 || sz.Y <= 0 || height <= 0 {
		return nil, errors.New("empty slice")
	}
	if conv == nil {
		conv = ColorConversionInigoQuilez(ms3.Norm(sz) / 3)
	}
	width := max(1, int(float32(height)*sz.X/sz.Y))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	z := (bb.Min.Z + bb.Max.Z) / 2
	for j := 0; j < height; j++ {
		y := bb.Max.Y - sz.Y*(float32(j)+0.5)/float32(height)
		for i := 0; i < width; i++ {
			x := bb.Min.X + sz.X*(float32(i)+0.5)/float32(width)
			d, _ := tree.EvaluateDistance(tree.Root(), ms3.Vec{X: x, Y: y, Z: z})
			if math.IsInf(d, 1) {
				d = math.NaN()
			}
			img.Set(i, j, conv(d))
		}
	}
	return img, nil
}

// flipRows reverses the row order of a width by height buffer in place.
func flipRows[T any](buf []T, width, height int) {
	for top, bot := 0, height-1; top < bot; top, bot = top+1, bot-1 {
		a := buf[top*width : (top+1)*width]
		b := buf[bot*width : (bot+1)*width]
		for i := range a {
			a[i], b[i] = b[i], a[i]
		}
	}
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
