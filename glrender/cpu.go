package glrender

import (
	"errors"
	"image"
	"image/color"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfrast/gleval"
)

type setImage = interface {
	image.Image
	Set(x, y int, c color.Color)
}

// CPURenderer renders scenes on the CPU by emulating the GPU passes pixel by pixel.
// It is orders of magnitude slower than [Pipeline] and is meant as a reference and
// fallback where no GPU is available. Shapes without a CPU implementation are not
// rendered and material atlases are ignored.
type CPURenderer struct {
	// Materials resolves node material references. May be nil.
	Materials MaterialLookup

	primary Plan
	shadow  Plan
	normals gleval.NormalScratch
}

// Render renders scene as seen by cam into img. Image rows grow downwards.
func (cr *CPURenderer) Render(img setImage, scene Scene, cam Camera, params RenderParams) error {
	if scene == nil || scene.Tree() == nil {
		return errors.New("nil scene or scene tree")
	} else if err := params.Validate(); err != nil {
		return err
	} else if err = cam.Validate(); err != nil {
		return err
	}
	bb := img.Bounds()
	w, h := bb.Dx(), bb.Dy()
	if w <= 0 || h <= 0 {
		return errors.New("empty image")
	}
	tree := scene.Tree()
	aspect := float32(w) / float32(h)
	buildPlans(&cr.primary, &cr.shadow, tree, cam.ViewProjection(aspect), &params, nil)
	primary := NewEmulator(tree, &cr.primary)
	shadow := NewEmulator(tree, &cr.shadow)
	lights := scene.Lights()
	if len(lights) > MaxLights {
		lights = lights[:MaxLights]
	}
	for j := 0; j < h; j++ {
		ndcY := 1 - 2*(float32(j)+0.5)/float32(h)
		for i := 0; i < w; i++ {
			ndcX := 2*(float32(i)+0.5)/float32(w) - 1
			o, d := cam.Ray(aspect, ndcX, ndcY)
			origin, dir := vec(o), vec(d)
			r, err := primary.Trace(origin, dir, params)
			if err != nil {
				return err
			}
			c := params.Background
			if r.Status == RayHit {
				c, err = cr.shadePixel(shadow, r, origin, dir, lights, &params)
				if err != nil {
					return err
				}
			}
			c = toneMap(c, &params)
			img.Set(bb.Min.X+i, bb.Min.Y+j, color.RGBA{
				R: uint8(c[0]*255 + 0.5),
				G: uint8(c[1]*255 + 0.5),
				B: uint8(c[2]*255 + 0.5),
				A: 255,
			})
		}
	}
	return nil
}

func (cr *CPURenderer) shadePixel(shadow *Emulator, r RayResult, origin, dir ms3.Vec, lights []Light, params *RenderParams) (c [3]float32, err error) {
	tree := shadow.tree
	pos := ms3.Add(origin, ms3.Scale(r.Traveled, dir))
	normal := tree.NormalWith(pos, &cr.normals)
	mat := DefaultMaterial
	if n := tree.Node(r.ID); n != nil {
		mat = resolveMaterial(cr.Materials, n)
	}
	light := [3]float32{params.Ambient, params.Ambient, params.Ambient}
	for i := range lights {
		factor := float32(1)
		if lights[i].Shadows && params.ShadowIterations > 0 {
			factor, err = shadow.Shadow(pos, dir, lights[i], *params)
			if err != nil {
				return c, err
			}
		}
		l := shadeLight(&lights[i], pos, normal, factor)
		light[0] += l[0]
		light[1] += l[1]
		light[2] += l[2]
	}
	for i := range c {
		c[i] = mat.Color[i] * light[i]
	}
	return c, nil
}
