package glrender

import (
	"image"
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/sdfrast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCPURenderer(t *testing.T) {
	var bld sdfrast.Builder
	leaf := sdfrast.NewLeaf("sphere", bld.NewSphere(3))
	leaf.SetPosition(mgl32.Vec3{0, 0, 10})
	leaf.SetMaterial(Material{Color: [3]float32{1, 0, 0}})
	tree, err := sdfrast.NewTree(leaf)
	require.NoError(t, err)
	scene := &BasicScene{
		Geometry:  tree,
		LightList: []Light{NewDirectionalLight(mgl32.Vec3{0, 0, 1})},
	}
	cam := NewCamera(mgl32.Vec3{}, mgl32.Vec3{0, 0, 1})
	params := DefaultRenderParams()
	params.Iterations = 32
	params.ShadowIterations = 16

	const size = 16
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	var cr CPURenderer
	require.NoError(t, cr.Render(img, scene, cam, params))

	bg := toneMap(params.Background, &params)
	wantBg := color.RGBA{R: uint8(bg[0]*255 + 0.5), G: uint8(bg[1]*255 + 0.5), B: uint8(bg[2]*255 + 0.5), A: 255}
	assert.Equal(t, wantBg, img.RGBAAt(0, 0), "corner ray misses")

	center := img.RGBAAt(size/2, size/2)
	assert.Greater(t, center.R, uint8(180), "lit red surface")
	assert.Zero(t, center.G)
	assert.Zero(t, center.B)

	// Hiding the sphere leaves only background.
	leaf.SetVisible(false)
	require.NoError(t, cr.Render(img, scene, cam, params))
	assert.Equal(t, wantBg, img.RGBAAt(size/2, size/2))
}

func TestCPURendererMaterialLookup(t *testing.T) {
	var bld sdfrast.Builder
	leaf := sdfrast.NewLeaf("sphere", bld.NewSphere(3))
	leaf.SetPosition(mgl32.Vec3{0, 0, 10})
	leaf.SetMaterial("green")
	tree, err := sdfrast.NewTree(leaf)
	require.NoError(t, err)
	scene := &BasicScene{Geometry: tree}
	cr := CPURenderer{Materials: MaterialMap{"green": {Color: [3]float32{0, 1, 0}}}}
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	params := DefaultRenderParams()
	params.Ambient = 1
	require.NoError(t, cr.Render(img, scene, NewCamera(mgl32.Vec3{}, mgl32.Vec3{0, 0, 1}), params))
	c := img.RGBAAt(4, 4)
	assert.Zero(t, c.R)
	assert.Greater(t, c.G, uint8(100))

	assert.Error(t, cr.Render(img, nil, NewCamera(mgl32.Vec3{}, mgl32.Vec3{0, 0, 1}), params))
}
