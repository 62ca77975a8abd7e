package glrender

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderParamsValidate(t *testing.T) {
	def := DefaultRenderParams()
	require.NoError(t, def.Validate())
	tests := map[string]func(p *RenderParams){
		"iterations":       func(p *RenderParams) { p.Iterations = 0 },
		"shadowIterations": func(p *RenderParams) { p.ShadowIterations = -1 },
		"threshold":        func(p *RenderParams) { p.Threshold = 0 },
		"maxDistance":      func(p *RenderParams) { p.MaxDistance = p.Threshold },
		"sharpness":        func(p *RenderParams) { p.ShadowSharpness = 0 },
		"exposure":         func(p *RenderParams) { p.Exposure = 0 },
		"gamma":            func(p *RenderParams) { p.Gamma = -1 },
	}
	for name, modify := range tests {
		p := def
		modify(&p)
		assert.Error(t, p.Validate(), name)
	}
	noShadows := def
	noShadows.ShadowIterations = 0
	assert.NoError(t, noShadows.Validate(), "shadows may be disabled")
}

func TestCameraValidate(t *testing.T) {
	cam := NewCamera(mgl32.Vec3{0, 0, -5}, mgl32.Vec3{})
	require.NoError(t, cam.Validate())

	bad := cam
	bad.Target = bad.Position
	assert.Error(t, bad.Validate())
	bad = cam
	bad.Up = mgl32.Vec3{0, 0, 1}
	assert.Error(t, bad.Validate())
	bad = cam
	bad.FOV = 0
	assert.Error(t, bad.Validate())
	bad = cam
	bad.Near = bad.Far
	assert.Error(t, bad.Validate())
}

func TestCameraRay(t *testing.T) {
	cam := NewCamera(mgl32.Vec3{0, 0, -5}, mgl32.Vec3{})
	o, d := cam.Ray(1, 0, 0)
	assert.InDelta(t, -5+cam.Near, o.Z(), 1e-4, "rays start on the near plane")
	assert.InDelta(t, 1, d.Z(), 1e-5)

	// Points along a ray project back to its NDC coordinates.
	const ndcX, ndcY = 0.5, -0.25
	o, d = cam.Ray(1.5, ndcX, ndcY)
	p := o.Add(d.Mul(10))
	clip := cam.ViewProjection(1.5).Mul4x1(p.Vec4(1))
	assert.InDelta(t, ndcX, clip.X()/clip.W(), 1e-3)
	assert.InDelta(t, ndcY, clip.Y()/clip.W(), 1e-3)
}

func TestLightAttenuation(t *testing.T) {
	l := NewPointLight(mgl32.Vec3{})
	l.Attenuation = [3]float32{1, 0, 1}
	assert.InDelta(t, 0.5, l.attenuation(1), 1e-6)
	assert.InDelta(t, 0.2, l.attenuation(2), 1e-6)

	sun := NewDirectionalLight(mgl32.Vec3{0, -1, 0})
	c := shadeLight(&sun, ms3.Vec{}, ms3.Vec{Y: 1}, 1)
	assert.InDelta(t, sun.Color[0]*sun.Intensity, c[0], 1e-6)
	c = shadeLight(&sun, ms3.Vec{}, ms3.Vec{Y: 1}, 0)
	assert.Zero(t, c[0], "shadowed")
	c = shadeLight(&sun, ms3.Vec{}, ms3.Vec{Y: -1}, 1)
	assert.Zero(t, c[0], "facing away")
}

func TestToneMap(t *testing.T) {
	p := DefaultRenderParams()
	c := toneMap([3]float32{0, 1e6, 0.5}, &p)
	assert.Zero(t, c[0])
	assert.InDelta(t, 1, c[1], 1e-6)
	assert.Greater(t, c[2], float32(0.5), "gamma encoding brightens midtones")
	assert.Less(t, c[2], float32(1))
}
