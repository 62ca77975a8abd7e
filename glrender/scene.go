package glrender

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/sdfrast"
)

// Scene is the container rendered by [Pipeline.RenderScene].
type Scene interface {
	// Tree returns the geometry tree.
	Tree() *sdfrast.Tree
	// Lights returns the ordered light sources. Only the first [MaxLights] are used.
	Lights() []Light
}

// BasicScene is a [Scene] backed by fields.
type BasicScene struct {
	Geometry  *sdfrast.Tree
	LightList []Light
}

func (s *BasicScene) Tree() *sdfrast.Tree { return s.Geometry }
func (s *BasicScene) Lights() []Light     { return s.LightList }

// Light is a point or directional light source.
type Light struct {
	// Position of point lights in world space.
	Position mgl32.Vec3 `toml:"position"`
	// Direction the light travels in for directional lights.
	Direction mgl32.Vec3 `toml:"direction"`
	// Point selects a point light. Otherwise the light is directional.
	Point bool `toml:"point"`
	// Color is the linear RGB color of the light.
	Color [3]float32 `toml:"color"`
	// Intensity multiplies Color.
	Intensity float32 `toml:"intensity"`
	// Attenuation holds the constant, linear and quadratic attenuation factors of point lights.
	Attenuation [3]float32 `toml:"attenuation"`
	// Shadows enables the shadow pass for the light.
	Shadows bool `toml:"shadows"`
	// Sharpness scales the light's soft shadow penumbra. Non-positive values
	// select [RenderParams.ShadowSharpness].
	Sharpness float32 `toml:"sharpness"`
}

// NewPointLight returns a white shadow casting point light without attenuation.
func NewPointLight(pos mgl32.Vec3) Light {
	return Light{
		Position:    pos,
		Point:       true,
		Color:       [3]float32{1, 1, 1},
		Intensity:   1,
		Attenuation: [3]float32{1, 0, 0},
		Shadows:     true,
	}
}

// NewDirectionalLight returns a white shadow casting directional light.
func NewDirectionalLight(dir mgl32.Vec3) Light {
	return Light{
		Direction:   dir.Normalize(),
		Color:       [3]float32{1, 1, 1},
		Intensity:   1,
		Attenuation: [3]float32{1, 0, 0},
		Shadows:     true,
	}
}

// shadowSharpness returns the penumbra scale of the light's shadows.
func (l *Light) shadowSharpness(params *RenderParams) float32 {
	if l.Sharpness > 0 {
		return l.Sharpness
	}
	return params.ShadowSharpness
}

// attenuation returns the fraction of the light's intensity reaching distance dist.
func (l *Light) attenuation(dist float32) float32 {
	if !l.Point {
		return 1
	}
	a := l.Attenuation
	den := a[0] + a[1]*dist + a[2]*dist*dist
	if den <= 0 {
		return 1
	}
	return 1 / den
}

// Camera is a perspective camera.
type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3
	// FOV is the vertical field of view in radians.
	FOV  float32
	Near float32
	Far  float32
}

// NewCamera returns a camera at pos looking at target with y up and a 60 degree field of view.
func NewCamera(pos, target mgl32.Vec3) Camera {
	return Camera{
		Position: pos,
		Target:   target,
		Up:       mgl32.Vec3{0, 1, 0},
		FOV:      mgl32.DegToRad(60),
		Near:     0.1,
		Far:      1000,
	}
}

// Validate checks the camera for degenerate configurations.
func (c *Camera) Validate() error {
	fwd := c.Target.Sub(c.Position)
	switch {
	case fwd.Len() == 0:
		return errors.New("camera position equals target")
	case fwd.Cross(c.Up).Len() == 0:
		return errors.New("camera up vector parallel to view direction")
	case !(c.FOV > 0 && c.FOV < 3.1):
		return errors.New("camera field of view out of range")
	case !(c.Near > 0 && c.Far > c.Near):
		return errors.New("camera near and far planes invalid")
	}
	return nil
}

// View returns the world to view matrix.
func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up)
}

// Projection returns the view to clip matrix for the given width/height aspect ratio.
func (c *Camera) Projection(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(c.FOV, aspect, c.Near, c.Far)
}

// ViewProjection returns Projection(aspect) * View().
func (c *Camera) ViewProjection(aspect float32) mgl32.Mat4 {
	return c.Projection(aspect).Mul4(c.View())
}

// Ray returns the world space origin and unit direction of the ray through
// normalized device coordinates (ndcX, ndcY), each in [-1, 1].
func (c *Camera) Ray(aspect, ndcX, ndcY float32) (origin, dir mgl32.Vec3) {
	inv := c.ViewProjection(aspect).Inv()
	near := inv.Mul4x1(mgl32.Vec4{ndcX, ndcY, -1, 1})
	far := inv.Mul4x1(mgl32.Vec4{ndcX, ndcY, 1, 1})
	n := near.Vec3().Mul(1 / near.W())
	f := far.Vec3().Mul(1 / far.W())
	return n, f.Sub(n).Normalize()
}

// Material is what the shading pass needs of a node's material.
type Material struct {
	// Color is the linear RGB albedo. It multiplies the atlas texture if there is one.
	Color [3]float32 `toml:"color"`
	// Atlas is a GL 2D texture handle. Zero means no texture.
	Atlas uint32 `toml:"-"`
	// UV is the atlas rectangle as (u, v, width, height) in texture coordinates.
	UV [4]float32 `toml:"uv"`
}

// DefaultMaterial is used for nodes without a resolvable material.
var DefaultMaterial = Material{Color: [3]float32{0.8, 0.8, 0.8}}

// MaterialLookup resolves the opaque material reference stored in nodes.
type MaterialLookup interface {
	LookupMaterial(ref any) (Material, bool)
}

// MaterialMap is a [MaterialLookup] keyed by reference. References must be comparable.
type MaterialMap map[any]Material

func (m MaterialMap) LookupMaterial(ref any) (Material, bool) {
	mat, ok := m[ref]
	return mat, ok
}

// resolveMaterial returns the material of leaf n. Nodes may store a [Material] directly.
func resolveMaterial(lookup MaterialLookup, n *sdfrast.Node) Material {
	ref := n.Material()
	if ref == nil {
		return DefaultMaterial
	}
	if mat, ok := ref.(Material); ok {
		return mat
	}
	if lookup != nil {
		if mat, ok := lookup.LookupMaterial(ref); ok {
			return mat
		}
	}
	return DefaultMaterial
}
