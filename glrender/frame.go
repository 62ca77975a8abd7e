package glrender

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfrast"
)

// frustumFilter accepts nodes whose deformed bounding box intersects the view frustum of viewProj.
// Ancestor deformations such as domain repetition move descendant geometry far from their own box.
func frustumFilter(viewProj mgl32.Mat4) NodeFilter {
	f := NewFrustum(viewProj)
	return func(n *sdfrast.Node) bool {
		bb, ok := n.DeformedAABB()
		return ok && f.IntersectsBox(bb)
	}
}

// hasBounds accepts nodes with geometry in their subtree. Shadow plans use it
// since occluders outside of the view frustum still cast shadows into it.
func hasBounds(n *sdfrast.Node) bool {
	_, ok := n.FinalAABB()
	return ok
}

// buildPlans builds the primary and shadow plans of a frame.
func buildPlans(primary, shadow *Plan, tree *sdfrast.Tree, viewProj mgl32.Mat4, params *RenderParams, hasProgram NodeFilter) {
	visible := hasBounds
	if !params.DisableCulling {
		visible = frustumFilter(viewProj)
	}
	primary.Build(tree.Root(), visible, hasProgram)
	shadow.Build(tree.Root(), hasBounds, hasProgram)
}

// shadeLight returns the diffuse contribution of light to a surface at pos with unit normal.
// Mirrors the shading program.
func shadeLight(light *Light, pos, normal ms3.Vec, shadow float32) [3]float32 {
	var toLight ms3.Vec
	att := float32(1)
	if light.Point {
		toLight = ms3.Sub(vec(light.Position), pos)
		dist := ms3.Norm(toLight)
		if dist > 0 {
			toLight = ms3.Scale(1/dist, toLight)
		}
		att = light.attenuation(dist)
	} else {
		toLight = ms3.Scale(-1, ms3.Unit(vec(light.Direction)))
	}
	k := max(ms3.Dot(normal, toLight), 0) * att * shadow * light.Intensity
	return [3]float32{light.Color[0] * k, light.Color[1] * k, light.Color[2] * k}
}

// toneMap applies exposure tone mapping and gamma encoding to a linear color and returns it in [0, 1].
func toneMap(c [3]float32, params *RenderParams) [3]float32 {
	for i, v := range c {
		v = 1 - math32.Exp(-v*params.Exposure)
		c[i] = math32.Pow(max(v, 0), 1/params.Gamma)
	}
	return c
}
