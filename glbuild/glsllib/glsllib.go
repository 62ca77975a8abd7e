// Package glsllib contains GLSL helper functions shared by the built-in geometry functions.
package glsllib

import (
	_ "embed"

	"github.com/soypat/sdfrast/glbuild"
)

//go:embed box3D.glsl
var box3DSrc []byte

// Box3D is the SDF definition for a 3D box:
//
//	float libBox3D(vec3 p, float x, float y, float z, float round)
func Box3D() glbuild.ShaderObject {
	obj, _ := glbuild.MakeShaderFunction(box3DSrc)
	return obj
}

//go:embed cylinder3D.glsl
var cylinder3DSrc []byte

// Cylinder3D is the SDF definition for a 3D circular cylinder with axis along z:
//
//	float libCylinder3D(vec3 p, float radius, float h, float round)
func Cylinder3D() glbuild.ShaderObject {
	obj, _ := glbuild.MakeShaderFunction(cylinder3DSrc)
	return obj
}

//go:embed torus3D.glsl
var torus3DSrc []byte

// Torus3D is the SDF definition for a 3D torus lying on the xy plane:
//
//	float libTorus3D(vec3 p, float t1, float t2)
func Torus3D() glbuild.ShaderObject {
	obj, _ := glbuild.MakeShaderFunction(torus3DSrc)
	return obj
}

//go:embed rotate2D.glsl
var rotate2DSrc []byte

// Rotate2D rotates a 2D point counter-clockwise by angle radians:
//
//	vec2 libRotate2D(vec2 p, float angle)
func Rotate2D() glbuild.ShaderObject {
	obj, _ := glbuild.MakeShaderFunction(rotate2DSrc)
	return obj
}
