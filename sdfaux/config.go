package sdfaux

import (
	"fmt"
	"io"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
	"github.com/soypat/sdfrast/glrender"
)

// SceneConfig is the TOML configuration of how a scene is rendered. Example:
//
//	[render]
//	iterations = 128
//	threshold = 0.0005
//
//	[camera]
//	position = [0, 4, -12]
//	target = [0, 0, 0]
//
//	[[lights]]
//	point = true
//	position = [5, 8, -5]
//	color = [1, 1, 1]
//	intensity = 1
//	shadows = true
type SceneConfig struct {
	Render glrender.RenderParams `toml:"render"`
	Camera *CameraConfig         `toml:"camera"`
	// Lights replace the scene's lights when not empty.
	Lights []glrender.Light `toml:"lights"`
}

// CameraConfig is the TOML representation of a [glrender.Camera].
type CameraConfig struct {
	Position [3]float32 `toml:"position"`
	Target   [3]float32 `toml:"target"`
	// FOV is the vertical field of view in degrees. Zero keeps the default.
	FOV float32 `toml:"fov"`
}

// Camera returns the camera described by cc.
func (cc *CameraConfig) Camera() glrender.Camera {
	cam := glrender.NewCamera(mgl32.Vec3(cc.Position), mgl32.Vec3(cc.Target))
	if cc.FOV != 0 {
		cam.FOV = mgl32.DegToRad(cc.FOV)
	}
	return cam
}

// LoadSceneConfig decodes a TOML scene configuration from r. Render parameters
// absent from r keep their [glrender.DefaultRenderParams] values. Unknown keys are an error.
func LoadSceneConfig(r io.Reader) (SceneConfig, error) {
	cfg := SceneConfig{Render: glrender.DefaultRenderParams()}
	err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&cfg)
	if err != nil {
		return SceneConfig{}, fmt.Errorf("decoding scene config: %w", err)
	}
	for i := range cfg.Lights {
		l := &cfg.Lights[i]
		if l.Attenuation == [3]float32{} {
			l.Attenuation[0] = 1
		}
	}
	if err = cfg.Render.Validate(); err != nil {
		return SceneConfig{}, err
	}
	if cfg.Camera != nil {
		cam := cfg.Camera.Camera()
		if err = cam.Validate(); err != nil {
			return SceneConfig{}, err
		}
	}
	if len(cfg.Lights) > glrender.MaxLights {
		return SceneConfig{}, fmt.Errorf("%d lights exceed maximum of %d", len(cfg.Lights), glrender.MaxLights)
	}
	return cfg, nil
}

// LoadRenderParams decodes the render parameters of a TOML scene configuration from r.
func LoadRenderParams(r io.Reader) (glrender.RenderParams, error) {
	cfg, err := LoadSceneConfig(r)
	return cfg.Render, err
}

// LoadSceneConfigFile reads the TOML scene configuration in the named file.
func LoadSceneConfigFile(name string) (SceneConfig, error) {
	fp, err := os.Open(name)
	if err != nil {
		return SceneConfig{}, err
	}
	defer fp.Close()
	return LoadSceneConfig(fp)
}

// configuredScene overrides the lights of a scene.
type configuredScene struct {
	glrender.Scene
	lights []glrender.Light
}

func (cs *configuredScene) Lights() []glrender.Light {
	if len(cs.lights) > 0 {
		return cs.lights
	}
	return cs.Scene.Lights()
}
