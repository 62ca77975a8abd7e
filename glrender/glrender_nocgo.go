//go:build tinygo || !cgo

package glrender

import (
	"errors"
	"image"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sdfrast"
)

var errNoCGO = errors.New("GPU rendering requires CGo and is not supported on TinyGo; use CPURenderer")

// Pipeline renders scenes on the GPU. Requires CGo.
type Pipeline struct{}

// NewPipeline returns an error without CGo.
func NewPipeline(cfg Config) (*Pipeline, error) { return nil, errNoCGO }

func (p *Pipeline) RenderScene(film *Film, scene Scene, cam Camera, params RenderParams) error {
	return errNoCGO
}

func (p *Pipeline) ComputeBounds(n *sdfrast.Node, search ms3.Box) (ms3.Box, error) {
	return ms3.Box{}, errNoCGO
}

func (p *Pipeline) Delete() {}

// Film is the render target of [Pipeline.RenderScene]. Requires CGo.
type Film struct{}

// NewFilm returns an error without CGo.
func NewFilm(width, height int) (*Film, error) { return nil, errNoCGO }

func (f *Film) Size() (width, height int) { return 0, 0 }

func (f *Film) ReadImage(dst *image.RGBA) error { return errNoCGO }

func (f *Film) Delete() {}

func (f *Film) ReadDistances(dst []float32) error { return errNoCGO }

func (f *Film) ReadIDs(dst []int32) error { return errNoCGO }
