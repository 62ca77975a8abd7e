//go:build tinygo || !cgo

package gleval

import (
	"errors"

	"github.com/soypat/geometry/ms3"
)

var errNoCGO = errors.New("GPU evaluation requires CGo and is not supported on TinyGo")

// Init1x1GLFW starts a 1x1 sized GLFW so that user can start working with GPU.
func Init1x1GLFW() (terminate func(), err error) {
	return nil, errNoCGO
}

// ComputeBounds runs the GPU bounding box search. Requires CGo.
func ComputeBounds(computeSource string, cfg BoundsConfig) (ms3.Box, error) {
	return ms3.Box{}, errNoCGO
}
