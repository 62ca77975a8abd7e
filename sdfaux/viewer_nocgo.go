//go:build tinygo || !cgo

package sdfaux

import (
	"errors"

	"github.com/soypat/sdfrast/glrender"
)

// View requires CGo.
func View(scene glrender.Scene, cfg ViewerConfig) error {
	return errors.New("require cgo for interactive viewer")
}
