//go:build !tinygo && cgo

package glrender

import (
	"errors"
	"fmt"
	"image"
	"unsafe"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/sdfrast/gleval"
)

// Film is the render target of [Pipeline.RenderScene]. It holds the shaded color,
// the distance along the camera ray of every resolved pixel and the ID of the node hit.
type Film struct {
	width, height int
	fbo           uint32
	color         uint32
	distance      uint32
	ids           uint32
	depthStencil  uint32
}

// NewFilm creates a film of the given size. Requires a current GL context.
func NewFilm(width, height int) (*Film, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid film size %dx%d", width, height)
	}
	f := &Film{width: width, height: height}
	gl.GenFramebuffers(1, &f.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, f.fbo)
	f.color = newFilmTexture(gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE, width, height)
	f.distance = newFilmTexture(gl.R32F, gl.RED, gl.FLOAT, width, height)
	f.ids = newFilmTexture(gl.R32I, gl.RED_INTEGER, gl.INT, width, height)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, f.color, 0)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT1, gl.TEXTURE_2D, f.distance, 0)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT2, gl.TEXTURE_2D, f.ids, 0)

	gl.GenRenderbuffers(1, &f.depthStencil)
	gl.BindRenderbuffer(gl.RENDERBUFFER, f.depthStencil)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH24_STENCIL8, int32(width), int32(height))
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_STENCIL_ATTACHMENT, gl.RENDERBUFFER, f.depthStencil)

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		f.Delete()
		return nil, gleval.GLErrOrMessage(fmt.Sprintf("film framebuffer incomplete: status 0x%x", status))
	}
	return f, nil
}

func newFilmTexture(internalFormat int32, format, xtype uint32, width, height int) (tex uint32) {
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internalFormat, int32(width), int32(height), 0, format, xtype, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return tex
}

// Size returns the film's size in pixels.
func (f *Film) Size() (width, height int) { return f.width, f.height }

// ColorTexture returns the GL texture holding the shaded RGBA8 image.
func (f *Film) ColorTexture() uint32 { return f.color }

// DistanceTexture returns the GL R32F texture holding the distance traveled by resolved camera rays.
func (f *Film) DistanceTexture() uint32 { return f.distance }

// IDTexture returns the GL R32I texture holding the node ID of resolved pixels, -1 elsewhere.
func (f *Film) IDTexture() uint32 { return f.ids }

// Framebuffer returns the film's GL framebuffer object.
func (f *Film) Framebuffer() uint32 { return f.fbo }

// ReadImage reads back the shaded image into dst, which must match the film's size.
// Rows are flipped so that the top of the image is row 0.
func (f *Film) ReadImage(dst *image.RGBA) error {
	if dst.Rect.Dx() != f.width || dst.Rect.Dy() != f.height {
		return errors.New("image size does not match film")
	}
	buf := make([]byte, 4*f.width*f.height)
	err := f.read(gl.COLOR_ATTACHMENT0, gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&buf[0]))
	if err != nil {
		return err
	}
	stride := 4 * f.width
	for row := 0; row < f.height; row++ {
		src := buf[(f.height-1-row)*stride : (f.height-row)*stride]
		copy(dst.Pix[row*dst.Stride:row*dst.Stride+stride], src)
	}
	return nil
}

// ReadDistances reads back the distance target in GL row order (bottom row first).
func (f *Film) ReadDistances(dst []float32) error {
	if len(dst) != f.width*f.height {
		return errors.New("distance buffer size does not match film")
	}
	return f.read(gl.COLOR_ATTACHMENT1, gl.RED, gl.FLOAT, unsafe.Pointer(&dst[0]))
}

// ReadIDs reads back the node ID target in GL row order (bottom row first).
func (f *Film) ReadIDs(dst []int32) error {
	if len(dst) != f.width*f.height {
		return errors.New("ID buffer size does not match film")
	}
	return f.read(gl.COLOR_ATTACHMENT2, gl.RED_INTEGER, gl.INT, unsafe.Pointer(&dst[0]))
}

func (f *Film) read(attachment, format, xtype uint32, dst unsafe.Pointer) error {
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, f.fbo)
	defer gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	gl.ReadBuffer(attachment)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(f.width), int32(f.height), format, xtype, dst)
	return gleval.GLErrOrMessage("reading film")
}

// Blit copies the film's RGBA8 texture tex into the default framebuffer scaled to width by height.
func (f *Film) Blit(tex uint32, width, height int) error {
	if tex != f.color || tex == 0 {
		return errors.New("texture is not a displayable film attachment")
	}
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, f.fbo)
	gl.ReadBuffer(gl.COLOR_ATTACHMENT0)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
	gl.BlitFramebuffer(0, 0, int32(f.width), int32(f.height), 0, 0, int32(width), int32(height), gl.COLOR_BUFFER_BIT, gl.NEAREST)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return glgl.Err()
}

// Delete releases the film's GL resources.
func (f *Film) Delete() {
	for _, tex := range []*uint32{&f.color, &f.distance, &f.ids} {
		if *tex != 0 {
			gl.DeleteTextures(1, tex)
			*tex = 0
		}
	}
	if f.depthStencil != 0 {
		gl.DeleteRenderbuffers(1, &f.depthStencil)
		f.depthStencil = 0
	}
	if f.fbo != 0 {
		gl.DeleteFramebuffers(1, &f.fbo)
		f.fbo = 0
	}
}
