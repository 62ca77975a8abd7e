package sdfaux

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/golang/freetype"
	"golang.org/x/image/font/gofont/goregular"
)

// Annotator draws text on images using the Go regular font.
type Annotator struct {
	ctx   *freetype.Context
	size  float64
	color color.Color
}

// NewAnnotator returns an annotator drawing text of the given point size in white.
func NewAnnotator(size float64) (*Annotator, error) {
	f, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, err
	}
	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(f)
	ctx.SetFontSize(size)
	return &Annotator{ctx: ctx, size: size, color: color.White}, nil
}

// SetColor sets the color of text drawn from now on.
func (a *Annotator) SetColor(c color.Color) { a.color = c }

// Annotate draws lines of text on dst starting at the top left corner (x, y).
func (a *Annotator) Annotate(dst draw.Image, x, y int, lines ...string) error {
	a.ctx.SetDst(dst)
	a.ctx.SetClip(dst.Bounds())
	a.ctx.SetSrc(image.NewUniform(a.color))
	lineHeight := a.ctx.PointToFixed(1.25 * a.size)
	pt := freetype.Pt(x, y)
	pt.Y += a.ctx.PointToFixed(a.size)
	for _, line := range lines {
		_, err := a.ctx.DrawString(line, pt)
		if err != nil {
			return err
		}
		pt.Y += lineHeight
	}
	return nil
}
