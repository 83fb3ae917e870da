package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/gogpu/gg"
	"github.com/rs/zerolog/log"
)

// Outline style for highlighted regions. Matches the viewer's reading
// aids: a crimson rectangle, 4px stroke.
var outlineColor = color.RGBA{R: 220, G: 20, B: 60, A: 255}

const outlineWidth = 4.0

// Box is a rectangle in normalized page coordinates. All values are
// fractions of the page size: (0,0) is the top-left corner, (1,1) the
// bottom-right. X0,Y0 is the top-left corner of the box, X1,Y1 the
// bottom-right.
type Box struct {
	X0, Y0, X1, Y1 float64
}

// FromSlice builds a Box from a 4-element [x0,y0,x1,y1] slice.
// Returns false if the slice does not have exactly four elements.
func FromSlice(v []float64) (Box, bool) {
	if len(v) != 4 {
		return Box{}, false
	}
	return Box{X0: v[0], Y0: v[1], X1: v[2], Y1: v[3]}, true
}

// Map scales a normalized box to pixel coordinates on a width x height
// raster. Each edge is rounded to the nearest pixel, so the full-page
// box (0,0,1,1) always maps to exactly (0,0,width,height).
func Map(b Box, width, height int) image.Rectangle {
	x0 := int(math.Round(b.X0 * float64(width)))
	y0 := int(math.Round(b.Y0 * float64(height)))
	x1 := int(math.Round(b.X1 * float64(width)))
	y1 := int(math.Round(b.Y1 * float64(height)))
	return image.Rectangle{Min: image.Point{X: x0, Y: y0}, Max: image.Point{X: x1, Y: y1}}
}

// Draw returns a copy of img with the box outlined on it. The input
// image is never modified. A nil box yields a plain copy. Out-of-range
// and degenerate boxes are drawn where the mapping puts them; they
// never cause a failure.
func Draw(img image.Image, b *Box) *image.RGBA {
	if b == nil {
		return copyImage(img)
	}

	bounds := img.Bounds()
	px := Map(*b, bounds.Dx(), bounds.Dy())

	dc := gg.NewContextForImage(img)
	dc.SetColor(outlineColor)
	dc.SetLineWidth(outlineWidth)
	dc.DrawRectangle(float64(px.Min.X), float64(px.Min.Y), float64(px.Dx()), float64(px.Dy()))
	if err := dc.Stroke(); err != nil {
		log.Debug().Err(err).Msg("overlay stroke failed, returning unmarked copy")
	}

	return toRGBA(dc.Image())
}

func copyImage(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Src)
	return dst
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	return copyImage(img)
}
