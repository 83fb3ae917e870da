package placeholder

import (
	"image"
	"image/color"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/font/gofont/goregular"
)

// Default size of the stand-in card shown when no page can be rendered.
const (
	DefaultWidth  = 900
	DefaultHeight = 600
)

const (
	label     = "Image Placeholder"
	labelSize = 36
)

var (
	background = color.RGBA{R: 245, G: 245, B: 245, A: 255}
	labelColor = color.RGBA{R: 80, G: 80, B: 80, A: 255}
)

var (
	fontOnce sync.Once
	fontSrc  *text.FontSource
)

// Image draws a light gray card with a centered label. It never fails:
// if the bundled font cannot be loaded the label is simply omitted.
func Image(width, height int) *image.RGBA {
	if width < 1 {
		width = DefaultWidth
	}
	if height < 1 {
		height = DefaultHeight
	}

	dc := gg.NewContext(width, height)
	dc.SetColor(background)
	dc.DrawRectangle(0, 0, float64(width), float64(height))
	if err := dc.Fill(); err != nil {
		log.Debug().Err(err).Msg("placeholder background fill failed")
	}

	if face := labelFace(labelSize); face != nil {
		dc.SetFont(face)
		dc.SetColor(labelColor)
		dc.DrawStringAnchored(label, float64(width)/2, float64(height)/2, 0.5, 0.5)
	}

	return toRGBA(dc.Image())
}

// Default returns the standard 900x600 placeholder.
func Default() *image.RGBA {
	return Image(DefaultWidth, DefaultHeight)
}

func labelFace(points float64) text.Face {
	fontOnce.Do(func() {
		src, err := text.NewFontSource(goregular.TTF)
		if err != nil {
			log.Warn().Err(err).Msg("failed to load placeholder font, label disabled")
			return
		}
		fontSrc = src
	})
	if fontSrc == nil {
		return nil
	}
	return fontSrc.Face(points)
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			dst.Set(x, y, img.At(x, y))
		}
	}
	return dst
}
