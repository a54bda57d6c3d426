package sink

import (
	"context"
	"fmt"
	"github.com/willbeason/mandelbrot/pkg/raster"
	"github.com/willbeason/mandelbrot/pkg/render"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync"
)

const (
	captionSize    = 14
	captionPadding = 4
)

var regular = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(goregular.TTF)
})

// PNG writes the raster to Path.
type PNG struct {
	Path string

	// Caption draws the render statistics in the bottom-left corner.
	Caption bool
}

func (p PNG) Show(_ context.Context, r *raster.Raster, stats render.Stats) error {
	if dir := filepath.Dir(p.Path); dir != "." {
		err := os.MkdirAll(dir, os.ModePerm)
		if err != nil {
			return err
		}
	}

	f, err := os.Create(p.Path)
	if err != nil {
		return err
	}

	err = Encode(f, r, stats, p.Caption)
	if err != nil {
		_ = f.Close()
		return err
	}

	err = f.Close()
	if err != nil {
		return err
	}

	render.Logger().Info("wrote image", "path", p.Path)
	return nil
}

// Encode writes r as a PNG, captioned with stats if caption is set.
func Encode(w io.Writer, r *raster.Raster, stats render.Stats, caption bool) error {
	img := r.Image()
	if caption {
		err := drawCaption(img, stats.String())
		if err != nil {
			return err
		}
	}
	return png.Encode(w, img)
}

// drawCaption writes text over a translucent band at the bottom-left of img.
func drawCaption(img *image.RGBA, text string) error {
	f, err := regular()
	if err != nil {
		return fmt.Errorf("parsing caption font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    captionSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("creating caption face: %w", err)
	}
	defer func() {
		_ = face.Close()
	}()

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
	}

	b := img.Bounds()
	m := face.Metrics()
	lineHeight := (m.Ascent + m.Descent).Ceil()

	band := image.Rect(
		b.Min.X,
		b.Max.Y-lineHeight-2*captionPadding,
		b.Min.X+d.MeasureString(text).Ceil()+2*captionPadding,
		b.Max.Y,
	).Intersect(b)
	draw.Draw(img, band, image.NewUniform(color.RGBA{A: 0xa0}), image.Point{}, draw.Over)

	d.Dot = fixed.P(b.Min.X+captionPadding, b.Max.Y-captionPadding-m.Descent.Ceil())
	d.DrawString(text)

	return nil
}
