// Package render draws receipt pages as PNG proofs for checking a
// calibration against a scan of the blank form.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
)

// AllowedMIME lists the accepted template image types.
var AllowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// PageSize is a page in PDF points.
type PageSize struct {
	Width  float64
	Height float64
}

// Letter is US Letter, the size of the stock template.
var Letter = PageSize{Width: 612, Height: 792}

// Pixels returns the page size in pixels at scale pixels per point.
func (s PageSize) Pixels(scale float64) (int, int) {
	return max(1, int(s.Width*scale+0.5)), max(1, int(s.Height*scale+0.5))
}

// LoadTemplate reads a scanned form, validates the format by sniffing
// bytes and scales it to exactly w by h pixels.
func LoadTemplate(r io.Reader, w, h int) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading template: %w", err)
	}

	detected := http.DetectContentType(data)
	if !AllowedMIME[detected] {
		return nil, fmt.Errorf("unsupported template format: %s (only JPEG and PNG accepted)", detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding template: %w", err)
	}
	return fit(img, w, h), nil
}

// fit resizes img to w by h with Catmull-Rom interpolation. The form is
// stretched, not letterboxed, so coordinates map the same on every scan.
func fit(img image.Image, w, h int) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() == w && bounds.Dy() == h {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// blank returns a white canvas, or a copy of the template when given.
func blank(template image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if template != nil {
		draw.Draw(dst, dst.Bounds(), template, template.Bounds().Min, draw.Over)
	}
	return dst
}

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}
