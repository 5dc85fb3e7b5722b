package render

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/erazemk/handreceipt/internal/layout"
)

// ProofOptions configures a ProofRenderer.
type ProofOptions struct {
	// Dir receives one PNG per page.
	Dir string
	// BaseName prefixes page files, e.g. "DA2062_SGT_Doe_20260314".
	BaseName string
	// Template is an optional scan of the blank form.
	Template io.Reader
	// Size defaults to Letter.
	Size PageSize
	// Scale is pixels per point, default 2.
	Scale  float64
	Logger *zap.Logger
}

// ProofRenderer draws pages over the template scan and writes them as PNG.
// Text uses a fixed bitmap face, so font size is not reproduced; anchors
// and alignment are.
type ProofRenderer struct {
	dir      string
	baseName string
	template image.Image
	size     PageSize
	scale    float64
	logger   *zap.Logger
	files    []string
}

// NewProofRenderer prepares a renderer, loading the template if given.
func NewProofRenderer(opts ProofOptions) (*ProofRenderer, error) {
	r := &ProofRenderer{
		dir:      opts.Dir,
		baseName: opts.BaseName,
		size:     opts.Size,
		scale:    opts.Scale,
		logger:   opts.Logger,
	}
	if r.size.Width <= 0 || r.size.Height <= 0 {
		r.size = Letter
	}
	if r.scale <= 0 {
		r.scale = 2
	}
	if r.baseName == "" {
		r.baseName = "proof"
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if opts.Template != nil {
		w, h := r.size.Pixels(r.scale)
		tmpl, err := LoadTemplate(opts.Template, w, h)
		if err != nil {
			return nil, err
		}
		r.template = tmpl
	}
	return r, nil
}

// Draw renders one page to an image.
func (r *ProofRenderer) Draw(page layout.Page) *image.RGBA {
	w, h := r.size.Pixels(r.scale)
	dst := blank(r.template, w, h)

	d := &font.Drawer{Dst: dst, Src: image.Black, Face: basicfont.Face7x13}
	for _, in := range page.Instructions {
		x, y := r.toPixels(in.X, in.Y)
		if in.Align == layout.AlignRight {
			x -= d.MeasureString(in.Text).Round()
		}
		d.Dot = fixed.P(x, y)
		d.DrawString(in.Text)
	}
	return dst
}

// toPixels maps PDF points (origin bottom left) to image pixels (origin
// top left). The result is the text baseline.
func (r *ProofRenderer) toPixels(x, y float64) (int, int) {
	return int(x*r.scale + 0.5), int((r.size.Height-y)*r.scale + 0.5)
}

// RenderPage writes the page as <dir>/<base>_pNN.png.
func (r *ProofRenderer) RenderPage(ctx context.Context, page layout.Page) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(r.dir, fmt.Sprintf("%s_p%02d.png", r.baseName, page.Index))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating proof: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, r.Draw(page)); err != nil {
		return fmt.Errorf("encoding proof: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing proof: %w", err)
	}

	r.files = append(r.files, path)
	r.logger.Debug("proof page written", zap.String("path", path), zap.Int("page", page.Index))
	return nil
}

// Files returns the paths written so far.
func (r *ProofRenderer) Files() []string {
	return r.files
}
