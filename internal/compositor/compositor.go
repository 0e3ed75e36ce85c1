// Package compositor overlays product images onto frame templates.
package compositor

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	// Product feeds commonly serve webp; imaging decodes through the stdlib
	// registry, so registering the decoder here is enough.
	_ "golang.org/x/image/webp"

	"framepress/internal/domain"
)

var ErrDecode = errors.New("image decode failed")

// JPEG re-encode quality for composited outputs.
const jpegQuality = 85

// Template is a frame template decoded exactly once, at project creation.
// Compose never re-validates it.
type Template struct {
	img    image.Image
	format string
	width  int
	height int
}

// LoadTemplate decodes and validates template bytes. Only JPEG and PNG
// templates are accepted, within the pixel bounds of domain.TemplateMinDimension
// and domain.TemplateMaxDimension.
func LoadTemplate(data []byte) (*Template, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadTemplate, err)
	}
	if format != "jpeg" && format != "png" {
		return nil, fmt.Errorf("%w: unsupported format %q", domain.ErrBadTemplate, format)
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < domain.TemplateMinDimension || h < domain.TemplateMinDimension ||
		w > domain.TemplateMaxDimension || h > domain.TemplateMaxDimension {
		return nil, fmt.Errorf("%w: dimensions %dx%d outside %d..%d",
			domain.ErrBadTemplate, w, h, domain.TemplateMinDimension, domain.TemplateMaxDimension)
	}
	return &Template{img: img, format: format, width: w, height: h}, nil
}

// Format returns the template's source encoding, "jpeg" or "png".
func (t *Template) Format() string { return t.format }

// Size returns the template's pixel dimensions.
func (t *Template) Size() (width, height int) { return t.width, t.height }

// ValidateRect checks that rect lies fully within the template.
func (t *Template) ValidateRect(rect domain.Rect) error {
	return rect.Validate(t.width, t.height)
}

// Compose overlays productBytes onto a copy of the template at rect and
// returns the result encoded in the template's own format.
//
// A product whose aspect ratio differs from rect's is scaled to cover the
// rectangle and center-cropped to its exact size: the output region is always
// rect.Width x rect.Height with no letterboxing and no distortion.
func (t *Template) Compose(rect domain.Rect, productBytes []byte) ([]byte, error) {
	if err := t.ValidateRect(rect); err != nil {
		return nil, err
	}

	product, err := imaging.Decode(bytes.NewReader(productBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	fitted := imaging.Fill(product, rect.Width, rect.Height, imaging.Center, imaging.Lanczos)
	composed := imaging.Paste(imaging.Clone(t.img), fitted, image.Pt(rect.X, rect.Y))

	return Encode(composed, t.format)
}

// Encode serializes img in the given format ("jpeg" or "png").
func Encode(img image.Image, format string) ([]byte, error) {
	buf := &bytes.Buffer{}
	var err error
	switch format {
	case "png":
		err = imaging.Encode(buf, img, imaging.PNG)
	default:
		err = imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality))
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}
