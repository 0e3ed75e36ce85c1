// Package preview renders single composited images for interactive overlay
// coordinate tuning. It never touches the output store.
package preview

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"framepress/internal/compositor"
	"framepress/internal/domain"
	"framepress/internal/feed"
	"framepress/internal/safeurl"
)

var ErrNoProduct = errors.New("no product image available for preview")

const previewJPEGQuality = 75

// ProductSource selects where the preview's product image comes from.
// Exactly one of Bytes or URL may be set; with neither, the first product of
// the project's feed is used.
type ProductSource struct {
	Bytes []byte
	URL   string
}

// Preview is an inline-encoded render, sized to fit the configured preview box.
type Preview struct {
	DataURI string `json:"image"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// Engine composes previews. Stateless apart from its collaborators.
type Engine struct {
	client        *safeurl.Client
	feeds         *feed.Fetcher
	imageMaxBytes int64
	maxWidth      int
	maxHeight     int
}

// NewEngine constructs a preview engine.
func NewEngine(client *safeurl.Client, feeds *feed.Fetcher, imageMaxBytes int64, maxWidth, maxHeight int) *Engine {
	return &Engine{
		client:        client,
		feeds:         feeds,
		imageMaxBytes: imageMaxBytes,
		maxWidth:      maxWidth,
		maxHeight:     maxHeight,
	}
}

// Render composes one product image onto the template at rect and returns it
// as a base64 data URI. When guides is set, the overlay rectangle is stroked
// onto the result so the operator can see the region being tuned.
func (e *Engine) Render(ctx context.Context, tmpl *compositor.Template, rect domain.Rect, feedURL string, src ProductSource, guides bool) (Preview, error) {
	productBytes, err := e.resolveProduct(ctx, feedURL, src)
	if err != nil {
		return Preview{}, err
	}

	composedBytes, err := tmpl.Compose(rect, productBytes)
	if err != nil {
		return Preview{}, err
	}
	composed, err := imaging.Decode(bytes.NewReader(composedBytes))
	if err != nil {
		return Preview{}, fmt.Errorf("decode composed preview: %w", err)
	}

	img := composed
	if guides {
		dc := gg.NewContextForImage(composed)
		dc.SetRGBA(1, 0.1, 0.1, 0.9)
		dc.SetLineWidth(3)
		dc.DrawRectangle(float64(rect.X), float64(rect.Y), float64(rect.Width), float64(rect.Height))
		dc.Stroke()
		img = dc.Image()
	}

	img = imaging.Fit(img, e.maxWidth, e.maxHeight, imaging.Lanczos)

	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(previewJPEGQuality)); err != nil {
		return Preview{}, fmt.Errorf("encode preview: %w", err)
	}

	bounds := img.Bounds()
	return Preview{
		DataURI: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
	}, nil
}

func (e *Engine) resolveProduct(ctx context.Context, feedURL string, src ProductSource) ([]byte, error) {
	if len(src.Bytes) > 0 {
		return src.Bytes, nil
	}
	imageURL := src.URL
	if imageURL == "" {
		if feedURL == "" {
			return nil, ErrNoProduct
		}
		result, err := e.feeds.FetchAndParse(ctx, feedURL)
		if err != nil {
			return nil, err
		}
		if len(result.Products) == 0 {
			return nil, ErrNoProduct
		}
		imageURL = result.Products[0].ImageURL
	}
	return e.client.Fetch(ctx, imageURL, safeurl.ImagePolicy(e.imageMaxBytes))
}
