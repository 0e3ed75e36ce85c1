package domain

import (
	"fmt"
	"time"
)

// Project lifecycle states. A project starts as a draft, becomes usable for
// bulk runs once its overlay rectangle has been set, and then tracks the
// outcome of its most recent run.
const (
	ProjectStatusDraft          = "draft"
	ProjectStatusCoordinatesSet = "coordinates_set"
	ProjectStatusProcessing     = "processing"
	ProjectStatusCompleted      = "completed"
	ProjectStatusFailed         = "failed"
)

// Template size limits. Templates outside these pixel bounds are rejected at
// project creation time.
const (
	TemplateMinDimension = 10
	TemplateMaxDimension = 4000
)

// Rect is the overlay region on a frame template, in template pixel
// coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Validate checks the rectangle against the template's pixel dimensions.
// Rectangles are never clamped: anything not fully contained in the template
// is a configuration error.
func (r Rect) Validate(templateWidth, templateHeight int) error {
	if r.X < 0 || r.Y < 0 || r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: rect %dx%d at (%d,%d)", ErrRectOutOfBounds, r.Width, r.Height, r.X, r.Y)
	}
	if r.X+r.Width > templateWidth || r.Y+r.Height > templateHeight {
		return fmt.Errorf("%w: rect %dx%d at (%d,%d) exceeds template %dx%d",
			ErrRectOutOfBounds, r.Width, r.Height, r.X, r.Y, templateWidth, templateHeight)
	}
	return nil
}

// FrameProject is a configured combination of a frame template image, an
// overlay rectangle and a product feed URL. The template bytes live in blob
// storage under TemplateKey; only its decoded dimensions are kept here.
type FrameProject struct {
	ID             string
	OwnerID        string
	Name           string
	TemplateKey    string
	TemplateFormat string
	TemplateWidth  int
	TemplateHeight int
	FeedURL        string
	Rect           Rect
	CoordinatesSet bool
	Status         string
	Progress       ProjectProgress
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ProjectProgress is the per-project counter snapshot shown while a bulk run
// is in flight.
type ProjectProgress struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}
