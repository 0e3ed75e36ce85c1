package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrBadTemplate     = errors.New("bad template image")
	ErrRectOutOfBounds = errors.New("overlay rectangle out of template bounds")
	ErrRectNotSet      = errors.New("overlay rectangle not set")
	ErrRunActive       = errors.New("a run is already active for this project")
)
