package renderer

import "errors"

var (
	ErrNoTracers        = errors.New("renderer: no tracers attached")
	ErrSceneNotDefined  = errors.New("renderer: no scene defined")
	ErrCameraNotDefined = errors.New("renderer: no camera defined")
	ErrInterrupted      = errors.New("renderer: interrupted while rendering")
	ErrInvalidScale     = errors.New("renderer: present scale must be greater than zero")
	ErrTargetTooSmall   = errors.New("renderer: present target is smaller than the scaled frame")
)
