package apperrors

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrTabUnavailable      = errors.New("tab unavailable")
	ErrRowParse            = errors.New("row parse failure")
	ErrInvalidPayload      = errors.New("invalid answer payload")
	ErrRendererUnavailable = errors.New("renderer unavailable")
	ErrInvalidCoordinates  = errors.New("coordinates out of range")
)
