package executor

import "errors"

var (
	// Config validation errors
	ErrModelClientRequired = errors.New("model client is required")
	ErrSessionRequired     = errors.New("session is required")
	ErrInputRequired       = errors.New("input text is required")
)
