package domain

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrGenerationFailed   = errors.New("text generation failed")
	ErrNotFound           = errors.New("record not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAgentNotFound      = errors.New("agent not found")
	ErrGeocodeFailed      = errors.New("geocoding failed")
	ErrConfigurationError = errors.New("configuration error")
	ErrServiceUnavailable = errors.New("service unavailable")
)
