package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("not found")
	ErrNoRuns        = errors.New("no archived runs")
	ErrNotConfigured = errors.New("not configured")

	ErrControlsLocked    = errors.New("controls are locked")
	ErrSessionNotRunning = errors.New("session timer is not running")
	ErrDetectionBusy     = errors.New("a classification is already in flight")

	ErrPermissionDenied     = errors.New("screen capture permission denied")
	ErrClassificationFailed = errors.New("classification failed")
	// ErrClassificationTimeout matches ErrClassificationFailed under errors.Is.
	ErrClassificationTimeout = fmt.Errorf("%w: timed out", ErrClassificationFailed)
)
