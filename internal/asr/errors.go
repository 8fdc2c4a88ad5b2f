package asr

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by all provider adapters. Callers match them
// with errors.Is; adapters wrap them with vendor context via fmt.Errorf.
var (
	// ErrPermissionDenied indicates the audio input device refused access.
	ErrPermissionDenied = errors.New("audio input permission denied")

	// ErrDeviceUnavailable indicates no usable audio input device exists.
	ErrDeviceUnavailable = errors.New("audio input device unavailable")

	// ErrAuthenticationFailed indicates the vendor rejected the credential
	// or signature during session establishment.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrHandshakeTimeout indicates no connection-ready signal arrived
	// within the handshake wait bound.
	ErrHandshakeTimeout = errors.New("handshake timeout")

	// ErrConnectionError indicates a transport-level failure.
	ErrConnectionError = errors.New("connection error")

	// ErrSessionNotReady indicates Feed or Stop was called before Start
	// resolved or after the session reached a terminal state.
	ErrSessionNotReady = errors.New("session not ready")

	// ErrUnsupportedFormat indicates the file extension or MIME type is
	// not in the supported set. Raised before any network call.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrFileTooLarge indicates the file exceeds the vendor size limit.
	// Raised before any network call.
	ErrFileTooLarge = errors.New("file too large")

	// ErrTranscriptionTimeout indicates the poll retry budget was
	// exhausted before the vendor reached a terminal status.
	ErrTranscriptionTimeout = errors.New("transcription timeout")

	// ErrVendorTaskFailed indicates the vendor reported an explicit
	// failure status for the transcription task.
	ErrVendorTaskFailed = errors.New("vendor task failed")
)

// VendorError carries the vendor-reported status code and message behind
// one of the sentinel errors above.
type VendorError struct {
	Provider string
	Code     int
	Message  string
	Err      error
}

// Error implements the error interface.
func (e *VendorError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: code %d: %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying sentinel error for errors.Is matching.
func (e *VendorError) Unwrap() error {
	return e.Err
}
