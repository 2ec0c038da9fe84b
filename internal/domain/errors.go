package domain

import (
	"errors"
	"fmt"
)

// DeviceErrorKind classifies failures to acquire a capture device.
type DeviceErrorKind int

const (
	DevicePermissionDenied DeviceErrorKind = iota + 1
	DeviceNotFound
	DeviceUnavailable
)

func (k DeviceErrorKind) String() string {
	switch k {
	case DevicePermissionDenied:
		return "permission_denied"
	case DeviceNotFound:
		return "not_found"
	case DeviceUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// DeviceError is returned when camera or microphone acquisition fails.
type DeviceError struct {
	Kind   DeviceErrorKind
	Reason string
	Err    error
}

func (e *DeviceError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("device %s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("device %s", e.Kind)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// TransportErrorKind classifies failures on the wire.
type TransportErrorKind int

const (
	TransportNetworkUnreachable TransportErrorKind = iota + 1
	TransportHTTPStatus
	TransportSignalingUnavailable
	TransportMalformedResponse
	TransportTimeout
)

func (k TransportErrorKind) String() string {
	switch k {
	case TransportNetworkUnreachable:
		return "network_unreachable"
	case TransportHTTPStatus:
		return "http_status"
	case TransportSignalingUnavailable:
		return "signaling_unavailable"
	case TransportMalformedResponse:
		return "malformed_response"
	case TransportTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// TransportError is returned when request delivery or the awaited result
// exchange fails.
type TransportError struct {
	Kind       TransportErrorKind
	StatusCode int // set for TransportHTTPStatus
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Kind == TransportHTTPStatus:
		return fmt.Sprintf("transport %s: server returned %d", e.Kind, e.StatusCode)
	case e.Message != "":
		return fmt.Sprintf("transport %s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("transport %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("transport %s", e.Kind)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError carries an error message reported by the inference service.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server reported: %s", e.Message)
}

// Sentinel errors for the remaining failure classes.
var (
	// ErrStreamInterrupted is returned when the video stream stops while a
	// frame sampling loop is in progress. Partial results are discarded.
	ErrStreamInterrupted = errors.New("stream interrupted")

	// ErrNotReady is returned when sampling is requested on a stream that
	// is not actively playing.
	ErrNotReady = errors.New("stream not ready")

	// ErrNotRecording is returned when the audio recorder is stopped
	// without a prior successful start.
	ErrNotRecording = errors.New("recorder not recording")

	// ErrEncodeFailed is returned when a captured frame or audio buffer
	// cannot be encoded.
	ErrEncodeFailed = errors.New("encode failed")

	// ErrEmptyResult is returned when the inference service answers with
	// an empty recommendation list.
	ErrEmptyResult = errors.New("empty recommendation list")
)
