package application

import (
	"context"
	"time"

	"moodflix-capture/internal/domain"
)

// AcquireRequest selects which devices to open.
type AcquireRequest struct {
	Video             bool
	Audio             bool
	PreferredDeviceID string // optional camera device id; auto-selected when empty
}

// MediaAcquirer opens camera and microphone devices.
type MediaAcquirer interface {
	// ListDevices returns all available capture devices.
	ListDevices() ([]domain.DeviceDescriptor, error)

	// Acquire opens the requested devices and returns a live stream handle.
	// Fails with *domain.DeviceError.
	Acquire(ctx context.Context, req AcquireRequest) (domain.LiveStream, error)
}

// FrameSampler produces a fixed-size ordered sequence of still images from
// a live video source. It blocks until all frames are captured or fails,
// discarding partial results.
type FrameSampler interface {
	Sample(ctx context.Context, src domain.FrameSource, count int, interval time.Duration) ([]domain.ImageSample, error)
}

// AudioRecorder buffers encoded audio from an acquired audio track.
// Stop finalizes the recording before the artifact is returned; no partial
// artifact is ever surfaced.
type AudioRecorder interface {
	Start(stream domain.LiveStream) error
	Stop() (*domain.AudioArtifact, error)
}

// Transport delivers one capture payload to the inference service and
// awaits the result. Implementations fail with *domain.TransportError or
// *domain.ServerError.
type Transport interface {
	Send(ctx context.Context, payload *domain.CapturePayload) (*domain.InferenceResult, error)
	Close() error
}

// EnvironmentProvider supplies the read-only context snapshot attached to
// outbound requests.
type EnvironmentProvider interface {
	Snapshot() domain.EnvironmentSnapshot
}

// Logger is the logging port used across the application.
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}
