package domain

import (
	"image"
	"io"
	"time"
)

// DeviceDescriptor describes a capture device as enumerated at session start.
type DeviceDescriptor struct {
	ID    string // unique device identifier
	Label string // human-readable device name
	Kind  string // "videoinput" or "audioinput"
}

// Device kinds as reported by enumeration.
const (
	DeviceKindVideo = "videoinput"
	DeviceKindAudio = "audioinput"
)

// ImageSample is one still frame captured from a live video stream.
// Immutable once produced.
type ImageSample struct {
	SequenceIndex int       // position in the capture order, starting at 0
	Data          []byte    // encoded JPEG payload
	CapturedAt    time.Time // wall-clock capture time
}

// AudioArtifact is a finalized encoded audio recording.
type AudioArtifact struct {
	Data     []byte        // encoded audio payload
	Duration time.Duration // rough recording length
}

// EnvironmentSnapshot is read-only context attached to an outbound
// inference request. It is supplied by an external provider and never
// mutated by the capture core.
type EnvironmentSnapshot struct {
	City           string  `json:"city"`
	WeatherDesc    string  `json:"weather_desc"`
	TodayStatus    string  `json:"today_status"` // "Weekday" or "Weekend"
	Weekday        string  `json:"weekday"`
	Temperature    string  `json:"temperature"`
	TomorrowStatus string  `json:"tomorrow_status"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
}

// Day status values used in EnvironmentSnapshot.
const (
	DayStatusWeekday = "Weekday"
	DayStatusWeekend = "Weekend"
)

// InferenceResult is the terminal value of a successful capture session.
type InferenceResult struct {
	Recommendations []string // ordered movie titles
}

// CapturePayload is everything a transport needs to deliver one inference
// request. The buffered variant consumes Frames and Audio; the live
// streaming variant consumes Tracks and ignores the sampled media.
type CapturePayload struct {
	Environment EnvironmentSnapshot
	Frames      []ImageSample
	Audio       *AudioArtifact
	Tracks      []MediaTrack
}

// FrameSource yields decoded frames from a live video track. The release
// callback must be invoked once the frame is no longer needed.
type FrameSource interface {
	ReadFrame() (img image.Image, release func(), err error)
}

// MediaTrack is a raw track handle owned by a live stream.
type MediaTrack interface {
	ID() string
	Kind() string // "video" or "audio"
	Close() error
}

// LiveStream is the handle returned by device acquisition. Release stops
// every acquired track; it is idempotent and must be called on every exit
// path so no hardware is left open.
type LiveStream interface {
	// Video returns a frame source for the acquired camera, or nil if no
	// video was requested.
	Video() FrameSource

	// AudioReader returns a reader over encoded audio chunks from the
	// acquired microphone.
	AudioReader() (io.ReadCloser, error)

	// Tracks returns the raw track handles for downstream use.
	Tracks() []MediaTrack

	Release()
}
