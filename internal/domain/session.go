// Package domain holds the capture-session data model shared by the
// application core and its infrastructure adapters.
package domain

import (
	"encoding/json"
	"time"
)

// Status represents the lifecycle state of a capture session.
type Status int

const (
	StatusIdle Status = iota
	StatusAcquiringDevices
	StatusStreaming
	StatusSampling
	StatusTransmitting
	StatusAwaitingResult
	StatusCompleted
	StatusFailed
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusAcquiringDevices:
		return "acquiring_devices"
	case StatusStreaming:
		return "streaming"
	case StatusSampling:
		return "sampling"
	case StatusTransmitting:
		return "transmitting"
	case StatusAwaitingResult:
		return "awaiting_result"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the session has reached a final state.
// A new session must be constructed to retry.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// InFlight reports whether a capture is currently being processed.
// The capture trigger is a no-op while this holds.
func (s Status) InFlight() bool {
	return s == StatusSampling || s == StatusTransmitting || s == StatusAwaitingResult
}

// MarshalJSON implements json.Marshaler.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Status) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "idle":
		*s = StatusIdle
	case "acquiring_devices":
		*s = StatusAcquiringDevices
	case "streaming":
		*s = StatusStreaming
	case "sampling":
		*s = StatusSampling
	case "transmitting":
		*s = StatusTransmitting
	case "awaiting_result":
		*s = StatusAwaitingResult
	case "completed":
		*s = StatusCompleted
	case "failed":
		*s = StatusFailed
	default:
		*s = StatusIdle
	}
	return nil
}

// Session is one full capture-to-result cycle. Exactly one session is live
// at a time; the orchestrator owns it.
type Session struct {
	ID          string
	Status      Status
	StartedAt   time.Time
	Frames      []ImageSample
	Audio       *AudioArtifact
	Environment EnvironmentSnapshot
	Result      *InferenceResult
	Err         error
}
