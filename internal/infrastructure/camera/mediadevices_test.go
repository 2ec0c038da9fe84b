package camera

import (
	"testing"

	"github.com/pion/mediadevices"

	"moodflix-capture/internal/domain"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}

func TestLiveStreamReleaseIdempotent(t *testing.T) {
	s := &liveStream{logger: nopLogger{}}

	s.Release()
	s.Release()

	if s.Video() != nil {
		t.Error("released stream still serves a frame source")
	}
	if tracks := s.Tracks(); tracks != nil {
		t.Errorf("released stream still serves %d tracks", len(tracks))
	}
	if _, err := s.AudioReader(); err == nil {
		t.Error("released stream still serves an audio reader")
	}
}

func TestKindString(t *testing.T) {
	if got := kindString(mediadevices.VideoInput); got != domain.DeviceKindVideo {
		t.Errorf("VideoInput = %q", got)
	}
	if got := kindString(mediadevices.AudioInput); got != domain.DeviceKindAudio {
		t.Errorf("AudioInput = %q", got)
	}
	if got := kindString(mediadevices.MediaDeviceType(0)); got != "" {
		t.Errorf("unknown kind = %q, want empty", got)
	}
}

func TestNewManagerConfiguresCodecs(t *testing.T) {
	m, err := NewManager(nopLogger{})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if m.selector == nil {
		t.Fatal("manager has no codec selector; encoded readers and track binding need one")
	}
}
