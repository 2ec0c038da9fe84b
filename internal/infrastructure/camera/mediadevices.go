// Package camera implements media acquisition on top of pion/mediadevices.
package camera

import (
	"context"
	"fmt"
	"image"
	"io"
	"strings"
	"sync"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	"github.com/pion/mediadevices/pkg/codec/vpx"
	_ "github.com/pion/mediadevices/pkg/driver/camera"     // register camera driver
	_ "github.com/pion/mediadevices/pkg/driver/microphone" // register microphone driver
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/webrtc/v4"

	"moodflix-capture/internal/application"
	"moodflix-capture/internal/domain"
)

// Fallback capture resolution requested when the device does not report
// its native one.
const (
	defaultWidth  = 640
	defaultHeight = 480
)

const videoBitRate = 1_000_000

// Manager implements application.MediaAcquirer using pion/mediadevices.
type Manager struct {
	logger   application.Logger
	selector *mediadevices.CodecSelector
}

// NewManager creates a media device manager. Tracks are acquired with a
// VP8/opus codec selector; without one mediadevices cannot serve encoded
// readers or bind tracks to a peer connection.
func NewManager(logger application.Logger) (*Manager, error) {
	vp8Params, err := vpx.NewVP8Params()
	if err != nil {
		return nil, fmt.Errorf("vp8 encoder: %w", err)
	}
	vp8Params.BitRate = videoBitRate

	opusParams, err := opus.NewParams()
	if err != nil {
		return nil, fmt.Errorf("opus encoder: %w", err)
	}

	return &Manager{
		logger: logger,
		selector: mediadevices.NewCodecSelector(
			mediadevices.WithVideoEncoders(&vp8Params),
			mediadevices.WithAudioEncoders(&opusParams),
		),
	}, nil
}

// ListDevices returns all available capture devices.
func (m *Manager) ListDevices() ([]domain.DeviceDescriptor, error) {
	infos := mediadevices.EnumerateDevices()
	result := make([]domain.DeviceDescriptor, 0, len(infos))
	for _, info := range infos {
		result = append(result, domain.DeviceDescriptor{
			ID:    info.DeviceID,
			Label: info.Label,
			Kind:  kindString(info.Kind),
		})
	}
	return result, nil
}

// Acquire opens the requested devices. The camera is auto-selected unless a
// preferred device id is given; a failed acquisition with the initial
// constraints is retried once with relaxed ones before giving up.
func (m *Manager) Acquire(ctx context.Context, req application.AcquireRequest) (domain.LiveStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.DeviceError{Kind: domain.DeviceUnavailable, Reason: "acquisition cancelled", Err: err}
	}

	deviceID := req.PreferredDeviceID
	if req.Video && deviceID == "" {
		devices, err := m.ListDevices()
		if err == nil {
			if picked, ok := SelectVideoDevice(devices); ok {
				deviceID = picked.ID
				m.logger.Info("auto-selected camera: %s (%s)", picked.Label, picked.ID)
			}
		}
	}

	constraints := mediadevices.MediaStreamConstraints{Codec: m.selector}
	if req.Video {
		constraints.Video = func(c *mediadevices.MediaTrackConstraints) {
			c.Width = prop.Int(defaultWidth)
			c.Height = prop.Int(defaultHeight)
			if deviceID != "" {
				c.DeviceID = prop.String(deviceID)
			}
		}
	}
	if req.Audio {
		constraints.Audio = func(c *mediadevices.MediaTrackConstraints) {}
	}

	stream, err := mediadevices.GetUserMedia(constraints)
	if err != nil {
		m.logger.Error("acquisition with initial constraints failed: %v", err)
		if req.Video {
			constraints.Video = func(c *mediadevices.MediaTrackConstraints) {
				if deviceID != "" {
					c.DeviceID = prop.String(deviceID)
				}
			}
		}
		stream, err = mediadevices.GetUserMedia(constraints)
		if err != nil {
			return nil, classifyAcquireError(err)
		}
	}

	ls := &liveStream{logger: m.logger, selector: m.selector}
	if req.Video {
		tracks := stream.GetVideoTracks()
		if len(tracks) == 0 {
			releaseTracks(stream.GetTracks())
			return nil, &domain.DeviceError{Kind: domain.DeviceNotFound, Reason: "no video track in stream"}
		}
		vt, ok := tracks[0].(*mediadevices.VideoTrack)
		if !ok {
			releaseTracks(stream.GetTracks())
			return nil, &domain.DeviceError{Kind: domain.DeviceUnavailable, Reason: "unexpected video track type"}
		}
		ls.videoTrack = vt
	}
	if req.Audio {
		tracks := stream.GetAudioTracks()
		if len(tracks) == 0 {
			releaseTracks(stream.GetTracks())
			return nil, &domain.DeviceError{Kind: domain.DeviceNotFound, Reason: "no audio track in stream"}
		}
		ls.audioTrack = tracks[0]
	}
	return ls, nil
}

func classifyAcquireError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission") || strings.Contains(msg, "denied"):
		return &domain.DeviceError{Kind: domain.DevicePermissionDenied, Reason: err.Error(), Err: err}
	case strings.Contains(msg, "not found") || strings.Contains(msg, "failed to find"):
		return &domain.DeviceError{Kind: domain.DeviceNotFound, Reason: err.Error(), Err: err}
	default:
		return &domain.DeviceError{Kind: domain.DeviceUnavailable, Reason: err.Error(), Err: err}
	}
}

func releaseTracks(tracks []mediadevices.Track) {
	for _, t := range tracks {
		_ = t.Close()
	}
}

func kindString(k mediadevices.MediaDeviceType) string {
	switch k {
	case mediadevices.VideoInput:
		return domain.DeviceKindVideo
	case mediadevices.AudioInput:
		return domain.DeviceKindAudio
	case mediadevices.AudioOutput:
		return "audiooutput"
	default:
		return ""
	}
}

// liveStream implements domain.LiveStream over mediadevices tracks.
type liveStream struct {
	logger     application.Logger
	selector   *mediadevices.CodecSelector
	videoTrack *mediadevices.VideoTrack
	audioTrack mediadevices.Track

	mu       sync.Mutex
	released bool
}

// Video returns a frame source reading raw frames from the camera track.
func (s *liveStream) Video() domain.FrameSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released || s.videoTrack == nil {
		return nil
	}
	return &frameSource{reader: s.videoTrack.NewReader(false)}
}

// AudioReader returns encoded audio chunks from the microphone track.
func (s *liveStream) AudioReader() (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released || s.audioTrack == nil {
		return nil, &domain.DeviceError{Kind: domain.DeviceNotFound, Reason: "no audio track acquired"}
	}
	reader, err := s.audioTrack.NewEncodedIOReader("opus")
	if err != nil {
		return nil, &domain.DeviceError{Kind: domain.DeviceUnavailable, Reason: "audio encoder unavailable", Err: err}
	}
	return reader, nil
}

// Tracks returns raw track handles for the live streaming transport.
func (s *liveStream) Tracks() []domain.MediaTrack {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil
	}
	var out []domain.MediaTrack
	if s.videoTrack != nil {
		out = append(out, &trackHandle{track: s.videoTrack, selector: s.selector})
	}
	if s.audioTrack != nil {
		out = append(out, &trackHandle{track: s.audioTrack, selector: s.selector})
	}
	return out
}

// Release stops every acquired track. Idempotent.
func (s *liveStream) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.released = true
	if s.videoTrack != nil {
		if err := s.videoTrack.Close(); err != nil {
			s.logger.Debug("video track close: %v", err)
		}
	}
	if s.audioTrack != nil {
		if err := s.audioTrack.Close(); err != nil {
			s.logger.Debug("audio track close: %v", err)
		}
	}
}

// frameSource adapts the mediadevices video reader to domain.FrameSource.
type frameSource struct {
	reader interface {
		Read() (img image.Image, release func(), err error)
	}
}

func (f *frameSource) ReadFrame() (image.Image, func(), error) {
	return f.reader.Read()
}

// trackHandle wraps a mediadevices track so the transport layer can attach
// it to a peer connection without importing mediadevices.
type trackHandle struct {
	track    mediadevices.Track
	selector *mediadevices.CodecSelector
}

func (h *trackHandle) ID() string   { return h.track.ID() }
func (h *trackHandle) Kind() string { return h.track.Kind().String() }
func (h *trackHandle) Close() error { return h.track.Close() }

// WebRTCTrack exposes the track as a pion local track.
func (h *trackHandle) WebRTCTrack() webrtc.TrackLocal { return h.track }

// PopulateMediaEngine registers the track's codecs with a media engine; the
// peer connection carrying the track must be built from this engine or Bind
// fails during negotiation.
func (h *trackHandle) PopulateMediaEngine(me *webrtc.MediaEngine) {
	h.selector.Populate(me)
}
