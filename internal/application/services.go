package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"moodflix-capture/internal/domain"
)

// Orchestration errors surfaced to the presentation layer.
var (
	ErrSessionActive   = errors.New("a capture session is already active")
	ErrNoActiveSession = errors.New("no active capture session")
	ErrCaptureInFlight = errors.New("capture already in flight")
)

// SessionConfig fixes the sampling parameters for the life of one session.
type SessionConfig struct {
	FrameCount    int
	FrameInterval time.Duration
	ResultTimeout time.Duration

	// LiveStream selects the streaming variant: media tracks are handed to
	// the transport instead of being sampled locally.
	LiveStream bool
}

// Session parameter defaults.
const (
	DefaultFrameCount    = 20
	DefaultFrameInterval = 250 * time.Millisecond
	DefaultResultTimeout = 30 * time.Second
)

// CaptureService orchestrates one capture session at a time: device
// acquisition, frame and audio sampling, payload assembly and the exchange
// with the inference service. It owns the session state machine and
// guarantees hardware release on every exit path.
type CaptureService struct {
	acquirer  MediaAcquirer
	sampler   FrameSampler
	recorder  AudioRecorder
	transport Transport
	env       EnvironmentProvider
	logger    Logger
	cfg       SessionConfig

	mu      sync.Mutex
	session *domain.Session
	stream  domain.LiveStream
	cancel  context.CancelFunc
}

// NewCaptureService creates the session orchestrator. Zero config fields
// fall back to the defaults.
func NewCaptureService(acquirer MediaAcquirer, sampler FrameSampler, recorder AudioRecorder, transport Transport, env EnvironmentProvider, logger Logger, cfg SessionConfig) *CaptureService {
	if cfg.FrameCount <= 0 {
		cfg.FrameCount = DefaultFrameCount
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultFrameInterval
	}
	if cfg.ResultTimeout <= 0 {
		cfg.ResultTimeout = DefaultResultTimeout
	}
	return &CaptureService{
		acquirer:  acquirer,
		sampler:   sampler,
		recorder:  recorder,
		transport: transport,
		env:       env,
		logger:    logger,
		cfg:       cfg,
	}
}

// ListDevices returns the available capture devices.
func (s *CaptureService) ListDevices() ([]domain.DeviceDescriptor, error) {
	devices, err := s.acquirer.ListDevices()
	if err != nil {
		s.logger.Error("failed to enumerate devices: %v", err)
		return nil, err
	}
	return devices, nil
}

// Begin starts a new capture session: Idle -> AcquiringDevices -> Streaming.
// Any prior stream is fully released before new devices are acquired.
func (s *CaptureService) Begin(ctx context.Context, preferredDeviceID string) error {
	s.mu.Lock()
	if s.session != nil && !s.session.Status.Terminal() {
		s.mu.Unlock()
		return ErrSessionActive
	}
	s.releaseLocked()
	sess := &domain.Session{
		ID:        "sess_" + uuid.NewString(),
		Status:    domain.StatusAcquiringDevices,
		StartedAt: time.Now(),
	}
	s.session = sess
	s.mu.Unlock()

	s.logger.Info("session %s: acquiring devices", sess.ID)
	stream, err := s.acquirer.Acquire(ctx, AcquireRequest{
		Video:             true,
		Audio:             true,
		PreferredDeviceID: preferredDeviceID,
	})
	if err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	// End may have torn the session down while acquisition was in flight;
	// the fresh stream must not outlive it.
	if s.session != sess || sess.Status.Terminal() {
		s.mu.Unlock()
		stream.Release()
		s.logger.Info("session %s: ended during acquisition, devices released", sess.ID)
		return context.Canceled
	}
	s.stream = stream
	sess.Status = domain.StatusStreaming
	s.mu.Unlock()
	s.logger.Info("session %s: streaming", sess.ID)
	return nil
}

// Capture runs one capture-to-result cycle. It blocks until the inference
// service answers, the bounded wait expires, or the session is cancelled.
// Triggering it while a capture is already in flight is a no-op and returns
// ErrCaptureInFlight without touching the session.
func (s *CaptureService) Capture(ctx context.Context) (*domain.InferenceResult, error) {
	s.mu.Lock()
	sess := s.session
	if sess == nil || sess.Status.Terminal() {
		s.mu.Unlock()
		return nil, ErrNoActiveSession
	}
	if sess.Status.InFlight() {
		s.mu.Unlock()
		return nil, ErrCaptureInFlight
	}
	if sess.Status != domain.StatusStreaming {
		s.mu.Unlock()
		return nil, ErrNoActiveSession
	}
	cctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	stream := s.stream
	sess.Environment = s.env.Snapshot()
	s.mu.Unlock()
	defer func() {
		cancel()
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
	}()

	payload := &domain.CapturePayload{Environment: sess.Environment}
	if s.cfg.LiveStream {
		payload.Tracks = stream.Tracks()
	} else {
		if err := s.sampleBuffered(cctx, sess, stream, payload); err != nil {
			return nil, err
		}
	}

	s.setStatus(sess, domain.StatusTransmitting)
	sctx, scancel := context.WithTimeout(cctx, s.cfg.ResultTimeout)
	defer scancel()

	s.setStatus(sess, domain.StatusAwaitingResult)
	result, err := s.transport.Send(sctx, payload)
	if err != nil {
		return nil, s.fail(err)
	}
	if result == nil || len(result.Recommendations) == 0 {
		return nil, s.fail(domain.ErrEmptyResult)
	}

	s.mu.Lock()
	sess.Result = result
	sess.Status = domain.StatusCompleted
	s.mu.Unlock()
	s.releaseStream()
	s.logger.Info("session %s: completed with %d recommendations", sess.ID, len(result.Recommendations))
	return result, nil
}

// sampleBuffered runs the buffered variant: audio recording concurrent with
// the frame loop, both finished before the payload is assembled.
func (s *CaptureService) sampleBuffered(ctx context.Context, sess *domain.Session, stream domain.LiveStream, payload *domain.CapturePayload) error {
	s.setStatus(sess, domain.StatusSampling)

	if err := s.recorder.Start(stream); err != nil {
		return s.fail(err)
	}

	frames, err := s.sampler.Sample(ctx, stream.Video(), s.cfg.FrameCount, s.cfg.FrameInterval)
	if err != nil {
		if _, stopErr := s.recorder.Stop(); stopErr != nil {
			s.logger.Debug("recorder stop after sampling failure: %v", stopErr)
		}
		return s.fail(err)
	}

	audio, err := s.recorder.Stop()
	if err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	sess.Frames = frames
	sess.Audio = audio
	s.mu.Unlock()
	payload.Frames = frames
	payload.Audio = audio
	return nil
}

// End tears the session down: cancels any in-flight capture, releases all
// hardware and closes the transport. Safe to call multiple times.
func (s *CaptureService) End() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	sess := s.session
	if sess != nil && !sess.Status.Terminal() {
		sess.Status = domain.StatusFailed
		sess.Err = context.Canceled
	}
	s.releaseLocked()
	s.mu.Unlock()

	if err := s.transport.Close(); err != nil {
		s.logger.Debug("transport close: %v", err)
	}
}

// Status returns the current session status, or StatusIdle when no session
// has been started.
func (s *CaptureService) Status() domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return domain.StatusIdle
	}
	return s.session.Status
}

// Session returns the current session record, or nil.
func (s *CaptureService) Session() *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// fail moves the session to Failed, releases hardware and returns err.
func (s *CaptureService) fail(err error) error {
	s.mu.Lock()
	if s.session != nil {
		s.session.Status = domain.StatusFailed
		s.session.Err = err
		s.logger.Error("session %s: %v", s.session.ID, err)
	}
	s.releaseLocked()
	s.mu.Unlock()
	return err
}

func (s *CaptureService) setStatus(sess *domain.Session, st domain.Status) {
	s.mu.Lock()
	sess.Status = st
	s.mu.Unlock()
	s.logger.Debug("session %s: %s", sess.ID, st)
}

func (s *CaptureService) releaseStream() {
	s.mu.Lock()
	s.releaseLocked()
	s.mu.Unlock()
}

// releaseLocked stops the active stream. Callers hold s.mu.
func (s *CaptureService) releaseLocked() {
	if s.stream != nil {
		s.stream.Release()
		s.stream = nil
	}
}
