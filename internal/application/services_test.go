package application

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"moodflix-capture/internal/domain"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}

type fakeStream struct {
	released int
	tracks   []domain.MediaTrack
}

func (s *fakeStream) Video() domain.FrameSource           { return nil }
func (s *fakeStream) AudioReader() (io.ReadCloser, error) { return nil, nil }
func (s *fakeStream) Tracks() []domain.MediaTrack         { return s.tracks }
func (s *fakeStream) Release()                            { s.released++ }

type fakeAcquirer struct {
	stream  *fakeStream
	err     error
	devices []domain.DeviceDescriptor

	// onAcquire runs while acquisition is in flight, before it returns.
	onAcquire func()
}

func (a *fakeAcquirer) ListDevices() ([]domain.DeviceDescriptor, error) { return a.devices, nil }
func (a *fakeAcquirer) Acquire(ctx context.Context, req AcquireRequest) (domain.LiveStream, error) {
	if a.onAcquire != nil {
		a.onAcquire()
	}
	if a.err != nil {
		return nil, a.err
	}
	return a.stream, nil
}

type fakeSampler struct {
	frames []domain.ImageSample
	err    error
	calls  int
}

func (s *fakeSampler) Sample(ctx context.Context, src domain.FrameSource, count int, interval time.Duration) ([]domain.ImageSample, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.frames, nil
}

type fakeRecorder struct {
	started int
	stopped int
	stopErr error
}

func (r *fakeRecorder) Start(stream domain.LiveStream) error { r.started++; return nil }
func (r *fakeRecorder) Stop() (*domain.AudioArtifact, error) {
	r.stopped++
	if r.stopErr != nil {
		return nil, r.stopErr
	}
	return &domain.AudioArtifact{Data: []byte("audio"), Duration: time.Second}, nil
}

type fakeTransport struct {
	result  *domain.InferenceResult
	err     error
	closed  int
	payload *domain.CapturePayload
}

func (t *fakeTransport) Send(ctx context.Context, payload *domain.CapturePayload) (*domain.InferenceResult, error) {
	t.payload = payload
	if t.err != nil {
		return nil, t.err
	}
	return t.result, nil
}
func (t *fakeTransport) Close() error { t.closed++; return nil }

type fakeEnv struct{}

func (fakeEnv) Snapshot() domain.EnvironmentSnapshot {
	return domain.EnvironmentSnapshot{City: "Seoul"}
}

type fixture struct {
	acquirer  *fakeAcquirer
	sampler   *fakeSampler
	recorder  *fakeRecorder
	transport *fakeTransport
	service   *CaptureService
}

func newFixture(cfg SessionConfig) *fixture {
	f := &fixture{
		acquirer: &fakeAcquirer{stream: &fakeStream{}},
		sampler: &fakeSampler{frames: []domain.ImageSample{
			{SequenceIndex: 0, Data: []byte("f0")},
			{SequenceIndex: 1, Data: []byte("f1")},
		}},
		recorder:  &fakeRecorder{},
		transport: &fakeTransport{result: &domain.InferenceResult{Recommendations: []string{"Interstellar", "Joker"}}},
	}
	f.service = NewCaptureService(f.acquirer, f.sampler, f.recorder, f.transport, fakeEnv{}, nopLogger{}, cfg)
	return f
}

func TestCaptureHappyPath(t *testing.T) {
	f := newFixture(SessionConfig{})
	ctx := context.Background()

	if err := f.service.Begin(ctx, ""); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if got := f.service.Status(); got != domain.StatusStreaming {
		t.Fatalf("status after Begin = %s, want streaming", got)
	}

	result, err := f.service.Capture(ctx)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if len(result.Recommendations) != 2 {
		t.Fatalf("got %d recommendations, want 2", len(result.Recommendations))
	}
	if got := f.service.Status(); got != domain.StatusCompleted {
		t.Errorf("status = %s, want completed", got)
	}
	if f.recorder.started != 1 || f.recorder.stopped != 1 {
		t.Errorf("recorder started=%d stopped=%d, want 1/1", f.recorder.started, f.recorder.stopped)
	}
	if len(f.transport.payload.Frames) != 2 {
		t.Errorf("transport saw %d frames, want 2", len(f.transport.payload.Frames))
	}
	if f.transport.payload.Environment.City != "Seoul" {
		t.Errorf("environment snapshot not attached to payload")
	}
	if f.acquirer.stream.released == 0 {
		t.Error("stream not released after completion")
	}
}

func TestBeginWhileActive(t *testing.T) {
	f := newFixture(SessionConfig{})
	if err := f.service.Begin(context.Background(), ""); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := f.service.Begin(context.Background(), ""); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("second Begin err = %v, want ErrSessionActive", err)
	}
}

func TestCaptureWithoutSession(t *testing.T) {
	f := newFixture(SessionConfig{})
	if _, err := f.service.Capture(context.Background()); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("err = %v, want ErrNoActiveSession", err)
	}
}

func TestCaptureInFlightIsNoOp(t *testing.T) {
	f := newFixture(SessionConfig{})
	if err := f.service.Begin(context.Background(), ""); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	sess := f.service.Session()
	sess.Status = domain.StatusAwaitingResult

	if _, err := f.service.Capture(context.Background()); !errors.Is(err, ErrCaptureInFlight) {
		t.Fatalf("err = %v, want ErrCaptureInFlight", err)
	}
	if sess.Status != domain.StatusAwaitingResult {
		t.Errorf("in-flight trigger changed status to %s", sess.Status)
	}
	if f.sampler.calls != 0 {
		t.Errorf("in-flight trigger started sampling")
	}
}

func TestCaptureSamplerFailureReleasesHardware(t *testing.T) {
	f := newFixture(SessionConfig{})
	f.sampler.err = domain.ErrStreamInterrupted

	if err := f.service.Begin(context.Background(), ""); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := f.service.Capture(context.Background()); !errors.Is(err, domain.ErrStreamInterrupted) {
		t.Fatalf("err = %v, want ErrStreamInterrupted", err)
	}
	if got := f.service.Status(); got != domain.StatusFailed {
		t.Errorf("status = %s, want failed", got)
	}
	if f.acquirer.stream.released == 0 {
		t.Error("stream not released after sampling failure")
	}
	if f.recorder.stopped == 0 {
		t.Error("recorder left running after sampling failure")
	}
}

func TestCaptureEmptyResult(t *testing.T) {
	f := newFixture(SessionConfig{})
	f.transport.result = &domain.InferenceResult{}

	if err := f.service.Begin(context.Background(), ""); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := f.service.Capture(context.Background()); !errors.Is(err, domain.ErrEmptyResult) {
		t.Fatalf("err = %v, want ErrEmptyResult", err)
	}
	if got := f.service.Status(); got != domain.StatusFailed {
		t.Errorf("status = %s, want failed", got)
	}
	if f.acquirer.stream.released == 0 {
		t.Error("stream not released after empty result")
	}
}

func TestCaptureTransportFailure(t *testing.T) {
	f := newFixture(SessionConfig{})
	f.transport.err = &domain.TransportError{Kind: domain.TransportNetworkUnreachable}

	if err := f.service.Begin(context.Background(), ""); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	_, err := f.service.Capture(context.Background())
	var trErr *domain.TransportError
	if !errors.As(err, &trErr) || trErr.Kind != domain.TransportNetworkUnreachable {
		t.Fatalf("err = %v, want TransportError/network_unreachable", err)
	}
	if f.acquirer.stream.released == 0 {
		t.Error("stream not released after transport failure")
	}
}

func TestBeginAcquireFailure(t *testing.T) {
	f := newFixture(SessionConfig{})
	f.acquirer.err = &domain.DeviceError{Kind: domain.DevicePermissionDenied}

	err := f.service.Begin(context.Background(), "")
	var devErr *domain.DeviceError
	if !errors.As(err, &devErr) || devErr.Kind != domain.DevicePermissionDenied {
		t.Fatalf("err = %v, want DeviceError/permission_denied", err)
	}
	if got := f.service.Status(); got != domain.StatusFailed {
		t.Errorf("status = %s, want failed", got)
	}
}

func TestEndReleasesEverything(t *testing.T) {
	f := newFixture(SessionConfig{})
	if err := f.service.Begin(context.Background(), ""); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	f.service.End()

	if got := f.service.Status(); got != domain.StatusFailed {
		t.Errorf("status = %s, want failed", got)
	}
	if f.acquirer.stream.released == 0 {
		t.Error("stream not released on End")
	}
	if f.transport.closed == 0 {
		t.Error("transport not closed on End")
	}

	// End is idempotent.
	f.service.End()
}

func TestEndDuringAcquisitionReleasesStream(t *testing.T) {
	f := newFixture(SessionConfig{})
	f.acquirer.onAcquire = func() { f.service.End() }

	err := f.service.Begin(context.Background(), "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Begin err = %v, want context.Canceled", err)
	}
	if got := f.service.Status(); got != domain.StatusFailed {
		t.Errorf("status = %s, want failed", got)
	}
	if f.acquirer.stream.released == 0 {
		t.Error("stream acquired after End was never released")
	}
}

func TestNewSessionAfterTerminal(t *testing.T) {
	f := newFixture(SessionConfig{})
	if err := f.service.Begin(context.Background(), ""); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := f.service.Capture(context.Background()); err != nil {
		t.Fatalf("Capture: %v", err)
	}

	first := f.service.Session().ID
	f.acquirer.stream = &fakeStream{}
	if err := f.service.Begin(context.Background(), ""); err != nil {
		t.Fatalf("Begin after completion: %v", err)
	}
	if f.service.Session().ID == first {
		t.Error("retry reused the terminal session instead of creating a new one")
	}
}

type fakeTrack struct{ kind string }

func (t *fakeTrack) ID() string   { return "track-" + t.kind }
func (t *fakeTrack) Kind() string { return t.kind }
func (t *fakeTrack) Close() error { return nil }

func TestCaptureLiveStreamVariant(t *testing.T) {
	f := newFixture(SessionConfig{LiveStream: true})
	f.acquirer.stream.tracks = []domain.MediaTrack{&fakeTrack{kind: "video"}, &fakeTrack{kind: "audio"}}

	if err := f.service.Begin(context.Background(), ""); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := f.service.Capture(context.Background()); err != nil {
		t.Fatalf("Capture: %v", err)
	}

	if f.sampler.calls != 0 {
		t.Error("live variant ran the frame sampler")
	}
	if f.recorder.started != 0 {
		t.Error("live variant started the audio recorder")
	}
	if len(f.transport.payload.Tracks) != 2 {
		t.Errorf("transport saw %d tracks, want 2", len(f.transport.payload.Tracks))
	}
	if f.transport.payload.Frames != nil {
		t.Error("live variant attached sampled frames")
	}
}
