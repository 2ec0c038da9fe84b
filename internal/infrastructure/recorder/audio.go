// Package recorder buffers encoded audio from an acquired audio track
// into a single artifact.
package recorder

import (
	"io"
	"sync"
	"time"

	"moodflix-capture/internal/application"
	"moodflix-capture/internal/domain"
)

const readBufferSize = 32 * 1024

// Recorder implements application.AudioRecorder. Start begins buffering
// encoded chunks from the stream's audio track; Stop finalizes the
// recording, concatenates the chunks and releases the reader. The recorder
// always reaches a finalized state before the artifact is returned.
type Recorder struct {
	logger application.Logger

	mu        sync.Mutex
	reader    io.ReadCloser
	recording bool
	startedAt time.Time
	chunks    [][]byte
	done      chan struct{}
	readErr   error
}

// NewRecorder creates an audio recorder.
func NewRecorder(logger application.Logger) *Recorder {
	return &Recorder{logger: logger}
}

// Start begins buffering audio from the stream. Fails with
// *domain.DeviceError when no audio track is available.
func (r *Recorder) Start(stream domain.LiveStream) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return domain.ErrNotReady
	}

	reader, err := stream.AudioReader()
	if err != nil {
		return err
	}

	r.reader = reader
	r.recording = true
	r.startedAt = time.Now()
	r.chunks = nil
	r.done = make(chan struct{})
	r.readErr = nil

	go r.readLoop(reader, r.done)
	return nil
}

func (r *Recorder) readLoop(reader io.Reader, done chan struct{}) {
	defer close(done)
	buf := make([]byte, readBufferSize)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			r.mu.Lock()
			r.chunks = append(r.chunks, chunk)
			r.mu.Unlock()
		}
		if err != nil {
			if err != io.EOF {
				r.mu.Lock()
				r.readErr = err
				r.mu.Unlock()
			}
			return
		}
	}
}

// Stop finalizes the recorder and returns the concatenated artifact.
// Calling Stop without a prior successful Start fails with ErrNotRecording;
// no partial artifact is ever returned.
func (r *Recorder) Stop() (*domain.AudioArtifact, error) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return nil, domain.ErrNotRecording
	}
	reader := r.reader
	done := r.done
	startedAt := r.startedAt
	r.recording = false
	r.reader = nil
	r.mu.Unlock()

	// Closing the reader releases the audio track and unblocks the read
	// loop; wait for it to finish before assembling the artifact.
	if err := reader.Close(); err != nil {
		r.logger.Debug("audio reader close: %v", err)
	}
	<-done

	r.mu.Lock()
	chunks := r.chunks
	readErr := r.readErr
	r.chunks = nil
	r.done = nil
	r.mu.Unlock()

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	if total == 0 && readErr != nil {
		return nil, &domain.DeviceError{Kind: domain.DeviceUnavailable, Reason: "audio recording produced no data", Err: readErr}
	}

	data := make([]byte, 0, total)
	for _, c := range chunks {
		data = append(data, c...)
	}
	return &domain.AudioArtifact{
		Data:     data,
		Duration: time.Since(startedAt),
	}, nil
}
