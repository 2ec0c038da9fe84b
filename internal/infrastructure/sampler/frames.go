// Package sampler captures ordered still-image sequences from a live
// video source.
package sampler

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"time"

	"moodflix-capture/internal/application"
	"moodflix-capture/internal/domain"
)

// JPEG quality for captured frames.
const defaultQuality = 80

// Sampler implements application.FrameSampler. It is a blocking,
// sequential, single-consumer loop: frames are produced strictly in order
// and partial results are discarded on failure.
type Sampler struct {
	logger  application.Logger
	quality int

	// sleep is swappable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSampler creates a frame sampler.
func NewSampler(logger application.Logger) *Sampler {
	return &Sampler{
		logger:  logger,
		quality: defaultQuality,
		sleep:   sleepCtx,
	}
}

// Sample captures count frames from src, sleeping interval between
// captures. No sleep follows the final frame. Fails with ErrNotReady when
// the source is absent and with ErrStreamInterrupted when the stream stops
// or the context is cancelled mid-loop.
func (s *Sampler) Sample(ctx context.Context, src domain.FrameSource, count int, interval time.Duration) ([]domain.ImageSample, error) {
	if src == nil {
		return nil, domain.ErrNotReady
	}
	if count <= 0 {
		return nil, fmt.Errorf("frame count must be positive, got %d", count)
	}

	frames := make([]domain.ImageSample, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, domain.ErrStreamInterrupted)
		}

		img, release, err := src.ReadFrame()
		if err != nil {
			s.logger.Error("frame %d read failed: %v", i, err)
			return nil, fmt.Errorf("frame %d: %w", i, domain.ErrStreamInterrupted)
		}

		var buf bytes.Buffer
		encErr := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality})
		if release != nil {
			release()
		}
		if encErr != nil {
			return nil, fmt.Errorf("frame %d: %w: %v", i, domain.ErrEncodeFailed, encErr)
		}

		frames = append(frames, domain.ImageSample{
			SequenceIndex: i,
			Data:          buf.Bytes(),
			CapturedAt:    time.Now(),
		})

		if i < count-1 {
			if err := s.sleep(ctx, interval); err != nil {
				return nil, fmt.Errorf("frame %d: %w", i, domain.ErrStreamInterrupted)
			}
		}
	}
	s.logger.Debug("captured %d frames", len(frames))
	return frames, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
