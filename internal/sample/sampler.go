package sample

import (
	"context"
	"errors"
	"image"
	"io"

	"pressbox/internal/raster"
	"pressbox/internal/services"
)

// Source yields one decoded frame per sample point, io.EOF on exhaustion.
type Source interface {
	Next() (image.Image, error)
}

// Sink consumes raw raster frames at the capture rate.
type Sink interface {
	PushFrame(pix []byte) error
}

// TickFunc observes loop progress after every tick with the number of frames
// pushed so far and the planned total.
type TickFunc func(done, total int64)

// Sampler drives the decode→render→encode loop for one pipeline. On each
// tick it pulls the next decoded frame; on stride multiples it draws the
// frame into the raster buffer, otherwise the buffer holds its previous
// contents and the encoder reads the same raster again. That hold is the
// profile's deliberate speed/quality tradeoff, not a defect.
type Sampler struct {
	source Source
	buffer *raster.Buffer
	sink   Sink
	stride int64
	total  int64
	onTick TickFunc
}

// NewSampler wires a sampler over one pipeline's decode source, raster
// buffer, and encoder sink.
func NewSampler(source Source, buffer *raster.Buffer, sink Sink, stride, totalFrames int64, onTick TickFunc) (*Sampler, error) {
	if source == nil || buffer == nil || sink == nil {
		return nil, services.Wrap(services.ErrConfiguration, "sample", "new sampler", "source, buffer, and sink are required", nil)
	}
	if stride <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, "sample", "new sampler", "frame stride must be positive", nil)
	}
	if totalFrames <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, "sample", "new sampler", "total frames must be positive", nil)
	}
	return &Sampler{source: source, buffer: buffer, sink: sink, stride: stride, total: totalFrames, onTick: onTick}, nil
}

// Run executes the loop until totalFrames is reached or the source is
// exhausted, returning the number of frames pushed. Frames are the atomic
// unit of work: cancellation is observed between ticks only, so no frame is
// ever half-rendered when the loop stops.
func (s *Sampler) Run(ctx context.Context) (int64, error) {
	var pushed int64
	for index := int64(0); index < s.total; index++ {
		if err := ctx.Err(); err != nil {
			return pushed, services.Wrap(services.ErrCancelled, "sample", "tick", "compression cancelled between frames", err)
		}

		frame, err := s.source.Next()
		if errors.Is(err, io.EOF) {
			// Source exhausted before the planned total; the encoder
			// finalizes with whatever was captured.
			break
		}
		if err != nil {
			return pushed, err
		}

		if index%s.stride == 0 {
			s.buffer.Draw(frame)
		}

		if err := s.sink.PushFrame(s.buffer.Pix()); err != nil {
			return pushed, err
		}
		pushed++
		if s.onTick != nil {
			s.onTick(pushed, s.total)
		}
	}
	return pushed, nil
}
