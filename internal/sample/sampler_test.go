package sample

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"testing"

	"pressbox/internal/raster"
	"pressbox/internal/services"
)

type fakeSource struct {
	frames []*image.NRGBA
	next   int
}

func (f *fakeSource) Next() (image.Image, error) {
	if f.next >= len(f.frames) {
		return nil, io.EOF
	}
	frame := f.frames[f.next]
	f.next++
	return frame, nil
}

type captureSink struct {
	pushes [][]byte
	fail   error
}

func (c *captureSink) PushFrame(pix []byte) error {
	if c.fail != nil {
		return c.fail
	}
	c.pushes = append(c.pushes, append([]byte(nil), pix...))
	return nil
}

func solidFrame(c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func newTestBuffer(t *testing.T) *raster.Buffer {
	t.Helper()
	buf, err := raster.NewBuffer(2, 2)
	if err != nil {
		t.Fatalf("new buffer: %v", err)
	}
	return buf
}

func TestSamplerHoldsFramesBetweenStrideMultiples(t *testing.T) {
	red := solidFrame(color.NRGBA{R: 255, A: 255})
	green := solidFrame(color.NRGBA{G: 255, A: 255})
	blue := solidFrame(color.NRGBA{B: 255, A: 255})
	white := solidFrame(color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	src := &fakeSource{frames: []*image.NRGBA{red, green, blue, white}}
	sink := &captureSink{}
	buf := newTestBuffer(t)

	sampler, err := NewSampler(src, buf, sink, 2, 4, nil)
	if err != nil {
		t.Fatalf("new sampler: %v", err)
	}
	pushed, err := sampler.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if pushed != 4 {
		t.Fatalf("pushed = %d, want 4", pushed)
	}

	// Stride 2: frames 0 and 2 are rendered, frames 1 and 3 hold.
	if sink.pushes[0][0] != 255 || sink.pushes[0][1] != 0 {
		t.Fatalf("frame 0 should be red, got %v", sink.pushes[0][:4])
	}
	for i := range sink.pushes[0] {
		if sink.pushes[1][i] != sink.pushes[0][i] {
			t.Fatal("frame 1 should hold frame 0's raster")
		}
	}
	if sink.pushes[2][2] != 255 {
		t.Fatalf("frame 2 should be blue, got %v", sink.pushes[2][:4])
	}
	for i := range sink.pushes[2] {
		if sink.pushes[3][i] != sink.pushes[2][i] {
			t.Fatal("frame 3 should hold frame 2's raster")
		}
	}
	if buf.Draws() != 2 {
		t.Fatalf("draws = %d, want 2", buf.Draws())
	}
}

func TestSamplerProgressIsMonotonic(t *testing.T) {
	frames := make([]*image.NRGBA, 8)
	for i := range frames {
		frames[i] = solidFrame(color.NRGBA{R: uint8(i), A: 255})
	}
	var ticks []int64
	sampler, err := NewSampler(&fakeSource{frames: frames}, newTestBuffer(t), &captureSink{}, 1, 8, func(done, total int64) {
		ticks = append(ticks, done)
		if total != 8 {
			t.Fatalf("total = %d, want 8", total)
		}
	})
	if err != nil {
		t.Fatalf("new sampler: %v", err)
	}
	if _, err := sampler.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(ticks) != 8 {
		t.Fatalf("ticks = %d, want 8", len(ticks))
	}
	for i := 1; i < len(ticks); i++ {
		if ticks[i] < ticks[i-1] {
			t.Fatal("progress ticks must be monotonically non-decreasing")
		}
	}
	if ticks[len(ticks)-1] != 8 {
		t.Fatalf("final tick = %d, want 8", ticks[len(ticks)-1])
	}
}

func TestSamplerStopsAtSourceExhaustion(t *testing.T) {
	frames := []*image.NRGBA{solidFrame(color.NRGBA{A: 255})}
	sampler, err := NewSampler(&fakeSource{frames: frames}, newTestBuffer(t), &captureSink{}, 1, 100, nil)
	if err != nil {
		t.Fatalf("new sampler: %v", err)
	}
	pushed, err := sampler.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if pushed != 1 {
		t.Fatalf("pushed = %d, want 1", pushed)
	}
}

func TestSamplerCancellationBetweenTicks(t *testing.T) {
	frames := make([]*image.NRGBA, 4)
	for i := range frames {
		frames[i] = solidFrame(color.NRGBA{A: 255})
	}
	ctx, cancel := context.WithCancel(context.Background())
	sink := &captureSink{}
	var sampler *Sampler
	var err error
	sampler, err = NewSampler(&fakeSource{frames: frames}, newTestBuffer(t), sink, 1, 4, func(done, total int64) {
		if done == 2 {
			cancel()
		}
	})
	if err != nil {
		t.Fatalf("new sampler: %v", err)
	}
	pushed, err := sampler.Run(ctx)
	if !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if pushed != 2 {
		t.Fatalf("pushed = %d, want 2 (cancellation observed between ticks)", pushed)
	}
}

func TestSamplerPropagatesSinkFailure(t *testing.T) {
	sinkErr := services.Wrap(services.ErrEncodeFailed, "encode", "push frame", "pipe closed", nil)
	sampler, err := NewSampler(
		&fakeSource{frames: []*image.NRGBA{solidFrame(color.NRGBA{A: 255})}},
		newTestBuffer(t),
		&captureSink{fail: sinkErr},
		1, 1, nil,
	)
	if err != nil {
		t.Fatalf("new sampler: %v", err)
	}
	if _, err := sampler.Run(context.Background()); !errors.Is(err, services.ErrEncodeFailed) {
		t.Fatalf("expected ErrEncodeFailed, got %v", err)
	}
}
