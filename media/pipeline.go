package media

import (
	"context"
	"errors"
	"io"
	"sync/atomic"

	"github.com/opd-ai/seqlink/buffer"
	"github.com/opd-ai/seqlink/sequence"
	"github.com/sirupsen/logrus"
)

// FrameReader yields frames from a media stream.
type FrameReader interface {
	ReadFrame() (*buffer.Frame, error)
}

// PipelineStats counts what a Pipeline did with the frames it read.
type PipelineStats struct {
	Frames   uint64
	Late     uint64
	Overflow uint64
}

// Pipeline moves frames from a FrameReader into a jitter buffer. Late frames
// and frames arriving while the buffer is full are dropped and counted.
type Pipeline struct {
	src FrameReader
	dst buffer.ItemQueue[*buffer.Frame]

	frames   atomic.Uint64
	late     atomic.Uint64
	overflow atomic.Uint64
}

// NewPipeline connects src to dst.
func NewPipeline(src FrameReader, dst buffer.ItemQueue[*buffer.Frame]) *Pipeline {
	return &Pipeline{src: src, dst: dst}
}

// Run copies frames until the source ends (returning nil), fails, or ctx is
// cancelled. Cancellation closes the source if it implements io.Closer so a
// blocked read returns.
func (p *Pipeline) Run(ctx context.Context) error {
	if closer, ok := p.src.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = closer.Close() })
		defer stop()
	}

	for {
		frame, err := p.src.ReadFrame()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		p.frames.Add(1)

		if err := p.dst.Put(frame); err != nil {
			switch {
			case errors.Is(err, sequence.ErrOutOfWindow):
				p.late.Add(1)
			case errors.Is(err, buffer.ErrCapacityExceeded):
				p.overflow.Add(1)
			default:
				return err
			}
			logrus.WithFields(logrus.Fields{
				"function": "Pipeline.Run",
				"sequence": frame.Sequence(),
				"error":    err.Error(),
			}).Debug("Dropping frame")
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// Stats returns the pipeline counters.
func (p *Pipeline) Stats() PipelineStats {
	return PipelineStats{
		Frames:   p.frames.Load(),
		Late:     p.late.Load(),
		Overflow: p.overflow.Load(),
	}
}
