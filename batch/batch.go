// Package batch fans the scanline decoder out across an ordered list of
// frame images and assembles the recovered bytes into a single stream,
// two bytes per frame, in input order.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/line21/decode"
)

// Sampler yields the luma samples of one scanline of a frame image.
// Accepting an interface here decouples the driver from image decoding,
// making it testable with synthetic rows.
type Sampler interface {
	ReadScanline(path string, row int) ([]uint8, error)
}

// Observer receives every frame's decode outcome as workers finish. Each
// frame is reported exactly once, tagged with its input-order index;
// calls may arrive concurrently and out of order.
type Observer func(index int, path string, res decode.Result)

// Extractor runs the frame decoder across batches of frames with a fixed
// worker pool. Frames are independent: each worker owns its own row
// buffers and writes only its own slot of the output stream, so the pool
// needs no locking.
type Extractor struct {
	log     *slog.Logger
	sampler Sampler
	dec     *decode.Decoder
	workers int
	observe Observer

	decoded  atomic.Int64
	rejected atomic.Int64
}

// New creates an Extractor reading rows through sampler with the given
// worker count; workers <= 0 means one worker per CPU. A nil log
// disables diagnostics.
func New(sampler Sampler, workers int, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Extractor{
		log:     log,
		sampler: sampler,
		dec:     decode.New(log),
		workers: workers,
	}
}

// SetObserver registers fn to be called with every frame's decode
// outcome. Must be set before Extract.
func (e *Extractor) SetObserver(fn Observer) {
	e.observe = fn
}

// Extract decodes the given row of every frame and returns the
// concatenated byte stream, exactly two bytes per frame in input order
// regardless of worker completion order. Frames that carry no valid
// caption data contribute the (0, 0) sentinel pair; a frame whose image
// cannot be read aborts the whole batch, since that is a missing input
// rather than an absent caption.
func (e *Extractor) Extract(ctx context.Context, frames []string, row int) ([]byte, error) {
	out := make([]byte, 2*len(frames))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, path := range frames {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			samples, err := e.sampler.ReadScanline(path, row)
			if err != nil {
				return fmt.Errorf("frame %d (%s): %w", i, path, err)
			}
			res := e.dec.Frame(samples)
			if res.Err != nil {
				e.rejected.Add(1)
				e.log.Debug("frame rejected", "frame", path, "reason", res.Err)
			} else {
				e.decoded.Add(1)
			}
			if e.observe != nil {
				e.observe(i, path, res)
			}
			out[2*i], out[2*i+1] = res.Pair()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats reports how many frames decoded cleanly and how many were
// rejected since the Extractor was created.
func (e *Extractor) Stats() (decoded, rejected int64) {
	return e.decoded.Load(), e.rejected.Load()
}
