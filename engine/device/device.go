// Package device implements the accelerator-parallel k-means engine.
//
// Pixels, centroids and assignments are staged in device buffers once per
// Exec. Each iteration launches an assign kernel over a grid of blocks that
// writes per-block partial sums, then a single-block reduce kernel that folds
// them into per-cluster totals. The host reads back the totals and the
// changed count, recomputes the centroids and uploads them for the next
// launch.
package device

import (
	"context"
	"image"
	"math/rand/v2"
	"time"

	"github.com/hupe1980/kmeansbench"
	"github.com/hupe1980/kmeansbench/distance"
	"github.com/hupe1980/kmeansbench/engine"
	idevice "github.com/hupe1980/kmeansbench/internal/device"
	"github.com/hupe1980/kmeansbench/internal/kmeans"
)

// Name is the registry name of this engine.
const Name = "Device"

// DefaultBlockSize is the number of pixels per block.
const DefaultBlockSize = 4096

const channels = kmeans.Channels

// Engine runs Lloyd's loop as kernel launches on a modeled device.
type Engine struct {
	engine.ResultBuffer
	opts engine.Options
	host *idevice.Host

	iterations int
}

var _ engine.Engine = (*Engine)(nil)

// New creates a device engine on a Host with default settings.
func New(opts ...engine.Option) *Engine {
	return NewWithHost(idevice.NewHost(idevice.Config{}), opts...)
}

// NewWithHost creates a device engine on h.
func NewWithHost(h *idevice.Host, opts ...engine.Option) *Engine {
	o := engine.ApplyOptions(opts...)
	if o.BlockSize < 1 {
		o.BlockSize = DefaultBlockSize
	}
	return &Engine{opts: o, host: h}
}

// Host returns the device the engine runs on.
func (e *Engine) Host() *idevice.Host {
	return e.host
}

// Iterations returns the iteration count of the most recent successful Exec.
func (e *Engine) Iterations() int {
	return e.iterations
}

// buffers holds the device allocations of one Exec.
type buffers struct {
	pixels        *idevice.Buffer[float32]
	centroids     *idevice.Buffer[float32]
	assignments   *idevice.Buffer[int32]
	partialSums   *idevice.Buffer[float64]
	partialCounts *idevice.Buffer[int32]
	partialChange *idevice.Buffer[int32]
	sums          *idevice.Buffer[float64]
	counts        *idevice.Buffer[int32]
	changed       *idevice.Buffer[int32]
}

func (b *buffers) free() {
	b.pixels.Free()
	b.centroids.Free()
	b.assignments.Free()
	b.partialSums.Free()
	b.partialCounts.Free()
	b.partialChange.Free()
	b.sums.Free()
	b.counts.Free()
	b.changed.Free()
}

func (e *Engine) alloc(n, k, blocks int) (*buffers, error) {
	b := &buffers{}
	var err error
	if b.pixels, err = idevice.Alloc[float32](e.host, n*channels); err != nil {
		return b, err
	}
	if b.centroids, err = idevice.Alloc[float32](e.host, k*channels); err != nil {
		return b, err
	}
	if b.assignments, err = idevice.Alloc[int32](e.host, n); err != nil {
		return b, err
	}
	if b.partialSums, err = idevice.Alloc[float64](e.host, blocks*k*channels); err != nil {
		return b, err
	}
	if b.partialCounts, err = idevice.Alloc[int32](e.host, blocks*k); err != nil {
		return b, err
	}
	if b.partialChange, err = idevice.Alloc[int32](e.host, blocks); err != nil {
		return b, err
	}
	if b.sums, err = idevice.Alloc[float64](e.host, k*channels); err != nil {
		return b, err
	}
	if b.counts, err = idevice.Alloc[int32](e.host, k); err != nil {
		return b, err
	}
	b.changed, err = idevice.Alloc[int32](e.host, 1)
	return b, err
}

// Exec implements engine.Engine.
func (e *Engine) Exec(ctx context.Context, img image.Image, k int) error {
	pixels, w, h := kmeans.Stage(img)
	n := w * h
	if err := kmeans.ValidateK(k, n); err != nil {
		return err
	}

	rng := kmeans.NewRNG(e.opts.Seed)
	centroids, assignments := kmeans.Prepare(pixels, k, rng)
	grid := idevice.Grid{Blocks: (n + e.opts.BlockSize - 1) / e.opts.BlockSize}

	buf, err := e.alloc(n, k, grid.Blocks)
	defer buf.free()
	if err != nil {
		return kmeansbench.NewEngineError(Name, 0, 0, err)
	}

	if err := stage(buf, pixels, centroids, assignments); err != nil {
		return kmeansbench.NewEngineError(Name, 0, 0, err)
	}

	start := time.Now()
	iter, err := e.iterate(ctx, buf, pixels, centroids, k, grid, rng)
	elapsed := time.Since(start)
	if err != nil {
		return kmeansbench.NewEngineError(Name, 0, 0, err)
	}

	if err := idevice.CopyFromDevice(assignments, buf.assignments); err != nil {
		return kmeansbench.NewEngineError(Name, 0, 0, err)
	}
	if err := idevice.CopyFromDevice(centroids, buf.centroids); err != nil {
		return kmeansbench.NewEngineError(Name, 0, 0, err)
	}

	e.iterations = iter
	e.Store(kmeans.Materialize(centroids, assignments, w, h), elapsed)
	return nil
}

func stage(buf *buffers, pixels, centroids []float32, assignments []int32) error {
	if err := idevice.CopyToDevice(buf.pixels, pixels); err != nil {
		return err
	}
	if err := idevice.CopyToDevice(buf.centroids, centroids); err != nil {
		return err
	}
	return idevice.CopyToDevice(buf.assignments, assignments)
}

// iterate runs Lloyd's loop on the device. pixels is the host copy used for
// empty cluster reseeding; centroids is the host mirror of the device
// centroids.
func (e *Engine) iterate(ctx context.Context, buf *buffers, pixels, centroids []float32, k int, grid idevice.Grid, rng *rand.Rand) (int, error) {
	sums := make([]float64, k*channels)
	counts32 := make([]int32, k)
	counts := make([]int, k)
	changed := make([]int32, 1)

	assign := assignKernel(buf, k)
	reduce := reduceKernel(buf, k, grid.Blocks)

	iter := 0
	for iter < e.opts.MaxIterations {
		if err := ctx.Err(); err != nil {
			return iter, err
		}
		iter++

		if err := e.host.Launch(ctx, grid, assign); err != nil {
			return iter, err
		}
		if err := e.host.Launch(ctx, idevice.Grid{Blocks: 1}, reduce); err != nil {
			return iter, err
		}

		if err := idevice.CopyFromDevice(changed, buf.changed); err != nil {
			return iter, err
		}
		if changed[0] == 0 {
			break
		}

		if err := idevice.CopyFromDevice(sums, buf.sums); err != nil {
			return iter, err
		}
		if err := idevice.CopyFromDevice(counts32, buf.counts); err != nil {
			return iter, err
		}
		for j, c := range counts32 {
			counts[j] = int(c)
		}

		kmeans.UpdateCentroids(centroids, sums, counts, pixels, rng)
		if err := idevice.CopyToDevice(buf.centroids, centroids); err != nil {
			return iter, err
		}
	}
	return iter, nil
}

// assignKernel assigns the block's pixels and writes the block's partial
// sums, counts and changed count.
func assignKernel(buf *buffers, k int) idevice.Kernel {
	return func(_ context.Context, b idevice.Block) error {
		pixels := buf.pixels.Data()
		cents := buf.centroids.Data()
		assign := buf.assignments.Data()

		sums := buf.partialSums.Data()[b.Index*k*channels : (b.Index+1)*k*channels]
		counts := buf.partialCounts.Data()[b.Index*k : (b.Index+1)*k]
		clear(sums)
		clear(counts)

		lo, hi := b.Span(len(assign))
		var changed int32
		for i := lo; i < hi; i++ {
			px := pixels[i*channels : i*channels+channels]
			best, _ := distance.Nearest(px, cents)
			if assign[i] != int32(best) {
				assign[i] = int32(best)
				changed++
			}
			o := best * channels
			sums[o] += float64(px[0])
			sums[o+1] += float64(px[1])
			sums[o+2] += float64(px[2])
			counts[best]++
		}
		buf.partialChange.Data()[b.Index] = changed
		return nil
	}
}

// reduceKernel folds the per-block partials into the totals.
func reduceKernel(buf *buffers, k, blocks int) idevice.Kernel {
	return func(_ context.Context, _ idevice.Block) error {
		sums := buf.sums.Data()
		counts := buf.counts.Data()
		clear(sums)
		clear(counts)

		psums := buf.partialSums.Data()
		pcounts := buf.partialCounts.Data()
		pchange := buf.partialChange.Data()

		var changed int32
		for blk := 0; blk < blocks; blk++ {
			for i, s := range psums[blk*k*channels : (blk+1)*k*channels] {
				sums[i] += s
			}
			for j, c := range pcounts[blk*k : (blk+1)*k] {
				counts[j] += c
			}
			changed += pchange[blk]
		}
		buf.changed.Data()[0] = changed
		return nil
	}
}
