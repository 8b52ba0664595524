package device

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/hupe1980/kmeansbench/internal/cpuinfo"
	"github.com/hupe1980/kmeansbench/internal/resource"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrOutOfMemory is returned when an allocation exceeds the remaining
	// device memory.
	ErrOutOfMemory = errors.New("device: out of memory")

	// ErrBufferFreed is returned when a freed buffer is used.
	ErrBufferFreed = errors.New("device: buffer already freed")

	// ErrSizeMismatch is returned when a copy does not cover the whole buffer.
	ErrSizeMismatch = errors.New("device: copy size mismatch")

	// ErrInvalidGrid is returned for a launch without blocks.
	ErrInvalidGrid = errors.New("device: invalid grid")
)

// DefaultMemoryBytes is the device memory of a Host created with a zero Config.
const DefaultMemoryBytes = 512 << 20

// Config configures a Host.
type Config struct {
	// MemoryBytes is the device memory budget. 0 selects DefaultMemoryBytes;
	// a negative value disables the limit.
	MemoryBytes int64

	// Concurrency is the number of blocks executed at once.
	// 0 selects runtime.GOMAXPROCS(0).
	Concurrency int
}

// Host is a modeled accelerator. It is safe for concurrent use.
type Host struct {
	rc          *resource.Controller
	concurrency int

	launches    atomic.Int64
	bytesToDev  atomic.Int64
	bytesToHost atomic.Int64
}

// NewHost creates a Host.
func NewHost(cfg Config) *Host {
	if cfg.MemoryBytes == 0 {
		cfg.MemoryBytes = DefaultMemoryBytes
	}
	if cfg.MemoryBytes < 0 {
		cfg.MemoryBytes = 0
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.GOMAXPROCS(0)
	}

	return &Host{
		rc:          resource.NewController(resource.Config{MemoryLimitBytes: cfg.MemoryBytes}),
		concurrency: cfg.Concurrency,
	}
}

// Concurrency returns the number of blocks executed at once.
func (h *Host) Concurrency() int { return h.concurrency }

// MemoryUsage returns the allocated device memory in bytes.
func (h *Host) MemoryUsage() int64 { return h.rc.MemoryUsage() }

// PeakMemoryUsage returns the highest allocated device memory in bytes.
func (h *Host) PeakMemoryUsage() int64 { return h.rc.PeakMemoryUsage() }

// MemoryLimit returns the device memory budget (0 if unlimited).
func (h *Host) MemoryLimit() int64 { return h.rc.MemoryLimit() }

// String describes the host CPU backing the device.
func (h *Host) String() string {
	return fmt.Sprintf("device(%s, blocks=%d)", cpuinfo.Host(), h.concurrency)
}

// Stats is a snapshot of Host counters.
type Stats struct {
	Launches        int64
	BytesToDevice   int64
	BytesToHost     int64
	MemoryUsage     int64
	PeakMemoryUsage int64
}

// Stats returns a snapshot of the host counters.
func (h *Host) Stats() Stats {
	return Stats{
		Launches:        h.launches.Load(),
		BytesToDevice:   h.bytesToDev.Load(),
		BytesToHost:     h.bytesToHost.Load(),
		MemoryUsage:     h.rc.MemoryUsage(),
		PeakMemoryUsage: h.rc.PeakMemoryUsage(),
	}
}

// Element is a type that can be stored in device memory.
type Element interface {
	~int32 | ~float32 | ~float64
}

// Buffer is a typed allocation in device memory.
type Buffer[T Element] struct {
	h     *Host
	data  []T
	bytes int64
	freed atomic.Bool
}

// Alloc reserves n elements of device memory. The memory is zeroed.
func Alloc[T Element](h *Host, n int) (*Buffer[T], error) {
	var zero T
	bytes := int64(n) * int64(unsafe.Sizeof(zero))
	if err := h.rc.AcquireMemory(bytes); err != nil {
		if errors.Is(err, resource.ErrMemoryLimitExceeded) {
			return nil, fmt.Errorf("%w: requested %d bytes, %d of %d in use", ErrOutOfMemory, bytes, h.rc.MemoryUsage(), h.rc.MemoryLimit())
		}
		return nil, err
	}
	return &Buffer[T]{h: h, data: make([]T, n), bytes: bytes}, nil
}

// Len returns the number of elements.
func (b *Buffer[T]) Len() int { return len(b.data) }

// Data exposes the device memory to kernels. Host code must use
// CopyToDevice and CopyFromDevice instead.
func (b *Buffer[T]) Data() []T { return b.data }

// Free returns the memory to the host budget. It is idempotent.
func (b *Buffer[T]) Free() {
	if b == nil || !b.freed.CompareAndSwap(false, true) {
		return
	}
	b.h.rc.ReleaseMemory(b.bytes)
	b.data = nil
}

// CopyToDevice copies src into dst. len(src) must equal dst.Len().
func CopyToDevice[T Element](dst *Buffer[T], src []T) error {
	if dst.freed.Load() {
		return ErrBufferFreed
	}
	if len(src) != len(dst.data) {
		return fmt.Errorf("%w: host %d, device %d", ErrSizeMismatch, len(src), len(dst.data))
	}
	copy(dst.data, src)
	dst.h.bytesToDev.Add(dst.bytes)
	return nil
}

// CopyFromDevice copies src into dst. len(dst) must equal src.Len().
func CopyFromDevice[T Element](dst []T, src *Buffer[T]) error {
	if src.freed.Load() {
		return ErrBufferFreed
	}
	if len(dst) != len(src.data) {
		return fmt.Errorf("%w: host %d, device %d", ErrSizeMismatch, len(dst), len(src.data))
	}
	copy(dst, src.data)
	src.h.bytesToHost.Add(src.bytes)
	return nil
}

// Grid describes a kernel launch.
type Grid struct {
	Blocks int
}

// Block identifies one block of a launch.
type Block struct {
	Index  int
	Blocks int
}

// Span returns the half-open range of [0, n) covered by this block when n
// items are split evenly across the grid.
func (b Block) Span(n int) (lo, hi int) {
	size := (n + b.Blocks - 1) / b.Blocks
	lo = min(b.Index*size, n)
	hi = min(lo+size, n)
	return lo, hi
}

// Kernel is the code executed for each block.
type Kernel func(ctx context.Context, b Block) error

// Launch runs kernel once per block and waits for all of them. The first
// error cancels the remaining blocks and is returned.
func (h *Host) Launch(ctx context.Context, grid Grid, kernel Kernel) error {
	if grid.Blocks < 1 {
		return fmt.Errorf("%w: %d blocks", ErrInvalidGrid, grid.Blocks)
	}
	h.launches.Add(1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.concurrency)
	for i := 0; i < grid.Blocks; i++ {
		if gctx.Err() != nil {
			break
		}
		b := Block{Index: i, Blocks: grid.Blocks}
		g.Go(func() error {
			return kernel(gctx, b)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
