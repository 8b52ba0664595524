// Package resource implements the Controller that bounds shared resources.
//
// Three resource types are managed:
//
//   - Memory: the device memory budget (non-blocking, fail-fast)
//   - Uploads: concurrent result uploads (semaphore)
//   - IO: upload throughput (token bucket)
//
// # Memory Management
//
// Memory tracking uses a weighted semaphore for hard limits and atomic counters
// for usage and peak tracking. AcquireMemory is non-blocking and returns
// immediately with ErrMemoryLimitExceeded if the limit would be exceeded:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 256 << 20,
//	})
//
//	if err := rc.AcquireMemory(n); err != nil {
//	    // ErrMemoryLimitExceeded
//	}
//	defer rc.ReleaseMemory(n)
//
// # IO Rate Limiting
//
// Token bucket rate limiter for uploads:
//
//	rc := resource.NewController(resource.Config{
//	    IOLimitBytesPerSec: 8 << 20,
//	})
//
//	body := resource.NewRateLimitedReader(ctx, f, rc)
//
// # Nil Safety
//
// All methods handle nil Controller gracefully - they become no-ops.
// This allows optional resource limiting without nil checks everywhere.
package resource
